package selection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStep(t *testing.T) {
	hist := []string{"h1", "h2", "h3"}
	foot := []string{"paste", "quit"}
	h := func(id string) Focus { return Focus{Area: AreaHistory, ID: id} }
	f := func(id string) Focus { return Focus{Area: AreaFooter, ID: id} }

	tests := []struct {
		name    string
		cur     Focus
		dir     Direction
		history []string
		footer  []string
		want    Focus
		ok      bool
	}{
		{"first picks history", Focus{}, First, hist, foot, h("h1"), true},
		{"first falls back to footer", h("gone"), First, nil, foot, f("paste"), true},
		{"first on empty", Focus{}, First, nil, nil, Focus{}, false},

		{"next within history", h("h1"), Next, hist, foot, h("h2"), true},
		{"next spills into footer", h("h3"), Next, hist, foot, f("paste"), true},
		{"next at history end without footer", h("h3"), Next, hist, nil, h("h3"), false},
		{"next within footer", f("paste"), Next, hist, foot, f("quit"), true},
		{"next at footer end stays", f("quit"), Next, hist, foot, f("quit"), false},
		{"next unfocused goes to footer", Focus{}, Next, hist, foot, f("paste"), true},
		{"next from hidden item", h("x"), Next, hist, foot, h("x"), false},

		{"previous within history", h("h2"), Previous, hist, foot, h("h1"), true},
		{"previous at history start stays", h("h1"), Previous, hist, foot, h("h1"), false},
		{"previous within footer", f("quit"), Previous, hist, foot, f("paste"), true},
		{"previous wraps footer into history", f("paste"), Previous, hist, foot, h("h3"), true},
		{"previous at footer start without history", f("paste"), Previous, nil, foot, f("paste"), false},
		{"previous unfocused", Focus{}, Previous, hist, foot, Focus{}, false},

		{"last from history jumps to history end", h("h1"), Last, hist, foot, h("h3"), true},
		{"last from history end enters footer", h("h3"), Last, hist, foot, f("paste"), true},
		{"last from footer goes to footer end", f("paste"), Last, hist, foot, f("quit"), true},
		{"last unfocused goes to footer end", Focus{}, Last, hist, foot, f("quit"), true},
		{"last unfocused without footer", Focus{}, Last, hist, nil, Focus{}, false},
		{"last from history end without footer", h("h3"), Last, hist, nil, h("h3"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Step(tt.cur, tt.dir, tt.history, tt.footer)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStep_NextRepeatedMatchesLast(t *testing.T) {
	for n := 1; n <= 5; n++ {
		var hist []string
		for i := 0; i < n; i++ {
			hist = append(hist, string(rune('a'+i)))
		}
		first, ok := Step(Focus{}, First, hist, nil)
		require.True(t, ok)

		cur := first
		for i := 0; i < n; i++ {
			cur, _ = Step(cur, Next, hist, nil)
		}
		last, _ := Step(first, Last, hist, nil)
		require.Equal(t, last, cur, "n=%d", n)
	}
}

func TestStep_OnlyOneArea(t *testing.T) {
	hist := []string{"a", "b"}
	foot := []string{"x", "y"}
	cur := Focus{}
	for _, dir := range []Direction{First, Next, Next, Next, Previous, Previous, Last, Last, Last} {
		cur, _ = Step(cur, dir, hist, foot)
		switch cur.Area {
		case AreaHistory:
			require.Contains(t, hist, cur.ID)
		case AreaFooter:
			require.Contains(t, foot, cur.ID)
		default:
			t.Fatalf("lost focus after %s", dir)
		}
	}
}
