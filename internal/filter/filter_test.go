package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.klb.dev/nozzle/internal/history"
)

func records() []history.Record {
	return []history.Record{
		{ID: "1", Text: "git status"},
		{ID: "2", Text: "kubectl get pods"},
		{ID: "3", Text: "Hello World"},
	}
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		query  string
		want   map[history.ID]bool
	}{
		{"fuzzy empty shows all", Fuzzy{}, "", map[history.ID]bool{"1": true, "2": true, "3": true}},
		{"fuzzy blank shows all", Fuzzy{}, "   ", map[history.ID]bool{"1": true, "2": true, "3": true}},
		{"fuzzy subsequence", Fuzzy{}, "kgp", map[history.ID]bool{"2": true}},
		{"fuzzy no match", Fuzzy{}, "zzz", map[history.ID]bool{}},
		{"exact case-insensitive", Substring{}, "hello", map[history.ID]bool{"3": true}},
		{"exact needs contiguous", Substring{}, "kgp", map[history.ID]bool{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.Match(tt.query, records()))
		})
	}
}

func TestFuzzy_MaxRunesBoundsMatching(t *testing.T) {
	recs := []history.Record{{ID: "long", Text: "aaaa" + "needle"}}
	require.Empty(t, Fuzzy{MaxRunes: 4}.Match("needle", recs))
	require.Len(t, Fuzzy{}.Match("needle", recs), 1)
}

func TestNew(t *testing.T) {
	require.IsType(t, Substring{}, New("exact"))
	require.IsType(t, Fuzzy{}, New("fuzzy"))
	require.IsType(t, Fuzzy{}, New(""))
}
