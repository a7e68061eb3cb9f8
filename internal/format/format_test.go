package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name     string
		template string
		prompt   string
		items    []string
		want     string
	}{
		{
			name:     "context line dropped without prompt",
			template: "Context:\n{prompt}\n{items}",
			items:    []string{"a", "b"},
			want:     "a\nb",
		},
		{
			name:     "default template with prompt",
			template: DefaultTemplate,
			prompt:   "explain this",
			items:    []string{"x := 1", "y := 2"},
			want:     "explain this\nContext:\nx := 1\ny := 2",
		},
		{
			name:     "default template without prompt",
			template: DefaultTemplate,
			items:    []string{"only"},
			want:     "only",
		},
		{
			name:     "prompt without items",
			template: "{prompt}\n\n{items}",
			prompt:   "hi",
			want:     "hi",
		},
		{
			name:     "nothing to combine",
			template: DefaultTemplate,
			want:     "",
		},
		{
			name:     "marker kept when prompt present",
			template: "{items}\nContext:\n{prompt}",
			prompt:   "p",
			items:    []string{"i"},
			want:     "i\nContext:\np",
		},
		{
			name:     "surrounding whitespace trimmed",
			template: "\n\n  {prompt} {items}  \n",
			prompt:   "a",
			items:    []string{"b"},
			want:     "a b",
		},
		{
			name:     "placeholders repeat",
			template: "{prompt}/{prompt}",
			prompt:   "x",
			want:     "x/x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Combine(tt.template, tt.prompt, tt.items))
		})
	}
}
