// Package format builds the single combined string the "copy combined"
// action puts on the clipboard.
package format

import "strings"

// DefaultTemplate shows the prompt, then the checked items under a
// "Context:" label. The label disappears when there is no prompt.
const DefaultTemplate = "{prompt}\nContext:\n{items}"

const (
	promptPlaceholder = "{prompt}"
	itemsPlaceholder  = "{items}"
	contextMarker     = "\nContext:\n"
)

// Combine renders template with prompt and items. Items are joined with
// newlines. With an empty prompt every "\nContext:\n" marker is removed, as
// is a "Context:\n" line opening the output. The result is trimmed; it is
// empty when there is neither prompt nor items.
func Combine(template, prompt string, items []string) string {
	if prompt == "" && len(items) == 0 {
		return ""
	}

	out := strings.ReplaceAll(template, promptPlaceholder, prompt)
	out = strings.ReplaceAll(out, itemsPlaceholder, strings.Join(items, "\n"))

	if prompt == "" {
		out = strings.ReplaceAll(out, contextMarker, "")
		out = strings.TrimPrefix(out, contextMarker[1:])
	}
	return strings.TrimSpace(out)
}
