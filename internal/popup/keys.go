package popup

import "github.com/charmbracelet/bubbles/key"

// shiftedDigits are the runes a US layout sends for shift+1 through shift+9.
const shiftedDigits = "!@#$%^&*("

// KeyMap is the popup's key bindings. Printable keys without a modifier
// always go to the input line.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	Select        key.Binding // Toggle the focused item, run the focused action.
	PasteFocused  key.Binding
	PasteCombined key.Binding
	CopyCombined  key.Binding
	ToggleNth     key.Binding // alt+digit toggles the n-th visible item.
	PasteNth      key.Binding // alt+shift+digit pastes the n-th visible item.

	ToggleMode     key.Binding
	ClearSelection key.Binding
	Delete         key.Binding
	Pin            key.Binding
	Preview        key.Binding
	ClearHistory   key.Binding
	Preferences    key.Binding

	DeleteChar key.Binding
	DeleteWord key.Binding
	ClearInput key.Binding

	Quit key.Binding
}

// DefaultKeyMap mirrors the shortcut hints shown next to the footer actions.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "first"),
	),
	End: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("end", "last"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "check"),
	),
	PasteFocused: key.NewBinding(
		key.WithKeys("alt+enter"),
		key.WithHelp("alt+enter", "paste item"),
	),
	PasteCombined: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "paste"),
	),
	CopyCombined: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy"),
	),
	ToggleNth: key.NewBinding(
		key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5", "alt+6", "alt+7", "alt+8", "alt+9"),
		key.WithHelp("alt+1…9", "check nth"),
	),
	PasteNth: key.NewBinding(
		key.WithKeys("alt+!", "alt+@", "alt+#", "alt+$", "alt+%", "alt+^", "alt+&", "alt+*", "alt+("),
		key.WithHelp("alt+shift+1…9", "paste nth"),
	),
	ToggleMode: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "search/prompt"),
	),
	ClearSelection: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "clear"),
	),
	Delete: key.NewBinding(
		key.WithKeys("ctrl+d", "delete"),
		key.WithHelp("ctrl+d", "delete"),
	),
	Pin: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "pin"),
	),
	Preview: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "preview"),
	),
	ClearHistory: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "clear history"),
	),
	Preferences: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "preferences"),
	),
	DeleteChar: key.NewBinding(
		key.WithKeys("backspace"),
	),
	DeleteWord: key.NewBinding(
		key.WithKeys("ctrl+w", "alt+backspace"),
	),
	ClearInput: key.NewBinding(
		key.WithKeys("ctrl+u"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "close"),
	),
}

// ShortHelp is the binding list the help line renders.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.PasteCombined, k.CopyCombined, k.ToggleMode, k.Preview, k.Quit}
}
