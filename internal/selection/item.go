package selection

import "go.klb.dev/nozzle/internal/history"

// Item decorates one history record with this session's presentation state.
type Item struct {
	Record      history.Record
	Checked     bool
	Visible     bool
	Focused     bool
	PreviewOpen bool
}

// ID returns the record ID.
func (it Item) ID() history.ID { return it.Record.ID }

// ActionID names a footer action.
type ActionID string

const (
	ActionClearSelection ActionID = "clear_selection"
	ActionPasteCombined  ActionID = "paste_combined"
	ActionCopyCombined   ActionID = "copy_combined"
	ActionClearHistory   ActionID = "clear_history"
	ActionPreferences    ActionID = "preferences"
	ActionQuit           ActionID = "quit"
)

// Action is a footer entry.
type Action struct {
	ID    ActionID
	Title string

	// Shortcut is a display hint only; key dispatch lives in the popup.
	Shortcut string

	Visible bool
	Focused bool

	// RequiresContent hides the action unless something is checked or the
	// prompt is non-empty.
	RequiresContent bool

	// RequiresConfirmation makes selecting the action ask first.
	RequiresConfirmation bool

	Run func()
}
