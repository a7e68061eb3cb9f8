// Package popup is the terminal front end of a session: a bubbletea program
// that maps keys and mouse events onto app.App and renders its state.
//
// The app lives on the control loop, so every call into it goes through a
// Runner that executes on that loop and waits. The model keeps a snapshot
// taken after each call and View renders only the snapshot.
package popup

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"go.klb.dev/nozzle/internal/app"
	"go.klb.dev/nozzle/internal/orchestrator"
	"go.klb.dev/nozzle/internal/selection"
)

// Runner runs f on the control loop and waits for it. It returns false if
// the loop is gone.
type Runner func(f func()) bool

// Options configures the popup.
type Options struct {
	Keys KeyMap

	// ConfigPath is the file the preferences action opens.
	ConfigPath string

	// Editor overrides $VISUAL and $EDITOR.
	Editor string
}

var errNoConfig = errors.New("no config file to edit")

type changedMsg struct{}

type prefsClosedMsg struct{ err error }

// Bridge carries app callbacks to the running program. Create it before the
// app so its hooks can be passed to app.New, then Attach the program.
type Bridge struct {
	mu       sync.Mutex
	program  *tea.Program
	prefs    atomic.Bool
	finished chan orchestrator.Result
}

// NewBridge returns an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{finished: make(chan orchestrator.Result, 1)}
}

// Attach sets the program that receives change notifications.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Hooks returns app hooks that notify the attached program.
func (b *Bridge) Hooks() app.Hooks {
	return app.Hooks{
		Close:       b.notify,
		Changed:     b.notify,
		Preferences: func() { b.prefs.Store(true) },
		Finished: func(res orchestrator.Result) {
			select {
			case b.finished <- res:
			default:
			}
			b.notify()
		},
	}
}

// Finished delivers the result of the session's paste run.
func (b *Bridge) Finished() <-chan orchestrator.Result { return b.finished }

// notify runs on the control loop, which the program may itself be blocked
// on inside a Runner call, so Send must not be awaited here.
func (b *Bridge) notify() {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p != nil {
		go p.Send(changedMsg{})
	}
}

func (b *Bridge) takePreferences() bool { return b.prefs.Swap(false) }

type snapshot struct {
	mode    app.Mode
	input   string
	prompt  string
	items   []selection.Item
	actions []selection.Action
	cursor  selection.Focus
	scroll  string
	total   int
	checked int
	status  string
	confirm selection.ActionID
	busy    bool
	closed  bool
}

func capture(a *app.App) snapshot {
	sel := a.Selection()
	return snapshot{
		mode:    a.Mode(),
		input:   a.Input(),
		prompt:  sel.Prompt(),
		items:   sel.VisibleItems(),
		actions: sel.VisibleActions(),
		cursor:  sel.Cursor(),
		scroll:  sel.ScrollTarget(),
		total:   len(sel.Records()),
		checked: len(sel.CheckedIDs()),
		status:  a.Status(),
		confirm: a.Confirming(),
		busy:    a.Busy(),
		closed:  a.Closed(),
	}
}

func (s snapshot) previewText() (string, bool) {
	for _, it := range s.items {
		if it.PreviewOpen {
			return it.Record.Text, true
		}
	}
	return "", false
}

// Model is the bubbletea model.
type Model struct {
	app    *app.App
	run    Runner
	bridge *Bridge
	keys   KeyMap
	opts   Options

	input   textinput.Model
	help    help.Model
	preview viewport.Model

	snap   snapshot
	offset int
	width  int
	height int
	note   string
}

// New returns the popup model for a. The app must already be loaded.
func New(a *app.App, run Runner, b *Bridge, opts Options) Model {
	if opts.Keys.Quit.Keys() == nil {
		opts.Keys = DefaultKeyMap
	}
	in := textinput.New()
	in.Placeholder = "type to search"
	in.Focus()

	m := Model{
		app:     a,
		run:     run,
		bridge:  b,
		keys:    opts.Keys,
		opts:    opts,
		input:   in,
		help:    help.New(),
		preview: viewport.New(0, 0),
		width:   80,
		height:  24,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case changedMsg:
		return m.apply(nil)

	case prefsClosedMsg:
		if msg.err != nil {
			m.note = "editor: " + msg.err.Error()
		} else {
			m.note = "preferences saved; reopen to apply"
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	var f func(a *app.App)

	switch {
	case key.Matches(msg, k.Quit):
		f = (*app.App).Close
	case key.Matches(msg, k.Up):
		f = func(a *app.App) { a.Navigate(selection.Previous) }
	case key.Matches(msg, k.Down):
		f = func(a *app.App) { a.Navigate(selection.Next) }
	case key.Matches(msg, k.Home):
		f = func(a *app.App) { a.Navigate(selection.First) }
	case key.Matches(msg, k.End):
		f = func(a *app.App) { a.Navigate(selection.Last) }
	case key.Matches(msg, k.PasteFocused):
		f = (*app.App).PasteFocused
	case key.Matches(msg, k.Select):
		f = (*app.App).Select
	case key.Matches(msg, k.PasteCombined):
		f = (*app.App).PasteCombined
	case key.Matches(msg, k.CopyCombined):
		f = (*app.App).CopyCombined
	case key.Matches(msg, k.ToggleNth):
		n := int(msg.Runes[len(msg.Runes)-1] - '1')
		f = func(a *app.App) { a.ToggleNth(n) }
	case key.Matches(msg, k.PasteNth):
		n := strings.IndexRune(shiftedDigits, msg.Runes[len(msg.Runes)-1])
		f = func(a *app.App) { a.PasteNth(n) }
	case key.Matches(msg, k.ToggleMode):
		f = (*app.App).ToggleMode
	case key.Matches(msg, k.ClearSelection):
		f = (*app.App).ClearSelection
	case key.Matches(msg, k.Delete):
		f = (*app.App).DeleteFocused
	case key.Matches(msg, k.Pin):
		f = (*app.App).TogglePin
	case key.Matches(msg, k.Preview):
		f = (*app.App).TogglePreview
	case key.Matches(msg, k.ClearHistory):
		f = func(a *app.App) { a.RunAction(selection.ActionClearHistory) }
	case key.Matches(msg, k.Preferences):
		f = (*app.App).Preferences
	case key.Matches(msg, k.DeleteWord):
		f = (*app.App).DeleteWord
	case key.Matches(msg, k.DeleteChar):
		f = (*app.App).DeleteChar
	case key.Matches(msg, k.ClearInput):
		f = (*app.App).ClearInput
	case msg.Type == tea.KeySpace:
		f = func(a *app.App) { a.Type(" ") }
	case msg.Type == tea.KeyRunes && !msg.Alt:
		text := string(msg.Runes)
		f = func(a *app.App) { a.Type(text) }
	default:
		return m, nil
	}

	m.note = ""
	return m.apply(f)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	id, onRow := m.hit(msg.Y)
	var f func(a *app.App)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		f = func(a *app.App) { a.Navigate(selection.Previous) }
	case msg.Button == tea.MouseButtonWheelDown:
		f = func(a *app.App) { a.Navigate(selection.Next) }
	case msg.Action == tea.MouseActionMotion:
		f = func(a *app.App) {
			a.Selection().PointerMoved()
			if onRow {
				a.Selection().Hover(id)
			}
		}
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && onRow:
		f = func(a *app.App) {
			a.Selection().SetCursor(id)
			a.Select()
		}
	default:
		return m, nil
	}
	return m.apply(f)
}

// apply runs f on the loop, takes a fresh snapshot and turns the outcome
// into a command.
func (m Model) apply(f func(a *app.App)) (tea.Model, tea.Cmd) {
	ok := m.run(func() {
		if f != nil {
			f(m.app)
		}
		m.snap = capture(m.app)
	})
	if !ok || m.snap.closed {
		return m, tea.Quit
	}
	m.layout()
	if m.bridge != nil && m.bridge.takePreferences() {
		return m, m.editPreferences()
	}
	return m, nil
}

func (m *Model) refresh() {
	m.run(func() { m.snap = capture(m.app) })
	m.layout()
}

func (m Model) editPreferences() tea.Cmd {
	if m.opts.ConfigPath == "" {
		return func() tea.Msg { return prefsClosedMsg{err: errNoConfig} }
	}
	editor := m.opts.Editor
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if editor == "" {
			editor = os.Getenv(env)
		}
	}
	if editor == "" {
		editor = "vi"
	}
	argv := append(strings.Fields(editor), m.opts.ConfigPath)
	c := exec.Command(argv[0], argv[1:]...)
	return tea.ExecProcess(c, func(err error) tea.Msg { return prefsClosedMsg{err: err} })
}
