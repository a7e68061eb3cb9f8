// Package app composes one popup session: the history store, the selection
// model and the paste orchestrator, plus the footer actions and editing
// commands the popup's keys map onto.
//
// Every method must run on the control loop. Store notifications arrive on
// other goroutines and are posted back through the post func given to New.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.klb.dev/nozzle/internal/clock"
	"go.klb.dev/nozzle/internal/filter"
	"go.klb.dev/nozzle/internal/format"
	"go.klb.dev/nozzle/internal/history"
	"go.klb.dev/nozzle/internal/orchestrator"
	"go.klb.dev/nozzle/internal/selection"
)

// Mode says which text the input line edits.
type Mode int

const (
	ModeSearch Mode = iota
	ModePrompt
)

func (m Mode) String() string {
	if m == ModePrompt {
		return "prompt"
	}
	return "search"
}

// Config holds the session's tunables.
type Config struct {
	Template     string
	Timing       orchestrator.Timing
	PreviewDelay time.Duration
	FilterMode   string
}

// Hooks connect the session to its window.
type Hooks struct {
	// Close hides the popup. A paste run keeps going after Close.
	Close func()

	// Changed reports a state change not caused by a direct call.
	Changed func()

	// Preferences opens the configuration for editing.
	Preferences func()

	// Finished is called when a paste run ends.
	Finished func(orchestrator.Result)
}

// App is one popup session.
type App struct {
	ctx      context.Context
	store    history.Store
	sessions history.SessionStore
	post     func(func()) bool
	clip     orchestrator.Clipboard
	hooks    Hooks

	sel  *selection.Model
	orch *orchestrator.Orchestrator

	mode    Mode
	confirm selection.ActionID
	status  string
	closed  bool
	unsub   func()
}

// New builds a session. c schedules timers and must deliver callbacks on
// the control loop; post queues work onto it.
func New(ctx context.Context, store history.Store, cb orchestrator.Clipboard, c clock.Clock,
	post func(func()) bool, cfg Config, hooks Hooks) *App {
	a := &App{
		ctx:   ctx,
		store: store,
		post:  post,
		clip:  cb,
		hooks: hooks,
	}
	if s, ok := store.(history.SessionStore); ok {
		a.sessions = s
	}
	if cfg.Template == "" {
		cfg.Template = format.DefaultTemplate
	}
	if cfg.Timing == (orchestrator.Timing{}) {
		cfg.Timing = orchestrator.DefaultTiming()
	}

	a.sel = selection.New(filter.New(cfg.FilterMode), c, cfg.PreviewDelay)
	a.sel.OnChange(a.changed)
	a.sel.SetActions(a.footer())

	a.orch = orchestrator.New(c, cb, a.sel, orchestrator.PopupFunc(a.Close),
		orchestrator.WithTiming(cfg.Timing),
		orchestrator.WithTemplate(cfg.Template),
		orchestrator.WithFinish(a.finished),
	)
	return a
}

func (a *App) footer() []selection.Action {
	return []selection.Action{
		{ID: selection.ActionClearSelection, Title: "Clear selection", Shortcut: "ctrl+x", Visible: true, Run: a.ClearSelection},
		{ID: selection.ActionPasteCombined, Title: "Paste combined", Shortcut: "ctrl+s", RequiresContent: true, Run: a.PasteCombined},
		{ID: selection.ActionCopyCombined, Title: "Copy combined", Shortcut: "ctrl+y", RequiresContent: true, Run: a.CopyCombined},
		{ID: selection.ActionClearHistory, Title: "Clear history", Shortcut: "ctrl+k", Visible: true, RequiresConfirmation: true, Run: a.ClearHistory},
		{ID: selection.ActionPreferences, Title: "Preferences…", Shortcut: "ctrl+e", Visible: true, Run: a.Preferences},
		{ID: selection.ActionQuit, Title: "Quit", Shortcut: "esc", Visible: true, Run: a.Close},
	}
}

// Load reads the history and the saved session, subscribes to store
// changes, and focuses the first item.
func (a *App) Load() error {
	records, err := a.store.List(a.ctx)
	if err != nil {
		return err
	}
	a.sel.SetRecords(records)

	if a.sessions != nil {
		sess, err := a.sessions.LoadSession(a.ctx)
		if err != nil {
			slog.Warn("session load failed", "err", err)
		} else {
			a.sel.SetPrompt(sess.Prompt)
			if stale := a.sel.RestoreChecked(sess.Checked); stale > 0 {
				slog.Debug("session restored without removed records", "stale", stale)
			}
		}
	}

	a.unsub = a.store.Subscribe(func() { a.post(a.reload) })
	a.sel.Navigate(selection.First)
	return nil
}

func (a *App) reload() {
	records, err := a.store.List(a.ctx)
	if err != nil {
		slog.Error("history reload failed", "err", err)
		a.setStatus("reload failed: " + err.Error())
		return
	}
	a.sel.SetRecords(records)
	if a.sel.Cursor().IsZero() && !a.closed {
		a.sel.Navigate(selection.First)
	}
	a.changed()
}

// Teardown cancels any paste run and stops listening to the store.
func (a *App) Teardown() {
	a.orch.Cancel()
	if a.unsub != nil {
		a.unsub()
		a.unsub = nil
	}
}

// Selection exposes the selection model for rendering.
func (a *App) Selection() *selection.Model { return a.sel }

// Mode returns the input mode.
func (a *App) Mode() Mode { return a.mode }

// Status is the last message for the status line.
func (a *App) Status() string { return a.status }

// Confirming returns the action waiting for a second press, if any.
func (a *App) Confirming() selection.ActionID { return a.confirm }

// Busy reports whether a paste run is in progress.
func (a *App) Busy() bool { return a.orch.Busy() }

// Closed reports whether the popup has been closed.
func (a *App) Closed() bool { return a.closed }

// Input returns the text the input line shows.
func (a *App) Input() string {
	if a.mode == ModePrompt {
		return a.sel.Prompt()
	}
	return a.sel.Query()
}

// ToggleMode switches the input line between search and prompt. Entering
// prompt mode clears the search; the prompt survives both ways.
func (a *App) ToggleMode() {
	if a.mode == ModePrompt {
		a.mode = ModeSearch
		return
	}
	a.mode = ModePrompt
	a.sel.SetQuery("")
}

// Type appends s to the input line.
func (a *App) Type(s string) { a.setInput(a.Input() + s) }

// DeleteChar removes the last rune of the input line.
func (a *App) DeleteChar() {
	r := []rune(a.Input())
	if len(r) == 0 {
		return
	}
	a.setInput(string(r[:len(r)-1]))
}

// DeleteWord removes the last space-separated word of the input line.
func (a *App) DeleteWord() {
	words := strings.Fields(a.Input())
	if len(words) <= 1 {
		a.setInput("")
		return
	}
	a.setInput(strings.Join(words[:len(words)-1], " ") + " ")
}

// ClearInput empties the input line.
func (a *App) ClearInput() { a.setInput("") }

func (a *App) setInput(s string) {
	a.confirm = ""
	if a.mode == ModePrompt {
		a.sel.SetPrompt(s)
	} else {
		a.sel.SetQuery(s)
	}
}

// Navigate moves the cursor.
func (a *App) Navigate(dir selection.Direction) {
	a.confirm = ""
	a.sel.Navigate(dir)
}

// Select acts on the focused entity: items toggle their check, actions run.
// With nothing focused, a non-empty search is copied and cleared.
func (a *App) Select() {
	if it, ok := a.sel.FocusedItem(); ok {
		a.sel.ToggleChecked(it.ID())
		return
	}
	if act, ok := a.sel.FocusedAction(); ok {
		a.RunAction(act.ID)
		return
	}
	if q := a.sel.Query(); q != "" {
		if err := a.clip.WriteText(q); err != nil {
			a.reportPipeline(fmt.Errorf("%w: %w", orchestrator.ErrClipboardUnavailable, err))
			return
		}
		a.sel.SetQuery("")
		a.setStatus("copied search text")
	}
}

// ToggleNth toggles the check on the n-th visible item (0-based) and
// moves the cursor to it.
func (a *App) ToggleNth(n int) {
	if it, ok := a.sel.VisibleAt(n); ok {
		a.sel.ToggleChecked(it.ID())
		a.sel.SetCursor(string(it.ID()))
	}
}

// PasteNth focuses the n-th visible item (0-based) and pastes just that
// item, ignoring the checked set and prompt.
func (a *App) PasteNth(n int) {
	it, ok := a.sel.VisibleAt(n)
	if !ok {
		return
	}
	a.sel.SetCursor(string(it.ID()))
	if _, err := a.orch.PasteRecord(it.Record); err != nil {
		a.reportPipeline(err)
	}
}

// RunAction runs a footer action. Actions requiring confirmation run on
// the second consecutive request.
func (a *App) RunAction(id selection.ActionID) {
	act, ok := a.sel.Action(id)
	if !ok || !act.Visible || act.Run == nil {
		return
	}
	if act.RequiresConfirmation && a.confirm != id {
		a.confirm = id
		a.setStatus(act.Title + "? Press again to confirm.")
		return
	}
	a.confirm = ""
	act.Run()
}

// ClearSelection unchecks everything and empties the prompt and search.
func (a *App) ClearSelection() {
	a.sel.ClearAll()
	a.setStatus("")
}

// PasteCombined pastes the prompt and checked items into the focused app.
func (a *App) PasteCombined() {
	if _, err := a.orch.PerformCombinedPaste(); err != nil {
		a.reportPipeline(err)
	}
}

// CopyCombined puts the formatted prompt and checked items on the clipboard.
func (a *App) CopyCombined() {
	if _, err := a.orch.PerformCombinedCopy(); err != nil {
		a.reportPipeline(err)
	}
}

// PasteFocused pastes just the focused item.
func (a *App) PasteFocused() {
	it, ok := a.sel.FocusedItem()
	if !ok {
		return
	}
	if _, err := a.orch.PasteRecord(it.Record); err != nil {
		a.reportPipeline(err)
	}
}

func (a *App) reportPipeline(err error) {
	switch {
	case errors.Is(err, orchestrator.ErrNoContent):
		slog.Debug("nothing to paste")
	case errors.Is(err, orchestrator.ErrBusy):
		a.setStatus("paste in progress")
	default:
		slog.Error("clipboard operation failed", "err", err)
		a.setStatus(err.Error())
	}
}

// DeleteFocused removes the focused item from history, moving the cursor
// to the next entity first.
func (a *App) DeleteFocused() {
	it, ok := a.sel.FocusedItem()
	if !ok {
		return
	}
	if !a.sel.Navigate(selection.Next) {
		a.sel.Navigate(selection.Previous)
	}
	if err := a.store.Delete(a.ctx, it.ID()); err != nil {
		a.storeFailed("delete", err)
	}
}

// TogglePin pins or unpins the focused item.
func (a *App) TogglePin() {
	it, ok := a.sel.FocusedItem()
	if !ok {
		return
	}
	if err := a.store.SetPinned(a.ctx, it.ID(), !it.Record.Pinned); err != nil {
		a.storeFailed("pin", err)
	}
}

// ClearHistory removes every unpinned record.
func (a *App) ClearHistory() {
	if err := a.store.Clear(a.ctx); err != nil {
		a.storeFailed("clear", err)
		return
	}
	a.setStatus("history cleared")
}

func (a *App) storeFailed(op string, err error) {
	slog.Error("history "+op+" failed", "err", err)
	a.setStatus(op + " failed: " + err.Error())
}

// TogglePreview shows or hides the full text of the focused item.
func (a *App) TogglePreview() { a.sel.TogglePreview() }

// Preferences opens the configuration.
func (a *App) Preferences() {
	if a.hooks.Preferences != nil {
		a.hooks.Preferences()
	}
}

// Close saves the session and hides the popup. Safe to call twice.
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.saveSession()
	if a.hooks.Close != nil {
		a.hooks.Close()
	}
}

func (a *App) finished(res orchestrator.Result) {
	a.saveSession()
	if res.Err != nil && !errors.Is(res.Err, orchestrator.ErrCancelled) {
		a.setStatus(res.Err.Error())
	}
	if a.hooks.Finished != nil {
		a.hooks.Finished(res)
	}
	a.changed()
}

func (a *App) saveSession() {
	if a.sessions == nil {
		return
	}
	sess := history.Session{Prompt: a.sel.Prompt(), Checked: a.sel.CheckedIDs()}
	if err := a.sessions.SaveSession(a.ctx, sess); err != nil {
		slog.Warn("session save failed", "err", err)
	}
}

func (a *App) setStatus(s string) { a.status = s }

func (a *App) changed() {
	if a.hooks.Changed != nil {
		a.hooks.Changed()
	}
}
