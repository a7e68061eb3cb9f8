// Package orchestrator turns the popup's checked records and prompt into
// clipboard writes and synthetic paste keystrokes.
//
// A combined paste is a Run: a precomputed list of steps executed one at a
// time through the injected clock, each step scheduling the next only after
// its own delay has elapsed. Clipboard change recording is suppressed for
// the whole run so the pipeline's writes are not mistaken for user copies.
// Everything here runs on the control loop.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"

	"go.klb.dev/nozzle/internal/clock"
	"go.klb.dev/nozzle/internal/format"
	"go.klb.dev/nozzle/internal/history"
)

var (
	// ErrNoContent means there was nothing checked and no prompt.
	ErrNoContent = errors.New("nothing to paste")

	// ErrStaleReference marks a checked record that vanished before it
	// could be restored.
	ErrStaleReference = errors.New("record no longer in history")

	// ErrClipboardUnavailable wraps a failed clipboard write or keystroke.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")

	// ErrBusy means a run is already in progress.
	ErrBusy = errors.New("paste already in progress")

	// ErrCancelled ends a run torn down before completion.
	ErrCancelled = errors.New("paste cancelled")
)

// Clipboard is the system clipboard as seen by the pipeline.
type Clipboard interface {
	WriteText(text string) error
	WriteRecord(r history.Record) error
	EmitPaste() error

	// SetSuppressed tells the history recorder to ignore clipboard changes.
	SetSuppressed(on bool)
}

// Selection is the state a run snapshots and restores.
type Selection interface {
	CheckedRecords() []history.Record
	Prompt() string
	SetPrompt(p string)
	RestoreChecked(ids []history.ID) int
}

// Popup is the window hosting the selection.
type Popup interface {
	Close()
}

// PopupFunc adapts a function to Popup.
type PopupFunc func()

func (f PopupFunc) Close() { f() }

// Result reports how a run ended.
type Result struct {
	Run *Run

	// Err is nil on success, ErrCancelled, or a wrapped ErrClipboardUnavailable.
	Err error

	// Stale counts snapshot records missing at restore time.
	Stale int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option { return func(o *Orchestrator) { o.timing = t } }

// WithTemplate sets the combined copy template.
func WithTemplate(tmpl string) Option { return func(o *Orchestrator) { o.template = tmpl } }

// WithFinish registers fn to run after every run ends.
func WithFinish(fn func(Result)) Option { return func(o *Orchestrator) { o.onFinish = fn } }

// Orchestrator drives combined paste and copy. At most one run is active.
type Orchestrator struct {
	clock    clock.Clock
	clip     Clipboard
	sel      Selection
	popup    Popup
	timing   Timing
	template string
	onFinish func(Result)

	active *Run
}

// New returns an Orchestrator. c schedules the pipeline's delays.
func New(c clock.Clock, cb Clipboard, sel Selection, p Popup, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		clock:    c,
		clip:     cb,
		sel:      sel,
		popup:    p,
		timing:   DefaultTiming(),
		template: format.DefaultTemplate,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Timing returns the configured delays.
func (o *Orchestrator) Timing() Timing { return o.timing }

// Busy reports whether a run is in progress.
func (o *Orchestrator) Busy() bool { return o.active != nil }

// Active returns the run in progress, or nil.
func (o *Orchestrator) Active() *Run { return o.active }

// PerformCombinedPaste pastes the prompt and every checked record, in store
// order, into the focused application. The popup closes before the first
// write. When the run ends the prompt and checks are put back as they were.
// A run that fails on its first write is returned together with its error.
func (o *Orchestrator) PerformCombinedPaste() (*Run, error) {
	return o.start(o.sel.Prompt(), o.sel.CheckedRecords())
}

// PasteRecord pastes a single record, leaving the prompt and checks alone.
func (o *Orchestrator) PasteRecord(r history.Record) (*Run, error) {
	return o.start("", []history.Record{r})
}

func (o *Orchestrator) start(prompt string, records []history.Record) (*Run, error) {
	if o.active != nil {
		slog.Debug("paste ignored, run in progress")
		return nil, ErrBusy
	}
	if prompt == "" && len(records) == 0 {
		return nil, ErrNoContent
	}

	plan := BuildPlan(prompt, records)
	r := &Run{
		o:       o,
		plan:    plan,
		steps:   o.timing.Compile(plan),
		prompt:  o.sel.Prompt(),
		checked: history.IDs(o.sel.CheckedRecords()),
	}
	o.active = r

	o.clip.SetSuppressed(true)
	o.popup.Close()

	slog.Debug("paste run started", "entries", len(plan), "steps", len(r.steps),
		"duration", Duration(r.steps))
	r.step()
	if r.done && r.err != nil {
		return r, r.err
	}
	return r, nil
}

// PerformCombinedCopy formats the prompt and checked records into one
// string, puts it on the clipboard and closes the popup.
func (o *Orchestrator) PerformCombinedCopy() (string, error) {
	records := o.sel.CheckedRecords()
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	text := format.Combine(o.template, o.sel.Prompt(), texts)
	if text == "" {
		return "", ErrNoContent
	}
	if err := o.clip.WriteText(text); err != nil {
		return "", fmt.Errorf("%w: %w", ErrClipboardUnavailable, err)
	}
	o.popup.Close()
	return text, nil
}

// Cancel drops the remaining steps of the active run and clears
// suppression. Selection state is not restored.
func (o *Orchestrator) Cancel() {
	r := o.active
	if r == nil {
		return
	}
	r.timer.Stop()
	r.end(ErrCancelled, false)
}

// Run is one combined paste in progress. Its plan and steps never change
// after start.
type Run struct {
	o     *Orchestrator
	plan  []Entry
	steps []Step
	next  int
	timer *clock.Timer
	done  bool
	err   error

	prompt  string
	checked []history.ID
}

// Plan returns the entries being pasted.
func (r *Run) Plan() []Entry { return append([]Entry(nil), r.plan...) }

// Steps returns every step of the run.
func (r *Run) Steps() []Step { return append([]Step(nil), r.steps...) }

// Index is the number of steps executed so far.
func (r *Run) Index() int { return r.next }

// Done reports whether the run has ended.
func (r *Run) Done() bool { return r.done }

// Err is the reason the run ended early, if it did.
func (r *Run) Err() error { return r.err }

func (r *Run) step() {
	if r.done {
		return
	}
	if r.next >= len(r.steps) {
		r.end(nil, true)
		return
	}

	s := r.steps[r.next]
	r.next++
	if err := r.exec(s); err != nil {
		slog.Warn("paste run aborted", "step", r.next-1, "op", s.Op, "err", err)
		r.end(err, true)
		return
	}
	r.timer = r.o.clock.AfterFunc(s.Delay, r.step)
}

func (r *Run) exec(s Step) error {
	cb := r.o.clip
	switch {
	case s.Op == OpPaste:
		if err := cb.EmitPaste(); err != nil {
			return fmt.Errorf("%w: emit paste: %w", ErrClipboardUnavailable, err)
		}
	case s.Entry.Kind == KindItem:
		if err := cb.WriteRecord(s.Entry.Record); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrClipboardUnavailable, s.Entry.Record.ID, err)
		}
	default:
		if err := cb.WriteText(s.Entry.Text); err != nil {
			return fmt.Errorf("%w: write text: %w", ErrClipboardUnavailable, err)
		}
	}
	return nil
}

func (r *Run) end(err error, restore bool) {
	r.done = true
	r.err = err
	o := r.o
	if o.active == r {
		o.active = nil
	}
	o.clip.SetSuppressed(false)

	res := Result{Run: r, Err: err}
	if restore {
		o.sel.SetPrompt(r.prompt)
		res.Stale = o.sel.RestoreChecked(r.checked)
		if res.Stale > 0 {
			slog.Debug("restored selection with missing records", "stale", res.Stale)
		}
	}
	slog.Debug("paste run finished", "steps", r.next, "err", err)

	if o.onFinish != nil {
		o.onFinish(res)
	}
}
