// Package recorder watches the system clipboard and records new text into
// the history store.
//
// Recording can be suppressed while something else (the paste pipeline)
// drives the clipboard. Suppression always carries a deadline so a
// requester that dies mid-paste cannot leave the daemon deaf.
package recorder

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.klb.dev/nozzle/internal/clip"
	"go.klb.dev/nozzle/internal/history"
)

// DefaultSuppressTTL bounds a suppression whose requester gave none.
const DefaultSuppressTTL = 30 * time.Second

// Recorder copies clipboard changes into a history store.
type Recorder struct {
	store   history.Store
	backend clip.Backend
	now     func() time.Time

	mu           sync.Mutex
	lastText     string
	until        time.Time
	holder       string
	lastRecorded time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithNow overrides time.Now, for suppression deadlines.
func WithNow(now func() time.Time) Option { return func(r *Recorder) { r.now = now } }

// New creates the recorder but does not start it.
func New(store history.Store, backend clip.Backend, opts ...Option) *Recorder {
	r := &Recorder{store: store, backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run records clipboard changes until ctx is done. Whatever is on the
// clipboard at start is taken as the baseline, not recorded.
func (r *Recorder) Run(ctx context.Context) error {
	r.absorb()
	slog.Info("clipboard recorder started", "backend", r.backend.Name())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.backend.Watch():
			r.handle(ctx)
		}
	}
}

func (r *Recorder) handle(ctx context.Context) {
	text, err := r.backend.ReadText()
	if err != nil {
		slog.Error("clipboard read failed", "err", err)
		return
	}

	r.mu.Lock()
	if text == r.lastText {
		r.mu.Unlock()
		return
	}
	r.lastText = text
	if r.suppressedLocked() {
		holder := r.holder
		r.mu.Unlock()
		slog.Debug("clipboard change ignored while suppressed", "holder", holder)
		return
	}
	r.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return
	}
	rec, err := r.store.Add(ctx, text)
	if err != nil {
		slog.Error("history add failed", "err", err)
		return
	}

	r.mu.Lock()
	r.lastRecorded = r.now()
	r.mu.Unlock()
	slog.Debug("clipboard recorded", "id", rec.ID, "text", history.Preview(text, 40))
}

// SetSuppressed turns suppression on for at most ttl, or off. Turning it
// off takes the current clipboard as the new baseline so the last write
// made while suppressed is not recorded late.
func (r *Recorder) SetSuppressed(on bool, ttl time.Duration, holder string) {
	if ttl <= 0 {
		ttl = DefaultSuppressTTL
	}
	r.mu.Lock()
	if on {
		r.until = r.now().Add(ttl)
		r.holder = holder
	} else {
		r.until = time.Time{}
		r.holder = ""
	}
	r.mu.Unlock()

	slog.Debug("clipboard suppression", "on", on, "holder", holder, "ttl", ttl)
	if !on {
		r.absorb()
	}
}

// Suppress implements clip.Suppressor for in-process pastes.
func (r *Recorder) Suppress(_ context.Context, on bool) error {
	r.SetSuppressed(on, DefaultSuppressTTL, "local")
	return nil
}

// Suppressed reports whether recording is currently suppressed.
func (r *Recorder) Suppressed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suppressedLocked()
}

// LastRecorded is when text was last added to history.
func (r *Recorder) LastRecorded() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRecorded
}

func (r *Recorder) suppressedLocked() bool {
	return !r.until.IsZero() && r.now().Before(r.until)
}

func (r *Recorder) absorb() {
	text, err := r.backend.ReadText()
	if err != nil {
		slog.Warn("clipboard read failed", "err", err)
		return
	}
	r.mu.Lock()
	r.lastText = text
	r.mu.Unlock()
}
