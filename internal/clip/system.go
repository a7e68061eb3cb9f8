package clip

import (
	"context"
	"fmt"
	"log/slog"

	"go.klb.dev/nozzle/internal/history"
)

// Suppressor pauses history recording while the clipboard is being
// driven programmatically.
type Suppressor interface {
	Suppress(ctx context.Context, on bool) error
}

// SuppressorFunc adapts a function to Suppressor.
type SuppressorFunc func(ctx context.Context, on bool) error

func (f SuppressorFunc) Suppress(ctx context.Context, on bool) error { return f(ctx, on) }

// System is the clipboard as the paste pipeline drives it: a Backend for
// writes, a Paster for keystrokes, and a Suppressor reaching the recorder.
type System struct {
	ctx      context.Context
	backend  Backend
	paster   *Paster
	suppress Suppressor
}

// NewSystem returns a System. paster and suppress may be nil; pasting then
// fails with ErrNoPaster and suppression is skipped.
func NewSystem(ctx context.Context, b Backend, p *Paster, s Suppressor) *System {
	return &System{ctx: ctx, backend: b, paster: p, suppress: s}
}

func (s *System) WriteText(text string) error {
	return s.backend.WriteText(text)
}

func (s *System) WriteRecord(r history.Record) error {
	if err := s.backend.WriteText(r.Text); err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	return nil
}

func (s *System) EmitPaste() error {
	if s.paster == nil {
		return ErrNoPaster
	}
	return s.paster.Paste(s.ctx)
}

// SetSuppressed forwards to the Suppressor. Failures are only logged.
func (s *System) SetSuppressed(on bool) {
	if s.suppress == nil {
		return
	}
	if err := s.suppress.Suppress(s.ctx, on); err != nil {
		slog.Warn("clipboard suppression failed", "on", on, "err", err)
	}
}
