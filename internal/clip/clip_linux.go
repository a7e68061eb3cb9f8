//go:build linux

package clip

import (
	"bytes"
	"log/slog"
	"time"

	"golang.design/x/clipboard"
)

const linuxPollInterval = 250 * time.Millisecond

type linuxBackend struct {
	watchCh  chan struct{}
	done     chan struct{}
	lastText []byte
}

// New returns the Linux clipboard backend, or an in-memory backend if the
// display environment is unavailable (e.g. a headless server without X11
// or Wayland). clipboard.Init is called here rather than in init() so that
// CLI sub-commands (list, status) don't trigger the warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewMemory()
	}
	b := &linuxBackend{
		watchCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		lastText: clipboard.Read(clipboard.FmtText),
	}
	go b.poll()
	return b
}

func (b *linuxBackend) Name() string { return "Linux clipboard (poll)" }

func (b *linuxBackend) poll() {
	t := time.NewTicker(linuxPollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			if !bytes.Equal(text, b.lastText) {
				b.lastText = text
				notify(b.watchCh)
			}
		}
	}
}

func (b *linuxBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (b *linuxBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *linuxBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *linuxBackend) Close()                { close(b.done) }
