// Package clip provides a unified interface to the system clipboard across
// platforms, plus the synthetic paste keystroke. Build constraints select
// the appropriate implementation:
//
//	clip_darwin.go    macOS via golang.design/x/clipboard
//	clip_windows.go   Windows via golang.design/x/clipboard
//	clip_linux.go     Linux via golang.design/x/clipboard, Memory without a display
//	clip_other.go     in-memory only
//
// Only plain text is handled; history records are text.
package clip

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the clipboard text, or "" when the clipboard is
	// empty or holds no text.
	ReadText() (string, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text string) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is never closed. On platforms without native change
	// notification (Linux X11/Wayland) this is implemented via polling.
	// The caller should call ReadText when it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// notify does a non-blocking send on a watch channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
