package clip

import "sync"

// Memory is an in-process clipboard. It backs headless environments
// (containers, CI, SSH sessions) where no display server is available, so
// copy and paste still work within one process.
type Memory struct {
	mu      sync.Mutex
	text    string
	watchCh chan struct{}
}

// NewMemory returns an empty in-process clipboard.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "headless (in-memory)" }

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	changed := m.text != text
	m.text = text
	m.mu.Unlock()
	if changed {
		notify(m.watchCh)
	}
	return nil
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 {}

var _ Backend = (*Memory)(nil)
