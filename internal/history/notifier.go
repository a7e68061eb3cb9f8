package history

import "sync"

// Notifier fans change notifications out to subscribers. Stores embed it.
type Notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]func()
}

// Subscribe registers fn and returns a func that removes it.
func (n *Notifier) Subscribe(fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Notify calls every subscriber. It must not be called with store locks held.
func (n *Notifier) Notify() {
	n.mu.RLock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
