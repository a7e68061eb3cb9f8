// Package loop is the single control thread the popup core runs on.
//
// Selection state and orchestration steps are not safe for concurrent use.
// Everything that touches them is posted here and runs in order on the
// goroutine executing Run. Timers go through AfterFunc, which posts the
// callback back onto the loop instead of running it on the timer goroutine.
package loop

import (
	"context"
	"sync"
	"time"

	"go.klb.dev/nozzle/internal/clock"
)

// Loop runs posted functions one at a time, in post order.
type Loop struct {
	clock clock.Clock

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

// New returns a loop whose timers come from c.
func New(c clock.Clock) *Loop {
	return &Loop{
		clock: c,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions until ctx is done. Functions still queued
// at that point never run. Run must be called exactly once.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f := l.pop()
			if f == nil {
				break
			}
			f()
		}
	}
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	f := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return f
}

// Post queues f. Safe from any goroutine, including the loop itself.
// Returns false once the loop has stopped.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do posts f and waits for it to run. Never call Do from the loop
// goroutine; it would wait on itself. Returns false if the loop stopped
// before f ran.
func (l *Loop) Do(f func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		f()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Now implements clock.Clock.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// AfterFunc implements clock.Clock: f runs on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) *clock.Timer {
	return l.clock.AfterFunc(d, func() { l.Post(f) })
}

var _ clock.Clock = (*Loop)(nil)
