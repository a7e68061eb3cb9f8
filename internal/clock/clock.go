// Package clock provides an injectable time source for the popup core.
//
// Production code takes a Clock instead of calling time.Now or
// time.AfterFunc directly. Tests use Fake, whose AfterFunc callbacks fire
// synchronously from Advance in deadline order, so a timed pipeline can be
// stepped through without wall-clock waits.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts the time operations the core needs.
type Clock interface {
	Now() time.Time

	// AfterFunc waits for d, then calls f. The returned Timer cancels the
	// pending call with Stop.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a scheduled callback.
type Timer struct {
	stop func() bool
}

// Stop prevents the Timer from firing. Returns true if the call stopped
// the timer, false if it already fired or was stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}

// Fake returns a FakeClock initialised to the given time. Time stands still
// until Advance is called.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. Safe for concurrent use, but
// callbacks must not call Advance.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	seq     int
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	seq      int
	callback func()
	stopped  bool
	fired    bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc schedules f at now+d. A non-positive d still waits for the next
// Advance (even Advance(0)), so callers never re-enter themselves.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		d = 0
	}
	w := &waiter{deadline: c.current.Add(d), seq: c.seq, callback: f}
	c.seq++
	c.waiters = append(c.waiters, w)

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if w.stopped || w.fired {
			return false
		}
		w.stopped = true
		return true
	}}
}

// Advance moves the clock forward by d and fires every callback whose
// deadline falls within the new time, in deadline order. Callbacks that
// schedule further callbacks inside the window fire in the same Advance.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		w := c.popNext(target)
		if w == nil {
			break
		}
		w.callback()
	}

	c.mu.Lock()
	c.current = target
	c.mu.Unlock()
}

// popNext removes and returns the earliest due waiter, moving the clock to
// its deadline so callbacks observe the time they were scheduled for.
func (c *FakeClock) popNext(target time.Time) *waiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.stopped {
			live = append(live, w)
		}
	}
	c.waiters = live

	sort.SliceStable(c.waiters, func(i, j int) bool {
		a, b := c.waiters[i], c.waiters[j]
		if !a.deadline.Equal(b.deadline) {
			return a.deadline.Before(b.deadline)
		}
		return a.seq < b.seq
	})
	if len(c.waiters) == 0 || c.waiters[0].deadline.After(target) {
		return nil
	}
	w := c.waiters[0]
	c.waiters = c.waiters[1:]
	w.fired = true
	if w.deadline.After(c.current) {
		c.current = w.deadline
	}
	return w
}

// Pending returns the number of scheduled, unfired, unstopped callbacks.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.stopped && !w.fired {
			n++
		}
	}
	return n
}

// Flush advances until no callbacks remain, stepping to each deadline in
// turn, and returns the total time advanced. It gives up after max.
func (c *FakeClock) Flush(max time.Duration) time.Duration {
	start := c.Now()
	for c.Pending() > 0 {
		next, ok := c.nextDeadline()
		if !ok || next.Sub(start) > max {
			break
		}
		c.Advance(next.Sub(c.Now()))
	}
	return c.Now().Sub(start)
}

func (c *FakeClock) nextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var best time.Time
	found := false
	for _, w := range c.waiters {
		if w.stopped || w.fired {
			continue
		}
		if !found || w.deadline.Before(best) {
			best = w.deadline
			found = true
		}
	}
	return best, found
}
