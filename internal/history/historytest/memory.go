// Package historytest provides an in-memory history store for tests of
// packages that consume history.Store.
package historytest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/nozzle/internal/history"
)

// Memory is an in-process history.Store and history.SessionStore with the
// same ordering, dedup and eviction rules as the sqlite store.
type Memory struct {
	history.Notifier

	mu      sync.RWMutex
	records []history.Record
	limit   int
	now     func() time.Time
	session history.Session
}

// NewMemory returns an empty store holding at most limit unpinned records
// (0 = unbounded).
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit, now: time.Now}
}

// NewMemoryWith returns a store preloaded with records, sorted into display
// order. The clock is used for records added later.
func NewMemoryWith(now func() time.Time, records ...history.Record) *Memory {
	m := &Memory{now: now}
	m.records = append(m.records, records...)
	history.Sort(m.records)
	return m
}

func (m *Memory) List(_ context.Context) ([]history.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]history.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) Add(_ context.Context, text string) (history.Record, error) {
	if strings.TrimSpace(text) == "" {
		return history.Record{}, nil
	}

	m.mu.Lock()
	rec := history.Record{ID: history.ID(uuid.NewString()), Text: text, CreatedAt: m.now()}
	for i, r := range m.records {
		if r.Text == text {
			rec.ID = r.ID
			rec.Pinned = r.Pinned
			m.records = append(m.records[:i], m.records[i+1:]...)
			break
		}
	}
	m.records = append(m.records, rec)
	history.Sort(m.records)
	m.evictLocked()
	m.mu.Unlock()

	m.Notify()
	return rec, nil
}

func (m *Memory) Delete(_ context.Context, id history.ID) error {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return history.ErrNotFound
	}
	m.records = append(m.records[:i], m.records[i+1:]...)
	m.mu.Unlock()

	m.Notify()
	return nil
}

func (m *Memory) SetPinned(_ context.Context, id history.ID, pinned bool) error {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return history.ErrNotFound
	}
	m.records[i].Pinned = pinned
	history.Sort(m.records)
	m.mu.Unlock()

	m.Notify()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	kept := m.records[:0]
	for _, r := range m.records {
		if r.Pinned {
			kept = append(kept, r)
		}
	}
	m.records = kept
	m.mu.Unlock()

	m.Notify()
	return nil
}

func (m *Memory) LoadSession(_ context.Context) (history.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	s.Checked = append([]history.ID(nil), s.Checked...)
	return s, nil
}

func (m *Memory) SaveSession(_ context.Context, s history.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Checked = append([]history.ID(nil), s.Checked...)
	m.session = s
	return nil
}

func (m *Memory) indexLocked(id history.ID) int {
	for i, r := range m.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// evictLocked drops the oldest unpinned records beyond the limit.
func (m *Memory) evictLocked() {
	if m.limit <= 0 {
		return
	}
	unpinned := 0
	for _, r := range m.records {
		if !r.Pinned {
			unpinned++
		}
	}
	for i := len(m.records) - 1; i >= 0 && unpinned > m.limit; i-- {
		if !m.records[i].Pinned {
			m.records = append(m.records[:i], m.records[i+1:]...)
			unpinned--
		}
	}
}

var (
	_ history.Store        = (*Memory)(nil)
	_ history.SessionStore = (*Memory)(nil)
)
