// Package history defines clipboard history records and the store contract
// the popup core reads them through.
//
// Records are immutable. The store owns them and decides their order:
// pinned records first, then newest first. Everything downstream keys on
// Record.ID, never on a particular Record value, so a reload that returns
// fresh values for the same IDs is invisible to selection state.
package history

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ID is the stable identity of a history record.
type ID string

// Record is one clipboard history entry.
type Record struct {
	ID        ID
	Text      string
	Pinned    bool
	CreatedAt time.Time
}

// ErrNotFound is returned when an operation names a record the store does not hold.
var ErrNotFound = errors.New("history: record not found")

// Store is the history persistence collaborator.
type Store interface {
	// List returns all records in display order.
	List(ctx context.Context) ([]Record, error)

	// Add records text as the newest entry. Text already present is moved
	// to the top instead of duplicated. Empty text is ignored and returns
	// the zero Record.
	Add(ctx context.Context, text string) (Record, error)

	// Delete removes the record with the given ID.
	Delete(ctx context.Context, id ID) error

	// SetPinned pins or unpins a record.
	SetPinned(ctx context.Context, id ID, pinned bool) error

	// Clear removes every unpinned record.
	Clear(ctx context.Context) error

	// Subscribe registers fn to be called after every change. fn may be
	// called from any goroutine. The returned func removes the subscription.
	Subscribe(fn func()) (unsubscribe func())
}

// Session is the popup state carried from one opening to the next.
type Session struct {
	Prompt  string
	Checked []ID
}

// SessionStore persists the popup session alongside the history.
type SessionStore interface {
	LoadSession(ctx context.Context) (Session, error)
	SaveSession(ctx context.Context, s Session) error
}

// Sort orders records in place: pinned first, then newest first. Ties keep
// their relative order.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// IDs returns the IDs of records in order.
func IDs(records []Record) []ID {
	out := make([]ID, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// Preview returns text shortened to at most n runes with an ellipsis, for
// logs and list rows.
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
