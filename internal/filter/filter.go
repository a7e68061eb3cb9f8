// Package filter decides which history records match the popup's search
// query. The selection model only consumes the result; it never matches
// text itself.
package filter

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"go.klb.dev/nozzle/internal/history"
)

// Filter returns the set of record IDs visible under query.
type Filter interface {
	Match(query string, records []history.Record) map[history.ID]bool
}

// Fuzzy matches records with sahilm/fuzzy against their text. An empty or
// whitespace-only query matches everything.
type Fuzzy struct {
	// MaxRunes bounds how much of each record is matched against. Long
	// pastes otherwise match almost any short query. 0 = no bound.
	MaxRunes int
}

func (f Fuzzy) Match(query string, records []history.Record) map[history.ID]bool {
	out := make(map[history.ID]bool, len(records))
	if strings.TrimSpace(query) == "" {
		for _, r := range records {
			out[r.ID] = true
		}
		return out
	}
	for _, m := range fuzzy.FindFrom(query, source{records: records, max: f.MaxRunes}) {
		out[records[m.Index].ID] = true
	}
	return out
}

// source adapts records to fuzzy.Source.
type source struct {
	records []history.Record
	max     int
}

func (s source) String(i int) string {
	text := s.records[i].Text
	if s.max > 0 {
		if r := []rune(text); len(r) > s.max {
			return string(r[:s.max])
		}
	}
	return text
}

func (s source) Len() int { return len(s.records) }

// Substring matches case-insensitively on plain substrings.
type Substring struct{}

func (Substring) Match(query string, records []history.Record) map[history.ID]bool {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make(map[history.ID]bool, len(records))
	for _, r := range records {
		if q == "" || strings.Contains(strings.ToLower(r.Text), q) {
			out[r.ID] = true
		}
	}
	return out
}

// New returns the filter named by mode ("fuzzy" or "exact").
func New(mode string) Filter {
	if mode == "exact" {
		return Substring{}
	}
	return Fuzzy{MaxRunes: 2000}
}
