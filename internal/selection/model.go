// Package selection holds the popup's selection state: one focus cursor
// spanning the history list and the footer, the independent checked set,
// filter visibility, and the prompt text.
//
// A Model is not safe for concurrent use. It lives on the control loop; its
// only timer (the preview delay) is scheduled through the injected clock,
// which in production posts back onto that loop.
package selection

import (
	"log/slog"
	"time"

	"go.klb.dev/nozzle/internal/clock"
	"go.klb.dev/nozzle/internal/filter"
	"go.klb.dev/nozzle/internal/history"
)

// DefaultPreviewDelay is how long a requested preview waits before showing.
const DefaultPreviewDelay = 200 * time.Millisecond

// Model is the selection state of one popup session.
type Model struct {
	filter       filter.Filter
	clock        clock.Clock
	previewDelay time.Duration

	items   []*Item
	byID    map[history.ID]*Item
	actions []*Action
	checked map[history.ID]struct{}

	cursor       Focus
	scrollTarget string

	keyboard     bool
	pendingHover *string

	query  string
	prompt string

	preview    *clock.Timer
	previewGen int

	onChange func()
}

// New returns an empty model. c schedules the preview delay.
func New(f filter.Filter, c clock.Clock, previewDelay time.Duration) *Model {
	if previewDelay <= 0 {
		previewDelay = DefaultPreviewDelay
	}
	return &Model{
		filter:       f,
		clock:        c,
		previewDelay: previewDelay,
		byID:         make(map[history.ID]*Item),
		checked:      make(map[history.ID]struct{}),
		keyboard:     true,
	}
}

// OnChange registers fn to run after state changes that happen outside a
// direct call (a preview timer firing). Used by the UI to redraw.
func (m *Model) OnChange(fn func()) { m.onChange = fn }

func (m *Model) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

// SetActions installs the footer actions, in display order.
func (m *Model) SetActions(actions []Action) {
	m.actions = make([]*Action, len(actions))
	for i := range actions {
		a := actions[i]
		a.Focused = false
		m.actions[i] = &a
	}
	m.refreshActions()
	m.syncFocus()
}

// SetRecords replaces the history items with records, in store order.
// Checks and the cursor follow record IDs across the rebuild; checks on
// records that disappeared are dropped.
func (m *Model) SetRecords(records []history.Record) {
	old := m.byID
	m.items = make([]*Item, len(records))
	m.byID = make(map[history.ID]*Item, len(records))
	for i, r := range records {
		it := &Item{Record: r}
		if prev, ok := old[r.ID]; ok {
			it.PreviewOpen = prev.PreviewOpen
		}
		m.items[i] = it
		m.byID[r.ID] = it
	}

	for id := range m.checked {
		if _, ok := m.byID[id]; !ok {
			delete(m.checked, id)
			slog.Debug("dropping check on removed record", "id", id)
		}
	}
	for _, it := range m.items {
		_, it.Checked = m.checked[it.ID()]
	}

	if m.cursor.Area == AreaHistory {
		if _, ok := m.byID[history.ID(m.cursor.ID)]; !ok {
			m.cancelPreview()
			m.cursor = Focus{}
		}
	}

	m.applyFilter()
	m.refreshActions()
	m.syncFocus()
}

// Records returns the records behind the history items, in store order.
func (m *Model) Records() []history.Record {
	out := make([]history.Record, len(m.items))
	for i, it := range m.items {
		out[i] = it.Record
	}
	return out
}

// Items returns a snapshot of every history item, visible or not.
func (m *Model) Items() []Item {
	out := make([]Item, len(m.items))
	for i, it := range m.items {
		out[i] = *it
	}
	return out
}

// VisibleItems returns a snapshot of the items passing the filter.
func (m *Model) VisibleItems() []Item {
	var out []Item
	for _, it := range m.items {
		if it.Visible {
			out = append(out, *it)
		}
	}
	return out
}

// Actions returns a snapshot of every footer action.
func (m *Model) Actions() []Action {
	out := make([]Action, len(m.actions))
	for i, a := range m.actions {
		out[i] = *a
	}
	return out
}

// VisibleActions returns a snapshot of the visible footer actions.
func (m *Model) VisibleActions() []Action {
	var out []Action
	for _, a := range m.actions {
		if a.Visible {
			out = append(out, *a)
		}
	}
	return out
}

// Cursor returns the current focus.
func (m *Model) Cursor() Focus { return m.cursor }

// ScrollTarget is the ID the list should scroll to: the last cursor set by
// SetCursor or navigation. Hover focus does not scroll.
func (m *Model) ScrollTarget() string { return m.scrollTarget }

// KeyboardNavigating reports whether the last focus change came from the keyboard.
func (m *Model) KeyboardNavigating() bool { return m.keyboard }

// FocusedItem returns the focused history item, if any.
func (m *Model) FocusedItem() (Item, bool) {
	if it := m.focusedItem(); it != nil {
		return *it, true
	}
	return Item{}, false
}

// FocusedAction returns the focused footer action, if any.
func (m *Model) FocusedAction() (Action, bool) {
	if m.cursor.Area != AreaFooter {
		return Action{}, false
	}
	if a := m.action(ActionID(m.cursor.ID)); a != nil {
		return *a, true
	}
	return Action{}, false
}

// Action returns the footer action with the given ID.
func (m *Model) Action(id ActionID) (Action, bool) {
	if a := m.action(id); a != nil {
		return *a, true
	}
	return Action{}, false
}

// SetCursor focuses the visible entity with the given ID, looking in
// history first, then the footer. Any previous focus is cleared even when
// id matches nothing. Moving away from an item cancels its preview.
func (m *Model) SetCursor(id string) {
	m.focus(id)
	m.scrollTarget = m.cursor.ID
}

// focus is SetCursor without touching the scroll target.
func (m *Model) focus(id string) {
	prev := m.focusedItem()

	m.cursor = Focus{}
	if it, ok := m.byID[history.ID(id)]; ok && it.Visible {
		m.cursor = Focus{Area: AreaHistory, ID: id}
	} else if a := m.action(ActionID(id)); a != nil && a.Visible {
		m.cursor = Focus{Area: AreaFooter, ID: id}
	}
	m.syncFocus()

	if prev != nil && string(prev.ID()) != id {
		m.cancelPreview()
		prev.PreviewOpen = false
	}
}

// Hover is a pointer entering an entity. While the keyboard is driving, the
// hover is remembered and applied on the next pointer move instead.
func (m *Model) Hover(id string) {
	if m.keyboard {
		m.pendingHover = &id
		return
	}
	m.focus(id)
}

// PointerMoved hands focus control back to the pointer.
func (m *Model) PointerMoved() {
	m.keyboard = false
	if m.pendingHover != nil {
		id := *m.pendingHover
		m.pendingHover = nil
		m.focus(id)
	}
}

// Navigate moves the cursor in dir over the visible history items followed
// by the visible footer actions. Returns false when the cursor did not move.
func (m *Model) Navigate(dir Direction) bool {
	m.keyboard = true
	m.pendingHover = nil

	next, ok := Step(m.cursor, dir, m.visibleItemIDs(), m.visibleActionIDs())
	if !ok {
		return false
	}
	m.SetCursor(next.ID)
	return true
}

// ToggleChecked flips whether the record is checked. The cursor does not
// move. Returns false for unknown IDs.
func (m *Model) ToggleChecked(id history.ID) bool {
	it, ok := m.byID[id]
	if !ok {
		return false
	}
	if it.Checked {
		delete(m.checked, id)
	} else {
		m.checked[id] = struct{}{}
	}
	it.Checked = !it.Checked
	m.refreshActions()
	return true
}

// IsChecked reports whether the record is checked.
func (m *Model) IsChecked(id history.ID) bool {
	_, ok := m.checked[id]
	return ok
}

// CheckedIDs returns the checked record IDs in store order.
func (m *Model) CheckedIDs() []history.ID {
	return history.IDs(m.CheckedRecords())
}

// CheckedRecords returns the checked records in store order, not the order
// they were checked in.
func (m *Model) CheckedRecords() []history.Record {
	var out []history.Record
	for _, it := range m.items {
		if it.Checked {
			out = append(out, it.Record)
		}
	}
	return out
}

// RestoreChecked makes ids the checked set again, skipping any that no
// longer exist. Returns how many were skipped.
func (m *Model) RestoreChecked(ids []history.ID) int {
	m.checked = make(map[history.ID]struct{}, len(ids))
	stale := 0
	for _, id := range ids {
		if _, ok := m.byID[id]; !ok {
			stale++
			slog.Debug("skipping restore of removed record", "id", id)
			continue
		}
		m.checked[id] = struct{}{}
	}
	for _, it := range m.items {
		_, it.Checked = m.checked[it.ID()]
	}
	m.refreshActions()
	return stale
}

// ClearAll unchecks everything and clears the query and the prompt. The
// cursor is put back where it was if that entity is still visible.
func (m *Model) ClearAll() {
	prev := m.cursor.ID

	m.checked = make(map[history.ID]struct{})
	for _, it := range m.items {
		it.Checked = false
	}
	m.query = ""
	m.prompt = ""
	m.applyFilter()
	m.refreshActions()

	m.SetCursor(prev)
}

// Query returns the search text.
func (m *Model) Query() string { return m.query }

// SetQuery changes the search text and recomputes visibility. If the
// focused item is filtered out, focus moves to the first visible item.
func (m *Model) SetQuery(q string) {
	if q == m.query {
		return
	}
	m.query = q
	m.applyFilter()
	m.refreshActions()

	if m.cursor.Area == AreaHistory {
		if it := m.byID[history.ID(m.cursor.ID)]; it == nil || !it.Visible {
			if next, ok := Step(Focus{}, First, m.visibleItemIDs(), nil); ok {
				m.SetCursor(next.ID)
			} else {
				m.SetCursor("")
			}
		}
	}
}

// Prompt returns the prompt text.
func (m *Model) Prompt() string { return m.prompt }

// SetPrompt changes the prompt text.
func (m *Model) SetPrompt(p string) {
	m.prompt = p
	m.refreshActions()
}

// HasContent reports whether there is anything to paste or copy.
func (m *Model) HasContent() bool {
	return len(m.checked) > 0 || m.prompt != ""
}

// TogglePreview hides the focused item's preview immediately, or shows it
// after the preview delay.
func (m *Model) TogglePreview() {
	it := m.focusedItem()
	if it == nil {
		return
	}
	if it.PreviewOpen {
		m.cancelPreview()
		it.PreviewOpen = false
		return
	}
	if m.preview != nil {
		return
	}

	id := it.ID()
	m.previewGen++
	gen := m.previewGen
	m.preview = m.clock.AfterFunc(m.previewDelay, func() {
		if gen != m.previewGen {
			return
		}
		m.preview = nil
		if cur := m.focusedItem(); cur != nil && cur.ID() == id {
			cur.PreviewOpen = true
			m.changed()
		}
	})
}

// PreviewPending reports whether a preview is waiting to show.
func (m *Model) PreviewPending() bool { return m.preview != nil }

// VisibleAt returns the n-th visible history item (0-based).
func (m *Model) VisibleAt(n int) (Item, bool) {
	i := 0
	for _, it := range m.items {
		if !it.Visible {
			continue
		}
		if i == n {
			return *it, true
		}
		i++
	}
	return Item{}, false
}

func (m *Model) cancelPreview() {
	m.previewGen++
	if m.preview != nil {
		m.preview.Stop()
		m.preview = nil
	}
}

func (m *Model) applyFilter() {
	visible := m.filter.Match(m.query, m.Records())
	for _, it := range m.items {
		it.Visible = visible[it.ID()]
	}
}

// refreshActions recomputes the visibility of content-gated actions. A
// focused action that becomes hidden loses focus.
func (m *Model) refreshActions() {
	has := m.HasContent()
	for _, a := range m.actions {
		if a.RequiresContent {
			a.Visible = has
		}
	}
	if m.cursor.Area == AreaFooter {
		if a := m.action(ActionID(m.cursor.ID)); a == nil || !a.Visible {
			m.cursor = Focus{}
			m.syncFocus()
		}
	}
}

// syncFocus derives every Focused flag from the cursor.
func (m *Model) syncFocus() {
	for _, it := range m.items {
		it.Focused = m.cursor.Area == AreaHistory && string(it.ID()) == m.cursor.ID
	}
	for _, a := range m.actions {
		a.Focused = m.cursor.Area == AreaFooter && string(a.ID) == m.cursor.ID
	}
}

func (m *Model) focusedItem() *Item {
	if m.cursor.Area != AreaHistory {
		return nil
	}
	return m.byID[history.ID(m.cursor.ID)]
}

func (m *Model) action(id ActionID) *Action {
	for _, a := range m.actions {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (m *Model) visibleItemIDs() []string {
	var out []string
	for _, it := range m.items {
		if it.Visible {
			out = append(out, string(it.ID()))
		}
	}
	return out
}

func (m *Model) visibleActionIDs() []string {
	var out []string
	for _, a := range m.actions {
		if a.Visible {
			out = append(out, string(a.ID))
		}
	}
	return out
}
