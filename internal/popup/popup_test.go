package popup

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"go.klb.dev/nozzle/internal/app"
	"go.klb.dev/nozzle/internal/clock"
	"go.klb.dev/nozzle/internal/history"
	"go.klb.dev/nozzle/internal/history/historytest"
	"go.klb.dev/nozzle/internal/orchestrator"
)

type fakeClipboard struct {
	writes []string
	pastes int
}

func (f *fakeClipboard) WriteText(text string) error { f.writes = append(f.writes, text); return nil }
func (f *fakeClipboard) WriteRecord(r history.Record) error {
	f.writes = append(f.writes, r.Text)
	return nil
}
func (f *fakeClipboard) EmitPaste() error   { f.pastes++; return nil }
func (f *fakeClipboard) SetSuppressed(bool) {}

func inline(f func()) bool { f(); return true }

func newTestModel(t *testing.T, texts ...string) (Model, *app.App, *fakeClipboard) {
	t.Helper()
	base := time.Unix(1_700_000_000, 0)
	var records []history.Record
	for i, s := range texts {
		records = append(records, history.Record{
			ID:        history.ID(s),
			Text:      s,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	store := historytest.NewMemoryWith(time.Now, records...)
	cb := &fakeClipboard{}
	b := NewBridge()
	a := app.New(context.Background(), store, cb, clock.Fake(base), inline, app.Config{}, b.Hooks())
	require.NoError(t, a.Load())
	t.Cleanup(a.Teardown)

	m := New(a, inline, b, Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model), a, cb
}

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	var updated tea.Model = m
	for _, msg := range msgs {
		updated, cmd = updated.(Model).Update(msg)
	}
	return updated.(Model), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModelView(t *testing.T) {
	m, _, _ := newTestModel(t, "first entry", "second\nentry")

	view := m.View()
	require.Contains(t, view, "search> ")
	require.Contains(t, view, "first entry")
	require.Contains(t, view, "second entry", "multi-line records render on one row")
	require.Contains(t, view, "Clear selection")
	require.NotContains(t, view, "Paste combined", "paste is hidden until something is checked")
	require.Contains(t, view, "2/2")
}

func TestModelEmptyState(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.Contains(t, m.View(), "clipboard history is empty")

	m, _, _ = newTestModel(t, "alpha")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zzz")})
	require.Contains(t, m.View(), "no matches")
}

func TestModelTypingFilters(t *testing.T) {
	m, a, _ := newTestModel(t, "apple", "banana", "cherry")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("an")})
	require.Equal(t, "an", a.Input())
	require.Len(t, m.snap.items, 1)
	require.Equal(t, "banana", m.snap.items[0].Record.Text)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, "a", a.Input())
	require.Len(t, m.snap.items, 2)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.Equal(t, "a ", a.Input())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlU})
	require.Empty(t, a.Input())
	require.Len(t, m.snap.items, 3)
}

func TestModelNavigateAndCheck(t *testing.T) {
	m, a, _ := newTestModel(t, "a", "b", "c")
	require.Equal(t, "a", m.snap.cursor.ID)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "b", m.snap.cursor.ID)
	require.Equal(t, []history.ID{"b"}, a.Selection().CheckedIDs())
	require.Contains(t, m.View(), "[x]")
	require.Contains(t, m.View(), "Paste combined")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, "a", m.snap.cursor.ID)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	require.Equal(t, "c", m.snap.cursor.ID)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyHome})
	require.Equal(t, "a", m.snap.cursor.ID)
}

func TestModelToggleNth(t *testing.T) {
	m, a, _ := newTestModel(t, "a", "b", "c")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}, Alt: true})
	require.Equal(t, []history.ID{"c"}, a.Selection().CheckedIDs())
	require.Equal(t, "c", m.snap.cursor.ID)
	require.Empty(t, a.Input(), "alt+digit is not typed")
}

func TestModelPasteNth(t *testing.T) {
	m, a, cb := newTestModel(t, "a", "b", "c")

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'@'}, Alt: true})
	require.True(t, isQuit(cmd))
	require.Equal(t, "b", m.snap.cursor.ID)
	require.True(t, a.Busy())
	require.Equal(t, []string{"b"}, cb.writes)
	require.Empty(t, a.Input(), "alt+shift+digit is not typed")
}

func TestModelToggleMode(t *testing.T) {
	m, a, _ := newTestModel(t, "a")

	m, _ = send(t, m,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")},
		tea.KeyMsg{Type: tea.KeyTab},
	)
	require.Equal(t, app.ModePrompt, a.Mode())
	require.Empty(t, a.Selection().Query())
	require.Contains(t, m.View(), "prompt> ")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("explain")}, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "explain", a.Selection().Prompt())
	require.Contains(t, m.View(), "prompt set")
}

func TestModelQuit(t *testing.T) {
	m, a, _ := newTestModel(t, "a")

	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, isQuit(cmd))
	require.True(t, a.Closed())
}

func TestModelPasteCombinedQuits(t *testing.T) {
	m, a, cb := newTestModel(t, "a", "b")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.True(t, isQuit(cmd))
	require.True(t, a.Busy())
	require.Equal(t, []string{"a"}, cb.writes, "first write happens before the popup returns")
}

func TestModelCopyCombined(t *testing.T) {
	m, _, cb := newTestModel(t, "a", "b")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.True(t, isQuit(cmd))
	require.Equal(t, []string{"a\nb"}, cb.writes)
}

func TestModelClearHistoryNeedsSecondPress(t *testing.T) {
	m, a, _ := newTestModel(t, "a", "b")

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlK})
	require.Nil(t, cmd)
	require.Len(t, a.Selection().Records(), 2)
	require.Contains(t, m.View(), "press again")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlK})
	require.Empty(t, a.Selection().Records())
	require.Contains(t, m.View(), "history cleared")
}

func TestModelPreferencesWithoutConfig(t *testing.T) {
	m, _, _ := newTestModel(t, "a")

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	msg := cmd()
	closed, ok := msg.(prefsClosedMsg)
	require.True(t, ok)
	require.ErrorIs(t, closed.err, errNoConfig)

	m, _ = send(t, m, msg)
	require.Contains(t, m.View(), "no config file")
}

func TestModelMouseClickChecksRow(t *testing.T) {
	m, a, _ := newTestModel(t, "a", "b", "c")

	m, _ = send(t, m, tea.MouseMsg{
		X:      10,
		Y:      listTop + 1,
		Button: tea.MouseButtonLeft,
		Action: tea.MouseActionPress,
	})
	require.Equal(t, "b", m.snap.cursor.ID)
	require.Equal(t, []history.ID{"b"}, a.Selection().CheckedIDs())
}

func TestModelMouseMotionFocusesRow(t *testing.T) {
	m, a, _ := newTestModel(t, "a", "b", "c")

	m, _ = send(t, m, tea.MouseMsg{
		X:      10,
		Y:      listTop + 2,
		Button: tea.MouseButtonNone,
		Action: tea.MouseActionMotion,
	})
	require.Equal(t, "c", m.snap.cursor.ID)
	require.False(t, a.Selection().KeyboardNavigating())
	require.Equal(t, "a", a.Selection().ScrollTarget(), "hover does not scroll")
}

func TestModelMouseClickFooter(t *testing.T) {
	m, a, _ := newTestModel(t, "a")

	y := -1
	for row := 0; row < m.height; row++ {
		if id, ok := m.hit(row); ok && id == "quit" {
			y = row
		}
	}
	require.NotEqual(t, -1, y)

	_, cmd := send(t, m, tea.MouseMsg{Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	require.True(t, isQuit(cmd))
	require.True(t, a.Closed())
}

func TestModelScrollFollowsCursor(t *testing.T) {
	texts := make([]string, 30)
	for i := range texts {
		texts[i] = strings.Repeat(string(rune('a'+i%26)), i/26+1)
	}
	m, _, _ := newTestModel(t, texts...)
	rows := m.listHeight()
	require.Less(t, rows, len(texts))

	for range rows {
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	require.Equal(t, 1, m.offset)
	require.Equal(t, texts[rows], m.snap.cursor.ID)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyHome})
	require.Equal(t, 0, m.offset)
}

func TestBridgeFinished(t *testing.T) {
	b := NewBridge()
	h := b.Hooks()

	h.Finished(orchestrator.Result{Err: orchestrator.ErrCancelled})
	h.Finished(orchestrator.Result{})

	res := <-b.Finished()
	require.ErrorIs(t, res.Err, orchestrator.ErrCancelled)

	h.Preferences()
	require.True(t, b.takePreferences())
	require.False(t, b.takePreferences())
}

func TestModelViewFitsWidth(t *testing.T) {
	long := strings.Repeat("wide text ", 40)
	m, _, _ := newTestModel(t, long, "short")
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 40, Height: 20})

	for _, line := range strings.Split(m.View(), "\n") {
		require.LessOrEqual(t, ansi.StringWidth(line), 40, line)
	}
}
