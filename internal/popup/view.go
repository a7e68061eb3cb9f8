package popup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"go.klb.dev/nozzle/internal/app"
	"go.klb.dev/nozzle/internal/selection"
)

// listTop is the first screen row of the history list: the input line and
// a divider sit above it.
const listTop = 2

const maxPreviewHeight = 10

// layout sizes the list and preview for the current snapshot and keeps the
// scroll target on screen.
func (m *Model) layout() {
	if m.snap.mode == app.ModePrompt {
		m.input.Prompt = "prompt> "
		m.input.Placeholder = "type a prompt"
	} else {
		m.input.Prompt = "search> "
		m.input.Placeholder = "type to search"
	}
	m.input.SetValue(m.snap.input)
	m.input.CursorEnd()
	m.input.Width = max(m.width-len(m.input.Prompt)-1, 1)

	if text, ok := m.snap.previewText(); ok {
		m.preview.Width = max(m.width-4, 1)
		m.preview.Height = m.previewHeight() - 2
		m.preview.SetContent(text)
	} else {
		m.preview.SetContent("")
	}

	rows := m.listHeight()
	idx := -1
	for i, it := range m.snap.items {
		if string(it.ID()) == m.snap.scroll {
			idx = i
			break
		}
	}
	if idx >= 0 {
		if idx < m.offset {
			m.offset = idx
		}
		if idx >= m.offset+rows {
			m.offset = idx - rows + 1
		}
	}
	m.offset = min(m.offset, max(len(m.snap.items)-rows, 0))
	m.offset = max(m.offset, 0)
}

func (m Model) previewHeight() int {
	if _, ok := m.snap.previewText(); !ok {
		return 0
	}
	return max(min(maxPreviewHeight, (m.height-listTop)/2), 3)
}

// listHeight is the number of history rows that fit. Below the list come
// the preview, a divider, the footer actions, the status line and help.
func (m Model) listHeight() int {
	fixed := listTop + m.previewHeight() + 1 + len(m.snap.actions) + 2
	return max(m.height-fixed, 1)
}

// hit returns the ID of the entity drawn on screen row y.
func (m Model) hit(y int) (string, bool) {
	rows := m.listHeight()
	if y >= listTop && y < listTop+rows {
		i := m.offset + y - listTop
		if i < len(m.snap.items) {
			return string(m.snap.items[i].ID()), true
		}
		return "", false
	}
	footerTop := listTop + rows + m.previewHeight() + 1
	if i := y - footerTop; i >= 0 && i < len(m.snap.actions) {
		return string(m.snap.actions[i].ID), true
	}
	return "", false
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	width := max(m.width, 10)
	divider := dividerStyle.Render(strings.Repeat("─", width))

	line := func(s string) string { return ansi.Truncate(s, width, "…") }

	b.WriteString(line(m.input.View()))
	b.WriteString("\n")
	b.WriteString(divider)
	b.WriteString("\n")

	rows := m.listHeight()
	for i := range rows {
		j := m.offset + i
		switch {
		case j < len(m.snap.items):
			b.WriteString(line(m.itemRow(j, m.snap.items[j])))
		case i == 0 && len(m.snap.items) == 0:
			b.WriteString(mutedStyle.Render(m.emptyText()))
		}
		b.WriteString("\n")
	}

	if _, ok := m.snap.previewText(); ok {
		b.WriteString(previewStyle.Width(max(width-2, 1)).Render(m.preview.View()))
		b.WriteString("\n")
	}

	b.WriteString(divider)
	b.WriteString("\n")
	for _, act := range m.snap.actions {
		b.WriteString(line(m.actionRow(act)))
		b.WriteString("\n")
	}

	b.WriteString(line(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(line(m.help.ShortHelpView(m.keys.ShortHelp())))
	return b.String()
}

func (m Model) emptyText() string {
	if m.snap.total == 0 {
		return "  clipboard history is empty"
	}
	return "  no matches"
}

func (m Model) itemRow(i int, it selection.Item) string {
	box := "[ ]"
	if it.Checked {
		box = checkedStyle.Render("[x]")
	}
	num := " "
	if i < 9 {
		num = fmt.Sprint(i + 1)
	}
	pin := " "
	if it.Record.Pinned {
		pin = "*"
	}
	text := oneLine(it.Record.Text)
	if it.Focused {
		return focusedStyle.Render("›") + " " + box + " " + mutedStyle.Render(num) + pin + " " + focusedStyle.Render(text)
	}
	return "  " + box + " " + mutedStyle.Render(num) + pin + " " + text
}

func (m Model) actionRow(act selection.Action) string {
	title := act.Title
	if m.snap.confirm == act.ID {
		title += " (press again)"
	}
	hint := mutedStyle.Render(act.Shortcut)
	if act.Focused {
		return focusedStyle.Render("› "+title) + "  " + hint
	}
	return "  " + title + "  " + hint
}

func (m Model) statusLine() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d/%d", len(m.snap.items), m.snap.total))
	if m.snap.checked > 0 {
		parts = append(parts, fmt.Sprintf("%d checked", m.snap.checked))
	}
	if m.snap.mode == app.ModeSearch && m.snap.prompt != "" {
		parts = append(parts, "prompt set")
	}
	if m.snap.busy {
		parts = append(parts, "pasting…")
	}
	s := mutedStyle.Render(strings.Join(parts, " · "))
	msg := m.snap.status
	if m.note != "" {
		msg = m.note
	}
	if msg != "" {
		s += "  " + statusStyle.Render(msg)
	}
	return s
}

// oneLine collapses whitespace so a record fits on one row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
