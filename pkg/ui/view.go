package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/cmdpanel/pkg/metrics"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
)

// compactCellWidth is the slot width of the compact layout.
const compactCellWidth = 18

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	switch {
	case m.form != nil:
		box := PanelStyle.Render(m.form.form.View())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	case m.picker != nil:
		return m.picker.View()
	case m.overlay != nil:
		return m.overlay.View(m.width, m.height)
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	parts := []string{header}
	if m.searching || m.query != "" {
		parts = append(parts, m.renderSearchBar())
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Height(p)
	}
	bodyH := max(m.height-used-lipgloss.Height(footer), 3)

	lines, cursorLine := m.renderBody()
	parts = append(parts, windowLines(lines, cursorLine, bodyH))
	parts = append(parts, footer)
	return strings.Join(parts, "\n")
}

// windowLines returns at most height lines, scrolled so that the cursor's
// line (and the cell below it) is visible.
func windowLines(lines []string, cursorLine, height int) string {
	if len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	start := 0
	if cursorLine+3 > height {
		start = cursorLine + 3 - height
	}
	if start > len(lines)-height {
		start = len(lines) - height
	}
	return strings.Join(lines[start:start+height], "\n")
}

func (m Model) renderHeader() string {
	t := m.theme
	s := m.reg.Settings()
	commands := 0
	for _, g := range s.Groups {
		commands += len(g.Commands)
	}
	info := fmt.Sprintf(" %s · %s · %d groups · %d commands",
		hostContextLabel(m.hc), s.Layout, len(s.Groups), commands)
	if len(m.running) > 0 {
		info += fmt.Sprintf(" · %d running", len(m.running))
	}
	return t.Header.Render("cmdpanel") + t.MutedText.Render(truncate(info, max(m.width-12, 10)))
}

func (m Model) renderSearchBar() string {
	t := m.theme
	line := m.search.View()
	if m.searching && m.search.Value() == "" {
		if history := m.reg.Settings().SearchHistory; len(history) > 0 {
			line += t.MutedText.Render("  ↑ " + truncate(strings.Join(history, " · "), max(m.width-30, 10)))
		}
	}
	return SearchStyle.Width(max(m.width, 10)).Render(line)
}

func (m Model) renderFooter() string {
	t := m.theme
	if m.statusMsg != "" {
		style := t.Notice
		if m.statusIsError {
			style = t.NoticeError
		}
		return style.Render(truncate(m.statusMsg, max(m.width, 10)))
	}
	if m.grab != nil {
		return RenderKeyHints(t, "←→↑↓", "move", "enter", "drop", "esc", "cancel")
	}
	if m.searching {
		return RenderKeyHints(t, "enter", "done", "↑", "history", "esc", "clear")
	}
	if m.reg.Settings().ShowTooltips {
		if it, ok := m.currentItem(); ok && it.desc != "" {
			return t.MutedText.Render(truncate(it.desc, max(m.width, 10)))
		}
	}
	return RenderKeyHints(t, "enter", "run", "/", "search", "a", "add", "n", "group", "m", "move", "?", "help", "q", "quit")
}

// renderBody renders every section and reports the line the cursor is on.
func (m Model) renderBody() ([]string, int) {
	t := m.theme
	width := max(m.width, 20)

	if len(m.sections) == 0 {
		msg := "No groups yet. Press n to create one."
		if m.query != "" {
			msg = fmt.Sprintf("No commands match %q.", m.query)
		}
		return []string{"", t.MutedText.Render("  " + msg)}, 0
	}

	var lines []string
	cursorLine := 0
	layout := m.reg.Settings().Layout
	cols := m.columns()

	for si, s := range m.sections {
		if si > 0 {
			lines = append(lines, "")
		}
		onHeader := si == m.cursor.section && m.cursor.onHeader()
		if onHeader {
			cursorLine = len(lines)
		}
		lines = append(lines, RenderSectionHeader(t, s.icon, s.title, len(s.items),
			!s.kind.special(), s.collapsed, onHeader, width))

		items := s.visibleItems()
		if !s.collapsed && len(items) == 0 {
			lines = append(lines, t.MutedText.Render("    empty · press a to add a command"))
			continue
		}

		for start := 0; start < len(items); start += cols {
			end := min(start+cols, len(items))
			if si == m.cursor.section && m.cursor.item >= start && m.cursor.item < end {
				cursorLine = len(lines)
			}
			var row string
			switch layout {
			case model.LayoutList:
				row = m.renderListRow(s, items[start], start, width)
			case model.LayoutCompact:
				row = m.renderCompactRow(s, items[start:end], start)
			default:
				row = m.renderGridRow(s, items[start:end], start)
			}
			lines = append(lines, strings.Split(row, "\n")...)
		}
	}
	return lines, cursorLine
}

func (m Model) isSelected(s section, idx int) bool {
	return m.cursor.section < len(m.sections) &&
		m.sections[m.cursor.section].key == s.key &&
		m.cursor.item == idx
}

func (m Model) isGrabbed(s section, it item) bool {
	return m.grab != nil && s.key == m.grab.groupID && it.ref.CommandID == m.grab.commandID
}

// label is the text of a button: icon, running and favorite markers,
// the name, and the usage count in Most Used.
func (m Model) label(s section, it item, width int) string {
	prefix := iconGlyph(it.icon) + " "
	if m.running[it.ref.CommandID] {
		prefix = "⟳ "
	}
	if s.kind == sectionGroup && it.ref.Favorite {
		prefix += "★"
	}
	suffix := ""
	if s.kind == sectionMostUsed {
		suffix = fmt.Sprintf(" ×%d", it.count)
	}
	nameWidth := width - runewidth.StringWidth(prefix) - runewidth.StringWidth(suffix)
	return prefix + truncate(it.name, max(nameWidth, 1)) + suffix
}

func (m Model) cellStyle(s section, it item, idx int) lipgloss.Style {
	t := m.theme
	style := t.Cell
	switch {
	case m.isGrabbed(s, it):
		style = t.CellGrabbed
	case m.isSelected(s, idx):
		style = t.CellSelected
	}
	if c, ok := t.CommandColor(it.ref.Color); ok {
		style = style.Foreground(c)
		if !m.isSelected(s, idx) && !m.isGrabbed(s, it) {
			style = style.BorderForeground(c)
		}
	}
	return style
}

func (m Model) renderGridRow(s section, items []item, offset int) string {
	cw := cellWidth(m.reg.Settings().ButtonSize)
	cells := make([]string, 0, len(items))
	for i, it := range items {
		style := m.cellStyle(s, it, offset+i).Width(cw - 2)
		cells = append(cells, style.Render(m.label(s, it, cw-4)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m Model) renderListRow(s section, it item, idx, width int) string {
	t := m.theme
	settings := m.reg.Settings()

	hotkey := ""
	if settings.ShowHotkeys && it.hotkey != "" {
		hotkey = it.hotkey
	}
	nameWidth := width - 6
	if hotkey != "" {
		nameWidth -= len(hotkey) + 2
	}
	text := padRight(m.label(s, it, nameWidth), nameWidth)

	marker := "  "
	style := t.Base
	if c, ok := t.CommandColor(it.ref.Color); ok {
		style = style.Foreground(c)
	}
	switch {
	case m.isGrabbed(s, it):
		marker = "⇅ "
		style = style.Bold(true).Foreground(t.Warning)
	case m.isSelected(s, idx):
		marker = "▸ "
		style = style.Bold(true).Background(t.Highlight)
	}
	line := "  " + marker + style.Render(text)
	if hotkey != "" {
		line += "  " + t.MutedText.Render(hotkey)
	}
	return line
}

func (m Model) renderCompactRow(s section, items []item, offset int) string {
	t := m.theme
	cells := make([]string, 0, len(items))
	for i, it := range items {
		style := t.Base.Width(compactCellWidth)
		if c, ok := t.CommandColor(it.ref.Color); ok {
			style = style.Foreground(c)
		}
		switch {
		case m.isGrabbed(s, it):
			style = style.Bold(true).Foreground(t.Warning).Underline(true)
		case m.isSelected(s, offset+i):
			style = style.Bold(true).Background(t.Highlight)
		}
		cells = append(cells, style.Render(" "+m.label(s, it, compactCellWidth-2)))
	}
	return "  " + lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}
