package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
)

// CommandPickerModel is a fuzzy search popup over the catalog, used to add
// a command to a group.
type CommandPickerModel struct {
	all           []catalog.Descriptor
	filtered      []catalog.Descriptor
	input         textinput.Model
	selectedIndex int
	groupID       string
	groupName     string
	width         int
	height        int
	theme         Theme
}

// pickerSource adapts descriptors to fuzzy.Source. Name and id are both
// searchable.
type pickerSource []catalog.Descriptor

func (s pickerSource) String(i int) string {
	return s[i].Name + " " + s[i].ID
}

func (s pickerSource) Len() int { return len(s) }

// NewCommandPickerModel creates a picker over cmds targeting a group.
func NewCommandPickerModel(cmds []catalog.Descriptor, groupID, groupName string, theme Theme) CommandPickerModel {
	sorted := make([]catalog.Descriptor, len(cmds))
	copy(sorted, cmds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	ti := textinput.New()
	ti.Placeholder = "type to search commands..."
	ti.CharLimit = 80
	ti.Width = 40
	ti.Focus()

	return CommandPickerModel{
		all:       sorted,
		filtered:  sorted,
		input:     ti,
		groupID:   groupID,
		groupName: groupName,
		theme:     theme,
	}
}

// SetSize updates the picker dimensions
func (m *CommandPickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// GroupID returns the group the picked command is added to.
func (m CommandPickerModel) GroupID() string {
	return m.groupID
}

// MoveUp moves selection up
func (m *CommandPickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *CommandPickerModel) MoveDown() {
	if m.selectedIndex < len(m.filtered)-1 {
		m.selectedIndex++
	}
}

// Selected returns the highlighted command.
func (m CommandPickerModel) Selected() (catalog.Descriptor, bool) {
	if len(m.filtered) == 0 || m.selectedIndex >= len(m.filtered) {
		return catalog.Descriptor{}, false
	}
	return m.filtered[m.selectedIndex], true
}

// Query returns the current search text.
func (m CommandPickerModel) Query() string {
	return m.input.Value()
}

// UpdateInput processes a key message for the text input
func (m *CommandPickerModel) UpdateInput(msg interface{}) {
	m.input, _ = m.input.Update(msg)
	m.filter()
}

// SetQuery replaces the search text.
func (m *CommandPickerModel) SetQuery(q string) {
	m.input.SetValue(q)
	m.filter()
}

// filter ranks the catalog by fuzzy score; ties keep alphabetical order.
// The selection goes back to the best match.
func (m *CommandPickerModel) filter() {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.filtered = m.all
		m.selectedIndex = 0
		return
	}

	matches := fuzzy.FindFrom(query, pickerSource(m.all))
	m.filtered = make([]catalog.Descriptor, len(matches))
	for i, match := range matches {
		m.filtered[i] = m.all[match.Index]
	}

	m.selectedIndex = 0
}

// View renders the picker overlay
func (m CommandPickerModel) View() string {
	width, height := m.width, m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}
	t := m.theme

	boxWidth := min(64, width-4)
	if boxWidth < 30 {
		boxWidth = 30
	}
	maxVisible := 10
	if height < 18 {
		maxVisible = height - 8
	}
	if maxVisible < 3 {
		maxVisible = 3
	}

	var lines []string
	titleStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	lines = append(lines, titleStyle.Render(fmt.Sprintf("Add command to %s", m.groupName)), "")

	inputStyle := t.Renderer.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(t.Secondary).
		Padding(0, 1).
		Width(boxWidth - 6)
	lines = append(lines, inputStyle.Render(m.input.View()), "")

	if len(m.filtered) == 0 {
		lines = append(lines, t.MutedText.Italic(true).Render("  No matching commands"))
	} else {
		start := 0
		if m.selectedIndex >= maxVisible {
			start = m.selectedIndex - maxVisible + 1
		}
		end := min(start+maxVisible, len(m.filtered))

		nameWidth := boxWidth - 10
		for i := start; i < end; i++ {
			d := m.filtered[i]
			line := fmt.Sprintf("%s %s", iconGlyph(d.Icon), truncate(d.Name, nameWidth/2))
			line = padRight(line, nameWidth/2+2) + t.MutedText.Render(truncate(d.ID, nameWidth/2))
			if i == m.selectedIndex {
				line = t.KeyHint.Render("▸ ") + line
			} else {
				line = "  " + line
			}
			lines = append(lines, line)
		}
		if len(m.filtered) > maxVisible {
			lines = append(lines, t.MutedText.Render(fmt.Sprintf("  %d of %d", m.selectedIndex+1, len(m.filtered))))
		}
	}

	lines = append(lines, "", RenderKeyHints(t, "↑↓", "select", "enter", "add", "esc", "cancel"))

	box := PanelStyle.Width(boxWidth).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
