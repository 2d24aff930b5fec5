package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/cmdpanel/pkg/export"
)

// helpMarkdown is the key reference shown by "?".
const helpMarkdown = `# cmdpanel

## Navigation

| Key | Action |
|-----|--------|
| ↑ ↓ ← → / h j k l | Move between commands and headers |
| enter | Run the selected command |
| space | Collapse or expand the group |
| / | Search commands (esc clears) |
| c | Cycle the host context |
| L | Cycle the layout |

## Commands

| Key | Action |
|-----|--------|
| f | Toggle favorite |
| e | Edit name, icon and color |
| x | Remove from the group (in Favorites: unfavorite, Recently Used: forget, Most Used: reset count) |
| a | Add a command to the group |
| m | Grab the command, move it with the arrows, drop with enter (esc puts it back) |
| i | Copy the command id |

## Groups

| Key | Action |
|-----|--------|
| n | New group |
| r | Rename or edit the group |
| D | Delete the group |
| K / J | Move the group up or down |
| C | Clear Favorites, Recently Used or Most Used |

## Data

| Key | Action |
|-----|--------|
| y | Copy all settings to the clipboard as JSON |
| p | Replace settings with JSON from the clipboard |
| s | Preferences |
| o | Overview of all groups |
| q | Quit |
`

// overlayModel shows glamour-rendered markdown in a scrollable viewport.
type overlayModel struct {
	title    string
	markdown string
	viewport viewport.Model
	theme    Theme
}

func newOverlay(title, markdown string, width, height int, theme Theme) overlayModel {
	o := overlayModel{title: title, markdown: markdown, theme: theme}
	o.resize(width, height)
	return o
}

func (o *overlayModel) resize(width, height int) {
	w := max(min(width-6, 100), 30)
	h := max(height-6, 5)
	rendered, err := export.RenderMarkdown(o.markdown, w-4)
	if err != nil {
		rendered = o.markdown
	}
	o.viewport = viewport.New(w, h)
	o.viewport.SetContent(rendered)
}

func (o overlayModel) View(width, height int) string {
	t := o.theme
	title := t.Header.Render(o.title)
	footer := RenderKeyHints(t, "↑↓", "scroll", "esc", "close")
	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, o.viewport.View(), footer))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
