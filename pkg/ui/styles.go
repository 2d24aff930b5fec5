package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Consistent spacing and cell sizes
// ══════════════════════════════════════════════════════════════════════════════

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
	SpaceLG = 4
)

// Grid cell widths per button size, borders and padding included.
const (
	CellWidthSmall  = 16
	CellWidthMedium = 22
	CellWidthLarge  = 30
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBg          = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary     = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo        = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorWarning     = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - Overlays and search bar
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle frames modal overlays.
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)

	// SearchStyle frames the search bar.
	SearchStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorBgHighlight)
)

// ══════════════════════════════════════════════════════════════════════════════
// SECTION RENDERING
// ══════════════════════════════════════════════════════════════════════════════

// RenderSectionHeader renders a section or group header line. Collapsible
// headers get a disclosure arrow.
func RenderSectionHeader(t Theme, icon, title string, count int, collapsible, collapsed, selected bool, width int) string {
	arrow := "  "
	if collapsible {
		arrow = "▾ "
		if collapsed {
			arrow = "▸ "
		}
	}
	style := t.SectionTitle
	if collapsible {
		style = t.GroupTitle
	}
	label := fmt.Sprintf("%s%s %s", arrow, iconGlyph(icon), title)
	countStr := t.Count.Render(fmt.Sprintf(" (%d)", count))
	line := style.Render(truncate(label, width-8)) + countStr
	if selected {
		return t.Renderer.NewStyle().
			Background(t.Highlight).
			Width(width).
			Render(line)
	}
	return line
}

// RenderKeyHints renders "key desc" pairs for the footer.
func RenderKeyHints(t Theme, pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, t.KeyHint.Render(pairs[i])+" "+t.MutedText.Render(pairs[i+1]))
	}
	return strings.Join(parts, t.MutedText.Render(" • "))
}

// RenderCountBadge renders the usage count shown in the Most Used section.
func RenderCountBadge(t Theme, n int) string {
	return t.Count.Render(fmt.Sprintf("×%d", n))
}
