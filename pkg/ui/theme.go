package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor

	Success  lipgloss.AdaptiveColor
	Danger   lipgloss.AdaptiveColor
	Warning  lipgloss.AdaptiveColor
	Favorite lipgloss.AdaptiveColor

	// Styles
	Base         lipgloss.Style
	Header       lipgloss.Style
	SectionTitle lipgloss.Style // Favorites, Recently Used, Most Used
	GroupTitle   lipgloss.Style
	Cell         lipgloss.Style
	CellSelected lipgloss.Style
	CellGrabbed  lipgloss.Style
	Count        lipgloss.Style
	Star         lipgloss.Style
	MutedText    lipgloss.Style
	Notice       lipgloss.Style
	NoticeError  lipgloss.Style
	KeyHint      lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},

		Success:  lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Danger:   lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Warning:  lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Favorite: lipgloss.AdaptiveColor{Light: "#B08800", Dark: "#F1FA8C"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.SectionTitle = r.NewStyle().Foreground(t.Secondary).Bold(true)
	t.GroupTitle = r.NewStyle().Foreground(t.Primary).Bold(true)

	t.Cell = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	t.CellSelected = t.Cell.
		BorderForeground(t.Primary).
		Background(t.Highlight).
		Bold(true)
	t.CellGrabbed = t.Cell.
		Border(lipgloss.DoubleBorder()).
		BorderForeground(t.Warning).
		Bold(true)

	t.Count = r.NewStyle().Foreground(t.Secondary)
	t.Star = r.NewStyle().Foreground(ThemeFg("#FFD700"))
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.Notice = r.NewStyle().Foreground(t.Success)
	t.NoticeError = r.NewStyle().Foreground(t.Danger).Bold(true)
	t.KeyHint = r.NewStyle().Foreground(t.Primary).Bold(true)

	return t
}

// namedColors are the color names accepted for command overrides besides
// #rrggbb hex values.
var namedColors = map[string]lipgloss.AdaptiveColor{
	"red":    {Light: "#CC0000", Dark: "#FF5555"},
	"orange": {Light: "#B06800", Dark: "#FFB86C"},
	"yellow": {Light: "#808000", Dark: "#F1FA8C"},
	"green":  {Light: "#007700", Dark: "#50FA7B"},
	"cyan":   {Light: "#006080", Dark: "#8BE9FD"},
	"blue":   {Light: "#0066CC", Dark: "#6699FF"},
	"purple": {Light: "#6B47D9", Dark: "#BD93F9"},
	"pink":   {Light: "#C01C7C", Dark: "#FF79C6"},
	"gray":   {Light: "#555555", Dark: "#6272A4"},
}

// ColorNames lists the named command colors in display order.
func ColorNames() []string {
	return []string{"red", "orange", "yellow", "green", "cyan", "blue", "purple", "pink", "gray"}
}

// CommandColor resolves a command's color override. ok is false for an
// empty or unrecognized value.
func (t Theme) CommandColor(value string) (lipgloss.TerminalColor, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil, false
	}
	if c, ok := namedColors[value]; ok {
		return c, true
	}
	if isHexColor(value) {
		return ThemeFg(value), true
	}
	return nil, false
}

// ValidColor reports whether value is usable as a command color. Empty
// clears the override and is valid.
func ValidColor(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || isHexColor(value) {
		return true
	}
	_, ok := namedColors[value]
	return ok
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
