package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// FormatDuration renders a launch duration compactly ("850ms", "2.4s", "1m5s").
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Truncate(time.Second).String()
	}
}

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// truncate truncates s to maxWidth display cells.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// iconGlyphs maps the icon names used by groups and commands to glyphs.
var iconGlyphs = map[string]string{
	"folder":      "▣",
	"terminal":    "❯",
	"star":        "★",
	"heart":       "♥",
	"clock":       "◷",
	"trending-up": "↗",
	"git":         "⎇",
	"git-branch":  "⎇",
	"file":        "□",
	"file-text":   "≡",
	"search":      "⌕",
	"settings":    "⚙",
	"play":        "▶",
	"trash":       "✗",
	"copy":        "⧉",
	"edit":        "✎",
	"pencil":      "✎",
	"link":        "∞",
	"calendar":    "▦",
	"check":       "✓",
	"bookmark":    "⚑",
	"cloud":       "☁",
	"zap":         "⚡",
	"globe":       "◍",
	"home":        "⌂",
	"database":    "⛁",
	"package":     "⧈",
	"refresh":     "↻",
	"eye":         "◉",
	"code":        "⟨⟩",
}

// iconGlyph turns an icon name into something printable. Names without a
// glyph fall back to a bullet; a value that is already a single symbol
// (an emoji the user typed) is shown as is.
func iconGlyph(name string) string {
	if g, ok := iconGlyphs[strings.ToLower(name)]; ok {
		return g
	}
	if name != "" && utf8.RuneCountInString(name) <= 2 && runewidth.StringWidth(name) <= 2 {
		r, _ := utf8.DecodeRuneInString(name)
		if r >= 0x80 {
			return name
		}
	}
	return "•"
}
