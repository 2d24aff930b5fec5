package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// ChartOptions controls usage chart export.
type ChartOptions struct {
	Path    string       // Output path; format inferred from extension when Format empty
	Format  string       // "svg" or "png" (case-insensitive)
	Title   string       // Rendered in the header
	Entries []UsageEntry // Bars, top to bottom
}

const (
	chartWidth    = 760
	chartHeader   = 72
	chartRowH     = 28
	chartLabelW   = 220
	chartPadding  = 24
	chartBarMaxW  = chartWidth - chartLabelW - 2*chartPadding - 48
	chartLabelMax = 28
)

var (
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorBar      = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
)

type chartBar struct {
	Label string
	Count int
	Y     int
	W     int
}

type chartLayout struct {
	Width, Height int
	Title         string
	Subtitle      string
	Bars          []chartBar
}

// SaveUsageChart renders a horizontal bar chart of command usage.
func SaveUsageChart(opts ChartOptions) error {
	if len(opts.Entries) == 0 {
		return fmt.Errorf("no usage to chart")
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		case ".svg":
			format = "svg"
		default:
			format = "svg"
			if filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildChartLayout(opts)
	if format == "png" {
		return renderChartPNG(opts.Path, layout)
	}

	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := renderChartSVG(file, layout); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func buildChartLayout(opts ChartOptions) chartLayout {
	title := opts.Title
	if title == "" {
		title = "Most used commands"
	}
	max := 0
	total := 0
	for _, e := range opts.Entries {
		if e.Count > max {
			max = e.Count
		}
		total += e.Count
	}

	l := chartLayout{
		Width:    chartWidth,
		Height:   chartHeader + chartPadding + len(opts.Entries)*chartRowH,
		Title:    title,
		Subtitle: fmt.Sprintf("commands: %d  launches: %d", len(opts.Entries), total),
	}
	for i, e := range opts.Entries {
		w := 0
		if max > 0 {
			w = e.Count * chartBarMaxW / max
		}
		if w < 2 {
			w = 2
		}
		label := e.Name
		if label == "" {
			label = e.CommandID
		}
		l.Bars = append(l.Bars, chartBar{
			Label: truncate(label, chartLabelMax),
			Count: e.Count,
			Y:     chartHeader + chartPadding/2 + i*chartRowH,
			W:     w,
		})
	}
	return l
}

func renderChartPNG(path string, l chartLayout) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 12, float64(l.Width)-32, chartHeader-20, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(l.Title, 32, 32, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(l.Subtitle, 32, 50, 0, 0.5)

	for _, b := range l.Bars {
		mid := float64(b.Y) + chartRowH/2
		dc.SetColor(colorText)
		dc.DrawStringAnchored(b.Label, chartPadding, mid, 0, 0.5)

		dc.SetColor(colorBar)
		dc.DrawRoundedRectangle(chartPadding+chartLabelW, float64(b.Y)+5, float64(b.W), chartRowH-10, 3)
		dc.Fill()

		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(fmt.Sprint(b.Count), float64(chartPadding+chartLabelW+b.W+8), mid, 0, 0.5)
	}

	return dc.SavePNG(path)
}

// WriteUsageChartSVG writes the chart as SVG to w.
func WriteUsageChartSVG(w io.Writer, opts ChartOptions) error {
	if len(opts.Entries) == 0 {
		return fmt.Errorf("no usage to chart")
	}
	return renderChartSVG(w, buildChartLayout(opts))
}

func renderChartSVG(w io.Writer, l chartLayout) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 12, l.Width-32, chartHeader-20, 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 36, l.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 54, l.Subtitle, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	for _, b := range l.Bars {
		textY := b.Y + chartRowH/2 + 4
		canvas.Text(chartPadding, textY, b.Label, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText)))
		canvas.Roundrect(chartPadding+chartLabelW, b.Y+5, b.W, chartRowH-10, 3, 3, fmt.Sprintf("fill:%s", css(colorBar)))
		canvas.Text(chartPadding+chartLabelW+b.W+8, textY, fmt.Sprint(b.Count), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	canvas.End()
	return nil
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
