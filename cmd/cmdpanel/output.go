package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cmdpanel/internal/journal"
	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/export"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
	"github.com/vanderheijden86/cmdpanel/pkg/store"
)

type listCommand struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Favorite bool   `json:"favorite,omitempty"`
	Color    string `json:"color,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
	Uses     int    `json:"uses"`
}

type listGroup struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Context   model.GroupContext `json:"context"`
	Collapsed bool               `json:"collapsed,omitempty"`
	Commands  []listCommand      `json:"commands"`
}

type statsOutput struct {
	GeneratedAt string                `json:"generated_at"`
	Summary     export.Summary        `json:"summary"`
	Top         []export.UsageEntry   `json:"top"`
	Recent      []string              `json:"recently_used"`
	Favorites   []model.FavoriteEntry `json:"favorites,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func buildList(s model.Settings, lookup catalog.Lookup) []listGroup {
	out := make([]listGroup, 0, len(s.Groups))
	for _, g := range s.Groups {
		lg := listGroup{ID: g.ID, Name: g.Name, Context: g.EffectiveContext(), Collapsed: g.Collapsed}
		for _, c := range g.Commands {
			lg.Commands = append(lg.Commands, listCommand{
				ID:       c.CommandID,
				Name:     registry.DisplayName(c, lookup),
				Favorite: c.Favorite,
				Color:    c.Color,
				Missing:  !registry.Resolves(c, lookup),
				Uses:     s.CommandUsageCount[c.CommandID],
			})
		}
		out = append(out, lg)
	}
	return out
}

// writeList prints every group with its commands. Dangling references are
// listed and marked, since this is where users find them.
func writeList(w io.Writer, s model.Settings, lookup catalog.Lookup, asJSON, color bool) error {
	groups := buildList(s, lookup)
	if asJSON {
		return writeJSON(w, groups)
	}
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No groups yet. Run cmdpanel and press n to create one.")
		return err
	}

	header := func(s string) string { return s }
	if color {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#BD93F9"))
		header = func(s string) string { return style.Render(s) }
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		title := fmt.Sprintf("%s (%d)", g.Name, len(g.Commands))
		if g.Context != model.ContextAll {
			title += " [" + string(g.Context) + "]"
		}
		fmt.Fprintln(tw, header(title))
		for _, c := range g.Commands {
			marks := ""
			if c.Favorite {
				marks += "★"
			}
			if c.Missing {
				marks += " (missing)"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n", c.ID, c.Name, c.Uses, strings.TrimSpace(marks))
		}
	}
	return tw.Flush()
}

// exportSettings writes the export JSON to dest, or stdout for "-".
func exportSettings(w io.Writer, s model.Settings, dest string) error {
	data, err := store.Export(s)
	if err != nil {
		return err
	}
	if dest == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	_, err = fmt.Fprintf(w, "Exported %d groups to %s\n", len(s.Groups), dest)
	return err
}

func writeStats(w io.Writer, s model.Settings, lookup catalog.Lookup, asJSON bool) error {
	name := func(id string) string {
		return registry.DisplayName(model.CommandRef{CommandID: id}, lookup)
	}
	sum := export.UsageSummary(s.CommandUsageCount)
	top := export.TopUsage(s.CommandUsageCount, s.MostUsedLimit, name)

	if asJSON {
		var favs []model.FavoriteEntry
		for _, g := range s.Groups {
			for _, c := range g.Commands {
				if c.Favorite {
					favs = append(favs, model.FavoriteEntry{GroupID: g.ID, Command: c})
				}
			}
		}
		return writeJSON(w, statsOutput{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Summary:     sum,
			Top:         top,
			Recent:      s.RecentlyUsed,
			Favorites:   favs,
		})
	}

	if sum.Total == 0 {
		_, err := fmt.Fprintln(w, "No usage recorded yet.")
		return err
	}
	fmt.Fprintf(w, "Launches: %d across %d commands\n", sum.Total, sum.Distinct)
	fmt.Fprintf(w, "Per command: mean %.1f, median %.0f, std dev %.1f, max %d\n\n", sum.Mean, sum.Median, sum.StdDev, sum.Max)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNT\tCOMMAND\tID")
	for _, e := range top {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Count, e.Name, e.CommandID)
	}
	return tw.Flush()
}

func writeHistory(w io.Writer, entries []journal.Entry, lookup catalog.Lookup) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No launches journaled yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCOMMAND\tDURATION\tRESULT")
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = fmt.Sprintf("exit %d", e.ExitCode)
			if e.Error != "" {
				result += ": " + e.Error
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			registry.DisplayName(model.CommandRef{CommandID: e.CommandID}, lookup),
			e.Duration.Round(time.Millisecond),
			result)
	}
	return tw.Flush()
}
