package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
)

// GroupsMarkdown renders every group with its commands, in order. Usage
// counts come from the settings; lookup resolves display names and may be
// nil.
func GroupsMarkdown(s model.Settings, lookup catalog.Lookup) string {
	var sb strings.Builder
	sb.WriteString("# Command groups\n\n")

	if len(s.Groups) == 0 {
		sb.WriteString("*No groups yet.*\n")
		return sb.String()
	}

	groups := append([]model.Group(nil), s.Groups...)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Order < groups[j].Order })

	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdown(g.Name)))
		var meta []string
		if ctx := g.EffectiveContext(); ctx != model.ContextAll {
			meta = append(meta, "context: "+string(ctx))
		}
		if g.Collapsed {
			meta = append(meta, "collapsed")
		}
		if len(meta) > 0 {
			sb.WriteString(fmt.Sprintf("*%s*\n\n", strings.Join(meta, ", ")))
		}

		if len(g.Commands) == 0 {
			sb.WriteString("*Empty.*\n\n")
			continue
		}
		sb.WriteString("| # | Command | ID | Uses |\n")
		sb.WriteString("|---|---------|----|------|\n")
		for i, c := range g.Commands {
			name := escapeMarkdown(registry.DisplayName(c, lookup))
			if c.Favorite {
				name += " ★"
			}
			if !registry.Resolves(c, lookup) {
				name += " (missing)"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | `%s` | %d |\n", i+1, name, c.CommandID, s.CommandUsageCount[c.CommandID]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderMarkdown renders md for the terminal with glamour, wrapped at width.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimRight(out, "\n "), nil
}

func escapeMarkdown(s string) string {
	r := strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_", "`", "'")
	return r.Replace(s)
}
