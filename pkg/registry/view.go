package registry

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
)

// DefaultCommandIcon is shown when neither the reference nor the host
// provides an icon.
const DefaultCommandIcon = "terminal"

// HostContext describes what the user is working on. Groups restricted to a
// context are only shown when it matches.
type HostContext struct {
	ViewType string // "markdown", "canvas", ...
	Editing  bool
}

// Allows reports whether a group with context gc is visible in hc.
func (hc HostContext) Allows(gc model.GroupContext) bool {
	switch gc {
	case "", model.ContextAll:
		return true
	case model.ContextCanvas:
		return hc.ViewType == "canvas"
	case model.ContextMarkdown:
		return hc.ViewType == "markdown"
	case model.ContextEditor:
		return hc.ViewType == "markdown" && hc.Editing
	}
	return false
}

// DisplayName returns the label for a reference: the custom name, then the
// host name, then the raw id.
func DisplayName(ref model.CommandRef, lookup catalog.Lookup) string {
	if ref.CustomName != "" {
		return ref.CustomName
	}
	if lookup != nil {
		if d, ok := lookup.FindCommand(ref.CommandID); ok && d.Name != "" {
			return d.Name
		}
	}
	return ref.CommandID
}

// DisplayIcon returns the icon for a reference with the same precedence as
// DisplayName.
func DisplayIcon(ref model.CommandRef, lookup catalog.Lookup) string {
	if ref.CustomIcon != "" {
		return ref.CustomIcon
	}
	if lookup != nil {
		if d, ok := lookup.FindCommand(ref.CommandID); ok && d.Icon != "" {
			return d.Icon
		}
	}
	return DefaultCommandIcon
}

// Resolves reports whether the host still knows the referenced command.
func Resolves(ref model.CommandRef, lookup catalog.Lookup) bool {
	if lookup == nil {
		return true
	}
	_, ok := lookup.FindCommand(ref.CommandID)
	return ok
}

// VisibleGroups returns render copies of the groups, sorted by order.
//
// Without a query, groups outside hc are hidden. With a query, context is
// ignored, commands are filtered by display name (case-insensitive), every
// group is expanded, and groups left empty are dropped. Dangling references
// are always omitted from the copies; the stored settings are not touched.
func (r *Registry) VisibleGroups(hc HostContext, query string, lookup catalog.Lookup) []model.Group {
	query = strings.ToLower(strings.TrimSpace(query))

	groups := make([]model.Group, 0, len(r.settings.Groups))
	for _, g := range r.settings.Groups {
		if query == "" && !hc.Allows(g.EffectiveContext()) {
			continue
		}
		cmds := make([]model.CommandRef, 0, len(g.Commands))
		for _, c := range g.Commands {
			if !Resolves(c, lookup) {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(DisplayName(c, lookup)), query) {
				continue
			}
			cmds = append(cmds, c)
		}
		if query != "" {
			if len(cmds) == 0 {
				continue
			}
			g.Collapsed = false
		}
		g.Commands = cmds
		groups = append(groups, g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Order < groups[j].Order
	})
	return groups
}
