package ui

import (
	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
)

// sectionKind distinguishes the derived sections from user groups.
type sectionKind int

const (
	sectionFavorites sectionKind = iota
	sectionRecent
	sectionMostUsed
	sectionGroup
)

// Keys identifying the derived sections; groups use their id.
const (
	keyFavorites = "favorites"
	keyRecent    = "recent"
	keyMostUsed  = "most-used"
)

func (k sectionKind) special() bool {
	return k != sectionGroup
}

// item is one command button.
type item struct {
	ref     model.CommandRef
	groupID string // owning group; for favorites the group holding the favorite
	name    string
	icon    string
	hotkey  string
	desc    string
	count   int // usage count, shown in Most Used
}

// section is a rendered block: a derived list or a user group.
type section struct {
	kind      sectionKind
	key       string
	title     string
	icon      string
	collapsed bool
	items     []item
}

// visibleItems returns the items drawn below the header.
func (s section) visibleItems() []item {
	if s.collapsed {
		return nil
	}
	return s.items
}

// buildSections derives the panel's sections from the registry. Derived
// sections are hidden while searching, when disabled in settings, or when
// empty. Commands the catalog no longer knows are skipped everywhere.
func buildSections(reg *registry.Registry, lookup catalog.Lookup, hc registry.HostContext, query string) []section {
	s := reg.Settings()
	var out []section

	if query == "" {
		if s.ShowFavorites {
			var items []item
			for _, fav := range reg.FavoriteCommands() {
				if !registry.Resolves(fav.Command, lookup) {
					continue
				}
				items = append(items, newItem(fav.Command, fav.GroupID, lookup))
			}
			if len(items) > 0 {
				out = append(out, section{kind: sectionFavorites, key: keyFavorites, title: "Favorites", icon: "star", items: items})
			}
		}

		if s.ShowRecentlyUsed {
			var items []item
			for _, id := range s.RecentlyUsed {
				ref := model.CommandRef{CommandID: id}
				if !registry.Resolves(ref, lookup) {
					continue
				}
				items = append(items, newItem(ref, "", lookup))
			}
			if len(items) > 0 {
				out = append(out, section{kind: sectionRecent, key: keyRecent, title: "Recently Used", icon: "clock", items: items})
			}
		}

		if s.ShowMostUsed {
			var items []item
			for _, id := range reg.MostUsedCommands() {
				ref := model.CommandRef{CommandID: id}
				if !registry.Resolves(ref, lookup) {
					continue
				}
				it := newItem(ref, "", lookup)
				it.count = reg.UsageCount(id)
				items = append(items, it)
			}
			if len(items) > 0 {
				out = append(out, section{kind: sectionMostUsed, key: keyMostUsed, title: "Most Used", icon: "trending-up", items: items})
			}
		}
	}

	for _, g := range reg.VisibleGroups(hc, query, lookup) {
		sec := section{
			kind:      sectionGroup,
			key:       g.ID,
			title:     g.Name,
			icon:      g.Icon,
			collapsed: g.Collapsed,
		}
		for _, c := range g.Commands {
			sec.items = append(sec.items, newItem(c, g.ID, lookup))
		}
		out = append(out, sec)
	}
	return out
}

func newItem(ref model.CommandRef, groupID string, lookup catalog.Lookup) item {
	it := item{
		ref:     ref,
		groupID: groupID,
		name:    registry.DisplayName(ref, lookup),
		icon:    registry.DisplayIcon(ref, lookup),
	}
	if lookup != nil {
		if d, ok := lookup.FindCommand(ref.CommandID); ok {
			it.hotkey = d.Hotkey
			it.desc = d.Description
		}
	}
	return it
}

// cursor points at a section header (item == -1) or an item.
type cursor struct {
	section int
	item    int
}

func (c cursor) onHeader() bool {
	return c.item < 0
}

// nav moves a cursor over sections laid out cols items per row.
type nav struct {
	sections []section
	cols     int
}

// vertical moves one row up (delta < 0) or down.
func (n nav) vertical(c cursor, delta int) cursor {
	if len(n.sections) == 0 {
		return cursor{}
	}
	cols := max(n.cols, 1)
	items := n.sections[c.section].visibleItems()

	if delta > 0 {
		if c.onHeader() {
			if len(items) > 0 {
				return cursor{section: c.section, item: 0}
			}
			return n.nextHeader(c)
		}
		if next := c.item + cols; next < len(items) {
			return cursor{section: c.section, item: next}
		}
		// Last row: step onto the next section.
		if lastRow(c.item, cols) == lastRow(len(items)-1, cols) {
			return n.nextHeader(c)
		}
		return cursor{section: c.section, item: len(items) - 1}
	}

	if c.onHeader() {
		if c.section == 0 {
			return c
		}
		prev := c.section - 1
		prevItems := n.sections[prev].visibleItems()
		if len(prevItems) == 0 {
			return cursor{section: prev, item: -1}
		}
		return cursor{section: prev, item: len(prevItems) - 1}
	}
	if prev := c.item - cols; prev >= 0 {
		return cursor{section: c.section, item: prev}
	}
	return cursor{section: c.section, item: -1}
}

// horizontal moves within a row. Headers do not move sideways.
func (n nav) horizontal(c cursor, delta int) cursor {
	if len(n.sections) == 0 || c.onHeader() {
		return c
	}
	items := n.sections[c.section].visibleItems()
	next := c.item + delta
	if next < 0 || next >= len(items) {
		return c
	}
	return cursor{section: c.section, item: next}
}

func (n nav) nextHeader(c cursor) cursor {
	if c.section+1 < len(n.sections) {
		return cursor{section: c.section + 1, item: -1}
	}
	return c
}

// clamp keeps c inside the current sections.
func (n nav) clamp(c cursor) cursor {
	if len(n.sections) == 0 {
		return cursor{item: -1}
	}
	if c.section >= len(n.sections) {
		c.section = len(n.sections) - 1
	}
	if c.section < 0 {
		c.section = 0
	}
	items := n.sections[c.section].visibleItems()
	if c.item >= len(items) {
		c.item = len(items) - 1
	}
	if c.item < -1 {
		c.item = -1
	}
	return c
}

// find locates a section key and command id. An empty command id finds
// the header.
func (n nav) find(sectionKey, commandID string) (cursor, bool) {
	for si, s := range n.sections {
		if s.key != sectionKey {
			continue
		}
		if commandID == "" {
			return cursor{section: si, item: -1}, true
		}
		for ii, it := range s.visibleItems() {
			if it.ref.CommandID == commandID {
				return cursor{section: si, item: ii}, true
			}
		}
		return cursor{section: si, item: -1}, true
	}
	return cursor{}, false
}

func lastRow(i, cols int) int {
	return i / cols
}
