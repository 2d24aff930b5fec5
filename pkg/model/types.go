// Package model defines the persisted data of the command panel: groups of
// command references plus recency, usage and favorite tracking.
package model

import (
	"fmt"
	"strings"
)

// GroupContext restricts where a group is shown.
type GroupContext string

const (
	ContextAll      GroupContext = "all"
	ContextEditor   GroupContext = "editor"
	ContextMarkdown GroupContext = "markdown"
	ContextCanvas   GroupContext = "canvas"
)

// IsValid reports whether c is a known context. The empty value is valid and
// means ContextAll.
func (c GroupContext) IsValid() bool {
	switch c {
	case "", ContextAll, ContextEditor, ContextMarkdown, ContextCanvas:
		return true
	}
	return false
}

// Contexts lists the selectable contexts in display order.
func Contexts() []GroupContext {
	return []GroupContext{ContextAll, ContextEditor, ContextMarkdown, ContextCanvas}
}

// Layout is the arrangement of command buttons.
type Layout string

const (
	LayoutGrid    Layout = "grid"
	LayoutList    Layout = "list"
	LayoutCompact Layout = "compact"
)

// ButtonSize controls the width of grid cells.
type ButtonSize string

const (
	ButtonSmall  ButtonSize = "small"
	ButtonMedium ButtonSize = "medium"
	ButtonLarge  ButtonSize = "large"
)

// CommandRef is a group's pointer to a host command plus local overrides.
type CommandRef struct {
	CommandID  string `json:"commandId"`
	CustomName string `json:"customName,omitempty"`
	CustomIcon string `json:"customIcon,omitempty"`
	Color      string `json:"color,omitempty"`
	Favorite   bool   `json:"favorite,omitempty"`
	Order      int    `json:"order"`
}

// Group is a user-defined ordered folder of command references.
type Group struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Icon      string       `json:"icon"`
	Collapsed bool         `json:"collapsed"`
	Order     int          `json:"order"`
	Context   GroupContext `json:"context,omitempty"`
	Commands  []CommandRef `json:"commands"`
}

// EffectiveContext returns the group's context, defaulting to ContextAll.
func (g Group) EffectiveContext() GroupContext {
	if g.Context == "" {
		return ContextAll
	}
	return g.Context
}

// IndexOf returns the position of the first reference to commandID, or -1.
func (g Group) IndexOf(commandID string) int {
	for i := range g.Commands {
		if g.Commands[i].CommandID == commandID {
			return i
		}
	}
	return -1
}

// FavoriteEntry is a favorited command together with its owning group.
type FavoriteEntry struct {
	GroupID string
	Command CommandRef
}

// Settings is the root aggregate persisted between sessions.
type Settings struct {
	Layout      Layout     `json:"layout"`
	GridColumns int        `json:"gridColumns"`
	ButtonSize  ButtonSize `json:"buttonSize"`

	ShowFavorites     bool `json:"showFavorites"`
	ShowRecentlyUsed  bool `json:"showRecentlyUsed"`
	RecentlyUsedLimit int  `json:"recentlyUsedLimit"`
	ShowMostUsed      bool `json:"showMostUsed"`
	MostUsedLimit     int  `json:"mostUsedLimit"`
	ShowHotkeys       bool `json:"showHotkeys"`
	ShowTooltips      bool `json:"showTooltips"`
	ShowExecuteNotice bool `json:"showExecuteNotice"`

	Groups            []Group        `json:"groups"`
	RecentlyUsed      []string       `json:"recentlyUsed"`
	CommandUsageCount map[string]int `json:"commandUsageCount"`
	SearchHistory     []string       `json:"searchHistory,omitempty"`
}

// SearchHistoryLimit caps the number of remembered search queries.
const SearchHistoryLimit = 10

// DefaultSettings returns the settings used for a fresh install and as the
// base that persisted data is merged over.
func DefaultSettings() Settings {
	return Settings{
		Layout:            LayoutGrid,
		GridColumns:       4,
		ButtonSize:        ButtonMedium,
		ShowFavorites:     true,
		ShowRecentlyUsed:  true,
		RecentlyUsedLimit: 20,
		ShowMostUsed:      true,
		MostUsedLimit:     20,
		ShowHotkeys:       true,
		ShowTooltips:      true,
		ShowExecuteNotice: false,
		Groups:            []Group{},
		RecentlyUsed:      []string{},
		CommandUsageCount: map[string]int{},
	}
}

// Normalize repairs out-of-range preferences and materializes nil
// collections. It never reorders groups or commands.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	switch s.Layout {
	case LayoutGrid, LayoutList, LayoutCompact:
	default:
		s.Layout = def.Layout
	}
	switch s.ButtonSize {
	case ButtonSmall, ButtonMedium, ButtonLarge:
	default:
		s.ButtonSize = def.ButtonSize
	}
	if s.GridColumns < 1 || s.GridColumns > 12 {
		s.GridColumns = def.GridColumns
	}
	if s.RecentlyUsedLimit < 1 {
		s.RecentlyUsedLimit = def.RecentlyUsedLimit
	}
	if s.MostUsedLimit < 1 {
		s.MostUsedLimit = def.MostUsedLimit
	}
	if s.Groups == nil {
		s.Groups = []Group{}
	}
	for i := range s.Groups {
		if s.Groups[i].Commands == nil {
			s.Groups[i].Commands = []CommandRef{}
		}
		if !s.Groups[i].Context.IsValid() {
			s.Groups[i].Context = ContextAll
		}
	}
	s.RecentlyUsed = dedupeRecent(s.RecentlyUsed)
	if len(s.RecentlyUsed) > s.RecentlyUsedLimit {
		s.RecentlyUsed = s.RecentlyUsed[:s.RecentlyUsedLimit]
	}
	if s.CommandUsageCount == nil {
		s.CommandUsageCount = map[string]int{}
	}
	switch {
	case len(s.SearchHistory) == 0:
		s.SearchHistory = nil
	case len(s.SearchHistory) > SearchHistoryLimit:
		s.SearchHistory = s.SearchHistory[:SearchHistoryLimit]
	}
}

// dedupeRecent keeps the first occurrence of every id and drops blanks.
func dedupeRecent(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.Groups = make([]Group, len(s.Groups))
	for i, g := range s.Groups {
		g.Commands = append([]CommandRef(nil), g.Commands...)
		if g.Commands == nil {
			g.Commands = []CommandRef{}
		}
		out.Groups[i] = g
	}
	out.RecentlyUsed = append([]string{}, s.RecentlyUsed...)
	out.CommandUsageCount = make(map[string]int, len(s.CommandUsageCount))
	for k, v := range s.CommandUsageCount {
		out.CommandUsageCount[k] = v
	}
	if s.SearchHistory != nil {
		out.SearchHistory = append([]string{}, s.SearchHistory...)
	}
	return out
}

// FindGroup returns a pointer to the group with the given id, or nil.
func (s *Settings) FindGroup(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// GroupIndex returns the position of the group with the given id, or -1.
func (s *Settings) GroupIndex(id string) int {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the invariants Normalize cannot repair: group ids are
// non-empty and unique, contexts are known, command ids are non-empty, and
// the recent list holds unique ids within its limit. store.Import rejects
// payloads that fail it.
func (s Settings) Validate() error {
	seen := make(map[string]bool, len(s.Groups))
	for i, g := range s.Groups {
		if strings.TrimSpace(g.ID) == "" {
			return fmt.Errorf("group %d has empty id", i)
		}
		if seen[g.ID] {
			return fmt.Errorf("duplicate group id %s", g.ID)
		}
		seen[g.ID] = true
		if !g.Context.IsValid() {
			return fmt.Errorf("group %s has invalid context %q", g.ID, g.Context)
		}
		for j, c := range g.Commands {
			if strings.TrimSpace(c.CommandID) == "" {
				return fmt.Errorf("group %s command %d has empty id", g.ID, j)
			}
		}
	}
	recent := make(map[string]bool, len(s.RecentlyUsed))
	for _, id := range s.RecentlyUsed {
		if recent[id] {
			return fmt.Errorf("duplicate recently used id %s", id)
		}
		recent[id] = true
	}
	if s.RecentlyUsedLimit > 0 && len(s.RecentlyUsed) > s.RecentlyUsedLimit {
		return fmt.Errorf("recently used has %d entries, limit %d", len(s.RecentlyUsed), s.RecentlyUsedLimit)
	}
	return nil
}
