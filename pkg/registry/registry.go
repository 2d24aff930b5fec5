// Package registry owns every mutation of the command panel settings: group
// and command ordering, favorites, recency and usage counts.
//
// Operations never fail. An unknown group or command id makes the call a
// no-op, so presentation code can call them speculatively. After each
// mutation the registry hands the settings to its Saver; save errors are
// reported to the error handler and never roll back in-memory state.
package registry

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vanderheijden86/cmdpanel/pkg/debug"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
)

// Default values applied by AddGroup.
const (
	DefaultGroupName = "New Group"
	DefaultGroupIcon = "folder"
)

// Saver persists settings after a mutation.
type Saver interface {
	Save(s model.Settings) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(model.Settings) error

// Save calls f(s).
func (f SaverFunc) Save(s model.Settings) error { return f(s) }

// Registry mutates a settings value in place.
type Registry struct {
	settings    *model.Settings
	saver       Saver
	onSaveError func(error)
	newID       func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithSaver sets the persistence target.
func WithSaver(s Saver) Option {
	return func(r *Registry) {
		r.saver = s
	}
}

// WithSaveErrorHandler sets the callback invoked when a save fails.
func WithSaveErrorHandler(fn func(error)) Option {
	return func(r *Registry) {
		r.onSaveError = fn
	}
}

// WithIDGenerator overrides group id generation. Tests use it for stable ids.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// New returns a registry operating on settings. A nil settings pointer is
// replaced by a fresh DefaultSettings value.
func New(settings *model.Settings, opts ...Option) *Registry {
	if settings == nil {
		def := model.DefaultSettings()
		settings = &def
	}
	settings.Normalize()
	r := &Registry{
		settings:    settings,
		onSaveError: func(error) {},
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the live settings. Callers must treat it as read-only and
// go through registry operations for changes.
func (r *Registry) Settings() *model.Settings {
	return r.settings
}

// Snapshot returns a deep copy of the current settings.
func (r *Registry) Snapshot() model.Settings {
	return r.settings.Clone()
}

func (r *Registry) persist() {
	if r.saver == nil {
		return
	}
	if err := r.saver.Save(*r.settings); err != nil {
		debug.Warn("saving settings: %v", err)
		r.onSaveError(err)
	}
}

// Replace swaps in a whole settings value, normalized over defaults, and
// persists it. Import uses this.
func (r *Registry) Replace(s model.Settings) {
	s.Normalize()
	*r.settings = s
	r.persist()
}

// Reload swaps in settings read back from storage without persisting them
// again.
func (r *Registry) Reload(s model.Settings) {
	s.Normalize()
	*r.settings = s
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

// AddGroup appends a new group and returns a copy of it.
func (r *Registry) AddGroup(name, icon string) model.Group {
	if strings.TrimSpace(name) == "" {
		name = DefaultGroupName
	}
	if strings.TrimSpace(icon) == "" {
		icon = DefaultGroupIcon
	}
	g := model.Group{
		ID:       r.newID(),
		Name:     name,
		Icon:     icon,
		Order:    len(r.settings.Groups),
		Context:  model.ContextAll,
		Commands: []model.CommandRef{},
	}
	r.settings.Groups = append(r.settings.Groups, g)
	r.persist()
	return g
}

// GroupPatch lists the group fields to change. Nil fields are left alone.
type GroupPatch struct {
	Name      *string
	Icon      *string
	Collapsed *bool
	Context   *model.GroupContext
}

// UpdateGroup merges the set fields of patch into the group.
func (r *Registry) UpdateGroup(id string, patch GroupPatch) {
	g := r.settings.FindGroup(id)
	if g == nil {
		return
	}
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.Icon != nil {
		g.Icon = *patch.Icon
	}
	if patch.Collapsed != nil {
		g.Collapsed = *patch.Collapsed
	}
	if patch.Context != nil && patch.Context.IsValid() {
		g.Context = *patch.Context
	}
	r.persist()
}

// ToggleCollapsed flips the collapsed flag of a group.
func (r *Registry) ToggleCollapsed(id string) {
	g := r.settings.FindGroup(id)
	if g == nil {
		return
	}
	collapsed := !g.Collapsed
	r.UpdateGroup(id, GroupPatch{Collapsed: &collapsed})
}

// DeleteGroup removes a group and renumbers the survivors.
func (r *Registry) DeleteGroup(id string) {
	idx := r.settings.GroupIndex(id)
	if idx < 0 {
		return
	}
	r.settings.Groups = append(r.settings.Groups[:idx], r.settings.Groups[idx+1:]...)
	r.renumberGroups()
	r.persist()
}

// MoveGroup swaps a group with its neighbour in direction (-1 up, +1 down).
// Moving past either end is a no-op.
func (r *Registry) MoveGroup(id string, direction int) {
	idx := r.settings.GroupIndex(id)
	if idx < 0 || (direction != -1 && direction != 1) {
		return
	}
	next := idx + direction
	if next < 0 || next >= len(r.settings.Groups) {
		return
	}
	groups := r.settings.Groups
	groups[idx], groups[next] = groups[next], groups[idx]
	r.renumberGroups()
	r.persist()
}

// ReorderGroup moves a group to newIndex, clamped to the last position.
// A negative index or unknown id is a no-op.
func (r *Registry) ReorderGroup(id string, newIndex int) {
	idx := r.settings.GroupIndex(id)
	if idx < 0 || newIndex < 0 {
		return
	}
	g := r.settings.Groups[idx]
	groups := append(r.settings.Groups[:idx], r.settings.Groups[idx+1:]...)
	if newIndex > len(groups) {
		newIndex = len(groups)
	}
	groups = append(groups, model.Group{})
	copy(groups[newIndex+1:], groups[newIndex:])
	groups[newIndex] = g
	r.settings.Groups = groups
	r.renumberGroups()
	r.persist()
}

func (r *Registry) renumberGroups() {
	for i := range r.settings.Groups {
		r.settings.Groups[i].Order = i
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// AddCommandToGroup appends a reference to commandID. Duplicates are
// allowed.
func (r *Registry) AddCommandToGroup(groupID, commandID string) {
	g := r.settings.FindGroup(groupID)
	if g == nil || strings.TrimSpace(commandID) == "" {
		return
	}
	g.Commands = append(g.Commands, model.CommandRef{
		CommandID: commandID,
		Order:     len(g.Commands),
	})
	r.persist()
}

// RemoveCommandFromGroup drops every reference to commandID from the group
// and renumbers the rest.
func (r *Registry) RemoveCommandFromGroup(groupID, commandID string) {
	g := r.settings.FindGroup(groupID)
	if g == nil {
		return
	}
	kept := g.Commands[:0]
	for _, c := range g.Commands {
		if c.CommandID != commandID {
			kept = append(kept, c)
		}
	}
	g.Commands = kept
	renumberCommands(g)
	r.persist()
}

// CommandPatch lists the display overrides to change. Nil fields are never
// applied, so an unset field cannot clear a stored value. A non-nil empty
// string clears the override.
type CommandPatch struct {
	CustomName *string
	CustomIcon *string
	Color      *string
}

// UpdateCommand merges the set fields of patch into the command reference.
func (r *Registry) UpdateCommand(groupID, commandID string, patch CommandPatch) {
	g := r.settings.FindGroup(groupID)
	if g == nil {
		return
	}
	idx := g.IndexOf(commandID)
	if idx < 0 {
		return
	}
	c := &g.Commands[idx]
	if patch.CustomName != nil {
		c.CustomName = *patch.CustomName
	}
	if patch.CustomIcon != nil {
		c.CustomIcon = *patch.CustomIcon
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	r.persist()
}

// MoveCommand moves a reference from one group to a position in another (or
// the same) group. targetIndex is a position in the target list as it looked
// before the move, which is what a drop target reports; within one group an
// index past the original position is shifted down by one to account for the
// removal.
func (r *Registry) MoveCommand(commandID, sourceGroupID, targetGroupID string, targetIndex int) {
	src := r.settings.FindGroup(sourceGroupID)
	dst := r.settings.FindGroup(targetGroupID)
	if src == nil || dst == nil {
		return
	}
	from := src.IndexOf(commandID)
	if from < 0 {
		return
	}
	ref := src.Commands[from]
	src.Commands = append(src.Commands[:from], src.Commands[from+1:]...)

	if sourceGroupID == targetGroupID && targetIndex > from {
		targetIndex--
	}
	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(dst.Commands) {
		targetIndex = len(dst.Commands)
	}

	dst.Commands = append(dst.Commands, model.CommandRef{})
	copy(dst.Commands[targetIndex+1:], dst.Commands[targetIndex:])
	dst.Commands[targetIndex] = ref

	renumberCommands(src)
	if sourceGroupID != targetGroupID {
		renumberCommands(dst)
	}
	r.persist()
}

func renumberCommands(g *model.Group) {
	for i := range g.Commands {
		g.Commands[i].Order = i
	}
}

// ---------------------------------------------------------------------------
// Favorites
// ---------------------------------------------------------------------------

// ToggleFavorite flips the favorite flag of a command reference.
func (r *Registry) ToggleFavorite(groupID, commandID string) {
	g := r.settings.FindGroup(groupID)
	if g == nil {
		return
	}
	idx := g.IndexOf(commandID)
	if idx < 0 {
		return
	}
	g.Commands[idx].Favorite = !g.Commands[idx].Favorite
	r.persist()
}

// FavoriteCommands returns favorited references in group order, then
// command order.
func (r *Registry) FavoriteCommands() []model.FavoriteEntry {
	var out []model.FavoriteEntry
	for _, g := range r.settings.Groups {
		for _, c := range g.Commands {
			if c.Favorite {
				out = append(out, model.FavoriteEntry{GroupID: g.ID, Command: c})
			}
		}
	}
	return out
}

// FavoriteGroupOf returns the id of the first group holding a favorited
// reference to commandID.
func (r *Registry) FavoriteGroupOf(commandID string) (string, bool) {
	for _, f := range r.FavoriteCommands() {
		if f.Command.CommandID == commandID {
			return f.GroupID, true
		}
	}
	return "", false
}

// ClearFavorites unsets the favorite flag everywhere.
func (r *Registry) ClearFavorites() {
	for i := range r.settings.Groups {
		for j := range r.settings.Groups[i].Commands {
			r.settings.Groups[i].Commands[j].Favorite = false
		}
	}
	r.persist()
}

// ---------------------------------------------------------------------------
// Recency and usage
// ---------------------------------------------------------------------------

// AddToRecent moves commandID to the front of the recent list and trims the
// list to the configured limit.
func (r *Registry) AddToRecent(commandID string) {
	r.pushRecent(commandID)
	r.persist()
}

func (r *Registry) pushRecent(commandID string) {
	recent := make([]string, 0, len(r.settings.RecentlyUsed)+1)
	recent = append(recent, commandID)
	for _, id := range r.settings.RecentlyUsed {
		if id != commandID {
			recent = append(recent, id)
		}
	}
	if limit := r.settings.RecentlyUsedLimit; limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	r.settings.RecentlyUsed = recent
}

// RemoveFromRecent drops commandID from the recent list.
func (r *Registry) RemoveFromRecent(commandID string) {
	kept := r.settings.RecentlyUsed[:0]
	for _, id := range r.settings.RecentlyUsed {
		if id != commandID {
			kept = append(kept, id)
		}
	}
	r.settings.RecentlyUsed = kept
	r.persist()
}

// ClearRecent empties the recent list.
func (r *Registry) ClearRecent() {
	r.settings.RecentlyUsed = []string{}
	r.persist()
}

// IncrementUsage adds one to the usage count of commandID.
func (r *Registry) IncrementUsage(commandID string) {
	r.settings.CommandUsageCount[commandID]++
	r.persist()
}

// RecordExecution applies the side effects of a successful launch: the
// command moves to the front of the recent list and its usage count grows.
// Both changes are persisted together.
func (r *Registry) RecordExecution(commandID string) {
	r.pushRecent(commandID)
	r.settings.CommandUsageCount[commandID]++
	r.persist()
}

// UsageCount returns how many times commandID ran.
func (r *Registry) UsageCount(commandID string) int {
	return r.settings.CommandUsageCount[commandID]
}

// MostUsedCommands returns command ids by descending usage count, limited to
// MostUsedLimit. Equal counts are ordered by id.
func (r *Registry) MostUsedCommands() []string {
	type entry struct {
		id    string
		count int
	}
	entries := make([]entry, 0, len(r.settings.CommandUsageCount))
	for id, n := range r.settings.CommandUsageCount {
		if n > 0 {
			entries = append(entries, entry{id, n})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].id < entries[j].id
	})
	limit := r.settings.MostUsedLimit
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

// ResetCommandUsage forgets the usage count of commandID.
func (r *Registry) ResetCommandUsage(commandID string) {
	delete(r.settings.CommandUsageCount, commandID)
	r.persist()
}

// ClearUsage forgets every usage count.
func (r *Registry) ClearUsage() {
	r.settings.CommandUsageCount = map[string]int{}
	r.persist()
}

// ---------------------------------------------------------------------------
// Search history and preferences
// ---------------------------------------------------------------------------

// AddToSearchHistory remembers a search query. Queries shorter than two
// characters are ignored.
func (r *Registry) AddToSearchHistory(query string) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return
	}
	history := make([]string, 0, len(r.settings.SearchHistory)+1)
	history = append(history, query)
	for _, q := range r.settings.SearchHistory {
		if q != query {
			history = append(history, q)
		}
	}
	if len(history) > model.SearchHistoryLimit {
		history = history[:model.SearchHistoryLimit]
	}
	r.settings.SearchHistory = history
	r.persist()
}

// PreferencesPatch lists display preferences to change.
type PreferencesPatch struct {
	Layout            *model.Layout
	GridColumns       *int
	ButtonSize        *model.ButtonSize
	ShowFavorites     *bool
	ShowRecentlyUsed  *bool
	RecentlyUsedLimit *int
	ShowMostUsed      *bool
	MostUsedLimit     *int
	ShowHotkeys       *bool
	ShowTooltips      *bool
	ShowExecuteNotice *bool
}

// SetPreferences applies the set fields of patch and normalizes the result.
// Lowering the recent limit trims the recent list.
func (r *Registry) SetPreferences(p PreferencesPatch) {
	s := r.settings
	setIf(&s.Layout, p.Layout)
	setIf(&s.GridColumns, p.GridColumns)
	setIf(&s.ButtonSize, p.ButtonSize)
	setIf(&s.ShowFavorites, p.ShowFavorites)
	setIf(&s.ShowRecentlyUsed, p.ShowRecentlyUsed)
	setIf(&s.RecentlyUsedLimit, p.RecentlyUsedLimit)
	setIf(&s.ShowMostUsed, p.ShowMostUsed)
	setIf(&s.MostUsedLimit, p.MostUsedLimit)
	setIf(&s.ShowHotkeys, p.ShowHotkeys)
	setIf(&s.ShowTooltips, p.ShowTooltips)
	setIf(&s.ShowExecuteNotice, p.ShowExecuteNotice)
	s.Normalize()
	r.persist()
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Ptr returns a pointer to v. It keeps patch literals short:
//
//	reg.UpdateGroup(id, registry.GroupPatch{Name: registry.Ptr("Git")})
func Ptr[T any](v T) *T {
	return &v
}
