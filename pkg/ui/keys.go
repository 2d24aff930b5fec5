package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/cmdpanel/pkg/export"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
	"github.com/vanderheijden86/cmdpanel/pkg/store"
)

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch {
	case m.picker != nil:
		return m.handlePickerKey(msg)
	case m.overlay != nil:
		return m.handleOverlayKey(msg)
	case m.searching:
		return m.handleSearchKey(msg)
	case m.grab != nil:
		return m.handleGrabKey(msg)
	}

	m.clearStatus()
	n := m.nav()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor = n.vertical(m.cursor, -1)
	case "down", "j":
		m.cursor = n.vertical(m.cursor, 1)
	case "left", "h":
		m.cursor = n.horizontal(m.cursor, -1)
	case "right", "l":
		m.cursor = n.horizontal(m.cursor, 1)
	case "home", "g":
		m.cursor = n.clamp(cursor{item: -1})
	case "end", "G":
		m.cursor = n.clamp(cursor{section: len(m.sections) - 1, item: len(m.sections)})

	case "enter":
		if _, ok := m.currentItem(); !ok {
			return m.toggleCollapse(), nil
		}
		return m.execute()
	case " ":
		return m.toggleCollapse(), nil

	case "/":
		m.searching = true
		m.historyIdx = -1
		m.search.Focus()
		return m, textinput.Blink
	case "esc":
		if m.query != "" {
			m.clearSearch()
		}

	case "f":
		m.toggleFavorite()
	case "e":
		return m.editCommand()
	case "x":
		m.removeItem()
	case "a":
		return m.openPicker(), nil
	case "i":
		if it, ok := m.currentItem(); ok {
			if err := m.clipWrite(it.ref.CommandID); err != nil {
				m.setError("Clipboard error: %v", err)
			} else {
				m.setNotice("Command ID copied to clipboard")
			}
		}
	case "m":
		m.startGrab()

	case "n":
		return m.openForm(newGroupForm())
	case "r":
		if g, ok := m.currentGroup(); ok {
			return m.openForm(editGroupForm(*g))
		}
	case "D":
		if g, ok := m.currentGroup(); ok {
			id, name, count := g.ID, g.Name, len(g.Commands)
			return m.openForm(confirmForm(fmt.Sprintf("Delete group %q and its %d commands?", name, count), func(m *Model) {
				m.reg.DeleteGroup(id)
				m.setNotice("Deleted group %s", name)
			}))
		}
	case "K":
		if g, ok := m.currentGroup(); ok {
			m.reg.MoveGroup(g.ID, -1)
		}
	case "J":
		if g, ok := m.currentGroup(); ok {
			m.reg.MoveGroup(g.ID, 1)
		}
	case "C":
		return m.clearSection()

	case "c":
		m.hc = nextHostContext(m.hc)
		m.setNotice("Context: %s", hostContextLabel(m.hc))
	case "L":
		m.reg.SetPreferences(registry.PreferencesPatch{Layout: registry.Ptr(nextLayout(m.reg.Settings().Layout))})
	case "s":
		return m.openForm(preferencesForm(m.reg.Snapshot()))

	case "y":
		m.exportToClipboard()
	case "p":
		return m.importFromClipboard()

	case "?":
		o := newOverlay("Keys", helpMarkdown, m.width, m.height, m.theme)
		m.overlay = &o
		return m, nil
	case "o":
		o := newOverlay("Overview", export.GroupsMarkdown(m.reg.Snapshot(), m.cat), m.width, m.height, m.theme)
		m.overlay = &o
		return m, nil
	}

	m.rememberCursor()
	m.refresh()
	return m, nil
}

func nextLayout(l model.Layout) model.Layout {
	switch l {
	case model.LayoutGrid:
		return model.LayoutList
	case model.LayoutList:
		return model.LayoutCompact
	}
	return model.LayoutGrid
}

// toggleCollapse folds the group under the cursor. Groups cannot be folded
// while searching.
func (m Model) toggleCollapse() Model {
	g, ok := m.currentGroup()
	if !ok || m.query != "" {
		return m
	}
	m.reg.ToggleCollapsed(g.ID)
	m.focusKey, m.focusCommand = g.ID, ""
	m.refresh()
	return m
}

// execute runs the command under the cursor. Built-ins run inline, shell
// commands in the background and interactive ones with the terminal handed
// over.
func (m Model) execute() (Model, tea.Cmd) {
	it, ok := m.currentItem()
	if !ok {
		return m, nil
	}
	id := it.ref.CommandID
	if m.running[id] {
		m.setNotice("%s is still running", it.name)
		return m, nil
	}
	d, _ := m.cat.FindCommand(id)
	start := time.Now()

	switch {
	case d.IsBuiltin():
		res, err := m.launch.Launch(m.ctx, id)
		res.Name = it.name
		m.reportLaunch(res, err)
		m.refresh()
		return m, nil

	case m.launch.Interactive(id):
		c, cancel, err := m.cat.Command(m.ctx, id)
		if err != nil {
			cancel()
			res, lerr := m.launch.Finish(id, start, err)
			res.Name = it.name
			m.reportLaunch(res, lerr)
			return m, nil
		}
		m.running[id] = true
		name := it.name
		return m, tea.ExecProcess(c, func(err error) tea.Msg {
			cancel()
			return execDoneMsg{id: id, name: name, start: start, err: err}
		})
	}

	m.running[id] = true
	m.setNotice("Running %s…", it.name)
	l, ctx, name := m.launch, m.ctx, it.name
	return m, func() tea.Msg {
		return launchDoneMsg{name: name, res: l.Execute(ctx, id), start: start}
	}
}

// toggleFavorite flips the favorite under the cursor. Outside groups it
// acts on the group that holds (or could hold) the favorite.
func (m *Model) toggleFavorite() {
	it, ok := m.currentItem()
	if !ok {
		return
	}
	id := it.ref.CommandID
	if it.groupID != "" {
		m.reg.ToggleFavorite(it.groupID, id)
		return
	}
	if gid, ok := m.reg.FavoriteGroupOf(id); ok {
		m.reg.ToggleFavorite(gid, id)
		return
	}
	for _, g := range m.reg.Settings().Groups {
		if g.IndexOf(id) >= 0 {
			m.reg.ToggleFavorite(g.ID, id)
			m.setNotice("Added %s to favorites", it.name)
			return
		}
	}
	m.setError("Add %s to a group before making it a favorite", it.name)
}

// removeItem removes the item under the cursor from its section.
func (m *Model) removeItem() {
	s, ok := m.currentSection()
	if !ok {
		return
	}
	it, ok := m.currentItem()
	if !ok {
		return
	}
	id := it.ref.CommandID
	switch s.kind {
	case sectionGroup:
		m.reg.RemoveCommandFromGroup(s.key, id)
		m.setNotice("Removed %s", it.name)
	case sectionFavorites:
		m.reg.ToggleFavorite(it.groupID, id)
	case sectionRecent:
		m.reg.RemoveFromRecent(id)
	case sectionMostUsed:
		m.reg.ResetCommandUsage(id)
	}
}

func (m Model) editCommand() (Model, tea.Cmd) {
	it, ok := m.currentItem()
	if !ok || it.groupID == "" {
		return m, nil
	}
	g := m.reg.Settings().FindGroup(it.groupID)
	if g == nil {
		return m, nil
	}
	idx := g.IndexOf(it.ref.CommandID)
	if idx < 0 {
		return m, nil
	}
	hostName := it.ref.CommandID
	if d, ok := m.cat.FindCommand(it.ref.CommandID); ok {
		hostName = d.Name
	}
	return m.openForm(editCommandForm(g.ID, g.Commands[idx], hostName))
}

func (m Model) openPicker() Model {
	g, ok := m.currentGroup()
	if !ok {
		m.setError("Select a group to add commands to")
		return m
	}
	p := NewCommandPickerModel(m.cat.List(), g.ID, g.Name, m.theme)
	p.SetSize(m.width, m.height)
	m.picker = &p
	return m
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.picker = nil
	case "up", "ctrl+p":
		m.picker.MoveUp()
	case "down", "ctrl+n":
		m.picker.MoveDown()
	case "enter":
		d, ok := m.picker.Selected()
		gid := m.picker.GroupID()
		m.picker = nil
		if ok {
			m.reg.AddCommandToGroup(gid, d.ID)
			m.focusKey, m.focusCommand = gid, d.ID
			m.setNotice("Added %s", d.Name)
			m.refresh()
		}
	default:
		m.picker.UpdateInput(msg)
	}
	return m, nil
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?", "o":
		m.overlay = nil
		return m, nil
	}
	var cmd tea.Cmd
	m.overlay.viewport, cmd = m.overlay.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearSearch()
		return m, nil
	case "enter", "down", "tab":
		m.searching = false
		m.search.Blur()
		m.applySearch()
		if len(m.sections) > 0 && len(m.sections[0].visibleItems()) > 0 {
			m.cursor = cursor{section: 0, item: 0}
			m.rememberCursor()
		}
		return m, nil
	case "up":
		history := m.reg.Settings().SearchHistory
		if len(history) == 0 {
			return m, nil
		}
		m.historyIdx = (m.historyIdx + 1) % len(history)
		m.search.SetValue(history[m.historyIdx])
		m.search.CursorEnd()
		return m, m.scheduleSearch()
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.scheduleSearch())
}

func (m *Model) scheduleSearch() tea.Cmd {
	m.searchSeq++
	seq := m.searchSeq
	return tea.Tick(SearchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
}

func (m *Model) clearSearch() {
	m.searching = false
	m.search.Blur()
	m.search.SetValue("")
	m.query = ""
	m.searchSeq++
	m.refresh()
}

// startGrab picks up the command under the cursor for keyboard moving.
func (m *Model) startGrab() {
	s, ok := m.currentSection()
	if !ok || s.kind != sectionGroup {
		return
	}
	it, ok := m.currentItem()
	if !ok {
		return
	}
	if m.query != "" {
		m.setError("Clear the search before moving commands")
		return
	}
	g := m.reg.Settings().FindGroup(s.key)
	m.grab = &grabState{
		commandID:   it.ref.CommandID,
		groupID:     s.key,
		originGroup: s.key,
		originIndex: g.IndexOf(it.ref.CommandID),
	}
	m.setNotice("Moving %s", it.name)
}

func (m Model) handleGrabKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.grabStep(-1)
	case "right", "l":
		m.grabStep(1)
	case "up", "k":
		m.grabStep(-m.columns())
	case "down", "j":
		m.grabStep(m.columns())
	case "enter", "m", " ":
		m.grab = nil
		m.setNotice("Moved")
	case "esc":
		m.cancelGrab()
	}
	return m, nil
}

// grabStep moves the grabbed command delta visible slots. Dangling
// references are not drawn, so they are stepped over. Moving past either end
// of its group carries it into the neighbouring group.
func (m *Model) grabStep(delta int) {
	gr := m.grab
	g := m.reg.Settings().FindGroup(gr.groupID)
	if g == nil {
		m.grab = nil
		return
	}
	idx := g.IndexOf(gr.commandID)
	if idx < 0 {
		m.grab = nil
		return
	}
	var shown []int
	pos := 0
	for i, c := range g.Commands {
		if i == idx {
			pos = len(shown)
			shown = append(shown, i)
		} else if registry.Resolves(c, m.cat) {
			shown = append(shown, i)
		}
	}
	target := pos + delta

	if target >= 0 && target < len(shown) {
		to := shown[target]
		if to > idx {
			to++
		}
		m.reg.MoveCommand(gr.commandID, gr.groupID, gr.groupID, to)
	} else {
		step := 1
		if delta < 0 {
			step = -1
		}
		adj := m.adjacentGroup(gr.groupID, step)
		if adj == "" {
			return
		}
		ag := m.reg.Settings().FindGroup(adj)
		if ag.IndexOf(gr.commandID) >= 0 {
			m.setError("%s is already in %s", gr.commandID, ag.Name)
			return
		}
		if ag.Collapsed {
			m.reg.ToggleCollapsed(adj)
		}
		to := 0
		if step < 0 {
			to = len(ag.Commands)
		}
		m.reg.MoveCommand(gr.commandID, gr.groupID, adj, to)
		gr.groupID = adj
	}
	m.focusKey, m.focusCommand = gr.groupID, gr.commandID
	m.refresh()
}

// adjacentGroup returns the visible group next to groupID in direction
// step, or "".
func (m Model) adjacentGroup(groupID string, step int) string {
	var groups []string
	for _, s := range m.sections {
		if s.kind == sectionGroup {
			groups = append(groups, s.key)
		}
	}
	for i, id := range groups {
		if id != groupID {
			continue
		}
		if j := i + step; j >= 0 && j < len(groups) {
			return groups[j]
		}
		return ""
	}
	return ""
}

// cancelGrab puts the grabbed command back where it was picked up.
func (m *Model) cancelGrab() {
	gr := m.grab
	m.grab = nil
	g := m.reg.Settings().FindGroup(gr.groupID)
	if g == nil {
		return
	}
	idx := g.IndexOf(gr.commandID)
	to := gr.originIndex
	if gr.groupID == gr.originGroup {
		if idx == to {
			m.clearStatus()
			return
		}
		if to > idx {
			to++
		}
	}
	m.reg.MoveCommand(gr.commandID, gr.groupID, gr.originGroup, to)
	m.focusKey, m.focusCommand = gr.originGroup, gr.commandID
	m.clearStatus()
	m.refresh()
}

// clearSection empties the derived section under the cursor after
// confirmation.
func (m Model) clearSection() (Model, tea.Cmd) {
	s, ok := m.currentSection()
	if !ok || !s.kind.special() {
		m.setError("C clears Favorites, Recently Used or Most Used")
		return m, nil
	}
	switch s.kind {
	case sectionFavorites:
		return m.openForm(confirmForm("Clear all favorites?", func(m *Model) {
			m.reg.ClearFavorites()
		}))
	case sectionRecent:
		return m.openForm(confirmForm("Clear recently used commands?", func(m *Model) {
			m.reg.ClearRecent()
		}))
	default:
		return m.openForm(confirmForm("Clear usage statistics?", func(m *Model) {
			m.reg.ClearUsage()
		}))
	}
}

func (m *Model) exportToClipboard() {
	data, err := store.Export(m.reg.Snapshot())
	if err != nil {
		m.setError("Export failed: %v", err)
		return
	}
	if err := m.clipWrite(string(data)); err != nil {
		m.setError("Clipboard error: %v", err)
		return
	}
	m.setNotice("Settings copied to clipboard")
}

func (m Model) importFromClipboard() (Model, tea.Cmd) {
	text, err := m.clipRead()
	if err != nil {
		m.setError("Clipboard error: %v", err)
		return m, nil
	}
	imported, err := store.Import([]byte(text))
	if err != nil {
		m.setError("Import failed: %v", err)
		return m, nil
	}
	title := fmt.Sprintf("Replace all settings with %d groups from the clipboard?", len(imported.Groups))
	return m.openForm(confirmForm(title, func(m *Model) {
		m.reg.Replace(imported)
		m.cursor = cursor{item: -1}
		m.focusKey, m.focusCommand = "", ""
		m.setNotice("Imported %d groups", len(imported.Groups))
	}))
}
