package ui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/debug"
	"github.com/vanderheijden86/cmdpanel/pkg/launcher"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
	"github.com/vanderheijden86/cmdpanel/pkg/store"
	"github.com/vanderheijden86/cmdpanel/pkg/watcher"
)

// SearchDebounce is the delay between the last keystroke in the search bar
// and the panel re-filtering.
const SearchDebounce = 150 * time.Millisecond

// minHistoryQuery is the shortest query remembered in search history.
const minHistoryQuery = 2

// searchTickMsg fires SearchDebounce after a search edit. Stale ticks carry
// an old seq and are dropped.
type searchTickMsg struct {
	seq int
}

// launchDoneMsg carries the result of a command run in the background.
type launchDoneMsg struct {
	name  string
	res   catalog.Result
	start time.Time
}

// execDoneMsg is sent when an interactive command gives the terminal back.
type execDoneMsg struct {
	id    string
	name  string
	start time.Time
	err   error
}

// grabState tracks a command picked up with "m".
type grabState struct {
	commandID   string
	groupID     string
	originGroup string
	originIndex int
}

// SaveErrorSink collects persistence failures for display. Pass its Handle
// method to registry.WithSaveErrorHandler; the panel shows the last failure
// after the action that caused it.
type SaveErrorSink struct {
	last error
}

// Handle records err.
func (s *SaveErrorSink) Handle(err error) {
	s.last = err
}

// Take returns and clears the last recorded failure.
func (s *SaveErrorSink) Take() error {
	if s == nil {
		return nil
	}
	err := s.last
	s.last = nil
	return err
}

// Model is the main Bubble Tea model of the command panel.
type Model struct {
	// Data
	reg    *registry.Registry
	cat    *catalog.Catalog
	launch *launcher.Launcher
	store  *store.Store
	hc     registry.HostContext
	ctx    context.Context

	catalogWatchers []*watcher.Watcher
	dataWatcher     *watcher.Watcher
	saveErrors      *SaveErrorSink

	// Layout state
	sections     []section
	cursor       cursor
	focusKey     string // section key under the cursor, kept across refreshes
	focusCommand string // command id under the cursor, "" on a header

	// Search
	searching  bool
	search     textinput.Model
	query      string
	searchSeq  int
	historyIdx int

	// Modes and overlays
	grab    *grabState
	form    *panelForm
	picker  *CommandPickerModel
	overlay *overlayModel

	running map[string]bool

	statusMsg     string
	statusIsError bool

	theme  Theme
	width  int
	height int

	clipWrite func(string) error
	clipRead  func() (string, error)
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithStore enables settings reload from disk.
func WithStore(s *store.Store) ModelOption {
	return func(m *Model) {
		m.store = s
	}
}

// WithHostContext sets the initial host context.
func WithHostContext(hc registry.HostContext) ModelOption {
	return func(m *Model) {
		m.hc = hc
	}
}

// WithTheme overrides the default theme.
func WithTheme(t Theme) ModelOption {
	return func(m *Model) {
		m.theme = t
	}
}

// WithCatalogWatchers reloads the catalog when any of ws fires.
func WithCatalogWatchers(ws ...*watcher.Watcher) ModelOption {
	return func(m *Model) {
		for _, w := range ws {
			if w != nil {
				m.catalogWatchers = append(m.catalogWatchers, w)
			}
		}
	}
}

// WithDataWatcher reloads settings when w fires.
func WithDataWatcher(w *watcher.Watcher) ModelOption {
	return func(m *Model) {
		m.dataWatcher = w
	}
}

// WithSaveErrors shows failures collected by sink.
func WithSaveErrors(sink *SaveErrorSink) ModelOption {
	return func(m *Model) {
		m.saveErrors = sink
	}
}

// WithContext sets the context commands run under.
func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// NewModel creates the panel over a registry, its catalog and a launcher.
func NewModel(reg *registry.Registry, cat *catalog.Catalog, l *launcher.Launcher, opts ...ModelOption) Model {
	ti := textinput.New()
	ti.Placeholder = "Search commands..."
	ti.Prompt = "/ "
	ti.CharLimit = 100

	m := Model{
		reg:       reg,
		cat:       cat,
		launch:    l,
		hc:        registry.HostContext{ViewType: "markdown"},
		ctx:       context.Background(),
		search:    ti,
		running:   make(map[string]bool),
		theme:     TestTheme(),
		width:     100,
		height:    30,
		clipWrite: clipboard.WriteAll,
		clipRead:  clipboard.ReadAll,
		cursor:    cursor{item: -1},
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, w := range m.catalogWatchers {
		cmds = append(cmds, WatchFileCmd(w, watchCatalog))
	}
	if m.dataWatcher != nil {
		cmds = append(cmds, WatchFileCmd(m.dataWatcher, watchData))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	if err := m.saveErrors.Take(); err != nil {
		m.setError("Saving settings failed: %v", err)
	}
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	// huh forms need every message type, not just keys.
	if m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.picker != nil {
			m.picker.SetSize(m.width, m.height)
		}
		if m.overlay != nil {
			m.overlay.resize(m.width, m.height)
		}
		m.refresh()

	case FileChangedMsg:
		return m.handleFileChanged(msg)

	case searchTickMsg:
		if msg.seq == m.searchSeq {
			m.applySearch()
		}

	case launchDoneMsg:
		delete(m.running, msg.res.ID)
		res, err := m.launch.Complete(msg.res, msg.start)
		res.Name = msg.name
		m.reportLaunch(res, err)
		m.refresh()

	case execDoneMsg:
		delete(m.running, msg.id)
		res, err := m.launch.Finish(msg.id, msg.start, msg.err)
		res.Name = msg.name
		m.reportLaunch(res, err)
		m.refresh()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// updateForm routes messages to the open form and applies it once done.
func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.form = nil
		return m, nil
	}
	fm, cmd := m.form.form.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		m.form.form = f
	}
	switch m.form.form.State {
	case huh.StateCompleted:
		pf := m.form
		m.form = nil
		if notice := pf.apply(&m); notice != "" {
			m.setNotice("%s", notice)
		}
		m.refresh()
		return m, nil
	case huh.StateAborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) openForm(pf *panelForm) (Model, tea.Cmd) {
	m.form = pf
	return m, pf.form.Init()
}

// refresh rebuilds the sections and puts the cursor back on the same
// command or header.
func (m *Model) refresh() {
	m.sections = buildSections(m.reg, m.cat, m.hc, m.query)
	n := m.nav()
	c, ok := n.find(m.focusKey, m.focusCommand)
	switch {
	case !ok:
		c = n.clamp(m.cursor)
	case c.onHeader() && m.focusCommand != "":
		// The command left this section; stay near its old slot.
		c.item = m.cursor.item
		c = n.clamp(c)
	}
	m.cursor = c
	m.rememberCursor()
}

func (m *Model) rememberCursor() {
	m.focusKey, m.focusCommand = "", ""
	if m.cursor.section < 0 || m.cursor.section >= len(m.sections) {
		return
	}
	s := m.sections[m.cursor.section]
	m.focusKey = s.key
	if items := s.visibleItems(); m.cursor.item >= 0 && m.cursor.item < len(items) {
		m.focusCommand = items[m.cursor.item].ref.CommandID
	}
}

func (m Model) nav() nav {
	return nav{sections: m.sections, cols: m.columns()}
}

// columns is the number of items per row for the current layout.
func (m Model) columns() int {
	s := m.reg.Settings()
	avail := max(m.width-2, 1)
	switch s.Layout {
	case model.LayoutList:
		return 1
	case model.LayoutCompact:
		return max(avail/compactCellWidth, 1)
	}
	cols := max(s.GridColumns, 1)
	if fit := max(avail/cellWidth(s.ButtonSize), 1); cols > fit {
		cols = fit
	}
	return cols
}

func cellWidth(size model.ButtonSize) int {
	switch size {
	case model.ButtonSmall:
		return CellWidthSmall
	case model.ButtonLarge:
		return CellWidthLarge
	}
	return CellWidthMedium
}

func (m Model) currentSection() (section, bool) {
	if m.cursor.section < 0 || m.cursor.section >= len(m.sections) {
		return section{}, false
	}
	return m.sections[m.cursor.section], true
}

func (m Model) currentItem() (item, bool) {
	s, ok := m.currentSection()
	if !ok || m.cursor.onHeader() {
		return item{}, false
	}
	items := s.visibleItems()
	if m.cursor.item >= len(items) {
		return item{}, false
	}
	return items[m.cursor.item], true
}

// currentGroup returns the stored group under the cursor, if the cursor is
// in a user group.
func (m Model) currentGroup() (*model.Group, bool) {
	s, ok := m.currentSection()
	if !ok || s.kind != sectionGroup {
		return nil, false
	}
	g := m.reg.Settings().FindGroup(s.key)
	return g, g != nil
}

func (m *Model) setNotice(format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusIsError = false
}

func (m *Model) setError(format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusIsError = true
	debug.Warn("ui: %s", m.statusMsg)
}

func (m *Model) clearStatus() {
	m.statusMsg = ""
	m.statusIsError = false
}

// applySearch filters the panel with the search bar's text and records it
// in search history.
func (m *Model) applySearch() {
	m.query = m.search.Value()
	q := strings.TrimSpace(m.query)
	if utf8.RuneCountInString(q) >= minHistoryQuery {
		m.reg.AddToSearchHistory(q)
	}
	m.refresh()
}

// reportLaunch turns a launch outcome into a notice.
func (m *Model) reportLaunch(res launcher.Result, err error) {
	if err != nil {
		detail := catalog.Result{Output: res.Output}.LastLine()
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		m.setError("Failed to execute command %s: %s", res.Name, detail)
		return
	}
	if m.reg.Settings().ShowExecuteNotice {
		m.setNotice("Executed: %s (%s)", res.Name, FormatDuration(res.Duration))
	}
}

// hostContexts is the cycle "c" walks through.
var hostContexts = []registry.HostContext{
	{ViewType: "markdown"},
	{ViewType: "markdown", Editing: true},
	{ViewType: "canvas"},
	{ViewType: "graph"},
}

func hostContextLabel(hc registry.HostContext) string {
	if hc.ViewType == "" {
		return "no view"
	}
	if hc.ViewType == "markdown" {
		if hc.Editing {
			return "markdown · editing"
		}
		return "markdown · reading"
	}
	return hc.ViewType
}

func nextHostContext(hc registry.HostContext) registry.HostContext {
	for i, c := range hostContexts {
		if c == hc {
			return hostContexts[(i+1)%len(hostContexts)]
		}
	}
	return hostContexts[0]
}
