package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
)

// formKind identifies what a submitted form applies to.
type formKind int

const (
	formNewGroup formKind = iota
	formEditGroup
	formEditCommand
	formPreferences
	formConfirm
)

// formValues holds the fields bound to the active form. It lives behind a
// pointer because huh writes into it while the model is copied around.
type formValues struct {
	name    string
	icon    string
	color   string
	context string

	layout      string
	columns     string
	buttonSize  string
	recentLimit string
	mostLimit   string
	favorites   bool
	recent      bool
	mostUsed    bool
	hotkeys     bool
	tooltips    bool
	notice      bool

	confirmed bool
}

// panelForm is an open huh form plus what it edits.
type panelForm struct {
	kind      formKind
	form      *huh.Form
	values    *formValues
	groupID   string
	commandID string
	onConfirm func(m *Model)
}

func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithTheme(huh.ThemeDracula()).
		WithShowHelp(true).
		WithWidth(60)
}

func contextOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, c := range model.Contexts() {
		opts = append(opts, huh.NewOption(contextLabel(c), string(c)))
	}
	return opts
}

func contextLabel(c model.GroupContext) string {
	switch c {
	case model.ContextEditor:
		return "Editing only"
	case model.ContextMarkdown:
		return "Markdown views"
	case model.ContextCanvas:
		return "Canvas views"
	default:
		return "Everywhere"
	}
}

// newGroupForm asks for the name, icon and context of a new group.
func newGroupForm() *panelForm {
	v := &formValues{icon: "folder", context: string(model.ContextAll)}
	f := newForm(huh.NewGroup(
		huh.NewInput().Title("Group name").Placeholder("New Group").Value(&v.name).CharLimit(60),
		huh.NewInput().Title("Icon").Placeholder("folder").Value(&v.icon).CharLimit(30),
		huh.NewSelect[string]().Title("Show in").Options(contextOptions()...).Value(&v.context),
	))
	return &panelForm{kind: formNewGroup, form: f, values: v}
}

// editGroupForm renames a group and changes its icon or context.
func editGroupForm(g model.Group) *panelForm {
	v := &formValues{name: g.Name, icon: g.Icon, context: string(g.EffectiveContext())}
	f := newForm(huh.NewGroup(
		huh.NewInput().Title("Group name").Value(&v.name).CharLimit(60).Validate(notBlank),
		huh.NewInput().Title("Icon").Value(&v.icon).CharLimit(30),
		huh.NewSelect[string]().Title("Show in").Options(contextOptions()...).Value(&v.context),
	))
	return &panelForm{kind: formEditGroup, form: f, values: v, groupID: g.ID}
}

// editCommandForm edits a reference's display overrides. Empty fields fall
// back to the catalog's name and icon.
func editCommandForm(groupID string, ref model.CommandRef, hostName string) *panelForm {
	v := &formValues{name: ref.CustomName, icon: ref.CustomIcon, color: ref.Color}
	f := newForm(huh.NewGroup(
		huh.NewInput().Title("Display name").Placeholder(hostName).Value(&v.name).CharLimit(60),
		huh.NewInput().Title("Icon").Placeholder(registry.DefaultCommandIcon).Value(&v.icon).CharLimit(30),
		huh.NewInput().
			Title("Color").
			Placeholder(strings.Join(ColorNames(), ", ")+" or #rrggbb").
			Value(&v.color).
			Validate(func(s string) error {
				if !ValidColor(s) {
					return fmt.Errorf("unknown color %q", s)
				}
				return nil
			}),
	))
	return &panelForm{kind: formEditCommand, form: f, values: v, groupID: groupID, commandID: ref.CommandID}
}

// preferencesForm edits the display preferences.
func preferencesForm(s model.Settings) *panelForm {
	v := &formValues{
		layout:      string(s.Layout),
		columns:     strconv.Itoa(s.GridColumns),
		buttonSize:  string(s.ButtonSize),
		recentLimit: strconv.Itoa(s.RecentlyUsedLimit),
		mostLimit:   strconv.Itoa(s.MostUsedLimit),
		favorites:   s.ShowFavorites,
		recent:      s.ShowRecentlyUsed,
		mostUsed:    s.ShowMostUsed,
		hotkeys:     s.ShowHotkeys,
		tooltips:    s.ShowTooltips,
		notice:      s.ShowExecuteNotice,
	}
	f := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Layout").
				Options(huh.NewOptions(string(model.LayoutGrid), string(model.LayoutList), string(model.LayoutCompact))...).
				Value(&v.layout),
			huh.NewSelect[string]().Title("Grid columns").
				Options(huh.NewOptions("1", "2", "3", "4", "5", "6", "7", "8")...).
				Value(&v.columns),
			huh.NewSelect[string]().Title("Button size").
				Options(huh.NewOptions(string(model.ButtonSmall), string(model.ButtonMedium), string(model.ButtonLarge))...).
				Value(&v.buttonSize),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Show favorites").Value(&v.favorites),
			huh.NewConfirm().Title("Show recently used").Value(&v.recent),
			huh.NewInput().Title("Recently used limit").Value(&v.recentLimit).Validate(positiveInt),
			huh.NewConfirm().Title("Show most used").Value(&v.mostUsed),
			huh.NewInput().Title("Most used limit").Value(&v.mostLimit).Validate(positiveInt),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Show hotkeys").Value(&v.hotkeys),
			huh.NewConfirm().Title("Show descriptions").Value(&v.tooltips),
			huh.NewConfirm().Title("Notify on successful execution").Value(&v.notice),
		),
	)
	return &panelForm{kind: formPreferences, form: f, values: v}
}

// confirmForm asks a yes/no question and runs onConfirm on yes.
func confirmForm(title string, onConfirm func(m *Model)) *panelForm {
	v := &formValues{}
	f := newForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&v.confirmed),
	))
	return &panelForm{kind: formConfirm, form: f, values: v, onConfirm: onConfirm}
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a number of at least 1")
	}
	return nil
}

// preferencesPatch converts the preferences form into a registry patch.
func (v *formValues) preferencesPatch() registry.PreferencesPatch {
	p := registry.PreferencesPatch{
		Layout:            registry.Ptr(model.Layout(v.layout)),
		ButtonSize:        registry.Ptr(model.ButtonSize(v.buttonSize)),
		ShowFavorites:     registry.Ptr(v.favorites),
		ShowRecentlyUsed:  registry.Ptr(v.recent),
		ShowMostUsed:      registry.Ptr(v.mostUsed),
		ShowHotkeys:       registry.Ptr(v.hotkeys),
		ShowTooltips:      registry.Ptr(v.tooltips),
		ShowExecuteNotice: registry.Ptr(v.notice),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.columns)); err == nil {
		p.GridColumns = &n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.recentLimit)); err == nil {
		p.RecentlyUsedLimit = &n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.mostLimit)); err == nil {
		p.MostUsedLimit = &n
	}
	return p
}

// apply writes a completed form into the registry and returns a notice.
func (pf *panelForm) apply(m *Model) string {
	v := pf.values
	switch pf.kind {
	case formNewGroup:
		name := strings.TrimSpace(v.name)
		if name == "" {
			name = "New Group"
		}
		icon := strings.TrimSpace(v.icon)
		if icon == "" {
			icon = "folder"
		}
		g := m.reg.AddGroup(name, icon)
		if c := model.GroupContext(v.context); c != model.ContextAll {
			m.reg.UpdateGroup(g.ID, registry.GroupPatch{Context: &c})
		}
		m.focusKey, m.focusCommand = g.ID, ""
		return fmt.Sprintf("Created group %s", name)

	case formEditGroup:
		c := model.GroupContext(v.context)
		m.reg.UpdateGroup(pf.groupID, registry.GroupPatch{
			Name:    registry.Ptr(strings.TrimSpace(v.name)),
			Icon:    registry.Ptr(strings.TrimSpace(v.icon)),
			Context: &c,
		})
		return "Group updated"

	case formEditCommand:
		m.reg.UpdateCommand(pf.groupID, pf.commandID, registry.CommandPatch{
			CustomName: registry.Ptr(strings.TrimSpace(v.name)),
			CustomIcon: registry.Ptr(strings.TrimSpace(v.icon)),
			Color:      registry.Ptr(strings.ToLower(strings.TrimSpace(v.color))),
		})
		return "Command updated"

	case formPreferences:
		m.reg.SetPreferences(v.preferencesPatch())
		return "Preferences saved"

	case formConfirm:
		if v.confirmed && pf.onConfirm != nil {
			pf.onConfirm(m)
		}
	}
	return ""
}
