package registry

import (
	"testing"

	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/testutil"
)

func TestHostContextAllows(t *testing.T) {
	tests := []struct {
		name string
		hc   HostContext
		gc   model.GroupContext
		want bool
	}{
		{"all anywhere", HostContext{}, model.ContextAll, true},
		{"empty is all", HostContext{ViewType: "canvas"}, "", true},
		{"canvas in canvas", HostContext{ViewType: "canvas"}, model.ContextCanvas, true},
		{"canvas in markdown", HostContext{ViewType: "markdown"}, model.ContextCanvas, false},
		{"markdown reading", HostContext{ViewType: "markdown"}, model.ContextMarkdown, true},
		{"editor reading", HostContext{ViewType: "markdown"}, model.ContextEditor, false},
		{"editor editing", HostContext{ViewType: "markdown", Editing: true}, model.ContextEditor, true},
		{"editor on canvas", HostContext{ViewType: "canvas", Editing: true}, model.ContextEditor, false},
		{"unknown context", HostContext{ViewType: "markdown"}, "terminal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hc.Allows(tt.gc); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.gc, got, tt.want)
			}
		})
	}
}

func TestDisplayNameAndIcon(t *testing.T) {
	lookup := testutil.NewFakeLookup(catalog.Descriptor{ID: "git:status", Name: "Git status", Icon: "git"})

	ref := model.CommandRef{CommandID: "git:status"}
	if got := DisplayName(ref, lookup); got != "Git status" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := DisplayIcon(ref, lookup); got != "git" {
		t.Errorf("DisplayIcon = %q", got)
	}

	ref.CustomName = "Status"
	ref.CustomIcon = "star"
	if DisplayName(ref, lookup) != "Status" || DisplayIcon(ref, lookup) != "star" {
		t.Error("overrides should win")
	}

	missing := model.CommandRef{CommandID: "gone"}
	if DisplayName(missing, lookup) != "gone" {
		t.Error("unresolved reference should fall back to the id")
	}
	if DisplayIcon(missing, nil) != DefaultCommandIcon {
		t.Error("expected default icon")
	}
}

func TestVisibleGroups_ContextFilter(t *testing.T) {
	s := testutil.NewDefault().Settings(1, 1, 1)
	s.Groups[1].Context = model.ContextCanvas
	s.Groups[2].Context = model.ContextEditor
	r := New(&s)
	lookup := testutil.NewFakeLookup(testutil.Descriptors(s)...)

	got := r.VisibleGroups(HostContext{ViewType: "markdown", Editing: true}, "", lookup)
	if len(got) != 2 || got[0].ID != "g0" || got[1].ID != "g2" {
		t.Errorf("unexpected groups %v", idsOf(got))
	}

	got = r.VisibleGroups(HostContext{ViewType: "canvas"}, "", lookup)
	if len(got) != 2 || got[1].ID != "g1" {
		t.Errorf("unexpected groups %v", idsOf(got))
	}
}

func TestVisibleGroups_SearchIgnoresContext(t *testing.T) {
	s := testutil.NewDefault().Settings(2, 2)
	s.Groups[1].Context = model.ContextCanvas
	s.Groups[1].Collapsed = true
	r := New(&s)
	lookup := testutil.NewFakeLookup(testutil.Descriptors(s)...)

	got := r.VisibleGroups(HostContext{ViewType: "markdown"}, "  CMD-1-1 ", lookup)
	if len(got) != 1 || got[0].ID != "g1" {
		t.Fatalf("unexpected groups %v", idsOf(got))
	}
	if got[0].Collapsed {
		t.Error("matching groups should be expanded")
	}
	testutil.AssertCommandIDs(t, got[0], "cmd-1-1")

	if !r.Settings().Groups[1].Collapsed {
		t.Error("stored group must stay collapsed")
	}
	if len(r.Settings().Groups[1].Commands) != 2 {
		t.Error("stored commands must not be filtered")
	}
}

func TestVisibleGroups_SearchMatchesCustomName(t *testing.T) {
	s := testutil.NewDefault().Settings(2)
	s.Groups[0].Commands[1].CustomName = "Deploy staging"
	r := New(&s)
	lookup := testutil.NewFakeLookup(testutil.Descriptors(s)...)

	got := r.VisibleGroups(HostContext{}, "deploy", lookup)
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	testutil.AssertCommandIDs(t, got[0], "cmd-0-1")
}

func TestVisibleGroups_DropsDanglingRefs(t *testing.T) {
	s := testutil.NewDefault().Settings(3)
	r := New(&s)
	lookup := testutil.NewFakeLookup(catalog.Descriptor{ID: "cmd-0-0"}, catalog.Descriptor{ID: "cmd-0-2"})

	got := r.VisibleGroups(HostContext{}, "", lookup)
	testutil.AssertCommandIDs(t, got[0], "cmd-0-0", "cmd-0-2")
	if len(r.Settings().Groups[0].Commands) != 3 {
		t.Error("dangling refs must stay in storage")
	}
}

func TestVisibleGroups_SortedByOrder(t *testing.T) {
	s := testutil.NewDefault().Settings(0, 0, 0)
	s.Groups[0].Order = 2
	s.Groups[2].Order = 0
	r := New(&s)

	got := r.VisibleGroups(HostContext{}, "", nil)
	testutil.AssertStrings(t, idsOf(got), "g2", "g1", "g0")
}

func idsOf(groups []model.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.ID
	}
	return out
}
