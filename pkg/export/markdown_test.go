package export

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/testutil"
)

func TestGroupsMarkdown(t *testing.T) {
	s := testutil.NewDefault().Settings(2, 0)
	s.Groups[0].Name = "Git | VCS"
	s.Groups[0].Commands[0].Favorite = true
	s.Groups[0].Commands[1].CustomName = "Deploy"
	s.Groups[1].Context = model.ContextCanvas
	s.Groups[1].Collapsed = true
	s.CommandUsageCount["cmd-0-0"] = 7

	lookup := testutil.NewFakeLookup(catalog.Descriptor{ID: "cmd-0-0", Name: "Status"})
	md := GroupsMarkdown(s, lookup)

	for _, want := range []string{
		"# Command groups",
		"## Git \\| VCS",
		"| 1 | Status ★ | `cmd-0-0` | 7 |",
		"| 2 | Deploy (missing) | `cmd-0-1` | 0 |",
		"*context: canvas, collapsed*",
		"*Empty.*",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Index(md, "Group 1") < strings.Index(md, "Git") {
		t.Error("groups should be listed in order")
	}
}

func TestGroupsMarkdown_NoGroups(t *testing.T) {
	md := GroupsMarkdown(model.DefaultSettings(), nil)
	if !strings.Contains(md, "No groups yet") {
		t.Errorf("unexpected markdown %q", md)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Title\n\nSome **bold** text.", 40)
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "bold") {
		t.Errorf("rendered output lost content: %q", out)
	}
}
