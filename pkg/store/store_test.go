package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
	"github.com/vanderheijden86/cmdpanel/pkg/testutil"
)

func TestLoad_MissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope", FileName))
	got, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, model.DefaultSettings()) {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	partial := `{
  "layout": "list",
  "recentlyUsedLimit": 5,
  "groups": [{"id": "g1", "name": "Git", "order": 0, "commands": null}]
}`
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Layout != model.LayoutList || got.RecentlyUsedLimit != 5 {
		t.Errorf("persisted fields not applied: %+v", got)
	}
	if got.GridColumns != 4 || !got.ShowFavorites || got.MostUsedLimit != 20 {
		t.Errorf("absent fields should keep defaults: %+v", got)
	}
	if got.Groups[0].Commands == nil || got.CommandUsageCount == nil || got.RecentlyUsed == nil {
		t.Error("nil collections should be materialized")
	}
	if got.Groups[0].Context != model.ContextAll {
		t.Errorf("missing context should become all, got %q", got.Groups[0].Context)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path).Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Layout != model.LayoutGrid {
		t.Error("empty file should load defaults")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	st := New(path)

	cfg := testutil.DefaultConfig()
	cfg.FavoriteRatio = 0.3
	cfg.MaxUsage = 8
	cfg.IncludeOverrides = true
	want := testutil.New(cfg).Settings(3, 1, 4)
	want.RecentlyUsed = []string{"cmd-0-1", "cmd-2-3"}
	want.SearchHistory = []string{"git"}

	if err := st.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		testutil.AssertJSONEqual(t, want, got)
		t.Fatal("round trip mismatch")
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestStoreAsRegistrySaver(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	st := New(path)
	reg := registry.New(nil, registry.WithSaver(st))

	g := reg.AddGroup("Ops", "server")
	reg.AddCommandToGroup(g.ID, "sys:uptime")
	reg.RecordExecution("sys:uptime")

	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Groups) != 1 || got.Groups[0].Commands[0].CommandID != "sys:uptime" {
		t.Errorf("registry mutations not persisted: %+v", got.Groups)
	}
	if got.CommandUsageCount["sys:uptime"] != 1 {
		t.Error("usage count not persisted")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := testutil.NewDefault().Settings(2, 2)
	s.Groups[1].Context = model.ContextCanvas
	s.Groups[0].Commands[0].Color = "#FFB86C"
	s.CommandUsageCount["cmd-0-0"] = 3

	data, err := Export(s)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		testutil.AssertJSONEqual(t, s, got)
		t.Fatal("export/import mismatch")
	}
}

func TestImport_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "hello"},
		{"array", `[1, 2, 3]`},
		{"unrelated object", `{"foo": 1}`},
		{"empty object", `{}`},
		{"wrong groups type", `{"groups": "nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import([]byte(tt.data))
			if !errors.Is(err, ErrInvalidImport) {
				t.Errorf("expected ErrInvalidImport, got %v", err)
			}
		})
	}
}

func TestImport_DuplicateRecentIsCollapsed(t *testing.T) {
	got, err := Import([]byte(`{"groups": [], "recentlyUsed": ["a", "a", "b", "", "b"]}`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	testutil.AssertStrings(t, got.RecentlyUsed, "a", "b")
	if err := got.Validate(); err != nil {
		t.Errorf("imported settings invalid: %v", err)
	}

	reg := registry.New(&got)
	reg.AddToRecent("b")
	testutil.AssertStrings(t, reg.Settings().RecentlyUsed, "b", "a")
}

func TestImport_RejectsBrokenGroups(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"duplicate group id", `{"groups": [{"id": "g1", "name": "A"}, {"id": "g1", "name": "B"}]}`},
		{"empty group id", `{"groups": [{"id": "", "name": "A"}]}`},
		{"empty command id", `{"groups": [{"id": "g1", "name": "A", "commands": [{"commandId": ""}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import([]byte(tt.data))
			if !errors.Is(err, ErrInvalidImport) {
				t.Errorf("expected ErrInvalidImport, got %v", err)
			}
		})
	}
}

func TestImport_LayoutOnly(t *testing.T) {
	got, err := Import([]byte(`{"layout": "compact"}`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.Layout != model.LayoutCompact || len(got.Groups) != 0 {
		t.Errorf("unexpected settings %+v", got)
	}
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(`{"groups": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ImportFile(path); err != nil {
		t.Errorf("ImportFile: %v", err)
	}
	if _, err := ImportFile(path + ".missing"); err == nil || errors.Is(err, ErrInvalidImport) {
		t.Errorf("expected read error, got %v", err)
	}
}
