package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/store"
	"github.com/vanderheijden86/cmdpanel/pkg/testutil"
)

const testCatalog = `commands:
  - id: hello
    name: Say Hello
    run: echo hello
  - id: broken
    name: Broken
    run: exit 3
`

type cliEnv struct {
	configDir string
	dataPath  string
}

// newCLIEnv points every XDG directory at a temp dir and writes a catalog.
func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))

	env := cliEnv{
		configDir: filepath.Join(root, "config", "cmdpanel"),
		dataPath:  filepath.Join(root, "data", "cmdpanel", "data.json"),
	}
	if err := os.MkdirAll(env.configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.configDir, "commands.yaml"), []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e cliEnv) writeSettings(t *testing.T, s model.Settings) {
	t.Helper()
	if err := store.New(e.dataPath).Save(s); err != nil {
		t.Fatal(err)
	}
}

func (e cliEnv) settings(t *testing.T) model.Settings {
	t.Helper()
	s, err := store.New(e.dataPath).Load()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func panelSettings() model.Settings {
	s := testutil.NewDefault().Settings(0)
	s.Groups[0].Name = "Shell"
	s.Groups[0].Commands = []model.CommandRef{
		{CommandID: "hello", Order: 0, Favorite: true},
		{CommandID: "broken", Order: 1},
		{CommandID: "gone", Order: 2},
	}
	return s
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != 0 || !strings.HasPrefix(out, "cmdpanel ") {
		t.Errorf("--version = %d %q", code, out)
	}
	code, out, _ = runCLI(t, "--help")
	if code != 0 || !strings.Contains(out, "-run") {
		t.Errorf("--help = %d %q", code, out)
	}
	if code, _, _ := runCLI(t, "--no-such-flag"); code != 2 {
		t.Errorf("unknown flag exit = %d, want 2", code)
	}
}

func TestList(t *testing.T) {
	env := newCLIEnv(t)
	env.writeSettings(t, panelSettings())

	code, out, errOut := runCLI(t, "--list")
	if code != 0 {
		t.Fatalf("--list failed: %s", errOut)
	}
	for _, want := range []string{"Shell (3)", "Say Hello", "★", "gone", "(missing)"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	code, out, _ = runCLI(t, "--list", "--json")
	if code != 0 {
		t.Fatal("--list --json failed")
	}
	var groups []listGroup
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(groups) != 1 || len(groups[0].Commands) != 3 || !groups[0].Commands[2].Missing {
		t.Errorf("unexpected list %+v", groups)
	}
}

func TestSeedsCatalog(t *testing.T) {
	env := newCLIEnv(t)
	catalogPath := filepath.Join(env.configDir, "commands.yaml")
	if err := os.Remove(catalogPath); err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runCLI(t, "--list"); code != 0 {
		t.Fatalf("--list failed: %s", errOut)
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		t.Fatalf("catalog not seeded: %v", err)
	}
	if !strings.Contains(string(data), "commands:") {
		t.Errorf("seeded catalog = %q", data)
	}
}

func TestRunRecordsUsage(t *testing.T) {
	env := newCLIEnv(t)
	env.writeSettings(t, panelSettings())

	code, out, errOut := runCLI(t, "--run", "hello")
	if code != 0 {
		t.Fatalf("--run failed: %s", errOut)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("command output not shown: %q", out)
	}
	if !strings.Contains(errOut, "Executed: Say Hello") {
		t.Errorf("missing execute notice: %q", errOut)
	}

	s := env.settings(t)
	if s.CommandUsageCount["hello"] != 1 {
		t.Errorf("usage = %d", s.CommandUsageCount["hello"])
	}
	testutil.AssertStrings(t, s.RecentlyUsed, "hello")

	code, out, _ = runCLI(t, "--history", "5")
	if code != 0 || !strings.Contains(out, "Say Hello") || !strings.Contains(out, "ok") {
		t.Errorf("--history = %d %q", code, out)
	}
}

func TestRunFailureLeavesUsage(t *testing.T) {
	env := newCLIEnv(t)
	env.writeSettings(t, panelSettings())

	code, _, errOut := runCLI(t, "--run", "broken")
	if code != 1 || !strings.Contains(errOut, "Failed to execute command Broken") {
		t.Fatalf("--run broken = %d %q", code, errOut)
	}
	s := env.settings(t)
	if s.CommandUsageCount["broken"] != 0 || len(s.RecentlyUsed) != 0 {
		t.Error("failed launch must not be recorded")
	}

	if code, _, _ := runCLI(t, "--run", "nope"); code != 1 {
		t.Errorf("unknown command exit = %d", code)
	}

	code, out, _ := runCLI(t, "--history", "5")
	if code != 0 || !strings.Contains(out, "exit 3") {
		t.Errorf("failure not journaled: %q", out)
	}
}

func TestExportImport(t *testing.T) {
	env := newCLIEnv(t)
	env.writeSettings(t, panelSettings())

	code, out, _ := runCLI(t, "--export", "-")
	if code != 0 {
		t.Fatal("--export - failed")
	}
	exported, err := store.Import([]byte(out))
	if err != nil {
		t.Fatalf("export is not importable: %v", err)
	}
	if len(exported.Groups) != 1 {
		t.Fatalf("exported %d groups", len(exported.Groups))
	}

	file := filepath.Join(t.TempDir(), "backup.json")
	if code, _, errOut := runCLI(t, "--export", file); code != 0 {
		t.Fatalf("--export file failed: %s", errOut)
	}

	other, err := store.Export(testutil.NewDefault().Settings(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	otherFile := filepath.Join(t.TempDir(), "other.json")
	if err := os.WriteFile(otherFile, other, 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "--import", otherFile)
	if code != 0 || !strings.Contains(out, "Imported 2 groups") {
		t.Fatalf("--import = %d %q %q", code, out, errOut)
	}
	if n := len(env.settings(t).Groups); n != 2 {
		t.Fatalf("settings have %d groups after import", n)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"foo": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runCLI(t, "--import", bad); code != 1 {
		t.Errorf("invalid import exit = %d", code)
	}
	if n := len(env.settings(t).Groups); n != 2 {
		t.Error("a rejected import must leave settings alone")
	}

	if code, _, _ := runCLI(t, "--import", file); code != 0 {
		t.Error("restoring the backup failed")
	}
	if got := env.settings(t).Groups[0].Name; got != "Shell" {
		t.Errorf("restored group = %q", got)
	}
}

func TestStatsAndChart(t *testing.T) {
	env := newCLIEnv(t)
	s := panelSettings()
	s.CommandUsageCount = map[string]int{"hello": 4, "broken": 1}
	env.writeSettings(t, s)

	code, out, _ := runCLI(t, "--stats")
	if code != 0 || !strings.Contains(out, "Launches: 5 across 2 commands") {
		t.Errorf("--stats = %d %q", code, out)
	}

	code, out, _ = runCLI(t, "--stats", "--json")
	if code != 0 {
		t.Fatal("--stats --json failed")
	}
	var stats statsOutput
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if stats.Summary.Total != 5 || len(stats.Top) != 2 || stats.Top[0].CommandID != "hello" {
		t.Errorf("stats = %+v", stats)
	}

	chart := filepath.Join(t.TempDir(), "usage.svg")
	if code, _, errOut := runCLI(t, "--chart", chart); code != 0 {
		t.Fatalf("--chart failed: %s", errOut)
	}
	data, err := os.ReadFile(chart)
	if err != nil || !strings.Contains(string(data), "<svg") {
		t.Errorf("chart not written: %v", err)
	}
}

func TestBadConfigIsFatal(t *testing.T) {
	newCLIEnv(t)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfg, []byte("paths: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runCLI(t, "--config", cfg, "--list"); code != 1 || !strings.Contains(errOut, "parsing config") {
		t.Errorf("bad config = %d %q", code, errOut)
	}
}
