package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReload_MissingFileIsEmpty(t *testing.T) {
	c := New(WithPath(filepath.Join(t.TempDir(), "commands.yaml")))
	if err := c.Reload(); err != nil {
		t.Fatalf("expected no error for missing catalog, got: %v", err)
	}
	if len(c.List()) != 0 {
		t.Errorf("expected empty catalog, got %d commands", len(c.List()))
	}
}

func TestReload_ParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	writeFile(t, path, `
commands:
  - id: build
    name: Build
    icon: hammer
    run: make build
    timeout: 5s
  - id: seconds
    run: echo hi
    timeout: 12
  - id: empty
    run: "   "
  - name: no id
    run: echo nope
`)

	c := New(WithPath(path))
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	build, ok := c.FindCommand("build")
	if !ok {
		t.Fatal("expected build command")
	}
	if build.Timeout != 5*time.Second {
		t.Errorf("build timeout = %v, want 5s", build.Timeout)
	}
	if build.Source != path {
		t.Errorf("build source = %q, want %q", build.Source, path)
	}

	secs, ok := c.FindCommand("seconds")
	if !ok {
		t.Fatal("expected seconds command")
	}
	if secs.Timeout != 12*time.Second {
		t.Errorf("numeric timeout = %v, want 12s", secs.Timeout)
	}
	if secs.Name != "seconds" {
		t.Errorf("name should default to id, got %q", secs.Name)
	}

	if _, ok := c.FindCommand("empty"); ok {
		t.Error("entry with empty run should be skipped")
	}
	if got := len(c.Warnings()); got != 2 {
		t.Errorf("expected 2 warnings, got %d: %v", got, c.Warnings())
	}
}

func TestReload_DefaultTimeout(t *testing.T) {
	entries, _, err := Parse([]byte("commands:\n  - id: a\n    run: true\n"), "inline")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if entries[0].Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", entries[0].Timeout, DefaultTimeout)
	}
}

func TestParse_InvalidTimeout(t *testing.T) {
	_, _, err := Parse([]byte("commands:\n  - id: a\n    run: x\n    timeout: soon\n"), "bad.yaml")
	if err == nil || !strings.Contains(err.Error(), "invalid timeout") {
		t.Fatalf("expected invalid timeout error, got %v", err)
	}
}

func TestReload_FragmentsOverrideInNameOrder(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "commands.yaml")
	frags := filepath.Join(dir, "commands.d")
	writeFile(t, main, "commands:\n  - id: x\n    name: Main\n    run: echo main\n")
	writeFile(t, filepath.Join(frags, "20-late.yaml"), "commands:\n  - id: x\n    name: Late\n    run: echo late\n")
	writeFile(t, filepath.Join(frags, "10-early.yaml"), "commands:\n  - id: y\n    run: echo y\n")

	c := New(WithPath(main), WithFragmentDir(frags))
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	x, _ := c.FindCommand("x")
	if x.Name != "Late" {
		t.Errorf("expected later fragment to win, got %q", x.Name)
	}
	if _, ok := c.FindCommand("y"); !ok {
		t.Error("expected fragment command y")
	}
	if len(c.Warnings()) != 1 {
		t.Errorf("expected one override warning, got %v", c.Warnings())
	}
}

func TestReload_KeepsPreviousOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	writeFile(t, path, "commands:\n  - id: a\n    run: echo a\n")
	c := New(WithPath(path))
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	writeFile(t, path, "commands: [")
	if err := c.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if _, ok := c.FindCommand("a"); !ok {
		t.Error("previous commands should survive a failed reload")
	}
}

func TestBuiltinsShadowCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	writeFile(t, path, "commands:\n  - id: same\n    name: Shell\n    run: echo shell\n")
	c := New(WithPath(path))
	if err := c.Reload(); err != nil {
		t.Fatal(err)
	}
	called := false
	c.Register(Descriptor{ID: "same", Name: "Builtin"}, func(context.Context) error {
		called = true
		return nil
	})

	d, _ := c.FindCommand("same")
	if !d.IsBuiltin() || d.Name != "Builtin" {
		t.Errorf("expected builtin descriptor, got %+v", d)
	}
	if n := len(c.List()); n != 1 {
		t.Errorf("expected shadowed entry to be listed once, got %d", n)
	}
	if !c.ExecuteCommandByID(context.Background(), "same") || !called {
		t.Error("expected builtin to run")
	}
}

func TestList_SortedByName(t *testing.T) {
	c := New()
	c.Register(Descriptor{ID: "b", Name: "beta"}, nil)
	c.Register(Descriptor{ID: "a", Name: "Alpha"}, nil)
	list := c.List()
	if list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("unexpected order: %v", list)
	}
}

func TestExecute_Shell(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	writeFile(t, path, `
commands:
  - id: ok
    run: echo "$GREETING $CMDPANEL_COMMAND_ID"
    env:
      GREETING: hello
  - id: fail
    run: exit 3
  - id: slow
    run: sleep 5
    timeout: 50ms
`)
	c := New(WithPath(path))
	if err := c.Reload(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res := c.Execute(ctx, "ok")
	if !res.Success() {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.LastLine() != "hello ok" {
		t.Errorf("output = %q, want %q", res.LastLine(), "hello ok")
	}

	res = c.Execute(ctx, "fail")
	if res.Success() || res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %+v", res)
	}

	res = c.Execute(ctx, "slow")
	if res.Success() {
		t.Error("expected timeout to fail the command")
	}
}

func TestExecute_Unknown(t *testing.T) {
	c := New()
	res := c.Execute(context.Background(), "nope")
	if !errors.Is(res.Err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", res.Err)
	}
	if c.ExecuteCommandByID(context.Background(), "nope") {
		t.Error("unknown command must not report success")
	}
}

func TestExecute_BuiltinError(t *testing.T) {
	c := New()
	c.Register(Descriptor{ID: "boom"}, func(context.Context) error { return errors.New("boom") })
	res := c.Execute(context.Background(), "boom")
	if res.Success() || res.ExitCode != -1 {
		t.Errorf("expected failure with exit -1, got %+v", res)
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{max: 4}
	n, _ := b.Write([]byte("abcdef"))
	if n != 6 {
		t.Errorf("Write should report full length, got %d", n)
	}
	b.Write([]byte("gh"))
	if b.String() != "abcd" {
		t.Errorf("buffer = %q, want abcd", b.String())
	}
}
