package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const emptySettings = `{"groups":[]}`

// settingsFile writes an empty settings file into a temp dir.
func settingsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, emptySettings)
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// saveAtomically replaces path the way the settings store does.
func saveAtomically(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	writeFile(t, tmp, content)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

// recorder counts change callbacks and keeps the last reported error.
type recorder struct {
	changes atomic.Int32
	mu      sync.Mutex
	err     error
}

func (r *recorder) onChange() { r.changes.Add(1) }

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *recorder) lastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// eventually polls cond until it holds or a second has passed.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startWatcher(t *testing.T, path string, r *recorder, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{
		WithDebounceDuration(20 * time.Millisecond),
		WithPollInterval(30 * time.Millisecond),
		WithOnChange(r.onChange),
		WithOnError(r.onError),
	}, opts...)
	w, err := NewWatcher(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	time.Sleep(50 * time.Millisecond)
	return w
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 8; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("burst ran %d times, want 1", n)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(80 * time.Millisecond)
	if called.Load() {
		t.Error("cancelled call ran")
	}
	d.Cancel()
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("duration = %v, want %v", d.Duration(), DefaultDebounceDuration)
	}
}

func TestWatcher_SettingsEdits(t *testing.T) {
	for _, poll := range []bool{false, true} {
		name := "fsnotify"
		if poll {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			path := settingsFile(t)
			var r recorder
			w := startWatcher(t, path, &r, WithForcePoll(poll))
			if poll && !w.IsPolling() {
				t.Fatal("forced polling not in effect")
			}

			writeFile(t, path, `{"groups":[{"id":"g1","name":"Git"}]}`)
			eventually(t, func() bool { return r.changes.Load() > 0 }, "in-place edit not reported")

			before := r.changes.Load()
			saveAtomically(t, path, `{"groups":[],"layout":"list"}`)
			eventually(t, func() bool { return r.changes.Load() > before }, "atomic save not reported")
		})
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	path := settingsFile(t)
	var r recorder
	w := startWatcher(t, path, &r, WithForcePoll(true))

	go os.WriteFile(path, []byte(`{"groups":[],"gridColumns":3}`), 0o644)
	select {
	case <-w.Changed():
	case <-time.After(time.Second):
		t.Fatal("no change on the channel")
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	path := settingsFile(t)
	var r recorder
	startWatcher(t, path, &r)

	writeFile(t, filepath.Join(filepath.Dir(path), "journal.db"), "x")
	time.Sleep(150 * time.Millisecond)
	if n := r.changes.Load(); n != 0 {
		t.Errorf("sibling write reported %d changes", n)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	for _, poll := range []bool{false, true} {
		path := settingsFile(t)
		var r recorder
		startWatcher(t, path, &r, WithForcePoll(poll))

		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}
		eventually(t, func() bool { return errors.Is(r.lastError(), ErrFileRemoved) },
			"removal not reported as ErrFileRemoved")
	}
}

func TestWatcher_MissingFileAppears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.yaml")
	var r recorder
	startWatcher(t, path, &r, WithForcePoll(true))

	writeFile(t, path, "commands: []\n")
	eventually(t, func() bool { return r.changes.Load() > 0 }, "new catalog not reported")
}

func TestWatcher_PollingTriggers(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
		fs    FilesystemType
	}{
		{"CMDPANEL_FORCE_POLLING", func(t *testing.T) { t.Setenv("CMDPANEL_FORCE_POLLING", "1") }, FSTypeLocal},
		{"CMDPANEL_FORCE_POLL", func(t *testing.T) { t.Setenv("CMDPANEL_FORCE_POLL", "true") }, FSTypeLocal},
		{"nfs", func(*testing.T) {}, FSTypeNFS},
		{"sshfs", func(*testing.T) {}, FSTypeSSHFS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			orig := detectFilesystemTypeFunc
			detectFilesystemTypeFunc = func(string) FilesystemType { return tt.fs }
			t.Cleanup(func() { detectFilesystemTypeFunc = orig })

			var r recorder
			w := startWatcher(t, settingsFile(t), &r)
			if !w.IsPolling() {
				t.Error("expected polling")
			}
			if w.FilesystemType() != tt.fs {
				t.Errorf("filesystem = %v, want %v", w.FilesystemType(), tt.fs)
			}
		})
	}
}

func TestWatcher_Lifecycle(t *testing.T) {
	path := settingsFile(t)
	w, err := NewWatcher(path, WithPollInterval(750*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(path)
	if w.Path() != abs {
		t.Errorf("Path = %s, want %s", w.Path(), abs)
	}
	if w.PollInterval() != 750*time.Millisecond {
		t.Errorf("PollInterval = %v", w.PollInterval())
	}
	if w.IsStarted() {
		t.Error("started before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("not started after Start")
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	w.Stop()
	w.Stop()
	if w.IsStarted() {
		t.Error("still started after Stop")
	}
}

func TestWatcher_FragmentDirectory(t *testing.T) {
	for _, poll := range []bool{false, true} {
		name := "fsnotify"
		if poll {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "git.yaml"), "commands: []\n")
			var r recorder
			startWatcher(t, dir, &r, WithDirectory("*.yaml"), WithForcePoll(poll))

			writeFile(t, filepath.Join(dir, "README.md"), "notes")
			time.Sleep(150 * time.Millisecond)
			if n := r.changes.Load(); n != 0 {
				t.Fatalf("non-fragment write reported %d changes", n)
			}

			fragment := filepath.Join(dir, "docker.yaml")
			writeFile(t, fragment, "commands:\n  - id: ps\n    run: docker ps\n")
			eventually(t, func() bool { return r.changes.Load() > 0 }, "new fragment not reported")

			before := r.changes.Load()
			if err := os.Remove(fragment); err != nil {
				t.Fatal(err)
			}
			eventually(t, func() bool { return r.changes.Load() > before }, "fragment removal not reported")
			if err := r.lastError(); err != nil {
				t.Errorf("directory mode reported error %v", err)
			}
		})
	}
}

func TestWatcher_Matches(t *testing.T) {
	dir := t.TempDir()
	fileW, _ := NewWatcher(filepath.Join(dir, "data.json"))
	if !fileW.matches(filepath.Join(dir, "data.json")) || fileW.matches(filepath.Join(dir, "data.json.tmp")) {
		t.Error("file mode should match only the settings file")
	}

	dirW, _ := NewWatcher(dir, WithDirectory("*.yaml"))
	tests := []struct {
		name string
		want bool
	}{
		{filepath.Join(dir, "git.yaml"), true},
		{filepath.Join(dir, "git.yml"), false},
		{filepath.Join(dir, "nested", "git.yaml"), false},
	}
	for _, tt := range tests {
		if got := dirW.matches(tt.name); got != tt.want {
			t.Errorf("matches(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilesystemType(t *testing.T) {
	names := map[FilesystemType]string{
		FSTypeUnknown:      "unknown",
		FSTypeLocal:        "local",
		FSTypeNFS:          "nfs",
		FSTypeSMB:          "smb",
		FSTypeSSHFS:        "sshfs",
		FSTypeFUSE:         "fuse",
		FilesystemType(42): "unknown",
	}
	for ft, want := range names {
		if ft.String() != want {
			t.Errorf("FilesystemType(%d) = %q, want %q", ft, ft.String(), want)
		}
	}

	remote := map[FilesystemType]bool{FSTypeNFS: true, FSTypeSMB: true, FSTypeSSHFS: true, FSTypeLocal: false, FSTypeFUSE: false, FSTypeUnknown: false}
	for ft, want := range remote {
		if isRemoteFilesystem(ft) != want {
			t.Errorf("isRemoteFilesystem(%s) = %v", ft, !want)
		}
	}

	if DetectFilesystemType("") != FSTypeUnknown {
		t.Error("empty path should be unknown")
	}
	// A catalog that does not exist yet is classified by its directory.
	_ = DetectFilesystemType(filepath.Join(t.TempDir(), "commands.d", "new.yaml"))
}

func TestEnvBool(t *testing.T) {
	tests := map[string]bool{
		"1": true, "true": true, "TRUE": true, "yes": true, "Y": true, "on": true, " on ": true,
		"0": false, "false": false, "no": false, "": false, "maybe": false,
	}
	for value, want := range tests {
		t.Setenv("CMDPANEL_TEST_BOOL", value)
		if got := envBool("CMDPANEL_TEST_BOOL"); got != want {
			t.Errorf("envBool(%q) = %v, want %v", value, got, want)
		}
	}
	os.Unsetenv("CMDPANEL_TEST_UNSET")
	if envBool("CMDPANEL_TEST_UNSET") {
		t.Error("unset variable should be false")
	}
}

func TestWatcher_PollOnce(t *testing.T) {
	path := settingsFile(t)
	var r recorder
	w, err := NewWatcher(path, WithOnError(r.onError))
	if err != nil {
		t.Fatal(err)
	}
	if w.last, err = w.stat(); err != nil {
		t.Fatal(err)
	}

	if w.pollOnce() {
		t.Error("unchanged file reported as changed")
	}
	writeFile(t, path, `{"groups":[],"recentlyUsed":["git:push"]}`)
	if !w.pollOnce() {
		t.Error("size change not seen")
	}
	if w.pollOnce() {
		t.Error("a change is reported once")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if w.pollOnce() || !errors.Is(r.lastError(), ErrFileRemoved) {
		t.Errorf("removal: err = %v", r.lastError())
	}
	writeFile(t, path, emptySettings)
	if !w.pollOnce() {
		t.Error("recreated file not seen")
	}
}
