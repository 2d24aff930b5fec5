// Package watcher reports changes to the files cmdpanel reads at startup:
// the command catalog, its commands.d fragments and the settings file.
// It uses fsnotify and falls back to polling on network filesystems or when
// CMDPANEL_FORCE_POLLING is set.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/cmdpanel/pkg/debug"
)

// DefaultPollInterval is how often a polled catalog or settings file is stat-ed.
const DefaultPollInterval = 2 * time.Second

// Errors reported through the OnError callback or returned by Start.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher at construction.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets how long a burst of saves is coalesced.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the stat interval used when polling.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback run once per debounced change. cmdpanel
// uses it to hand a reload message to the TUI.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback for watch errors, including ErrFileRemoved
// when the settings file or catalog is deleted.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll skips fsnotify and polls.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithDirectory treats the watched path as a directory and reports changes
// to entries whose base name matches pattern (filepath.Match syntax).
// Removing a matching entry counts as a change.
func WithDirectory(pattern string) WatcherOption {
	return func(w *Watcher) {
		w.pattern = pattern
	}
}

// fileState is what polling compares between ticks.
type fileState struct {
	present bool
	mtime   time.Time
	size    int64
	count   int
}

// Watcher reports changes to one file, such as data.json or
// commands.yaml, or to the matching entries of a directory such as
// commands.d.
type Watcher struct {
	path             string
	pattern          string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	forcePollEnv     bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	last        fileState

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher returns a stopped watcher for path. The path need not exist yet.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching. It fails only when the target is unreadable or the
// watcher is already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.forcePollEnv = envBool("CMDPANEL_FORCE_POLLING") || envBool("CMDPANEL_FORCE_POLL")
	w.fsType = detectFilesystemTypeFunc(w.path)

	state, err := w.stat()
	switch {
	case err == nil:
	case os.IsPermission(err):
		w.cancel()
		return ErrPermission
	default:
		// Not created yet; its first appearance counts as a change.
		state = fileState{}
	}
	w.last = state

	w.useFallback = w.forcePoll || w.forcePollEnv || isRemoteFilesystem(w.fsType) || !w.startFsnotify()
	if w.useFallback {
		go w.watchPolling()
	}

	debug.Log("watcher: watching %s (fs=%s polling=%v)", w.path, w.fsType, w.useFallback)
	w.started = true
	return nil
}

// Stop stops watching. The Changed channel is left open: a reader blocked
// on it is released at process exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling reports whether the watcher fell back to polling.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted reports whether Start has run without a later Stop.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed signals debounced changes. Sends never block: a pending signal
// absorbs later ones until it is read.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the absolute watched path.
func (w *Watcher) Path() string {
	return w.path
}

// FilesystemType returns the classification made at Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the configured stat interval.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

// startFsnotify watches the parent directory, so atomic renames over the
// settings file are seen. It reports false when fsnotify is unavailable.
func (w *Watcher) startFsnotify() bool {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		debug.Warn("watcher: fsnotify unavailable: %v", err)
		return false
	}
	if err := fsw.Add(w.watchDir()); err != nil {
		fsw.Close()
		debug.Warn("watcher: cannot watch %s: %v", w.watchDir(), err)
		return false
	}
	w.fsWatcher = fsw
	go w.watchFsnotify()
	return true
}

func (w *Watcher) isDir() bool {
	return w.pattern != ""
}

func (w *Watcher) watchDir() string {
	if w.isDir() {
		return w.path
	}
	return filepath.Dir(w.path)
}

// matches reports whether an event on name concerns the watched target.
func (w *Watcher) matches(name string) bool {
	base := filepath.Base(name)
	if !w.isDir() {
		return base == filepath.Base(w.path)
	}
	if filepath.Dir(name) != w.path {
		return false
	}
	ok, err := filepath.Match(w.pattern, base)
	return err == nil && ok
}

// stat captures the current state of the target. In directory mode it
// aggregates every matching entry.
func (w *Watcher) stat() (fileState, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileState{}, err
	}
	if !w.isDir() {
		return fileState{present: true, mtime: info.ModTime(), size: info.Size(), count: 1}, nil
	}

	entries, err := os.ReadDir(w.path)
	if err != nil {
		return fileState{}, err
	}
	state := fileState{present: true}
	for _, e := range entries {
		if e.IsDir() || !w.matches(filepath.Join(w.path, e.Name())) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		state.count++
		state.size += fi.Size()
		if fi.ModTime().After(state.mtime) {
			state.mtime = fi.ModTime()
		}
	}
	return state, nil
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// watchFsnotify filters directory events down to the target.
func (w *Watcher) watchFsnotify() {
	// Stop clears fsWatcher; read the channels under the lock.
	w.mu.RLock()
	if w.fsWatcher == nil {
		w.mu.RUnlock()
		return
	}
	events := w.fsWatcher.Events
	errs := w.fsWatcher.Errors
	w.mu.RUnlock()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0 && !w.isDir():
				w.onError(ErrFileRemoved)

			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			debug.Warn("watcher: %s: %v", w.path, err)
			w.onError(err)
		}
	}
}

// watchPolling compares stat snapshots on every tick.
func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.pollOnce() {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// pollOnce stats the target and reports whether it differs from the last
// snapshot. Errors go to the OnError callback.
func (w *Watcher) pollOnce() bool {
	state, err := w.stat()
	if err != nil {
		w.mu.Lock()
		hadFile := w.last.present
		if os.IsNotExist(err) {
			w.last = fileState{}
		}
		w.mu.Unlock()

		switch {
		case os.IsNotExist(err):
			if hadFile {
				w.onError(ErrFileRemoved)
			}
		case os.IsPermission(err):
			w.onError(ErrPermission)
		default:
			w.onError(err)
		}
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	changed := state.present != w.last.present || state.mtime.After(w.last.mtime) ||
		state.size != w.last.size || state.count != w.last.count
	if changed {
		w.last = state
	}
	return changed
}

// notifyChange runs after the debounce window closes.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	// Best effort: a callback may still slip through right after Stop.
	if !started {
		return
	}

	w.onChange()

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
