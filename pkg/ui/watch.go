package ui

import (
	"bytes"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/cmdpanel/pkg/debug"
	"github.com/vanderheijden86/cmdpanel/pkg/store"
	"github.com/vanderheijden86/cmdpanel/pkg/watcher"
)

// watchKind says which file a watcher follows.
type watchKind int

const (
	watchCatalog watchKind = iota
	watchData
)

// FileChangedMsg is sent when a watched file changes on disk.
type FileChangedMsg struct {
	Kind watchKind
	w    *watcher.Watcher
}

// WatchFileCmd waits for the next change reported by w.
func WatchFileCmd(w *watcher.Watcher, kind watchKind) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{Kind: kind, w: w}
	}
}

// handleFileChanged reloads whatever changed and re-arms the watcher.
func (m Model) handleFileChanged(msg FileChangedMsg) (Model, tea.Cmd) {
	switch msg.Kind {
	case watchCatalog:
		if err := m.cat.Reload(); err != nil {
			m.setError("Catalog reload failed: %v", err)
		} else {
			m.setNotice("Commands reloaded")
		}
	case watchData:
		m.reloadData()
	}
	m.refresh()
	return m, WatchFileCmd(msg.w, msg.Kind)
}

// reloadData picks up external edits of the settings file. Saves made by
// the panel itself produce an identical snapshot and are ignored.
func (m *Model) reloadData() {
	if m.store == nil {
		return
	}
	loaded, err := m.store.Load()
	if err != nil {
		m.setError("Settings reload failed: %v", err)
		return
	}
	onDisk, err1 := store.Export(loaded)
	current, err2 := store.Export(m.reg.Snapshot())
	if err1 == nil && err2 == nil && bytes.Equal(onDisk, current) {
		debug.Log("ui: settings file changed but matches memory")
		return
	}
	m.reg.Reload(loaded)
	m.setNotice("Settings reloaded from disk")
}
