// Package store persists command panel settings as JSON and implements the
// export/import text format.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cmdpanel/pkg/metrics"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
)

// FileName is the settings file inside the data directory.
const FileName = "data.json"

// ErrInvalidImport is returned by Import for payloads that are not settings.
var ErrInvalidImport = errors.New("invalid import: expected an object with groups or layout")

// Store reads and writes settings at a fixed path.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store for the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file and merges it over model.DefaultSettings.
// A missing file yields the defaults.
func (s *Store) Load() (model.Settings, error) {
	defer metrics.Timer(metrics.SettingsLoad)()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.DefaultSettings(), nil
		}
		return model.DefaultSettings(), fmt.Errorf("reading settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.DefaultSettings(), nil
	}

	settings, err := decode(data)
	if err != nil {
		return model.DefaultSettings(), fmt.Errorf("parsing settings %s: %w", s.path, err)
	}
	return settings, nil
}

// Save writes settings atomically (temp file + rename) so watchers and
// concurrent readers never see a partial file.
func (s *Store) Save(settings model.Settings) error {
	defer metrics.Timer(metrics.SettingsSave)()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		metrics.SaveFailure.Inc()
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		metrics.SaveFailure.Inc()
		return err
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Export renders settings as indented JSON text.
func Export(settings model.Settings) ([]byte, error) {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling export: %w", err)
	}
	return data, nil
}

// Import parses exported text. The payload must be a JSON object carrying a
// groups or layout key; anything else fails with ErrInvalidImport. Accepted
// payloads are merged over the defaults, normalized and then validated, so
// duplicate or empty group ids are rejected too.
func Import(data []byte) (model.Settings, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return model.Settings{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	_, hasGroups := keys["groups"]
	_, hasLayout := keys["layout"]
	if !hasGroups && !hasLayout {
		return model.Settings{}, ErrInvalidImport
	}

	settings, err := decode(data)
	if err != nil {
		return model.Settings{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if err := settings.Validate(); err != nil {
		return model.Settings{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return settings, nil
}

// ImportFile reads and imports the file at path.
func ImportFile(path string) (model.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Settings{}, fmt.Errorf("reading import: %w", err)
	}
	return Import(data)
}

func decode(data []byte) (model.Settings, error) {
	settings := model.DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return model.DefaultSettings(), err
	}
	settings.Normalize()
	return settings, nil
}
