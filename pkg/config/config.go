// Package config handles loading and saving cmdpanel configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/cmdpanel/config.yaml, commands.yaml, commands.d/
//   - Data:    ~/.local/share/cmdpanel/data.json (groups, favorites, usage)
//   - State:   ~/.local/state/cmdpanel/journal.db (launch journal)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "cmdpanel"

// Default file names inside the XDG directories.
const (
	ConfigFileName  = "config.yaml"
	CatalogFileName = "commands.yaml"
	FragmentDirName = "commands.d"
	DataFileName    = "data.json"
	JournalFileName = "journal.db"
)

// PathsConfig overrides file locations. Empty values use the XDG defaults.
type PathsConfig struct {
	Data      string `yaml:"data,omitempty"`
	Catalog   string `yaml:"catalog,omitempty"`
	Fragments string `yaml:"fragments,omitempty"`
	Journal   string `yaml:"journal,omitempty"`
}

// ContextConfig describes the host context groups are filtered against.
type ContextConfig struct {
	ViewType string `yaml:"view_type,omitempty"` // markdown, canvas, ...
	Editing  bool   `yaml:"editing,omitempty"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	AltScreen *bool  `yaml:"alt_screen,omitempty"`
	LogFile   string `yaml:"log_file,omitempty"` // debug log target while the TUI owns the terminal
}

// Config is the top-level configuration for cmdpanel.
type Config struct {
	Paths   PathsConfig   `yaml:"paths,omitempty"`
	Shell   string        `yaml:"shell,omitempty"`
	Context ContextConfig `yaml:"context,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
	Watch   *bool         `yaml:"watch,omitempty"`
	Journal *bool         `yaml:"journal,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Shell: "sh",
		Context: ContextConfig{
			ViewType: "markdown",
		},
	}
}

// ConfigDir returns the XDG config directory for cmdpanel.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for cmdpanel.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory for cmdpanel.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, ConfigFileName)
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Paths.Data = expandHome(cfg.Paths.Data)
	cfg.Paths.Catalog = expandHome(cfg.Paths.Catalog)
	cfg.Paths.Fragments = expandHome(cfg.Paths.Fragments)
	cfg.Paths.Journal = expandHome(cfg.Paths.Journal)
	cfg.UI.LogFile = expandHome(cfg.UI.LogFile)
	if strings.TrimSpace(cfg.Shell) == "" {
		cfg.Shell = "sh"
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DataPath returns the settings file path.
func (c Config) DataPath() string {
	return orDefault(c.Paths.Data, DataDir(), DataFileName)
}

// CatalogPath returns the main command catalog path.
func (c Config) CatalogPath() string {
	return orDefault(c.Paths.Catalog, ConfigDir(), CatalogFileName)
}

// FragmentDir returns the directory of catalog fragments. Without an
// override it sits next to the catalog file.
func (c Config) FragmentDir() string {
	if c.Paths.Fragments != "" {
		return c.Paths.Fragments
	}
	return filepath.Join(filepath.Dir(c.CatalogPath()), FragmentDirName)
}

// JournalPath returns the launch journal database path.
func (c Config) JournalPath() string {
	return orDefault(c.Paths.Journal, StateDir(), JournalFileName)
}

// AltScreenEnabled reports whether the TUI takes over the full terminal.
func (c Config) AltScreenEnabled() bool {
	return c.UI.AltScreen == nil || *c.UI.AltScreen
}

// WatchEnabled reports whether catalog and settings files are watched.
func (c Config) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// JournalEnabled reports whether launches are journaled.
func (c Config) JournalEnabled() bool {
	return c.Journal == nil || *c.Journal
}

func orDefault(override, dir, name string) string {
	if override != "" {
		return override
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
