// Package catalog is the host command registry of cmdpanel. Commands come
// from YAML catalog files (commands.yaml plus commands.d/*.yaml) and from
// built-in actions registered by the application.
//
// Groups only store command ids. The catalog resolves them at render and
// launch time; an id the catalog no longer knows is a dangling reference.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/cmdpanel/pkg/debug"
	"github.com/vanderheijden86/cmdpanel/pkg/metrics"
)

// SourceBuiltin marks commands registered in code.
const SourceBuiltin = "builtin"

// DefaultTimeout bounds shell command execution when an entry sets none.
const DefaultTimeout = 30 * time.Second

// ErrUnknownCommand is returned when an id does not resolve.
var ErrUnknownCommand = errors.New("unknown command")

// Descriptor is the host's view of a command.
type Descriptor struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Icon        string            `yaml:"icon,omitempty" json:"icon,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Hotkey      string            `yaml:"hotkey,omitempty" json:"hotkey,omitempty"`
	Run         string            `yaml:"run" json:"run,omitempty"`
	Dir         string            `yaml:"dir,omitempty" json:"dir,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Interactive bool              `yaml:"interactive,omitempty" json:"interactive,omitempty"`
	Source      string            `yaml:"-" json:"source"`
}

// IsBuiltin reports whether the command is implemented in code.
func (d Descriptor) IsBuiltin() bool {
	return d.Source == SourceBuiltin
}

// Lookup resolves command ids to descriptors.
type Lookup interface {
	FindCommand(id string) (Descriptor, bool)
}

// Host is the capability the panel needs from its command provider.
type Host interface {
	Lookup
	ExecuteCommandByID(ctx context.Context, id string) bool
	List() []Descriptor
}

// BuiltinFunc implements a built-in command.
type BuiltinFunc func(ctx context.Context) error

type builtin struct {
	desc Descriptor
	fn   BuiltinFunc
}

// file is the on-disk shape of a catalog file.
type file struct {
	Commands []Descriptor `yaml:"commands"`
}

// Catalog holds the merged set of known commands.
type Catalog struct {
	path        string
	fragmentDir string
	shell       string

	mu       sync.RWMutex
	builtins map[string]builtin
	commands map[string]Descriptor
	warnings []string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPath sets the main catalog file.
func WithPath(path string) Option {
	return func(c *Catalog) {
		c.path = path
	}
}

// WithFragmentDir sets the directory scanned for additional *.yaml files.
func WithFragmentDir(dir string) Option {
	return func(c *Catalog) {
		c.fragmentDir = dir
	}
}

// WithShell sets the shell used to run commands (default: $SHELL or sh).
func WithShell(shell string) Option {
	return func(c *Catalog) {
		c.shell = shell
	}
}

// New creates an empty catalog. Call Reload to read the catalog files.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		builtins: make(map[string]builtin),
		commands: make(map[string]Descriptor),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shell == "" {
		c.shell = "sh"
	}
	return c
}

// Path returns the main catalog file path.
func (c *Catalog) Path() string {
	return c.path
}

// Register adds a built-in command. Built-ins take precedence over catalog
// entries with the same id.
func (c *Catalog) Register(d Descriptor, fn BuiltinFunc) {
	d.Source = SourceBuiltin
	if d.Name == "" {
		d.Name = d.ID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builtins[d.ID] = builtin{desc: d, fn: fn}
}

// Reload re-reads the catalog files. Fragments are parsed concurrently and
// merged in file-name order after the main file. A missing main file is not
// an error. On failure the previous commands stay in place.
func (c *Catalog) Reload() error {
	defer metrics.Timer(metrics.CatalogLoad)()
	defer debug.LogEnterExit("catalog reload")()

	paths, err := c.sourcePaths()
	if err != nil {
		return err
	}

	parsed := make([][]Descriptor, len(paths))
	warns := make([][]string, len(paths))
	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			entries, w, err := loadFile(p)
			if err != nil {
				return err
			}
			parsed[i] = entries
			warns[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	commands := make(map[string]Descriptor)
	var warnings []string
	for i, entries := range parsed {
		warnings = append(warnings, warns[i]...)
		for _, d := range entries {
			if prev, ok := commands[d.ID]; ok {
				warnings = append(warnings, fmt.Sprintf("%s: command %q overrides definition from %s", d.Source, d.ID, prev.Source))
			}
			commands[d.ID] = d
		}
	}
	for _, w := range warnings {
		debug.Warn("catalog: %s", w)
	}

	c.mu.Lock()
	c.commands = commands
	c.warnings = warnings
	c.mu.Unlock()
	debug.Log("catalog: loaded %d commands from %d files", len(commands), len(paths))
	return nil
}

// sourcePaths lists the main file (if present) followed by sorted fragments.
func (c *Catalog) sourcePaths() ([]string, error) {
	var paths []string
	if c.path != "" {
		if _, err := os.Stat(c.path); err == nil {
			paths = append(paths, c.path)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
	}
	if c.fragmentDir != "" {
		matches, err := filepath.Glob(filepath.Join(c.fragmentDir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("listing catalog fragments: %w", err)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// loadFile parses one catalog file and normalizes its entries.
func loadFile(path string) ([]Descriptor, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading catalog: %w", err)
	}
	entries, warnings, err := Parse(data, path)
	if err != nil {
		return nil, nil, err
	}
	return entries, warnings, nil
}

// Parse decodes catalog YAML. source is recorded on every entry and used in
// error and warning messages.
func Parse(data []byte, source string) ([]Descriptor, []string, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	entries, warnings := normalizeEntries(f.Commands, source)
	return entries, warnings, nil
}

// normalizeEntries applies defaults, drops unusable entries, and collects
// warnings.
func normalizeEntries(entries []Descriptor, source string) ([]Descriptor, []string) {
	var out []Descriptor
	var warnings []string
	seen := make(map[string]bool)
	for i := range entries {
		d := entries[i]
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			warnings = append(warnings, fmt.Sprintf("%s: command %d has no id; skipping", source, i+1))
			continue
		}
		if strings.TrimSpace(d.Run) == "" {
			warnings = append(warnings, fmt.Sprintf("%s: command %q has empty run; skipping", source, d.ID))
			continue
		}
		if seen[d.ID] {
			warnings = append(warnings, fmt.Sprintf("%s: duplicate command %q; keeping the last one", source, d.ID))
		}
		seen[d.ID] = true
		if strings.TrimSpace(d.Name) == "" {
			d.Name = d.ID
		}
		if d.Timeout <= 0 {
			d.Timeout = DefaultTimeout
		}
		d.Dir = expandHome(d.Dir)
		d.Source = source
		out = append(out, d)
	}
	return out, warnings
}

// FindCommand resolves id to a descriptor.
func (c *Catalog) FindCommand(id string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if b, ok := c.builtins[id]; ok {
		return b.desc, true
	}
	d, ok := c.commands[id]
	return d, ok
}

// List returns every known command sorted by name, then id.
func (c *Catalog) List() []Descriptor {
	c.mu.RLock()
	out := make([]Descriptor, 0, len(c.commands)+len(c.builtins))
	for id, d := range c.commands {
		if _, shadowed := c.builtins[id]; shadowed {
			continue
		}
		out = append(out, d)
	}
	for _, b := range c.builtins {
		out = append(out, b.desc)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Warnings returns warnings from the last Reload.
func (c *Catalog) Warnings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.warnings...)
}

// UnmarshalYAML accepts timeouts written as durations ("5s") or as bare
// seconds ("30").
func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	// Must mirror Descriptor except for Timeout.
	type descriptorDTO struct {
		ID          string            `yaml:"id"`
		Name        string            `yaml:"name"`
		Icon        string            `yaml:"icon,omitempty"`
		Description string            `yaml:"description,omitempty"`
		Hotkey      string            `yaml:"hotkey,omitempty"`
		Run         string            `yaml:"run"`
		Dir         string            `yaml:"dir,omitempty"`
		Env         map[string]string `yaml:"env,omitempty"`
		Timeout     string            `yaml:"timeout,omitempty"`
		Interactive bool              `yaml:"interactive,omitempty"`
	}

	var dto descriptorDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}
	*d = Descriptor{
		ID:          dto.ID,
		Name:        dto.Name,
		Icon:        dto.Icon,
		Description: dto.Description,
		Hotkey:      dto.Hotkey,
		Run:         dto.Run,
		Dir:         dto.Dir,
		Env:         dto.Env,
		Interactive: dto.Interactive,
	}

	if dto.Timeout != "" {
		t, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			d.Timeout = t
			return nil
		}
		var seconds float64
		if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr != nil {
			return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
		}
		d.Timeout = time.Duration(seconds * float64(time.Second))
	}
	return nil
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

// SampleYAML seeds a new catalog file.
const SampleYAML = `# cmdpanel command catalog
# Each command needs an id and a shell command to run. Add more files under
# commands.d/ to split the catalog.
commands:
  - id: sys:uptime
    name: Uptime
    icon: clock
    description: Show how long the machine has been running.
    run: uptime
  - id: git:status
    name: Git Status
    icon: git-branch
    description: Short status of the repository in the current directory.
    run: git status --short --branch
    timeout: 10s
  - id: sys:disk
    name: Disk Usage
    icon: hard-drive
    run: df -h .
`
