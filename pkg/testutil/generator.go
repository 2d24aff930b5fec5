// Package testutil provides fixtures and assertions for command panel tests.
// Generators are deterministic for a given seed.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed             int64  // Random seed (0 = current time)
	GroupPrefix      string // Prefix for group ids (default "g")
	CommandPrefix    string // Prefix for command ids (default "cmd")
	FavoriteRatio    float64
	MaxUsage         int // Upper bound for generated usage counts (0 = none)
	IncludeOverrides bool
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:          42,
		GroupPrefix:   "g",
		CommandPrefix: "cmd",
	}
}

// Generator creates settings fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "g"
	}
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "cmd"
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// GroupID returns the id of the i-th generated group.
func (g *Generator) GroupID(i int) string {
	return fmt.Sprintf("%s%d", g.cfg.GroupPrefix, i)
}

// CommandID returns the id of the j-th command of the i-th group.
func (g *Generator) CommandID(i, j int) string {
	return fmt.Sprintf("%s-%d-%d", g.cfg.CommandPrefix, i, j)
}

// Settings builds default settings with len(sizes) groups; group i holds
// sizes[i] commands. Command ids are unique across groups.
func (g *Generator) Settings(sizes ...int) model.Settings {
	s := model.DefaultSettings()
	for i, n := range sizes {
		grp := model.Group{
			ID:       g.GroupID(i),
			Name:     fmt.Sprintf("Group %d", i),
			Icon:     "folder",
			Order:    i,
			Context:  model.ContextAll,
			Commands: make([]model.CommandRef, 0, n),
		}
		for j := 0; j < n; j++ {
			ref := model.CommandRef{CommandID: g.CommandID(i, j), Order: j}
			if g.cfg.FavoriteRatio > 0 && g.rng.Float64() < g.cfg.FavoriteRatio {
				ref.Favorite = true
			}
			if g.cfg.IncludeOverrides && g.rng.Intn(3) == 0 {
				ref.CustomName = fmt.Sprintf("Custom %d.%d", i, j)
				ref.Color = "#50FA7B"
			}
			if g.cfg.MaxUsage > 0 {
				if count := g.rng.Intn(g.cfg.MaxUsage + 1); count > 0 {
					s.CommandUsageCount[ref.CommandID] = count
				}
			}
			grp.Commands = append(grp.Commands, ref)
		}
		s.Groups = append(s.Groups, grp)
	}
	return s
}

// Descriptors returns catalog descriptors for every command in s, named
// after their ids.
func Descriptors(s model.Settings) []catalog.Descriptor {
	var out []catalog.Descriptor
	for _, grp := range s.Groups {
		for _, c := range grp.Commands {
			out = append(out, catalog.Descriptor{ID: c.CommandID, Name: "Name " + c.CommandID, Run: "true"})
		}
	}
	return out
}

// FakeLookup resolves ids from a fixed map.
type FakeLookup map[string]catalog.Descriptor

// NewFakeLookup builds a FakeLookup from descriptors.
func NewFakeLookup(ds ...catalog.Descriptor) FakeLookup {
	l := make(FakeLookup, len(ds))
	for _, d := range ds {
		l[d.ID] = d
	}
	return l
}

// FindCommand implements catalog.Lookup.
func (l FakeLookup) FindCommand(id string) (catalog.Descriptor, bool) {
	d, ok := l[id]
	return d, ok
}
