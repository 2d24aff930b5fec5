// Package metrics provides in-process instrumentation for cmdpanel.
//
// Timings and counters are collected with atomic operations so background
// work (catalog loading, command execution) can record without locks.
// Collection is on by default and can be disabled with CMDPANEL_METRICS=0.
//
//	func (c *Catalog) Reload() error {
//	    defer metrics.Timer(metrics.CatalogLoad)()
//	    ...
//	}
package metrics

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("CMDPANEL_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric tracks timing statistics for a named operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means not set
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record records a single measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records elapsed time when called.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	if !Enabled() {
		return
	}
	c.n.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Global metrics.
var (
	CatalogLoad  = newTimingMetric("catalog_load")
	SettingsLoad = newTimingMetric("settings_load")
	SettingsSave = newTimingMetric("settings_save")
	Launch       = newTimingMetric("launch")
	UIRender     = newTimingMetric("ui_render")

	LaunchSuccess = &Counter{name: "launch_success"}
	LaunchFailure = &Counter{name: "launch_failure"}
	SaveFailure   = &Counter{name: "save_failure"}
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{CatalogLoad, SettingsLoad, SettingsSave, Launch, UIRender}
}

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{LaunchSuccess, LaunchFailure, SaveFailure}
}

// ResetAll resets every metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	for _, c := range AllCounters() {
		c.n.Store(0)
	}
}

// Summary renders the non-empty metrics as one line per metric.
func Summary() string {
	var sb strings.Builder
	for _, m := range AllTimingMetrics() {
		if m.Count() == 0 {
			continue
		}
		s := m.Stats()
		fmt.Fprintf(&sb, "%s: n=%d avg=%.2fms max=%.2fms\n", s.Name, s.Count, s.AvgMs, s.MaxMs)
	}
	for _, c := range AllCounters() {
		if c.Value() == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s: %d\n", c.Name(), c.Value())
	}
	return sb.String()
}
