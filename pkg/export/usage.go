// Package export renders command panel data for humans: usage statistics,
// usage charts (SVG/PNG) and a markdown outline of the groups.
package export

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// UsageEntry is one command's usage count.
type UsageEntry struct {
	CommandID string
	Name      string
	Count     int
}

// Summary describes the distribution of usage counts.
type Summary struct {
	Total    int     // Sum of all counts
	Distinct int     // Commands with a positive count
	Mean     float64 // Mean count per used command
	StdDev   float64 // Population standard deviation
	Median   float64 // Empirical (lower) median
	Max      int
}

// UsageSummary computes statistics over the positive counts.
func UsageSummary(counts map[string]int) Summary {
	xs := make([]float64, 0, len(counts))
	var s Summary
	for _, n := range counts {
		if n <= 0 {
			continue
		}
		xs = append(xs, float64(n))
		s.Total += n
		if n > s.Max {
			s.Max = n
		}
	}
	s.Distinct = len(xs)
	if len(xs) == 0 {
		return s
	}
	sort.Float64s(xs)
	s.Mean, s.StdDev = stat.PopMeanStdDev(xs, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, xs, nil)
	return s
}

// TopUsage returns the limit most used commands, count descending then id.
// name resolves display names and may be nil.
func TopUsage(counts map[string]int, limit int, name func(id string) string) []UsageEntry {
	out := make([]UsageEntry, 0, len(counts))
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		e := UsageEntry{CommandID: id, Name: id, Count: n}
		if name != nil {
			e.Name = name(id)
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].CommandID < out[j].CommandID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
