// Package relevance discards windowed matches implausible for acoustic
// detection given vessel size, then keeps one record per vessel per
// station-day, closest approach winning.
package relevance

import (
	"log/slog"
	"sort"

	"github.com/shipnoise/shipnoise-go/internal/window"
)

// Default CPA ceilings in meters. Vessels over LargeLengthM use the large
// ceiling, vessels under SmallLengthM (or of unknown length) the small one,
// everything else the default.
const (
	DefaultCeilingM = 5000.0
	LargeCeilingM   = 8000.0
	SmallCeilingM   = 3000.0

	LargeLengthM = 150.0
	SmallLengthM = 50.0
)

// Ceilings is one station's CPA ceiling set. Stations that empirically
// detect vessels farther out override the defaults in configuration.
type Ceilings struct {
	DefaultM float64
	LargeM   float64
	SmallM   float64
}

// DefaultCeilings returns the stock ceiling set.
func DefaultCeilings() Ceilings {
	return Ceilings{DefaultM: DefaultCeilingM, LargeM: LargeCeilingM, SmallM: SmallCeilingM}
}

// Filter applies the acoustic-relevance predicate and deduplication.
type Filter struct {
	ceilings map[string]Ceilings // keyed by site name; "" holds the fallback
	log      *slog.Logger
}

// NewFilter builds a filter with per-station ceiling overrides. Stations not
// present in overrides use the defaults.
func NewFilter(overrides map[string]Ceilings, log *slog.Logger) *Filter {
	if log == nil {
		log = slog.Default()
	}
	ceilings := map[string]Ceilings{"": DefaultCeilings()}
	for site, c := range overrides {
		ceilings[site] = c
	}
	return &Filter{ceilings: ceilings, log: log}
}

// ceilingsFor returns the ceiling set for a station.
func (f *Filter) ceilingsFor(site string) Ceilings {
	if c, ok := f.ceilings[site]; ok {
		return c
	}
	return f.ceilings[""]
}

// Relevant reports whether a match is within plausible acoustic detection
// range. A missing CPA distance is never relevant.
func (f *Filter) Relevant(m *window.Match) bool {
	if m.CPADistanceM <= 0 {
		return false
	}
	c := f.ceilingsFor(m.SiteName)

	ceiling := c.DefaultM
	switch {
	case m.LengthM == nil || *m.LengthM < SmallLengthM:
		ceiling = c.SmallM
	case *m.LengthM > LargeLengthM:
		ceiling = c.LargeM
	}
	return m.CPADistanceM <= ceiling
}

// MergeAndDedup merges matches from one or more source files into a single
// deterministic table: irrelevant rows are dropped with a logged reason,
// remaining rows sort ascending by CPA distance, and only the first row per
// MMSI survives. Re-running on identical input yields identical output.
func (f *Filter) MergeAndDedup(matches []window.Match) []window.Match {
	kept := make([]window.Match, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		if !f.Relevant(m) {
			f.log.Debug("dropped acoustically irrelevant match",
				"site", m.SiteName, "mmsi", m.MMSI,
				"cpa_distance_m", m.CPADistanceM, "length_m", optVal(m.LengthM))
			continue
		}
		kept = append(kept, *m)
	}

	// Stable sort keeps source order among equal distances so the output is
	// byte-identical across runs.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CPADistanceM < kept[j].CPADistanceM
	})

	seen := make(map[string]bool, len(kept))
	out := kept[:0]
	for i := range kept {
		if seen[kept[i].MMSI] {
			continue
		}
		seen[kept[i].MMSI] = true
		out = append(out, kept[i])
	}

	f.log.Info("merged and deduplicated matches",
		"input", len(matches), "relevant", len(kept), "unique", len(out))
	return out
}

func optVal(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}
