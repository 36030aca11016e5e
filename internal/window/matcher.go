// Package window aligns transit closest-point-of-approach times against the
// recorded-audio segment index and describes the overlapping segments as
// compact per-session ranges.
package window

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shipnoise/shipnoise-go/internal/timeindex"
	"github.com/shipnoise/shipnoise-go/internal/transit"
)

// Match status values written to the windowed CSV.
const (
	StatusFound      = "window_found"
	StatusNoSegments = "no_segments"
)

// DefaultHalfWindow is the default search half-window around CPA.
const DefaultHalfWindow = 180 * time.Second

// Match is a transit enriched with its audio-segment window.
type Match struct {
	transit.Transit
	Status       string
	SegmentCount int
	SegmentRange string
}

// Matcher matches transits against one day's segment index.
type Matcher struct {
	index      *timeindex.Index
	halfWindow time.Duration
}

// NewMatcher builds a matcher; a non-positive half-window falls back to the
// default 180 s.
func NewMatcher(index *timeindex.Index, halfWindow time.Duration) *Matcher {
	if halfWindow <= 0 {
		halfWindow = DefaultHalfWindow
	}
	return &Matcher{index: index, halfWindow: halfWindow}
}

// MatchTransit finds all segments overlapping [CPA-W, CPA+W] for one
// transit. No overlap yields an explicit no_segments marker rather than an
// omitted row.
func (m *Matcher) MatchTransit(t *transit.Transit) Match {
	match := Match{Transit: *t, Status: StatusNoSegments}

	overlapping := m.index.Overlapping(
		t.TCPA.Add(-m.halfWindow),
		t.TCPA.Add(m.halfWindow),
	)
	if len(overlapping) == 0 {
		return match
	}

	match.Status = StatusFound
	match.SegmentCount = len(overlapping)
	match.SegmentRange = DescribeRanges(overlapping)
	return match
}

// MatchAll matches every transit, preserving input order.
func (m *Matcher) MatchAll(transits []transit.Transit) []Match {
	out := make([]Match, 0, len(transits))
	for i := range transits {
		out = append(out, m.MatchTransit(&transits[i]))
	}
	return out
}

// DescribeRanges renders overlapping segments as one compact range per
// recording session, sessions sorted by identifier so the representation is
// deterministic: "1731196800/live10-live15, 1731200400/live0-live2".
func DescribeRanges(segments []timeindex.Segment) string {
	bySession := make(map[string][]int)
	for _, s := range segments {
		bySession[s.Session] = append(bySession[s.Session], s.Seq)
	}

	sessions := make([]string, 0, len(bySession))
	for s := range bySession {
		sessions = append(sessions, s)
	}
	sort.Strings(sessions)

	parts := make([]string, 0, len(sessions))
	for _, session := range sessions {
		seqs := bySession[session]
		lo, hi := seqs[0], seqs[0]
		for _, n := range seqs[1:] {
			if n < lo {
				lo = n
			}
			if n > hi {
				hi = n
			}
		}
		parts = append(parts, fmt.Sprintf("%s/live%d-live%d", session, lo, hi))
	}
	return strings.Join(parts, ", ")
}
