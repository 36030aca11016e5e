// Package segments acquires candidate audio segments for a detection,
// measures their loudness and spectral character, selects and stitches the
// final clip, and classifies its acoustic confidence.
package segments

import (
	"strconv"
	"strings"

	"github.com/shipnoise/shipnoise-go/internal/timeindex"
)

// Range is one per-session span out of a windowed segment_range value.
type Range struct {
	Session string
	Lo, Hi  int
}

// ParseRanges parses a compact segment-range description such as
// "1731196800/live10-live15, 1731200400/live0-live2". Malformed parts are
// skipped; an empty result means the row carries no usable window.
func ParseRanges(raw string) []Range {
	var out []Range
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		// Tolerate unicode dashes from hand-edited files.
		part = strings.ReplaceAll(part, "–", "-")
		part = strings.ReplaceAll(part, "—", "-")
		if part == "" || !strings.Contains(part, "/") || !strings.Contains(part, "live") {
			continue
		}

		session, span, ok := strings.Cut(part, "/")
		if !ok {
			continue
		}
		left, right, ok := strings.Cut(span, "-")
		if !ok {
			continue
		}
		lo, err1 := parseLive(left)
		hi, err2 := parseLive(right)
		if err1 != nil || err2 != nil {
			continue
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		out = append(out, Range{Session: strings.TrimSpace(session), Lo: lo, Hi: hi})
	}
	return out
}

// Refs expands ranges into the individual segment references they imply.
func Refs(ranges []Range) []timeindex.Ref {
	var out []timeindex.Ref
	for _, r := range ranges {
		for seq := r.Lo; seq <= r.Hi; seq++ {
			out = append(out, timeindex.Ref{Session: r.Session, Seq: seq})
		}
	}
	return out
}

func parseLive(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "live")
	s = strings.TrimSuffix(s, ".ts")
	return strconv.Atoi(s)
}
