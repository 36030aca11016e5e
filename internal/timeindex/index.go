// Package timeindex loads and queries the per-station index of recorded
// audio segment time ranges. One index file covers one UTC day of HLS
// segments; recordings can start before local midnight, so a day's view is
// assembled from the target and previous day's files, with daylight-saving
// irregularities detected from total coverage.
package timeindex

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Segment is one recorded audio chunk: a session (HLS folder) plus a
// sequence number, with its UTC time range.
type Segment struct {
	ID      string // full object key, e.g. rpi_bush_point/hls/1731196800/live42.ts
	Session string // numeric session folder id
	Seq     int
	Start   time.Time
	End     time.Time
}

// Ref addresses a segment without its time range.
type Ref struct {
	Session string
	Seq     int
}

// sessionExtent tracks the sequence-number span seen for one session.
type sessionExtent struct {
	lo, hi int
}

// Index is a deduplicated, start-time-ordered view of segments covering one
// UTC day (plus spillover from neighboring days).
type Index struct {
	segments []Segment
	sessions map[string]sessionExtent
}

var segmentIDRe = regexp.MustCompile(`^live(\d+)\.ts$`)

// ParseSegmentID splits a full segment key into session folder and sequence
// number. Keys that do not end in <session>/live<N>.ts are rejected.
func ParseSegmentID(id string) (session string, seq int, ok bool) {
	parts := strings.Split(id, "/")
	if len(parts) < 2 {
		return "", 0, false
	}
	name := parts[len(parts)-1]
	session = parts[len(parts)-2]
	m := segmentIDRe.FindStringSubmatch(name)
	if m == nil || session == "" {
		return "", 0, false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return "", 0, false
	}
	return session, seq, true
}

// New builds an index from raw segments: duplicates by ID collapse to one
// and the result is ordered by start time.
func New(segments []Segment) *Index {
	seen := make(map[string]bool, len(segments))
	idx := &Index{sessions: make(map[string]sessionExtent)}
	for _, seg := range segments {
		if seen[seg.ID] {
			continue
		}
		seen[seg.ID] = true
		idx.segments = append(idx.segments, seg)

		ext, ok := idx.sessions[seg.Session]
		if !ok {
			ext = sessionExtent{lo: seg.Seq, hi: seg.Seq}
		} else {
			if seg.Seq < ext.lo {
				ext.lo = seg.Seq
			}
			if seg.Seq > ext.hi {
				ext.hi = seg.Seq
			}
		}
		idx.sessions[seg.Session] = ext
	}
	sort.Slice(idx.segments, func(i, j int) bool {
		return idx.segments[i].Start.Before(idx.segments[j].Start)
	})
	return idx
}

// Merge folds additional segments into the index, keeping dedup and order.
func (x *Index) Merge(segments []Segment) *Index {
	return New(append(x.segments, segments...))
}

// Len returns the number of distinct segments.
func (x *Index) Len() int { return len(x.segments) }

// Coverage is latest end minus earliest start. Zero when empty.
func (x *Index) Coverage() time.Duration {
	if len(x.segments) == 0 {
		return 0
	}
	earliest := x.segments[0].Start
	latest := x.segments[0].End
	for _, s := range x.segments[1:] {
		if s.End.After(latest) {
			latest = s.End
		}
	}
	return latest.Sub(earliest)
}

// Overlapping returns all segments whose interval overlaps [from, to],
// inclusive on both edges.
func (x *Index) Overlapping(from, to time.Time) []Segment {
	var out []Segment
	for _, s := range x.segments {
		if !s.End.Before(from) && !s.Start.After(to) {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the indexed segment addressed by a reference.
func (x *Index) Lookup(ref Ref) (Segment, bool) {
	for _, s := range x.segments {
		if s.Session == ref.Session && s.Seq == ref.Seq {
			return s, true
		}
	}
	return Segment{}, false
}

// Sessions returns the known session ids sorted by numeric value when
// possible, lexically otherwise.
func (x *Index) Sessions() []string {
	out := make([]string, 0, len(x.sessions))
	for s := range x.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.ParseInt(out[i], 10, 64)
		b, errB := strconv.ParseInt(out[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

// SessionExtent reports the lowest and highest sequence number seen for a
// session.
func (x *Index) SessionExtent(session string) (lo, hi int, ok bool) {
	ext, ok := x.sessions[session]
	return ext.lo, ext.hi, ok
}

// NextSession returns the session ordered immediately after the given one.
func (x *Index) NextSession(session string) (string, bool) {
	return x.neighborSession(session, 1)
}

// PrevSession returns the session ordered immediately before the given one.
func (x *Index) PrevSession(session string) (string, bool) {
	return x.neighborSession(session, -1)
}

func (x *Index) neighborSession(session string, delta int) (string, bool) {
	sessions := x.Sessions()
	for i, s := range sessions {
		if s == session {
			j := i + delta
			if j < 0 || j >= len(sessions) {
				return "", false
			}
			return sessions[j], true
		}
	}
	return "", false
}

// FormatRef renders a segment reference in the stored identifier form with a
// zero-padded sequence number.
func FormatRef(ref Ref) string {
	return fmt.Sprintf("%s/live%03d.ts", ref.Session, ref.Seq)
}
