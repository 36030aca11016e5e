package segments

import (
	"errors"

	"github.com/shipnoise/shipnoise-go/internal/timeindex"
)

// Mode selects how the final clip is assembled around the loudest segment.
type Mode string

const (
	// ModeStrict requires the center plus both immediate neighbors in the
	// same session; a missing neighbor discards the whole detection.
	ModeStrict Mode = "strict"
	// ModeAdjacent takes the best obtainable neighbor, crossing session
	// boundaries when the center sits at one, and falls back to the center
	// alone.
	ModeAdjacent Mode = "adjacent"
)

// ErrIncompleteClip reports that strict mode could not secure all three
// segments; partial clips are never written.
var ErrIncompleteClip = errors.New("incomplete clip in strict mode")

// SecureFunc attempts to obtain a segment (fetching on demand) and returns
// its local path.
type SecureFunc func(ref timeindex.Ref) (string, bool)

// Selection is the assembled clip: refs in playback order with their local
// paths.
type Selection struct {
	Refs  []timeindex.Ref
	Paths []string
}

// SelectStrict builds the center ± 1 clip within the center's session. All
// three segments must be secured or the detection is discarded.
func SelectStrict(center timeindex.Ref, secure SecureFunc) (Selection, error) {
	refs := []timeindex.Ref{
		{Session: center.Session, Seq: center.Seq - 1},
		center,
		{Session: center.Session, Seq: center.Seq + 1},
	}
	sel := Selection{Refs: refs}
	for _, ref := range refs {
		path, ok := secure(ref)
		if !ok {
			return Selection{}, ErrIncompleteClip
		}
		sel.Paths = append(sel.Paths, path)
	}
	return sel, nil
}

// adjacentState is one step of the neighbor search in adjacent-merge mode.
type adjacentState int

const (
	stateTrySuccessor adjacentState = iota
	stateTryPredecessor
	stateFallback
)

// SelectAdjacent assembles a clip around the center in adjacent-merge mode.
// The search is a small state machine: try the successor (crossing into the
// next session's first segment when the center ends a session), then the
// predecessor (crossing into the previous session's last segment when the
// center starts one), then fall back to the single center segment. The
// center itself must be securable; idx supplies session extents and may be
// nil, in which case no session crossing is attempted.
func SelectAdjacent(center timeindex.Ref, idx *timeindex.Index, secure SecureFunc) (Selection, bool) {
	centerPath, ok := secure(center)
	if !ok {
		return Selection{}, false
	}

	for state := stateTrySuccessor; ; state++ {
		switch state {
		case stateTrySuccessor:
			ref, ok := successorRef(center, idx)
			if !ok {
				continue
			}
			if path, ok := secure(ref); ok {
				return Selection{
					Refs:  []timeindex.Ref{center, ref},
					Paths: []string{centerPath, path},
				}, true
			}

		case stateTryPredecessor:
			ref, ok := predecessorRef(center, idx)
			if !ok {
				continue
			}
			if path, ok := secure(ref); ok {
				return Selection{
					Refs:  []timeindex.Ref{ref, center},
					Paths: []string{path, centerPath},
				}, true
			}

		case stateFallback:
			return Selection{
				Refs:  []timeindex.Ref{center},
				Paths: []string{centerPath},
			}, true
		}
	}
}

// successorRef resolves the next segment after the center, crossing to the
// first segment of the next session when the center is the last of its own.
func successorRef(center timeindex.Ref, idx *timeindex.Index) (timeindex.Ref, bool) {
	if idx != nil {
		if _, hi, ok := idx.SessionExtent(center.Session); ok && center.Seq >= hi {
			next, ok := idx.NextSession(center.Session)
			if !ok {
				return timeindex.Ref{}, false
			}
			lo, _, ok := idx.SessionExtent(next)
			if !ok {
				return timeindex.Ref{}, false
			}
			return timeindex.Ref{Session: next, Seq: lo}, true
		}
	}
	return timeindex.Ref{Session: center.Session, Seq: center.Seq + 1}, true
}

// predecessorRef resolves the segment before the center, crossing to the
// last segment of the previous session when the center is the first of its
// own.
func predecessorRef(center timeindex.Ref, idx *timeindex.Index) (timeindex.Ref, bool) {
	if idx != nil {
		if lo, _, ok := idx.SessionExtent(center.Session); ok && center.Seq <= lo {
			prev, ok := idx.PrevSession(center.Session)
			if !ok {
				return timeindex.Ref{}, false
			}
			_, hi, ok := idx.SessionExtent(prev)
			if !ok {
				return timeindex.Ref{}, false
			}
			return timeindex.Ref{Session: prev, Seq: hi}, true
		}
	}
	if center.Seq <= 0 {
		return timeindex.Ref{}, false
	}
	return timeindex.Ref{Session: center.Session, Seq: center.Seq - 1}, true
}
