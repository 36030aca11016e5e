package segments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipnoise/shipnoise-go/internal/timeindex"
)

// secureFrom pretends only the listed segments exist; paths are synthesized
// from the reference.
func secureFrom(available ...timeindex.Ref) SecureFunc {
	have := make(map[timeindex.Ref]bool, len(available))
	for _, ref := range available {
		have[ref] = true
	}
	return func(ref timeindex.Ref) (string, bool) {
		if !have[ref] {
			return "", false
		}
		return timeindex.FormatRef(ref), true
	}
}

func selectorIndex() *timeindex.Index {
	base := time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC)
	var segs []timeindex.Segment
	add := func(session string, seq int) {
		segs = append(segs, timeindex.Segment{
			ID:      timeindex.FormatRef(timeindex.Ref{Session: session, Seq: seq}),
			Session: session,
			Seq:     seq,
			Start:   base,
			End:     base.Add(10 * time.Second),
		})
		base = base.Add(10 * time.Second)
	}
	for seq := 0; seq <= 5; seq++ {
		add("1000", seq)
	}
	for seq := 0; seq <= 3; seq++ {
		add("2000", seq)
	}
	return timeindex.New(segs)
}

func TestSelectStrict(t *testing.T) {
	center := timeindex.Ref{Session: "1000", Seq: 3}
	sel, err := SelectStrict(center, secureFrom(
		timeindex.Ref{Session: "1000", Seq: 2},
		center,
		timeindex.Ref{Session: "1000", Seq: 4},
	))
	require.NoError(t, err)
	assert.Equal(t, []timeindex.Ref{
		{Session: "1000", Seq: 2},
		{Session: "1000", Seq: 3},
		{Session: "1000", Seq: 4},
	}, sel.Refs)
	assert.Len(t, sel.Paths, 3)
}

func TestSelectStrictMissingNeighborDiscards(t *testing.T) {
	center := timeindex.Ref{Session: "1000", Seq: 3}
	_, err := SelectStrict(center, secureFrom(
		center,
		timeindex.Ref{Session: "1000", Seq: 4},
	))
	assert.ErrorIs(t, err, ErrIncompleteClip)
}

func TestSelectAdjacentPrefersSuccessor(t *testing.T) {
	center := timeindex.Ref{Session: "1000", Seq: 2}
	sel, ok := SelectAdjacent(center, selectorIndex(), secureFrom(
		timeindex.Ref{Session: "1000", Seq: 1},
		center,
		timeindex.Ref{Session: "1000", Seq: 3},
	))
	require.True(t, ok)
	assert.Equal(t, []timeindex.Ref{
		{Session: "1000", Seq: 2},
		{Session: "1000", Seq: 3},
	}, sel.Refs)
}

func TestSelectAdjacentFallsBackToPredecessor(t *testing.T) {
	center := timeindex.Ref{Session: "1000", Seq: 2}
	sel, ok := SelectAdjacent(center, selectorIndex(), secureFrom(
		timeindex.Ref{Session: "1000", Seq: 1},
		center,
	))
	require.True(t, ok)
	assert.Equal(t, []timeindex.Ref{
		{Session: "1000", Seq: 1},
		{Session: "1000", Seq: 2},
	}, sel.Refs)
}

func TestSelectAdjacentSingleSegmentFallback(t *testing.T) {
	center := timeindex.Ref{Session: "1000", Seq: 2}
	sel, ok := SelectAdjacent(center, selectorIndex(), secureFrom(center))
	require.True(t, ok)
	assert.Equal(t, []timeindex.Ref{center}, sel.Refs)
}

func TestSelectAdjacentCrossesSessionEnd(t *testing.T) {
	// Center is the last segment of its session; the successor is the first
	// segment of the next one.
	center := timeindex.Ref{Session: "1000", Seq: 5}
	sel, ok := SelectAdjacent(center, selectorIndex(), secureFrom(
		center,
		timeindex.Ref{Session: "2000", Seq: 0},
	))
	require.True(t, ok)
	assert.Equal(t, []timeindex.Ref{
		{Session: "1000", Seq: 5},
		{Session: "2000", Seq: 0},
	}, sel.Refs)
}

func TestSelectAdjacentCrossesSessionStart(t *testing.T) {
	// Center starts its session; with the successor unavailable the
	// predecessor is the previous session's last segment.
	center := timeindex.Ref{Session: "2000", Seq: 0}
	sel, ok := SelectAdjacent(center, selectorIndex(), secureFrom(
		center,
		timeindex.Ref{Session: "1000", Seq: 5},
	))
	require.True(t, ok)
	assert.Equal(t, []timeindex.Ref{
		{Session: "1000", Seq: 5},
		{Session: "2000", Seq: 0},
	}, sel.Refs)
}

func TestSelectAdjacentUnsecurableCenter(t *testing.T) {
	_, ok := SelectAdjacent(timeindex.Ref{Session: "1000", Seq: 2}, selectorIndex(), secureFrom())
	assert.False(t, ok)
}

func TestSelectAdjacentWithoutIndex(t *testing.T) {
	center := timeindex.Ref{Session: "1000", Seq: 0}
	sel, ok := SelectAdjacent(center, nil, secureFrom(center))
	require.True(t, ok)
	assert.Equal(t, []timeindex.Ref{center}, sel.Refs)
}
