package timeindex

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(session string, seq int, start time.Time) Segment {
	return Segment{
		ID:      fmt.Sprintf("rpi_bush_point/hls/%s/live%d.ts", session, seq),
		Session: session,
		Seq:     seq,
		Start:   start,
		End:     start.Add(10 * time.Second),
	}
}

func TestParseSegmentID(t *testing.T) {
	t.Parallel()

	session, seq, ok := ParseSegmentID("rpi_bush_point/hls/1731196800/live42.ts")
	require.True(t, ok)
	assert.Equal(t, "1731196800", session)
	assert.Equal(t, 42, seq)

	_, _, ok = ParseSegmentID("live42.ts")
	assert.False(t, ok)
	_, _, ok = ParseSegmentID("1731196800/segment42.ts")
	assert.False(t, ok)
}

func TestNewDeduplicatesAndSorts(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)
	segments := []Segment{
		seg("100", 2, base.Add(20*time.Second)),
		seg("100", 1, base.Add(10*time.Second)),
		seg("100", 2, base.Add(20*time.Second)), // duplicate
	}
	idx := New(segments)
	assert.Equal(t, 2, idx.Len())

	lo, hi, ok := idx.SessionExtent("100")
	require.True(t, ok)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 2, hi)
}

func TestOverlappingInclusive(t *testing.T) {
	t.Parallel()

	cpa := time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)
	w := 180 * time.Second

	inside := Segment{ID: "a/hls/100/live1.ts", Session: "100", Seq: 1,
		Start: cpa.Add(150 * time.Second), End: cpa.Add(190 * time.Second)}
	outside := Segment{ID: "a/hls/100/live2.ts", Session: "100", Seq: 2,
		Start: cpa.Add(200 * time.Second), End: cpa.Add(400 * time.Second)}
	touching := Segment{ID: "a/hls/100/live3.ts", Session: "100", Seq: 3,
		Start: cpa.Add(-200 * time.Second), End: cpa.Add(-180 * time.Second)}

	idx := New([]Segment{inside, outside, touching})
	got := idx.Overlapping(cpa.Add(-w), cpa.Add(w))
	require.Len(t, got, 2)

	ids := []string{got[0].ID, got[1].ID}
	assert.Contains(t, ids, inside.ID)
	assert.Contains(t, ids, touching.ID) // edge-inclusive
	assert.NotContains(t, ids, outside.ID)
}

func TestSessionNeighbors(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)
	idx := New([]Segment{
		seg("900", 5, base),
		seg("1000", 1, base.Add(time.Hour)),
		seg("1100", 1, base.Add(2*time.Hour)),
	})

	// Numeric ordering, not lexical: 900 < 1000 < 1100.
	assert.Equal(t, []string{"900", "1000", "1100"}, idx.Sessions())

	next, ok := idx.NextSession("1000")
	require.True(t, ok)
	assert.Equal(t, "1100", next)

	prev, ok := idx.PrevSession("1000")
	require.True(t, ok)
	assert.Equal(t, "900", prev)

	_, ok = idx.NextSession("1100")
	assert.False(t, ok)
	_, ok = idx.PrevSession("900")
	assert.False(t, ok)
}

func writeIndexFile(t *testing.T, dir, name string, segments []Segment) {
	t.Helper()
	var b []byte
	for _, s := range segments {
		b = append(b, fmt.Sprintf("%s,%s,%s\n", s.ID,
			s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))...)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o644))
}

// dayOfSegments builds hours of 10s segments starting at base.
func dayOfSegments(session string, base time.Time, hours float64) []Segment {
	n := int(hours * 360)
	out := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, seg(session, i, base.Add(time.Duration(i)*10*time.Second)))
	}
	return out
}

func TestLoadDayNormalCoverage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	day := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)

	writeIndexFile(t, dir, "bush_point_100_20241104_timestamps_UTC.txt",
		dayOfSegments("100", day.AddDate(0, 0, -1), 24))
	writeIndexFile(t, dir, "bush_point_200_20241105_timestamps_UTC.txt",
		dayOfSegments("200", day, 24))

	loc := &Locator{SiteKey: "bush_point", SiteDir: dir}
	idx, err := LoadDay(loc, day, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*24*360, idx.Len())
}

func TestLoadDayShortDayPullsNextFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	// 23h coverage on the target day triggers inclusion of the next day.
	writeIndexFile(t, dir, "bush_point_200_20240310_timestamps_UTC.txt",
		dayOfSegments("200", day, 23))
	writeIndexFile(t, dir, "bush_point_300_20240311_timestamps_UTC.txt",
		dayOfSegments("300", day.AddDate(0, 0, 1), 1))

	loc := &Locator{SiteKey: "bush_point", SiteDir: dir}
	idx, err := LoadDay(loc, day, nil)
	require.NoError(t, err)

	_, _, ok := idx.SessionExtent("300")
	assert.True(t, ok, "next-day session should be merged in")
}

func TestLoadDayLongDayNoExtraFetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	day := time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)

	// 25h coverage: logged, but the next day's file must not be loaded.
	writeIndexFile(t, dir, "bush_point_200_20241103_timestamps_UTC.txt",
		dayOfSegments("200", day, 25))
	writeIndexFile(t, dir, "bush_point_300_20241104_timestamps_UTC.txt",
		dayOfSegments("300", day.AddDate(0, 0, 1), 1))

	loc := &Locator{SiteKey: "bush_point", SiteDir: dir}
	idx, err := LoadDay(loc, day, nil)
	require.NoError(t, err)

	_, _, ok := idx.SessionExtent("300")
	assert.False(t, ok, "long day must not pull in an extra index")
}

func TestLoadDayMissingIndex(t *testing.T) {
	t.Parallel()

	loc := &Locator{SiteKey: "bush_point", SiteDir: t.TempDir()}
	_, err := LoadDay(loc, time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC), nil)
	require.ErrorIs(t, err, ErrNoIndex)
}

func TestFindGlobalDirFiltersBySiteKey(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	day := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)
	dayDir := filepath.Join(root, "2024-11-05")
	require.NoError(t, os.MkdirAll(dayDir, 0o755))

	writeIndexFile(t, dayDir, "sunset_bay_200_2024-11-05_timestamps_UTC.txt",
		dayOfSegments("200", day, 1))
	writeIndexFile(t, dayDir, "bush_point_300_2024-11-05_timestamps_UTC.txt",
		dayOfSegments("300", day, 1))

	loc := &Locator{SiteKey: "bush_point", GlobalDir: root}
	path, ok := loc.Find(day)
	require.True(t, ok)
	assert.Contains(t, path, "bush_point")
}

func TestFormatRef(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1731196800/live007.ts", FormatRef(Ref{Session: "1731196800", Seq: 7}))
	assert.Equal(t, "1731196800/live123.ts", FormatRef(Ref{Session: "1731196800", Seq: 123}))
}
