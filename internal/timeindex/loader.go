package timeindex

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Day-length bounds for daylight-saving detection. Coverage below the
// minimum means the local day was short (spring forward) and the next day's
// index is pulled in; above the maximum means a fall-back day, which is
// logged but not auto-corrected.
const (
	MinDayHours = 23.5
	MaxDayHours = 24.5
)

// ErrNoIndex reports that no timestamp index file exists for a station-day.
var ErrNoIndex = errors.New("no timestamp index file for day")

// Locator finds timestamp index files for a station. Files live either in a
// per-station directory or in a shared timestamps/<date>/ tree, and embed
// the date in either YYYYMMDD or YYYY-MM-DD form.
type Locator struct {
	SiteKey   string // station slug expected in shared-directory file names
	SiteDir   string // per-station timestamps directory (optional)
	GlobalDir string // shared timestamps root (optional)
}

const indexFileSuffix = "_timestamps_UTC.txt"

// Find returns the index file path for the given UTC day, or false when none
// exists in any search directory.
func (l *Locator) Find(day time.Time) (string, bool) {
	type dir struct {
		path    string
		perSite bool
	}
	var dirs []dir
	if l.SiteDir != "" {
		if st, err := os.Stat(l.SiteDir); err == nil && st.IsDir() {
			dirs = append(dirs, dir{l.SiteDir, true})
		}
	}
	if l.GlobalDir != "" {
		dayDir := filepath.Join(l.GlobalDir, day.Format("2006-01-02"))
		if st, err := os.Stat(dayDir); err == nil && st.IsDir() {
			dirs = append(dirs, dir{dayDir, false})
		}
	}

	ymd := day.Format("20060102")
	iso := day.Format("2006-01-02")

	var matches []string
	for _, d := range dirs {
		entries, err := os.ReadDir(d.path)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !strings.HasSuffix(name, indexFileSuffix) {
				continue
			}
			if !d.perSite && l.SiteKey != "" && !strings.Contains(name, l.SiteKey) {
				continue
			}
			if strings.Contains(name, ymd) || strings.Contains(name, iso) {
				matches = append(matches, filepath.Join(d.path, name))
			}
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

// ReadFile parses one index file: comma-separated rows of
// identifier,start,end with RFC3339 times. Rows with unparseable fields are
// skipped and counted.
func ReadFile(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file %s: %w", path, err)
	}
	defer f.Close()
	return readSegments(f)
}

func readSegments(r io.Reader) ([]Segment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var segments []Segment
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(rec) < 3 {
			skipped++
			continue
		}
		id := strings.TrimSpace(rec[0])
		session, seq, ok := ParseSegmentID(id)
		if !ok {
			skipped++
			continue
		}
		start, err1 := time.Parse(time.RFC3339, strings.TrimSpace(rec[1]))
		end, err2 := time.Parse(time.RFC3339, strings.TrimSpace(rec[2]))
		if err1 != nil || err2 != nil {
			skipped++
			continue
		}
		segments = append(segments, Segment{
			ID:      id,
			Session: session,
			Seq:     seq,
			Start:   start.UTC(),
			End:     end.UTC(),
		})
	}
	if skipped > 0 {
		slog.Debug("skipped malformed index rows", "count", skipped)
	}
	return segments, nil
}

// LoadDay assembles the index view for one UTC day: target plus previous
// day's files, then the next day's when coverage indicates a short
// (spring-forward) local day. Returns ErrNoIndex when neither the target nor
// the previous day has a file.
func LoadDay(loc *Locator, day time.Time, log *slog.Logger) (*Index, error) {
	if log == nil {
		log = slog.Default()
	}
	day = day.UTC().Truncate(24 * time.Hour)

	idx := New(nil)
	loaded := 0
	for _, d := range []time.Time{day.AddDate(0, 0, -1), day} {
		path, ok := loc.Find(d)
		if !ok {
			continue
		}
		segments, err := ReadFile(path)
		if err != nil {
			log.Warn("failed to read index file", "path", path, "error", err)
			continue
		}
		idx = idx.Merge(segments)
		loaded++
		log.Debug("loaded index file", "path", path, "segments", len(segments))
	}
	if loaded == 0 || idx.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIndex, day.Format("2006-01-02"))
	}

	coverage := idx.Coverage().Hours()
	switch {
	case coverage < MinDayHours:
		// Spring-forward: the local recording day ran short, so the tail of
		// the UTC day spills into the next index file.
		next := day.AddDate(0, 0, 1)
		path, ok := loc.Find(next)
		if !ok {
			log.Warn("short day detected but next-day index missing",
				"coverage_hours", coverage, "day", day.Format("2006-01-02"))
			break
		}
		segments, err := ReadFile(path)
		if err != nil {
			log.Warn("failed to read next-day index file", "path", path, "error", err)
			break
		}
		idx = idx.Merge(segments)
		log.Info("short day detected, included next-day index",
			"coverage_hours", coverage, "path", path)
	case coverage > MaxDayHours:
		// Fall-back: ~25h of local recording. Logged only; no further index
		// is fetched.
		log.Info("long day detected (fall-back)", "coverage_hours", coverage)
	}

	return idx, nil
}
