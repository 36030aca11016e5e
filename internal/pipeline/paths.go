// Package pipeline orchestrates the batch stages for a station and UTC day
// over the on-disk station data tree.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// Paths maps the station data tree rooted at the configured data directory:
//
//	Sites/<Site>_data/<yyyymmdd>/ais_raw_*.jsonl
//	Sites/<Site>_data/<yyyymmdd>_transits_filtered/*.csv
//	Sites/<Site>_data/<yyyymmdd>_output/<yyyymmdd>_windowed_merged.csv
type Paths struct {
	Root string
}

const dayLayout = "20060102"

var dayDirRe = regexp.MustCompile(`^\d{8}$`)

// SiteDir is the station's data directory.
func (p Paths) SiteDir(site string) string {
	return filepath.Join(p.Root, "Sites", site+"_data")
}

// DayDir holds a day's raw AIS capture files.
func (p Paths) DayDir(site, day string) string {
	return filepath.Join(p.SiteDir(site), day)
}

// TransitsDir holds the extracted and windowed transit CSVs for a day.
func (p Paths) TransitsDir(site, day string) string {
	return filepath.Join(p.SiteDir(site), day+"_transits_filtered")
}

// OutputDir holds the merged table, clips and detection summary for a day.
func (p Paths) OutputDir(site, day string) string {
	return filepath.Join(p.SiteDir(site), day+"_output")
}

// SegmentsDir holds downloaded audio segments and intermediate WAVs.
func (p Paths) SegmentsDir(site, day string) string {
	return filepath.Join(p.OutputDir(site, day), "segments")
}

// MergedCSV is the day's merged detection candidate table.
func (p Paths) MergedCSV(site, day string) string {
	return filepath.Join(p.OutputDir(site, day), day+"_windowed_merged.csv")
}

// SummaryCSV is the day's final detection summary table.
func (p Paths) SummaryCSV(site, day string) string {
	return filepath.Join(p.OutputDir(site, day), day+"_detection_summary.csv")
}

// StaticCache is the station's persistent ship static-data cache.
func (p Paths) StaticCache(site string) string {
	return filepath.Join(p.SiteDir(site), "static_ship_data.json")
}

// SiteTimestampsDir is the station's own timestamp index directory.
func (p Paths) SiteTimestampsDir(site string) string {
	return filepath.Join(p.SiteDir(site), "timestamps")
}

// GlobalTimestampsDir is the shared timestamps/<date>/ tree.
func (p Paths) GlobalTimestampsDir() string {
	return filepath.Join(p.Root, "timestamps")
}

// Days lists the day directories present for a station, oldest first.
func (p Paths) Days(site string) ([]string, error) {
	entries, err := os.ReadDir(p.SiteDir(site))
	if err != nil {
		return nil, fmt.Errorf("reading station directory for %s: %w", site, err)
	}
	var days []string
	for _, e := range entries {
		if e.IsDir() && dayDirRe.MatchString(e.Name()) {
			days = append(days, e.Name())
		}
	}
	sort.Strings(days)
	return days, nil
}

// DefaultDay is yesterday's UTC date, the most recent day whose capture
// files are complete.
func DefaultDay() string {
	return time.Now().UTC().AddDate(0, 0, -1).Format(dayLayout)
}

// ParseDay parses a yyyymmdd day string as a UTC date.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want yyyymmdd: %w", day, err)
	}
	return t.UTC(), nil
}
