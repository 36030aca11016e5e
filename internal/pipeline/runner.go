package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shipnoise/shipnoise-go/internal/conf"
	"github.com/shipnoise/shipnoise-go/internal/datastore"
	"github.com/shipnoise/shipnoise-go/internal/relevance"
	"github.com/shipnoise/shipnoise-go/internal/segments"
	"github.com/shipnoise/shipnoise-go/internal/shipstatic"
	"github.com/shipnoise/shipnoise-go/internal/timeindex"
	"github.com/shipnoise/shipnoise-go/internal/transit"
	"github.com/shipnoise/shipnoise-go/internal/window"
)

// Runner executes pipeline stages for one station at a time. Stages are
// sequential and every output is keyed by (station, day), so re-running a
// stage overwrites its artifacts deterministically.
type Runner struct {
	settings *conf.Settings
	paths    Paths
	store    datastore.Interface
	log      *slog.Logger
}

// New builds a runner. The store may be nil when no database output is
// enabled.
func New(settings *conf.Settings, store datastore.Interface, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		settings: settings,
		paths:    Paths{Root: settings.Data.Root},
		store:    store,
		log:      log,
	}
}

func (r *Runner) station(site string) (*conf.StationSettings, error) {
	st, ok := r.settings.Station(site)
	if !ok {
		return nil, fmt.Errorf("unknown station: %s", site)
	}
	return st, nil
}

// RunTransits extracts transits from the day's raw AIS captures, one output
// CSV per input file. A missing day directory logs and returns nil so multi
// day runs keep going.
func (r *Runner) RunTransits(ctx context.Context, site, day string) error {
	st, err := r.station(site)
	if err != nil {
		return err
	}

	inputs, err := filepath.Glob(filepath.Join(r.paths.DayDir(site, day), "ais_raw_*.jsonl"))
	if err != nil {
		return fmt.Errorf("listing AIS captures: %w", err)
	}
	if len(inputs) == 0 {
		r.log.Warn("no AIS captures for station-day", "site", site, "day", day)
		return nil
	}

	cache := shipstatic.NewFileRepository(r.paths.StaticCache(site))
	if err := cache.Load(); err != nil {
		r.log.Warn("static cache unreadable, starting empty", "site", site, "error", err)
	}

	e := r.settings.Extractor
	extractor := transit.NewExtractor(transit.Config{
		RadiusM:      e.RadiusM,
		CPAMaxM:      e.CPAMaxM,
		MinSogKt:     e.MinSogKt,
		MinPoints:    e.MinPoints,
		MinDwell:     time.Duration(e.MinDwellSec) * time.Second,
		HighQualityM: e.HighQualityM,
	}, transit.Station{
		Name:      st.Name,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
	}, cache, r.log)

	outDir := r.paths.TransitsDir(site, day)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating transits directory: %w", err)
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(input)
		if err != nil {
			r.log.Error("cannot open AIS capture", "path", input, "error", err)
			continue
		}
		transits, stats, err := extractor.ExtractStream(f)
		f.Close()
		if err != nil {
			r.log.Error("extraction failed", "path", input, "error", err)
			continue
		}
		r.log.Info("extracted transits", "path", input, "transits", len(transits),
			"positions", stats.Positions, "static", stats.Statics, "bad_lines", stats.DecodeErrs)

		outPath := filepath.Join(outDir, transitsFileName(input))
		if err := writeFileCSV(outPath, func(f *os.File) error {
			return transit.WriteCSV(f, transits)
		}); err != nil {
			return err
		}
	}

	if err := cache.Save(); err != nil {
		r.log.Error("saving static cache", "site", site, "error", err)
	}
	return nil
}

// RunMatch windows every extracted transit file against the day's segment
// index. A missing index still produces output rows, all marked as having no
// segments.
func (r *Runner) RunMatch(ctx context.Context, site, day string) error {
	st, err := r.station(site)
	if err != nil {
		return err
	}
	idx, err := r.loadIndex(site, st.Slug, day)
	if err != nil {
		return err
	}

	inputs, err := filepath.Glob(filepath.Join(r.paths.TransitsDir(site, day), "*_transits.csv"))
	if err != nil {
		return fmt.Errorf("listing transit tables: %w", err)
	}
	if len(inputs) == 0 {
		r.log.Warn("no transit tables for station-day", "site", site, "day", day)
		return nil
	}

	matcher := window.NewMatcher(idx,
		time.Duration(r.settings.Window.HalfWindowSec)*time.Second)

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		transits, err := readTransitsFile(input)
		if err != nil {
			r.log.Error("cannot read transit table", "path", input, "error", err)
			continue
		}
		matches := matcher.MatchAll(transits)

		outPath := strings.TrimSuffix(input, "_transits.csv") + "_windowed.csv"
		if err := writeFileCSV(outPath, func(f *os.File) error {
			return window.WriteCSV(f, matches)
		}); err != nil {
			return err
		}
		r.log.Info("windowed transits", "path", outPath, "rows", len(matches))
	}
	return nil
}

// RunMerge merges the day's windowed tables into one relevance-filtered,
// deduplicated table.
func (r *Runner) RunMerge(ctx context.Context, site, day string) error {
	if _, err := r.station(site); err != nil {
		return err
	}
	inputs, err := filepath.Glob(filepath.Join(r.paths.TransitsDir(site, day), "*_windowed.csv"))
	if err != nil {
		return fmt.Errorf("listing windowed tables: %w", err)
	}
	if len(inputs) == 0 {
		r.log.Warn("no windowed tables for station-day", "site", site, "day", day)
		return nil
	}

	var all []window.Match
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(input)
		if err != nil {
			r.log.Error("cannot open windowed table", "path", input, "error", err)
			continue
		}
		matches, err := window.ReadCSV(f)
		f.Close()
		if err != nil {
			r.log.Error("cannot read windowed table", "path", input, "error", err)
			continue
		}
		all = append(all, matches...)
	}

	filter := relevance.NewFilter(r.ceilingOverrides(), r.log)
	merged := filter.MergeAndDedup(all)

	if err := os.MkdirAll(r.paths.OutputDir(site, day), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	outPath := r.paths.MergedCSV(site, day)
	if err := writeFileCSV(outPath, func(f *os.File) error {
		return window.WriteCSV(f, merged)
	}); err != nil {
		return err
	}
	r.log.Info("merged detection candidates", "path", outPath, "rows", len(merged))
	return nil
}

// RunClips fetches and analyzes audio for every merged candidate, writing
// clips, the summary table and database rows for confirmed detections.
func (r *Runner) RunClips(ctx context.Context, site, day string) error {
	st, err := r.station(site)
	if err != nil {
		return err
	}
	mergedPath := r.paths.MergedCSV(site, day)
	f, err := os.Open(mergedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.log.Warn("no merged table for station-day", "site", site, "day", day)
			return nil
		}
		return fmt.Errorf("opening merged table: %w", err)
	}
	matches, err := window.ReadCSV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("reading merged table: %w", err)
	}

	idx, err := r.loadIndex(site, st.Slug, day)
	if err != nil {
		return err
	}
	workDir := r.paths.SegmentsDir(site, day)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating segments directory: %w", err)
	}

	c := r.settings.Clips
	fetcher := segments.NewFetcher(nil, st.BaseURL(), segments.RetryPolicy{
		MaxAttempts: c.RetryAttempts,
		Backoff:     time.Duration(c.RetryBackoffSec) * time.Second,
	}, r.log)
	decoder := segments.NewDecoder(c.FfmpegPath, c.SampleRate)
	stage := segments.NewStage(fetcher, decoder, idx,
		segments.Mode(c.Mode), segments.ProfileByName(st.ThresholdProfile),
		workDir, r.paths.OutputDir(site, day), r.log)

	detections, err := stage.ProcessAll(ctx, matches, day)
	if err != nil {
		return err
	}

	outPath := r.paths.SummaryCSV(site, day)
	if err := writeFileCSV(outPath, func(f *os.File) error {
		return segments.WriteSummary(f, detections)
	}); err != nil {
		return err
	}
	r.log.Info("wrote detection summary", "path", outPath, "detections", len(detections))

	if r.store != nil {
		for i := range detections {
			row := toStoreDetection(&detections[i], st.Bucket)
			if err := r.store.Save(&row); err != nil {
				r.log.Error("saving detection", "id", row.ID, "error", err)
			}
		}
	}
	return nil
}

// RunDay runs all stages for one station-day.
func (r *Runner) RunDay(ctx context.Context, site, day string) error {
	if _, err := ParseDay(day); err != nil {
		return err
	}
	stages := []func(context.Context, string, string) error{
		r.RunTransits, r.RunMatch, r.RunMerge, r.RunClips,
	}
	for _, stage := range stages {
		if err := stage(ctx, site, day); err != nil {
			return err
		}
	}
	return nil
}

// RunAll runs every day directory found for the station, oldest first.
// Per-day failures log and move on.
func (r *Runner) RunAll(ctx context.Context, site string) error {
	days, err := r.paths.Days(site)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		r.log.Warn("no day directories for station", "site", site)
		return nil
	}
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.RunDay(ctx, site, day); err != nil {
			r.log.Error("station-day failed", "site", site, "day", day, "error", err)
		}
	}
	return nil
}

// loadIndex builds the day's segment index view. A missing index degrades to
// an empty one so downstream stages still emit explicit no-segment rows.
func (r *Runner) loadIndex(site, slug, day string) (*timeindex.Index, error) {
	dayT, err := ParseDay(day)
	if err != nil {
		return nil, err
	}
	loc := &timeindex.Locator{
		SiteKey:   slug,
		SiteDir:   r.paths.SiteTimestampsDir(site),
		GlobalDir: r.paths.GlobalTimestampsDir(),
	}
	idx, err := timeindex.LoadDay(loc, dayT, r.log)
	if err != nil {
		if errors.Is(err, timeindex.ErrNoIndex) {
			r.log.Warn("no segment index for station-day", "site", site, "day", day)
			return timeindex.New(nil), nil
		}
		return nil, err
	}
	return idx, nil
}

// ceilingOverrides assembles the per-station relevance ceilings, with the
// configured station-independent set as the fallback.
func (r *Runner) ceilingOverrides() map[string]relevance.Ceilings {
	overrides := map[string]relevance.Ceilings{
		"": {
			DefaultM: r.settings.Relevance.DefaultM,
			LargeM:   r.settings.Relevance.LargeM,
			SmallM:   r.settings.Relevance.SmallM,
		},
	}
	for i := range r.settings.Stations {
		st := &r.settings.Stations[i]
		if st.Ceilings == nil {
			continue
		}
		overrides[st.Name] = relevance.Ceilings{
			DefaultM: st.Ceilings.DefaultM,
			LargeM:   st.Ceilings.LargeM,
			SmallM:   st.Ceilings.SmallM,
		}
	}
	return overrides
}

// transitsFileName maps ais_raw_<tag>.jsonl to <tag>_transits.csv.
func transitsFileName(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), ".jsonl")
	base = strings.TrimPrefix(base, "ais_raw_")
	return base + "_transits.csv"
}

func readTransitsFile(path string) ([]transit.Transit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return transit.ReadCSV(f)
}

// writeFileCSV writes a stage artifact via a temporary file so partial
// output never replaces a previous run's table.
func writeFileCSV(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary table file: %w", err)
	}
	tmpName := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// toStoreDetection converts a pipeline detection into its database row.
func toStoreDetection(d *segments.Detection, bucket string) datastore.Detection {
	details, _ := json.Marshal(d.MergedSegs)
	return datastore.Detection{
		ID:              datastore.DetectionID(d.SiteName, d.Date, d.MMSI, d.ClipPath),
		Date:            d.Date,
		Site:            d.SiteName,
		Bucket:          bucket,
		MMSI:            d.MMSI,
		ShipName:        d.ShipName,
		TCPA:            d.TCPA,
		CPADistanceM:    d.CPADistanceM,
		Confidence:      string(d.Confidence),
		SegmentRange:    d.SegmentRange,
		LoudestSegment:  d.LoudestSeg,
		SegmentDetails:  string(details),
		MeanVolumeDB:    metricPtr(d.Clip.MeanDB),
		MaxVolumeDB:     metricPtr(d.Clip.MaxDB),
		LowFreqRatio:    metricPtr(d.Clip.LowFreqRatio),
		SpectralEntropy: metricPtr(d.Clip.SpectralEntropy),
		ShipNoiseIndex:  metricPtr(d.Clip.ShipNoiseIndex),
		SegmentRMS:      metricPtr(d.SegmentRMS),
		ClipPath:        d.ClipPath,
	}
}

func metricPtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
