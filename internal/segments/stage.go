package segments

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shipnoise/shipnoise-go/internal/timeindex"
	"github.com/shipnoise/shipnoise-go/internal/window"
)

// Detection is one vessel transit that survived acoustic analysis: the
// stitched clip on disk plus its measurements and confidence tag.
type Detection struct {
	window.Match

	Date       string // yyyymmdd
	LoudestSeg string
	MergedSegs []string
	SegStart   time.Time // zero when the selection extends past the index
	SegEnd     time.Time
	SegmentRMS float64 // RMS of the loudest candidate segment
	Clip       Features
	Confidence Confidence
	ClipPath   string
}

// Stage runs the per-detection acoustic pipeline: secure the windowed
// segments, find the loudest, assemble the clip per the configured mode,
// classify it, and keep or discard the result.
type Stage struct {
	fetcher *Fetcher
	decoder *Decoder
	index   *timeindex.Index
	mode    Mode
	profile Profile
	workDir string // downloaded .ts and intermediate .wav files
	clipDir string // kept output clips
	log     *slog.Logger
}

// NewStage wires a stage. An unrecognized mode falls back to adjacent
// merging.
func NewStage(fetcher *Fetcher, decoder *Decoder, index *timeindex.Index,
	mode Mode, profile Profile, workDir, clipDir string, log *slog.Logger) *Stage {
	if mode != ModeStrict {
		mode = ModeAdjacent
	}
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		fetcher: fetcher,
		decoder: decoder,
		index:   index,
		mode:    mode,
		profile: profile,
		workDir: workDir,
		clipDir: clipDir,
		log:     log,
	}
}

// candidate is one secured segment with its loudness.
type candidate struct {
	ref timeindex.Ref
	rms float64
}

// Process analyzes one windowed match for the given day. A nil detection
// with a nil error means the match was skipped or discarded, never a failed
// run: missing segments, unusable windows, and no-confidence clips all log
// and move on.
func (s *Stage) Process(ctx context.Context, m *window.Match, day string) (*Detection, error) {
	if m.Status != window.StatusFound {
		return nil, nil
	}
	refs := Refs(ParseRanges(m.SegmentRange))
	if len(refs) == 0 {
		s.log.Warn("unparseable segment range", "mmsi", m.MMSI, "range", m.SegmentRange)
		return nil, nil
	}

	secured := make(map[timeindex.Ref]string)
	secure := func(ref timeindex.Ref) (string, bool) {
		if path, ok := secured[ref]; ok {
			return path, ok
		}
		path, err := s.fetcher.Fetch(ctx, ref, s.workDir)
		if err != nil {
			return "", false
		}
		secured[ref] = path
		return path, true
	}

	loudest, ok := s.loudestCandidate(ctx, refs, secure)
	if !ok {
		s.log.Warn("no usable segments for detection", "mmsi", m.MMSI, "range", m.SegmentRange)
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sel Selection
	switch s.mode {
	case ModeStrict:
		var err error
		sel, err = SelectStrict(loudest.ref, secure)
		if err != nil {
			s.log.Info("discarding detection", "mmsi", m.MMSI,
				"center", timeindex.FormatRef(loudest.ref), "reason", err)
			return nil, nil
		}
	default:
		sel, ok = SelectAdjacent(loudest.ref, s.index, secure)
		if !ok {
			return nil, nil
		}
	}

	clipPath := filepath.Join(s.clipDir, clipName(m.MMSI, day, m.TCPA))
	if err := s.decoder.Stitch(ctx, sel.Paths, clipPath); err != nil {
		return nil, fmt.Errorf("assembling clip for %s: %w", m.MMSI, err)
	}
	samples, rate, err := ReadWavMono(clipPath)
	if err != nil {
		os.Remove(clipPath)
		return nil, fmt.Errorf("reading clip for %s: %w", m.MMSI, err)
	}
	feats := Measure(samples, rate)
	conf := Classify(feats.LowFreqRatio, feats.DeltaL, s.profile)
	if conf == ConfidenceNone {
		s.log.Info("no acoustic confidence, dropping clip", "mmsi", m.MMSI,
			"ratio", feats.LowFreqRatio, "delta_l", feats.DeltaL)
		os.Remove(clipPath)
		return nil, nil
	}

	d := &Detection{
		Match:      *m,
		Date:       day,
		LoudestSeg: timeindex.FormatRef(loudest.ref),
		SegmentRMS: loudest.rms,
		Clip:       feats,
		Confidence: conf,
		ClipPath:   clipPath,
	}
	for _, ref := range sel.Refs {
		d.MergedSegs = append(d.MergedSegs, timeindex.FormatRef(ref))
	}
	if seg, ok := s.index.Lookup(sel.Refs[0]); ok {
		d.SegStart = seg.Start
	}
	if seg, ok := s.index.Lookup(sel.Refs[len(sel.Refs)-1]); ok {
		d.SegEnd = seg.End
	}
	s.log.Info("detection kept", "mmsi", m.MMSI, "confidence", string(conf),
		"clip", clipPath, "segments", strings.Join(d.MergedSegs, ","))
	return d, nil
}

// ProcessAll runs every match, collecting kept detections. Per-match errors
// abort only on context cancellation; otherwise they log and the run
// continues.
func (s *Stage) ProcessAll(ctx context.Context, matches []window.Match, day string) ([]Detection, error) {
	var out []Detection
	for i := range matches {
		d, err := s.Process(ctx, &matches[i], day)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.log.Error("detection failed", "mmsi", matches[i].MMSI, "error", err)
			continue
		}
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// loudestCandidate secures and measures each windowed segment, returning the
// one with the highest RMS. Segments that cannot be fetched or decoded are
// skipped.
func (s *Stage) loudestCandidate(ctx context.Context, refs []timeindex.Ref, secure SecureFunc) (candidate, bool) {
	best := candidate{rms: math.Inf(-1)}
	found := false
	for _, ref := range refs {
		if ctx.Err() != nil {
			return candidate{}, false
		}
		tsPath, ok := secure(ref)
		if !ok {
			continue
		}
		wavPath, err := s.decoder.DecodeToWav(ctx, tsPath)
		if err != nil {
			s.log.Warn("segment decode failed", "segment", timeindex.FormatRef(ref), "error", err)
			continue
		}
		samples, rate, err := ReadWavMono(wavPath)
		if err != nil {
			s.log.Warn("segment unreadable", "segment", timeindex.FormatRef(ref), "error", err)
			continue
		}
		rms := Measure(samples, rate).RMS
		if math.IsNaN(rms) {
			continue
		}
		if rms > best.rms {
			best = candidate{ref: ref, rms: rms}
			found = true
		}
	}
	return best, found
}

// clipName is "<mmsi>_<yyyymmdd>_<hhmmss>.wav", the CPA time in UTC.
func clipName(mmsi, day string, tcpa time.Time) string {
	return fmt.Sprintf("%s_%s_%s.wav", mmsi, day, tcpa.UTC().Format("150405"))
}
