package segments

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// SummaryColumns is the header of the per-day merged detection table.
var SummaryColumns = []string{
	"date",
	"site",
	"mmsi",
	"shipname",
	"t_cpa",
	"cpa_distance_m",
	"segment_range",
	"loudest_seg",
	"merged_segs",
	"seg_start",
	"seg_end",
	"mean_volume_db",
	"max_volume_db",
	"lowfreq_ratio",
	"spectral_entropy",
	"ship_noise_index",
	"acoustic_confidence",
	"output_audio",
	"segment_rms",
}

const summaryTimeLayout = "2006-01-02T15:04:05Z"

// WriteSummary writes the merged detection table, header first, rows in
// input order.
func WriteSummary(w io.Writer, detections []Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryColumns); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}
	for i := range detections {
		d := &detections[i]
		row := []string{
			d.Date,
			d.SiteName,
			d.MMSI,
			d.ShipName,
			d.TCPA.UTC().Format(summaryTimeLayout),
			strconv.FormatFloat(d.CPADistanceM, 'f', 1, 64),
			d.SegmentRange,
			d.LoudestSeg,
			strings.Join(d.MergedSegs, ";"),
			fmtTime(d.SegStart),
			fmtTime(d.SegEnd),
			fmtMetric(d.Clip.MeanDB, 2),
			fmtMetric(d.Clip.MaxDB, 2),
			fmtMetric(d.Clip.LowFreqRatio, 4),
			fmtMetric(d.Clip.SpectralEntropy, 4),
			fmtMetric(d.Clip.ShipNoiseIndex, 4),
			string(d.Confidence),
			d.ClipPath,
			fmtMetric(d.SegmentRMS, 6),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing summary row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(summaryTimeLayout)
}

func fmtMetric(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
