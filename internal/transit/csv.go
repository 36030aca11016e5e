package transit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Columns is the transit CSV header. The column set is a compatibility
// contract with downstream stages and must round-trip unchanged.
var Columns = []string{
	"mmsi", "shipname", "shiptype", "draught", "length_m", "width_m",
	"t_entry", "t_cpa", "t_exit", "transit_duration_min", "cpa_distance_m",
	"sog_at_cpa", "cog_at_cpa", "heading_at_cpa", "cpa_lat", "cpa_lon",
	"relative_bearing_deg", "quality_tag", "site_name",
}

const timeLayout = "2006-01-02T15:04:05Z"

// WriteCSV writes transits with the standard header. Output is fully
// deterministic given the same input ordering.
func WriteCSV(w io.Writer, transits []Transit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i := range transits {
		if err := cw.Write(EncodeRow(&transits[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a transit CSV produced by WriteCSV. Rows missing required
// fields (mmsi, t_cpa, cpa_distance_m, site_name) are rejected with an error
// naming the row, rather than propagated as empty values.
func ReadCSV(r io.Reader) ([]Transit, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading transit header: %w", err)
	}
	idx := indexColumns(header)

	var transits []Transit
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading transit row %d: %w", row, err)
		}
		row++
		tr, err := DecodeRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("transit row %d: %w", row, err)
		}
		transits = append(transits, tr)
	}
	return transits, nil
}

// indexColumns maps column names to positions so extended schemas (windowed
// and merged files share the transit columns) decode with the same code.
func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

// EncodeRow renders one transit in the canonical column order. The window
// stage reuses it to keep the shared columns byte-identical across stages.
func EncodeRow(t *Transit) []string {
	return []string{
		t.MMSI,
		t.ShipName,
		t.ShipType,
		fmtOpt(t.Draught, 1),
		fmtOpt(t.LengthM, 0),
		fmtOpt(t.WidthM, 0),
		t.TEntry.UTC().Format(timeLayout),
		t.TCPA.UTC().Format(timeLayout),
		t.TExit.UTC().Format(timeLayout),
		strconv.FormatFloat(t.DurationMin, 'f', 2, 64),
		strconv.FormatFloat(t.CPADistanceM, 'f', 1, 64),
		fmtOpt(t.SogAtCPA, 1),
		fmtOpt(t.CogAtCPA, 1),
		fmtOpt(t.HeadingAtCPA, 0),
		strconv.FormatFloat(t.CPALat, 'f', 6, 64),
		strconv.FormatFloat(t.CPALon, 'f', 6, 64),
		strconv.FormatFloat(t.RelativeBearingDeg, 'f', 1, 64),
		t.QualityTag,
		t.SiteName,
	}
}

// DecodeRow builds a Transit from one CSV record using the header index.
// Exported because the window and relevance stages decode the shared transit
// columns out of their wider schemas.
func DecodeRow(rec []string, idx map[string]int) (Transit, error) {
	get := func(name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var t Transit
	t.MMSI = get("mmsi")
	if t.MMSI == "" {
		return Transit{}, fmt.Errorf("missing required field mmsi")
	}
	t.SiteName = get("site_name")
	if t.SiteName == "" {
		return Transit{}, fmt.Errorf("missing required field site_name")
	}

	var ok bool
	if t.TCPA, ok = parseTime(get("t_cpa")); !ok {
		return Transit{}, fmt.Errorf("missing or invalid t_cpa %q", get("t_cpa"))
	}
	cpaDist := get("cpa_distance_m")
	if cpaDist == "" {
		return Transit{}, fmt.Errorf("missing required field cpa_distance_m")
	}
	var err error
	if t.CPADistanceM, err = strconv.ParseFloat(cpaDist, 64); err != nil {
		return Transit{}, fmt.Errorf("invalid cpa_distance_m %q: %w", cpaDist, err)
	}

	t.TEntry, _ = parseTime(get("t_entry"))
	t.TExit, _ = parseTime(get("t_exit"))
	t.ShipName = get("shipname")
	t.ShipType = get("shiptype")
	t.Draught = parseOpt(get("draught"))
	t.LengthM = parseOpt(get("length_m"))
	t.WidthM = parseOpt(get("width_m"))
	t.DurationMin = parseFloat(get("transit_duration_min"))
	t.SogAtCPA = parseOpt(get("sog_at_cpa"))
	t.CogAtCPA = parseOpt(get("cog_at_cpa"))
	t.HeadingAtCPA = parseOpt(get("heading_at_cpa"))
	t.CPALat = parseFloat(get("cpa_lat"))
	t.CPALon = parseFloat(get("cpa_lon"))
	t.RelativeBearingDeg = parseFloat(get("relative_bearing_deg"))
	t.QualityTag = get("quality_tag")
	return t, nil
}

func fmtOpt(v *float64, digits int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', digits, 64)
}

func parseOpt(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
