package window

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shipnoise/shipnoise-go/internal/transit"
)

// extraColumns extends the transit schema for windowed output.
var extraColumns = []string{"match_status", "segment_count", "segment_range"}

// Columns is the windowed CSV header: the transit contract plus the match
// columns.
var Columns = append(append([]string{}, transit.Columns...), extraColumns...)

// WriteCSV writes matches with the windowed header.
func WriteCSV(w io.Writer, matches []Match) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i := range matches {
		m := &matches[i]
		row := transit.EncodeRow(&m.Transit)
		row = append(row, m.Status, strconv.Itoa(m.SegmentCount), m.SegmentRange)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a windowed CSV back into matches, validating the transit
// required fields per row.
func ReadCSV(r io.Reader) ([]Match, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading windowed header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}

	get := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var matches []Match
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading windowed row %d: %w", row, err)
		}
		row++

		tr, err := transit.DecodeRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("windowed row %d: %w", row, err)
		}
		m := Match{
			Transit:      tr,
			Status:       get(rec, "match_status"),
			SegmentRange: get(rec, "segment_range"),
		}
		if c := get(rec, "segment_count"); c != "" {
			if m.SegmentCount, err = strconv.Atoi(c); err != nil {
				return nil, fmt.Errorf("windowed row %d: invalid segment_count %q", row, c)
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}
