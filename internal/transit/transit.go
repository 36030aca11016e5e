// Package transit turns a raw AIS position-report stream into qualified
// vessel transits near a hydrophone station.
package transit

import (
	"time"
)

// Quality tags assigned at extraction time.
const (
	QualityHigh   = "high-quality"
	QualityNormal = "normal"
)

// Transit is one vessel pass near a station that satisfied the entry, dwell
// and closest-point-of-approach criteria. Optional numerics are nil when the
// vessel never reported them.
type Transit struct {
	MMSI               string
	ShipName           string
	ShipType           string
	Draught            *float64
	LengthM            *float64
	WidthM             *float64
	TEntry             time.Time
	TCPA               time.Time
	TExit              time.Time
	DurationMin        float64
	CPADistanceM       float64
	SogAtCPA           *float64
	CogAtCPA           *float64
	HeadingAtCPA       *float64
	CPALat             float64
	CPALon             float64
	RelativeBearingDeg float64
	QualityTag         string
	SiteName           string
}

// Station is the listening post transits are computed against.
type Station struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Config tunes the extraction filters. Zero values are not usable; callers
// populate it from settings defaults.
type Config struct {
	RadiusM      float64       // subscription radius, points beyond it are dropped
	CPAMaxM      float64       // acoustically plausible CPA ceiling
	MinSogKt     float64       // minimum speed over ground; missing SOG passes
	MinPoints    int           // minimum qualifying points per vessel
	MinDwell     time.Duration // minimum time between first and last point
	HighQualityM float64       // CPA below this tags the transit high-quality
}

// Stats counts what happened to a single input file.
type Stats struct {
	Positions  int
	Statics    int
	Others     int
	DecodeErrs int
	Incomplete int // position reports missing coordinates or time
}
