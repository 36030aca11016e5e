package segments

import "math"

// Confidence is the ordered acoustic-confidence outcome.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Profile is a station threshold table for confidence classification. A
// clip earns a tier when either its low-frequency ratio or its band level
// difference clears the tier's threshold. Stations without a usable low
// tier (HasLow false) fold would-be lows into none.
type Profile struct {
	HighRatio    float64
	HighDeltaL   float64
	MediumRatio  float64
	MediumDeltaL float64
	LowRatio     float64
	LowDeltaL    float64
	HasLow       bool
}

// DefaultProfile is the stock threshold table. Its low tier is disabled:
// clips that clear neither the high nor medium bar are not worth keeping at
// a quiet station.
func DefaultProfile() Profile {
	return Profile{
		HighRatio:    5,
		HighDeltaL:   6,
		MediumRatio:  0.5,
		MediumDeltaL: -1,
	}
}

// PermissiveProfile is the threshold table for stations with a noisier
// ambient baseline, where vessels are detectable farther out and weaker
// spectral signatures are still meaningful.
func PermissiveProfile() Profile {
	return Profile{
		HighRatio:    2,
		HighDeltaL:   4,
		MediumRatio:  0.2,
		MediumDeltaL: -2,
		LowRatio:     0.05,
		LowDeltaL:    -8,
		HasLow:       true,
	}
}

// ProfileByName resolves a configured profile name; unknown names fall back
// to the default table.
func ProfileByName(name string) Profile {
	if name == "permissive" {
		return PermissiveProfile()
	}
	return DefaultProfile()
}

// Classify derives the confidence tag from the assembled clip's spectral
// ratio and delta-L. A NaN ratio always classifies as none.
func Classify(ratio, deltaL float64, p Profile) Confidence {
	if math.IsNaN(ratio) {
		return ConfidenceNone
	}
	exceeds := func(r, d float64) bool {
		return ratio > r || (!math.IsNaN(deltaL) && deltaL > d)
	}
	switch {
	case exceeds(p.HighRatio, p.HighDeltaL):
		return ConfidenceHigh
	case exceeds(p.MediumRatio, p.MediumDeltaL):
		return ConfidenceMedium
	case p.HasLow && exceeds(p.LowRatio, p.LowDeltaL):
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}
