package datastore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Detection is one confirmed vessel detection: a transit whose stitched clip
// carried an acoustic ship-noise signature.
type Detection struct {
	ID             string `gorm:"primaryKey"`
	Date           string `gorm:"index:idx_detections_site_date"`
	Site           string `gorm:"index:idx_detections_site_date"`
	Bucket         string
	MMSI           string `gorm:"index"`
	ShipName       string
	TCPA           time.Time
	CPADistanceM   float64
	Confidence     string
	SegmentRange   string
	LoudestSegment string
	SegmentDetails string // JSON array of stitched segment identifiers

	// Clip measurements; nil when the value could not be computed.
	MeanVolumeDB    *float64
	MaxVolumeDB     *float64
	LowFreqRatio    *float64
	SpectralEntropy *float64
	ShipNoiseIndex  *float64
	SegmentRMS      *float64

	ClipPath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DetectionID derives the deterministic row id for a detection so re-running
// a day upserts instead of duplicating.
func DetectionID(site, date, mmsi, clipPath string) string {
	name := fmt.Sprintf("%s|%s|%s|%s", site, date, mmsi, clipPath)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
