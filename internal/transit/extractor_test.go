package transit

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipnoise/shipnoise-go/internal/shipstatic"
)

var testStation = Station{Name: "Bush_Point", Latitude: 48.0336, Longitude: -122.6086}

func testConfig() Config {
	return Config{
		RadiusM:      30000,
		CPAMaxM:      20000,
		MinSogKt:     2,
		MinPoints:    3,
		MinDwell:     60 * time.Second,
		HighQualityM: 1000,
	}
}

type memRepo struct{ m map[string]shipstatic.Info }

func newMemRepo() *memRepo { return &memRepo{m: make(map[string]shipstatic.Info)} }

func (r *memRepo) Load() error { return nil }
func (r *memRepo) Get(mmsi string) (shipstatic.Info, bool) {
	v, ok := r.m[mmsi]
	return v, ok
}
func (r *memRepo) Put(mmsi string, info shipstatic.Info) { r.m[mmsi] = info }
func (r *memRepo) Save() error                           { return nil }

// posLine builds one PositionReport jsonl line at an offset north of the
// station. One degree of latitude is ~111 km.
func posLine(mmsi int64, ts string, latOffset float64, sog float64) string {
	return fmt.Sprintf(`{"MessageType":"PositionReport","MetaData":{"MMSI":%d,"ShipName":"TESTER","latitude":%.6f,"longitude":%.6f,"time_utc":"%s"},"Message":{"PositionReport":{"Sog":%.1f,"Cog":0,"TrueHeading":0}}}`,
		mmsi, testStation.Latitude+latOffset, testStation.Longitude, ts, sog)
}

func TestExtractStreamQualifiesTransit(t *testing.T) {
	t.Parallel()

	lines := []string{
		posLine(366000001, "2024-11-03 08:00:00", 0.10, 12), // ~11.1 km
		posLine(366000001, "2024-11-03 08:05:00", 0.05, 12), // ~5.6 km
		posLine(366000001, "2024-11-03 08:10:00", 0.02, 12), // ~2.2 km, CPA
		posLine(366000001, "2024-11-03 08:15:00", 0.06, 12),
	}
	ex := NewExtractor(testConfig(), testStation, newMemRepo(), nil)
	transits, stats, err := ex.ExtractStream(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Positions)
	require.Len(t, transits, 1)

	tr := transits[0]
	assert.Equal(t, "366000001", tr.MMSI)

	// CPA lies between entry and exit and equals the minimum distance seen.
	assert.False(t, tr.TCPA.Before(tr.TEntry))
	assert.False(t, tr.TCPA.After(tr.TExit))
	assert.Equal(t, time.Date(2024, 11, 3, 8, 10, 0, 0, time.UTC), tr.TCPA)
	assert.InDelta(t, 2225, tr.CPADistanceM, 50)
	assert.Equal(t, QualityNormal, tr.QualityTag)
	assert.InDelta(t, 15.0, tr.DurationMin, 0.01)
}

func TestExtractStreamSpeedFilter(t *testing.T) {
	t.Parallel()

	// All points below the SOG minimum: vessel is adrift, not transiting.
	lines := []string{
		posLine(366000002, "2024-11-03 08:00:00", 0.02, 0.5),
		posLine(366000002, "2024-11-03 08:05:00", 0.02, 0.4),
		posLine(366000002, "2024-11-03 08:10:00", 0.02, 0.3),
	}
	ex := NewExtractor(testConfig(), testStation, newMemRepo(), nil)
	transits, _, err := ex.ExtractStream(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Empty(t, transits)
}

func TestExtractStreamMissingSogPasses(t *testing.T) {
	t.Parallel()

	line := `{"MessageType":"PositionReport","MetaData":{"MMSI":366000003,"ShipName":"GHOST","latitude":%.6f,"longitude":%.6f,"time_utc":"%s"},"Message":{"PositionReport":{}}}`
	mk := func(ts string, latOffset float64) string {
		return fmt.Sprintf(line, testStation.Latitude+latOffset, testStation.Longitude, ts)
	}
	lines := []string{
		mk("2024-11-03 08:00:00", 0.05),
		mk("2024-11-03 08:05:00", 0.03),
		mk("2024-11-03 08:10:00", 0.04),
	}
	ex := NewExtractor(testConfig(), testStation, newMemRepo(), nil)
	transits, _, err := ex.ExtractStream(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.Len(t, transits, 1)
	assert.Nil(t, transits[0].SogAtCPA)
}

func TestExtractStreamMinPointsAndDwell(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(testConfig(), testStation, newMemRepo(), nil)

	// Two points only: below the minimum point count.
	few := []string{
		posLine(366000004, "2024-11-03 08:00:00", 0.02, 10),
		posLine(366000004, "2024-11-03 08:05:00", 0.03, 10),
	}
	transits, _, err := ex.ExtractStream(strings.NewReader(strings.Join(few, "\n")))
	require.NoError(t, err)
	assert.Empty(t, transits)

	// Three points inside 30 seconds: below the dwell minimum.
	quick := []string{
		posLine(366000005, "2024-11-03 08:00:00", 0.02, 10),
		posLine(366000005, "2024-11-03 08:00:10", 0.03, 10),
		posLine(366000005, "2024-11-03 08:00:30", 0.04, 10),
	}
	transits, _, err = ex.ExtractStream(strings.NewReader(strings.Join(quick, "\n")))
	require.NoError(t, err)
	assert.Empty(t, transits)
}

func TestExtractStreamCPACeiling(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.CPAMaxM = 3000
	// Minimum distance ~5.6 km, above the 3 km ceiling.
	lines := []string{
		posLine(366000006, "2024-11-03 08:00:00", 0.10, 10),
		posLine(366000006, "2024-11-03 08:05:00", 0.05, 10),
		posLine(366000006, "2024-11-03 08:10:00", 0.08, 10),
	}
	ex := NewExtractor(cfg, testStation, newMemRepo(), nil)
	transits, _, err := ex.ExtractStream(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Empty(t, transits)
}

func TestExtractStreamStaticDataEnrichment(t *testing.T) {
	t.Parallel()

	static := `{"MessageType":"ShipStaticData","MetaData":{"MMSI":366000007,"time_utc":"2024-11-03 07:59:00"},"Message":{"ShipStaticData":{"Name":"BIG BOX","Type":70,"MaximumStaticDraught":11.2,"Dimension":{"A":250,"B":50,"C":20,"D":23}}}}`
	lines := []string{
		static,
		posLine(366000007, "2024-11-03 08:00:00", 0.05, 14),
		posLine(366000007, "2024-11-03 08:05:00", 0.006, 14), // < 1 km, high quality
		posLine(366000007, "2024-11-03 08:10:00", 0.04, 14),
	}
	repo := newMemRepo()
	ex := NewExtractor(testConfig(), testStation, repo, nil)
	transits, stats, err := ex.ExtractStream(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Statics)
	require.Len(t, transits, 1)

	tr := transits[0]
	assert.Equal(t, "70", tr.ShipType)
	require.NotNil(t, tr.LengthM)
	assert.InDelta(t, 300, *tr.LengthM, 1e-9)
	assert.Equal(t, QualityHigh, tr.QualityTag)

	info, ok := repo.Get("366000007")
	require.True(t, ok)
	assert.Equal(t, "BIG BOX", info.Name)
}

func TestExtractStreamSkipsBadLines(t *testing.T) {
	t.Parallel()

	lines := []string{
		`{"_meta":{"site":"Bush_Point","latitude":48.0336,"longitude":-122.6086,"radius_km":30}}`,
		`this is not json`,
		posLine(366000008, "2024-11-03 08:00:00", 0.02, 10),
		`{"MessageType":"PositionReport","MetaData":{"MMSI":366000008,"latitude":48.05,"longitude":-122.6,"time_utc":"bogus"},"Message":{"PositionReport":{"Sog":10}}}`,
		posLine(366000008, "2024-11-03 08:05:00", 0.03, 10),
		posLine(366000008, "2024-11-03 08:10:00", 0.04, 10),
	}
	ex := NewExtractor(testConfig(), testStation, newMemRepo(), nil)
	transits, stats, err := ex.ExtractStream(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DecodeErrs)
	assert.Equal(t, 1, stats.Incomplete)
	require.Len(t, transits, 1)
	assert.Equal(t, "Bush_Point", transits[0].SiteName)
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	length := 294.0
	sog := 12.3
	in := []Transit{{
		MMSI:               "366000001",
		ShipName:           "EVERGREEN",
		ShipType:           "70",
		LengthM:            &length,
		TEntry:             time.Date(2024, 11, 3, 8, 0, 0, 0, time.UTC),
		TCPA:               time.Date(2024, 11, 3, 8, 10, 0, 0, time.UTC),
		TExit:              time.Date(2024, 11, 3, 8, 20, 0, 0, time.UTC),
		DurationMin:        20,
		CPADistanceM:       2225.5,
		SogAtCPA:           &sog,
		CPALat:             48.05,
		CPALon:             -122.6,
		RelativeBearingDeg: 12.5,
		QualityTag:         QualityNormal,
		SiteName:           "Bush_Point",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))

	out, err := ReadCSV(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in[0].MMSI, out[0].MMSI)
	assert.Equal(t, in[0].TCPA, out[0].TCPA)
	assert.InDelta(t, in[0].CPADistanceM, out[0].CPADistanceM, 1e-9)
	require.NotNil(t, out[0].LengthM)
	assert.InDelta(t, length, *out[0].LengthM, 1e-9)
	assert.Nil(t, out[0].WidthM)
}

func TestReadCSVRejectsMissingRequired(t *testing.T) {
	t.Parallel()

	csvData := "mmsi,t_cpa,cpa_distance_m,site_name\n,2024-11-03T08:10:00Z,1200.0,Bush_Point\n"
	_, err := ReadCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mmsi")
}
