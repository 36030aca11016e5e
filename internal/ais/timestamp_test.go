package ais

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 11, 3, 8, 15, 42, 0, time.UTC)
	wantFrac := time.Date(2024, 11, 3, 8, 15, 42, 123456000, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"plain", "2024-11-03 08:15:42", want, true},
		{"utc suffix", "2024-11-03 08:15:42 UTC", want, true},
		{"numeric zone", "2024-11-03 08:15:42+0000", want, true},
		{"fraction and zone", "2024-11-03 08:15:42.123456 UTC", wantFrac, true},
		{"short fraction", "2024-11-03 08:15:42.123", time.Date(2024, 11, 3, 8, 15, 42, 123000000, time.UTC), true},
		{"nanosecond fraction truncated", "2024-11-03 08:15:42.123456789 +0000 UTC", wantFrac, true},
		{"empty", "", time.Time{}, false},
		{"garbage", "not a timestamp", time.Time{}, false},
		{"date only", "2024-11-03", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestDecodeEnvelopePositionReport(t *testing.T) {
	t.Parallel()

	line := []byte(`{"MessageType":"PositionReport","MetaData":{"MMSI":366123456,"ShipName":"EVERGREEN @@ ","latitude":48.1,"longitude":-122.7,"time_utc":"2024-11-03 08:15:42.123 UTC"},"Message":{"PositionReport":{"Sog":12.3,"Cog":181.5,"TrueHeading":180}}}`)

	env, err := DecodeEnvelope(line)
	require.NoError(t, err)
	assert.Equal(t, TypePositionReport, env.MessageType)
	assert.Equal(t, int64(366123456), env.MetaData.MMSI)
	assert.Equal(t, "EVERGREEN", env.MetaData.CleanShipName())

	pos, err := env.Position()
	require.NoError(t, err)
	require.NotNil(t, pos.Sog)
	assert.InDelta(t, 12.3, *pos.Sog, 1e-9)
}

func TestDecodeEnvelopeStatic(t *testing.T) {
	t.Parallel()

	line := []byte(`{"MessageType":"ShipStaticData","MetaData":{"MMSI":366123456,"time_utc":"2024-11-03 08:15:42"},"Message":{"ShipStaticData":{"Name":"EVERGREEN","Type":70,"MaximumStaticDraught":9.5,"Dimension":{"A":200,"B":94,"C":20,"D":25}}}}`)

	env, err := DecodeEnvelope(line)
	require.NoError(t, err)
	static, err := env.Static()
	require.NoError(t, err)
	assert.Equal(t, 70, static.Type)
	assert.InDelta(t, 9.5, static.MaximumStaticDraught, 1e-9)
	assert.InDelta(t, 294, static.Dimension.A+static.Dimension.B, 1e-9)
}

func TestDecodeFileMeta(t *testing.T) {
	t.Parallel()

	meta := DecodeFileMeta([]byte(`{"_meta":{"site":"Bush_Point","latitude":48.0336,"longitude":-122.6086,"radius_km":30}}`))
	require.NotNil(t, meta)
	assert.Equal(t, "Bush_Point", meta.Site)

	assert.Nil(t, DecodeFileMeta([]byte(`{"MessageType":"PositionReport"}`)))
	assert.Nil(t, DecodeFileMeta([]byte(`not json`)))
}
