// Package ais decodes newline-delimited aisstream.io JSON messages and the
// tolerant AIS timestamp formats they carry.
package ais

import (
	"encoding/json"
	"strings"
)

// Message type tags used on the wire.
const (
	TypePositionReport = "PositionReport"
	TypeShipStaticData = "ShipStaticData"
)

// FileMeta is the optional first line of a raw capture file, describing the
// station the collector was subscribed for.
type FileMeta struct {
	Site      string  `json:"site"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

type metaLine struct {
	Meta *FileMeta `json:"_meta"`
}

// Envelope is one raw feed line. Message payloads are decoded lazily since
// most lines are position reports and only two types matter.
type Envelope struct {
	MessageType string          `json:"MessageType"`
	MetaData    MetaData        `json:"MetaData"`
	Message     json.RawMessage `json:"Message"`
}

// MetaData is the per-message metadata block aisstream attaches to every
// message regardless of type.
type MetaData struct {
	MMSI      int64   `json:"MMSI"`
	ShipName  string  `json:"ShipName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeUTC   string  `json:"time_utc"`
}

// PositionReport is the kinematic payload of a PositionReport message.
// Sog/Cog/TrueHeading use pointers so absent fields survive as unknowns
// instead of zeros.
type PositionReport struct {
	Sog         *float64 `json:"Sog"`
	Cog         *float64 `json:"Cog"`
	TrueHeading *float64 `json:"TrueHeading"`
}

// Dimension carries the reference-point offsets a vessel reports; length is
// A+B (bow+stern) and beam is C+D (port+starboard).
type Dimension struct {
	A float64 `json:"A"`
	B float64 `json:"B"`
	C float64 `json:"C"`
	D float64 `json:"D"`
}

// ShipStaticData is the voyage/static payload of a ShipStaticData message.
type ShipStaticData struct {
	Name                 string    `json:"Name"`
	ImoNumber            int64     `json:"ImoNumber"`
	Type                 int       `json:"Type"`
	MaximumStaticDraught float64   `json:"MaximumStaticDraught"`
	Dimension            Dimension `json:"Dimension"`
}

type messagePayload struct {
	PositionReport *PositionReport `json:"PositionReport"`
	ShipStaticData *ShipStaticData `json:"ShipStaticData"`
}

// DecodeEnvelope parses one feed line. A malformed line returns an error;
// callers are expected to count and skip, never abort the file.
func DecodeEnvelope(line []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeFileMeta parses the optional leading metadata line. It returns nil
// when the line is not a metadata line, so callers can fall back to
// configured station coordinates.
func DecodeFileMeta(line []byte) *FileMeta {
	var ml metaLine
	if err := json.Unmarshal(line, &ml); err != nil {
		return nil
	}
	return ml.Meta
}

// Position decodes the PositionReport payload of the envelope.
func (e *Envelope) Position() (*PositionReport, error) {
	var p messagePayload
	if err := json.Unmarshal(e.Message, &p); err != nil {
		return nil, err
	}
	if p.PositionReport == nil {
		return &PositionReport{}, nil
	}
	return p.PositionReport, nil
}

// Static decodes the ShipStaticData payload of the envelope.
func (e *Envelope) Static() (*ShipStaticData, error) {
	var p messagePayload
	if err := json.Unmarshal(e.Message, &p); err != nil {
		return nil, err
	}
	if p.ShipStaticData == nil {
		return &ShipStaticData{}, nil
	}
	return p.ShipStaticData, nil
}

// ShipName returns the per-message ship name with surrounding whitespace
// and the @ padding AIS transponders emit stripped.
func (m *MetaData) CleanShipName() string {
	return strings.TrimSpace(strings.Trim(m.ShipName, "@ "))
}
