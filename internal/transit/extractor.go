package transit

import (
	"bufio"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/shipnoise/shipnoise-go/internal/ais"
	"github.com/shipnoise/shipnoise-go/internal/geo"
	"github.com/shipnoise/shipnoise-go/internal/shipstatic"
)

// point is one retained position report.
type point struct {
	shipName string
	t        time.Time
	lat, lon float64
	sog      *float64
	cog      *float64
	heading  *float64
	distM    float64
}

// Extractor consumes a raw feed stream and produces transits for one
// station. The static-data repository is injected so extraction runs share
// one persisted cache per station.
type Extractor struct {
	cfg     Config
	station Station
	cache   shipstatic.Repository
	log     *slog.Logger
}

// NewExtractor wires an extractor for one station.
func NewExtractor(cfg Config, station Station, cache shipstatic.Repository, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{cfg: cfg, station: station, cache: cache, log: log}
}

// ExtractStream reads one raw jsonl capture and returns the qualifying
// transits, sorted by MMSI for deterministic output. An optional leading
// _meta line overrides the configured station coordinates for this file.
// Malformed lines are counted and skipped, never fatal.
func (e *Extractor) ExtractStream(r io.Reader) ([]Transit, Stats, error) {
	var stats Stats

	station := e.station
	points := make(map[string][]point)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			if meta := ais.DecodeFileMeta(line); meta != nil {
				if meta.Latitude != 0 || meta.Longitude != 0 {
					station.Latitude = meta.Latitude
					station.Longitude = meta.Longitude
				}
				if meta.Site != "" {
					station.Name = meta.Site
				}
				continue
			}
		}

		env, err := ais.DecodeEnvelope(line)
		if err != nil {
			stats.DecodeErrs++
			continue
		}

		switch env.MessageType {
		case ais.TypeShipStaticData:
			stats.Statics++
			if env.MetaData.MMSI == 0 {
				continue
			}
			static, err := env.Static()
			if err != nil {
				stats.DecodeErrs++
				continue
			}
			e.cache.Put(strconv.FormatInt(env.MetaData.MMSI, 10), shipstatic.FromStatic(static))

		case ais.TypePositionReport:
			stats.Positions++
			t, ok := ais.ParseTimestamp(env.MetaData.TimeUTC)
			if !ok || (env.MetaData.Latitude == 0 && env.MetaData.Longitude == 0) {
				stats.Incomplete++
				continue
			}
			dist := geo.Distance(station.Latitude, station.Longitude, env.MetaData.Latitude, env.MetaData.Longitude)
			if dist > e.cfg.RadiusM {
				continue
			}
			pos, err := env.Position()
			if err != nil {
				stats.DecodeErrs++
				continue
			}
			mmsi := strconv.FormatInt(env.MetaData.MMSI, 10)
			points[mmsi] = append(points[mmsi], point{
				shipName: env.MetaData.CleanShipName(),
				t:        t,
				lat:      env.MetaData.Latitude,
				lon:      env.MetaData.Longitude,
				sog:      pos.Sog,
				cog:      pos.Cog,
				heading:  pos.TrueHeading,
				distM:    dist,
			})

		default:
			stats.Others++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, err
	}

	transits := e.qualify(points, station)
	e.log.Info("extracted transits",
		"site", station.Name,
		"positions", stats.Positions,
		"statics", stats.Statics,
		"others", stats.Others,
		"decode_errors", stats.DecodeErrs,
		"incomplete", stats.Incomplete,
		"transits", len(transits))
	return transits, stats, nil
}

// qualify applies the transit filters per vessel: speed, point count, dwell
// and the CPA ceiling, in that order.
func (e *Extractor) qualify(groups map[string][]point, station Station) []Transit {
	mmsis := make([]string, 0, len(groups))
	for mmsi := range groups {
		mmsis = append(mmsis, mmsi)
	}
	sort.Strings(mmsis)

	var transits []Transit
	for _, mmsi := range mmsis {
		pts := groups[mmsi]
		sort.Slice(pts, func(i, j int) bool { return pts[i].t.Before(pts[j].t) })

		// Vessels dead in the water are not transiting; missing SOG passes.
		qualifying := pts[:0:0]
		for _, p := range pts {
			if p.sog != nil && *p.sog < e.cfg.MinSogKt {
				continue
			}
			qualifying = append(qualifying, p)
		}
		if len(qualifying) < e.cfg.MinPoints {
			continue
		}

		entry := qualifying[0].t
		exit := qualifying[len(qualifying)-1].t
		if exit.Sub(entry) < e.cfg.MinDwell {
			continue
		}

		cpa := qualifying[0]
		for _, p := range qualifying[1:] {
			if p.distM < cpa.distM {
				cpa = p
			}
		}
		if cpa.distM > e.cfg.CPAMaxM {
			continue
		}

		tr := Transit{
			MMSI:               mmsi,
			ShipName:           cpa.shipName,
			TEntry:             entry,
			TCPA:               cpa.t,
			TExit:              exit,
			DurationMin:        roundTo(exit.Sub(entry).Minutes(), 2),
			CPADistanceM:       roundTo(cpa.distM, 1),
			SogAtCPA:           cpa.sog,
			CogAtCPA:           cpa.cog,
			HeadingAtCPA:       cpa.heading,
			CPALat:             cpa.lat,
			CPALon:             cpa.lon,
			RelativeBearingDeg: roundTo(geo.Bearing(station.Latitude, station.Longitude, cpa.lat, cpa.lon), 1),
			QualityTag:         QualityNormal,
			SiteName:           station.Name,
		}
		if cpa.distM < e.cfg.HighQualityM {
			tr.QualityTag = QualityHigh
		}

		if info, ok := e.cache.Get(mmsi); ok {
			if tr.ShipName == "" {
				tr.ShipName = info.Name
			}
			if info.Type != 0 {
				tr.ShipType = strconv.Itoa(info.Type)
			}
			if info.Draught > 0 {
				d := info.Draught
				tr.Draught = &d
			}
			tr.LengthM = info.LengthM
			tr.WidthM = info.WidthM
		}

		transits = append(transits, tr)
	}
	return transits
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
