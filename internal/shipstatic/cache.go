// Package shipstatic persists per-station AIS static ship data keyed by
// MMSI. The cache is read at the start of an extraction run and written back
// at the end with an additive merge: entries not seen again are retained and
// the newest report wins per MMSI.
package shipstatic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/shipnoise/shipnoise-go/internal/ais"
)

// Info is the cached static record for one vessel. Optional dimensions stay
// nil when the vessel never reported them.
type Info struct {
	Name    string   `json:"name"`
	IMO     int64    `json:"imo,omitempty"`
	Type    int      `json:"type"`
	Draught float64  `json:"draught"`
	LengthM *float64 `json:"length_m"`
	WidthM  *float64 `json:"width_m"`
}

// Repository is the cache store injected into the transit extractor.
type Repository interface {
	Load() error
	Get(mmsi string) (Info, bool)
	Put(mmsi string, info Info)
	Save() error
}

// FileRepository keeps the cache in a single JSON document on disk, one per
// station. Concurrent writers for the same station are not supported; runs
// must be serialized externally.
type FileRepository struct {
	path    string
	entries map[string]Info
	memo    *gocache.Cache
}

// NewFileRepository creates a repository backed by the given JSON file.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path:    path,
		entries: make(map[string]Info),
		memo:    gocache.New(gocache.NoExpiration, 0),
	}
}

// Load reads the cache document. A missing or unreadable file starts the
// run with an empty cache rather than failing.
func (r *FileRepository) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading static cache %s: %w", r.path, err)
	}
	entries := make(map[string]Info)
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupt cache files are recoverable: the next Save rebuilds them
		// from whatever static data the run observed.
		r.entries = make(map[string]Info)
		return nil
	}
	r.entries = entries
	return nil
}

// Get returns the cached info for a vessel.
func (r *FileRepository) Get(mmsi string) (Info, bool) {
	if v, ok := r.memo.Get(mmsi); ok {
		return v.(Info), true
	}
	info, ok := r.entries[mmsi]
	if ok {
		r.memo.Set(mmsi, info, gocache.NoExpiration)
	}
	return info, ok
}

// Put records the latest static report for a vessel, last write wins.
func (r *FileRepository) Put(mmsi string, info Info) {
	r.entries[mmsi] = info
	r.memo.Set(mmsi, info, gocache.NoExpiration)
}

// Save merges the in-memory entries into the on-disk document and writes it
// atomically. Keys present on disk but not touched this run are retained.
func (r *FileRepository) Save() error {
	merged := make(map[string]Info)
	if data, err := os.ReadFile(r.path); err == nil {
		_ = json.Unmarshal(data, &merged)
	}
	for mmsi, info := range r.entries {
		merged[mmsi] = info
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding static cache: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp.%d", r.path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing static cache: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing static cache: %w", err)
	}
	return nil
}

// Count returns the number of vessels known to this run.
func (r *FileRepository) Count() int { return len(r.entries) }

// FromStatic converts a decoded ShipStaticData payload into a cache entry.
// Length and width derive from summing the reference-point offsets; a pair
// that sums to zero means the vessel did not report that dimension.
func FromStatic(data *ais.ShipStaticData) Info {
	info := Info{
		Name:    cleanName(data.Name),
		IMO:     data.ImoNumber,
		Type:    data.Type,
		Draught: data.MaximumStaticDraught,
	}
	if l := data.Dimension.A + data.Dimension.B; l > 0 {
		info.LengthM = &l
	}
	if w := data.Dimension.C + data.Dimension.D; w > 0 {
		info.WidthM = &w
	}
	return info
}

func cleanName(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '@' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	return s
}
