// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shipnoise/shipnoise-go/internal/conf"
)

// Interface abstracts the underlying database implementation and defines the
// operations the pipeline needs.
type Interface interface {
	Open() error
	Save(detection *Detection) error
	Get(id string) (Detection, error)
	GetStationDay(site, date string) ([]Detection, error)
	Delete(id string) error
	Close() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a store instance based on the provided configuration. Returns
// nil when no database output is enabled.
func New(settings *conf.Settings) Interface {
	if settings.Output.SQLite.Enabled {
		return &SQLiteStore{Settings: settings}
	}
	return nil
}

// Save upserts a detection keyed by its deterministic id, so re-running a
// station-day replaces rows instead of duplicating them.
func (ds *DataStore) Save(detection *Detection) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(detection).Error
	if err != nil {
		return fmt.Errorf("saving detection %s: %w", detection.ID, err)
	}
	return nil
}

// Get retrieves a detection by its id.
func (ds *DataStore) Get(id string) (Detection, error) {
	var detection Detection
	if err := ds.DB.First(&detection, "id = ?", id).Error; err != nil {
		return Detection{}, fmt.Errorf("getting detection %s: %w", id, err)
	}
	return detection, nil
}

// GetStationDay returns all detections for one station and day, closest
// approach first.
func (ds *DataStore) GetStationDay(site, date string) ([]Detection, error) {
	var detections []Detection
	err := ds.DB.
		Where("site = ? AND date = ?", site, date).
		Order("cpa_distance_m ASC").
		Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("getting detections for %s %s: %w", site, date, err)
	}
	return detections, nil
}

// Delete removes a detection by its id.
func (ds *DataStore) Delete(id string) error {
	if err := ds.DB.Delete(&Detection{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting detection %s: %w", id, err)
	}
	return nil
}

// performAutoMigration runs the schema migration shared by all backends.
func performAutoMigration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Detection{}); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
