// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors.
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateExtractorSettings(&settings.Extractor); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateWindowSettings(&settings.Window); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateCeilingSettings(&settings.Relevance, "relevance"); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateClipSettings(&settings.Clips); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateStations(settings.Stations); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Output.SQLite.Enabled && strings.TrimSpace(settings.Output.SQLite.Path) == "" {
		ve.Errors = append(ve.Errors, "sqlite output enabled but no database path configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateExtractorSettings(e *ExtractorSettings) error {
	if e.RadiusM <= 0 {
		return fmt.Errorf("extractor radius must be positive: %v", e.RadiusM)
	}
	if e.CPAMaxM <= 0 {
		return fmt.Errorf("extractor CPA ceiling must be positive: %v", e.CPAMaxM)
	}
	if e.CPAMaxM > e.RadiusM {
		return fmt.Errorf("extractor CPA ceiling %v exceeds retention radius %v", e.CPAMaxM, e.RadiusM)
	}
	if e.MinSogKt < 0 {
		return fmt.Errorf("extractor minimum speed must not be negative: %v", e.MinSogKt)
	}
	if e.MinPoints < 1 {
		return fmt.Errorf("extractor minimum point count must be at least 1: %d", e.MinPoints)
	}
	if e.MinDwellSec < 0 {
		return fmt.Errorf("extractor minimum dwell must not be negative: %d", e.MinDwellSec)
	}
	return nil
}

func validateWindowSettings(w *WindowSettings) error {
	if w.HalfWindowSec <= 0 {
		return fmt.Errorf("window half-width must be positive: %d", w.HalfWindowSec)
	}
	return nil
}

func validateCeilingSettings(c *CeilingSettings, scope string) error {
	if c.DefaultM <= 0 || c.LargeM <= 0 || c.SmallM <= 0 {
		return fmt.Errorf("%s ceilings must be positive: default %v, large %v, small %v",
			scope, c.DefaultM, c.LargeM, c.SmallM)
	}
	return nil
}

func validateClipSettings(c *ClipSettings) error {
	switch c.Mode {
	case "adjacent", "strict":
	default:
		return fmt.Errorf("clip mode must be adjacent or strict: %q", c.Mode)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("clip sample rate must be positive: %d", c.SampleRate)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("clip retry attempts must be at least 1: %d", c.RetryAttempts)
	}
	return nil
}

func validateStations(stations []StationSettings) error {
	if len(stations) == 0 {
		return fmt.Errorf("at least one station must be configured")
	}
	seen := make(map[string]bool, len(stations))
	for i := range stations {
		s := &stations[i]
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("station %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate station name: %s", s.Name)
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.Slug) == "" {
			return fmt.Errorf("station %s has no feed slug", s.Name)
		}
		if strings.TrimSpace(s.Bucket) == "" {
			return fmt.Errorf("station %s has no bucket", s.Name)
		}
		if s.Latitude < -90 || s.Latitude > 90 {
			return fmt.Errorf("station %s latitude out of range: %v", s.Name, s.Latitude)
		}
		if s.Longitude < -180 || s.Longitude > 180 {
			return fmt.Errorf("station %s longitude out of range: %v", s.Name, s.Longitude)
		}
		if c := s.Ceilings; c != nil {
			if err := validateCeilingSettings(c, "station "+s.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
