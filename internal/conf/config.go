// config.go: settings struct for the shipnoise pipeline and the functions to
// load and save them.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
)

// MainSettings contains application-level settings.
type MainSettings struct {
	Name string // application name used in logs
	Log  LogSettings
}

// LogSettings controls the application log output.
type LogSettings struct {
	Enabled bool   // true to also write logs to a file
	Path    string // log file path
	Level   string // debug, info, warn or error
}

// DataSettings locates the on-disk station data tree.
type DataSettings struct {
	Root string // parent of the Sites/ directory
}

// ExtractorSettings tunes vessel transit extraction from raw AIS logs.
type ExtractorSettings struct {
	RadiusM      float64 // retention radius around the hydrophone
	CPAMaxM      float64 // maximum closest-point-of-approach distance
	MinSogKt     float64 // minimum speed over ground; slower vessels are moored or drifting
	MinPoints    int     // minimum position reports per transit
	MinDwellSec  int     // minimum seconds between first and last report
	HighQualityM float64 // CPA distance under which a transit is tagged high-quality
}

// WindowSettings tunes audio window matching around CPA.
type WindowSettings struct {
	HalfWindowSec int // seconds searched on each side of CPA
}

// CeilingSettings is a CPA ceiling set in meters, by vessel size class.
type CeilingSettings struct {
	DefaultM float64
	LargeM   float64
	SmallM   float64
}

// ClipSettings tunes segment acquisition and clip assembly.
type ClipSettings struct {
	Mode            string // "adjacent" or "strict"
	FfmpegPath      string // path to ffmpeg, runtime value
	SampleRate      int    // clip sample rate in Hz
	RetryAttempts   int    // fetch attempts per segment URL form
	RetryBackoffSec int    // seconds between fetch attempts
}

// SQLiteSettings configures the detection database.
type SQLiteSettings struct {
	Enabled bool
	Path    string // path to the SQLite database
}

// OutputSettings contains settings for detection output.
type OutputSettings struct {
	SQLite SQLiteSettings
}

// StationSettings describes one hydrophone deployment.
type StationSettings struct {
	Name             string  // station name as used in file paths, e.g. Bush_Point
	Slug             string  // S3 feed folder, e.g. rpi_bush_point
	Latitude         float64 // hydrophone latitude
	Longitude        float64 // hydrophone longitude
	Bucket           string  // S3 bucket serving the HLS feed
	ThresholdProfile string  // confidence threshold profile name, empty for default
	Ceilings         *CeilingSettings
}

// BaseURL is the root of the station's HLS feed.
func (s *StationSettings) BaseURL() string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s/hls", s.Bucket, s.Slug)
}

// Settings is the complete runtime configuration.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main      MainSettings
	Data      DataSettings
	Extractor ExtractorSettings
	Window    WindowSettings
	Relevance CeilingSettings // station-independent fallback ceilings
	Clips     ClipSettings
	Output    OutputSettings
	Stations  []StationSettings
}

// Station returns the station with the given name.
func (s *Settings) Station(name string) (*StationSettings, bool) {
	for i := range s.Stations {
		if s.Stations[i].Name == name {
			return &s.Stations[i], true
		}
	}
	return nil, false
}

// Load reads the configuration file, applies defaults, validates and returns
// the settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the
// configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded default config to the primary
// config path and loads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := configFiles.ReadFile("config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	log.Printf("Created default config file at: %s", configPath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the directories searched for config.yaml:
// the working directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "shipnoise"))
	}
	return paths, nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if
// necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveSettings writes the current settings back to the loaded configuration
// file.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	if settingsInstance == nil {
		return errors.New("settings not loaded")
	}
	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		configPath = filepath.Join(configPaths[0], "config.yaml")
	}

	settingsCopy := *settingsInstance
	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	log.Printf("Settings saved successfully to %s", configPath)
	return nil
}

// SaveYAMLConfig marshals settings to YAML and writes them atomically via a
// temporary file in the same directory.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}
	if err := os.Rename(tmpName, configPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// GetBasePath resolves a possibly relative path against the working
// directory and ensures it exists.
func GetBasePath(path string) string {
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.Printf("error creating directory %s: %v", path, err)
	}
	return path
}
