// config.go: settings struct for the soundscape engine and the functions to
// load, create and access the configuration.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to the log file
}

// ZoneSettings defines one sound zone: a closeness interval bound to a
// looping audio sample.
type ZoneSettings struct {
	ID           string  // unique zone identifier, e.g. "ocean"
	MinCloseness float64 // lower closeness bound, 0.0 = farthest
	MaxCloseness float64 // upper closeness bound, 1.0 = closest
	SampleFile   string  // path to the audio file for this zone
	BaseVolume   float64 // base volume multiplier, 0.0 to 1.0
	FadeDistance float64 // width of the linear ramp at the interval edges
}

// MapperSettings contains settings for the depth-to-source mapper.
type MapperSettings struct {
	Type          string  // "zone" or "tone"
	GridSize      int     // depth map is sampled on a GridSize x GridSize grid
	MinDepth      float64 // lower clamp of the raw depth range
	MaxDepth      float64 // upper clamp of the raw depth range
	Inverse       bool    // true when larger depth values mean closer objects
	MinLoudness   float64 // sources below this loudness are dropped
	DepthScale    float64 // how far max_depth is from the listener in spatial units
	BaseFrequency float64 // tone mapper: frequency of the nearest sources in Hz
	FrequencySpan float64 // tone mapper: added frequency at the farthest distance
}

// AudioSettings contains settings for the mixing/output engine.
type AudioSettings struct {
	Backend      string  // "stereo" or "spatial"
	Device       string  // playback device name, empty for system default
	SampleRate   int     // engine target sample rate in Hz
	BufferFrames int     // frames per render callback
	MaxVoices    int     // hard ceiling on simultaneous voices
	FadeOutMs    int     // release fade duration in milliseconds
	GainRampMs   int     // gain smoothing time constant in milliseconds
	MasterVolume float64 // final output scale, 0.0 to 1.0
}

// TelemetrySettings contains settings for the prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose prometheus metrics
	Listen  string // listen address and port of the metrics endpoint
}

// RealtimeSettings contains settings for the sensing loop.
type RealtimeSettings struct {
	FrameRate int    // depth frames consumed per second
	Provider  string // depth provider: "synthetic" or "file"
	FramePath string // raw frame file for the "file" provider

	Telemetry TelemetrySettings
}

// Settings is the root configuration struct.
type Settings struct {
	Debug bool // true to enable debug output

	Main struct {
		Name string    // instance name
		Log  LogConfig // main application log
	}

	Audio    AudioSettings
	Mapper   MapperSettings
	Realtime RealtimeSettings
	Zones    []ZoneSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings struct
// and stores it as the active instance.
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

	if len(settings.Zones) == 0 {
		settings.Zones = DefaultZones()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
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

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a config file with the current defaults to the
// first default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	settings.Zones = DefaultZones()

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the config search paths: the user config
// directory followed by the working directory.
func GetDefaultConfigPaths() ([]string, error) {
	var paths []string

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "soundscape-go"))
	}
	paths = append(paths, ".")

	if len(paths) == 0 {
		return nil, errors.New("no config paths available")
	}
	return paths, nil
}

// Setting returns the current settings instance.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetTestSettings replaces the active settings instance, for tests only.
func SetTestSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}
