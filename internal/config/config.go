// Package config loads the robot's startup configuration from a JSON or
// YAML file. Omitted fields keep the values from Defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/hamilton/internal/driver"
	"github.com/banshee-data/hamilton/internal/lidar"
	"github.com/banshee-data/hamilton/internal/localisation"
	"github.com/banshee-data/hamilton/internal/messaging"
	"github.com/banshee-data/hamilton/internal/navigation"
	"github.com/banshee-data/hamilton/internal/remote"
	"github.com/banshee-data/hamilton/internal/units"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration.
type Config struct {
	Body         driver.BodyConfig  `json:"body" yaml:"body"`
	Lidar        LidarConfig        `json:"lidar" yaml:"lidar"`
	Localisation LocalisationConfig `json:"localisation" yaml:"localisation"`
	Navigation   NavigationConfig   `json:"navigation" yaml:"navigation"`
	Telemetry    TelemetryConfig    `json:"telemetry" yaml:"telemetry"`
	MQTT         MQTTConfig         `json:"mqtt" yaml:"mqtt"`
	Debug        DebugConfig        `json:"debug" yaml:"debug"`
}

// LidarConfig configures the range scanner and collision guard.
type LidarConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	Port         string  `json:"port" yaml:"port"`
	Freshness    string  `json:"freshness" yaml:"freshness"`         // duration string like "500ms"
	ReopenMax    string  `json:"reopen_max" yaml:"reopen_max"`       // duration string like "5s"
	SafeDistance float64 `json:"safe_distance" yaml:"safe_distance"` // metres
	ConeDegrees  float64 `json:"cone_degrees" yaml:"cone_degrees"`   // half-width of the checked cone
}

// LocalisationConfig selects and tunes the pose source.
type LocalisationConfig struct {
	Backend   string `json:"backend" yaml:"backend"`
	Address   string `json:"address" yaml:"address"`
	RcvBuf    int    `json:"rcvbuf" yaml:"rcvbuf"`
	Freshness string `json:"freshness" yaml:"freshness"`
}

// NavigationConfig tunes the control loop.
type NavigationConfig struct {
	TickInterval    string           `json:"tick_interval" yaml:"tick_interval"`
	ManualTimeout   string           `json:"manual_timeout" yaml:"manual_timeout"`
	Gains           navigation.Gains `json:"gains" yaml:"gains"`
	Map             remote.Map       `json:"map" yaml:"map"`
	BatteryInterval string           `json:"battery_interval" yaml:"battery_interval"`
	LowVoltage      float64          `json:"low_voltage" yaml:"low_voltage"`
}

// TelemetryConfig says where snapshots go.
type TelemetryConfig struct {
	// Topic below the MQTT prefix; empty disables MQTT publishing.
	Topic string `json:"topic" yaml:"topic"`
	// DBPath of the sqlite recorder; empty disables recording.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// MQTTConfig configures the broker connection shared by telemetry and remote
// control.
type MQTTConfig struct {
	Enabled          bool `json:"enabled" yaml:"enabled"`
	messaging.Config `json:",inline" yaml:",inline"`
}

// DebugConfig configures the debug HTTP server.
type DebugConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

// Defaults returns a complete configuration for the robot as built.
func Defaults() *Config {
	return &Config{
		Body: driver.DefaultBodyConfig(),
		Lidar: LidarConfig{
			Enabled:      true,
			Port:         lidar.DefaultPort,
			Freshness:    lidar.DefaultScanFreshness.String(),
			ReopenMax:    "5s",
			SafeDistance: lidar.SafeDistance,
			ConeDegrees:  45,
		},
		Localisation: LocalisationConfig{
			Backend:   string(localisation.BackendIRMarker),
			Address:   localisation.DefaultMulticastAddress,
			RcvBuf:    1 << 20,
			Freshness: localisation.DefaultPoseFreshness.String(),
		},
		Navigation: NavigationConfig{
			TickInterval:    "100ms",
			ManualTimeout:   navigation.DefaultManualTimeout.String(),
			Gains:           navigation.DefaultGains(),
			Map:             remote.DefaultMap(),
			BatteryInterval: navigation.DefaultBatteryInterval.String(),
			LowVoltage:      navigation.DefaultLowVoltage,
		},
		Telemetry: TelemetryConfig{
			Topic:  "pose",
			DBPath: "hamilton.db",
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Config:  messaging.DefaultConfig(),
		},
		Debug: DebugConfig{
			Listen: "localhost:8080",
		},
	}
}

// Load reads path over Defaults. A path that does not exist yields the
// defaults. The decoder is chosen by extension: .json, .yaml or .yml.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if err := c.Body.Validate(); err != nil {
		return fmt.Errorf("body: %w", err)
	}

	durations := []struct {
		name, value string
	}{
		{"lidar.freshness", c.Lidar.Freshness},
		{"lidar.reopen_max", c.Lidar.ReopenMax},
		{"localisation.freshness", c.Localisation.Freshness},
		{"navigation.tick_interval", c.Navigation.TickInterval},
		{"navigation.manual_timeout", c.Navigation.ManualTimeout},
		{"navigation.battery_interval", c.Navigation.BatteryInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, d.value, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if c.Lidar.SafeDistance < 0 {
		return fmt.Errorf("lidar.safe_distance must be non-negative, got %f", c.Lidar.SafeDistance)
	}
	if c.Lidar.ConeDegrees < 0 || c.Lidar.ConeDegrees > 180 {
		return fmt.Errorf("lidar.cone_degrees must be between 0 and 180, got %f", c.Lidar.ConeDegrees)
	}

	if _, err := localisation.ParseBackend(c.Localisation.Backend); err != nil {
		return fmt.Errorf("localisation.backend: %w", err)
	}
	if c.Localisation.RcvBuf < 0 {
		return fmt.Errorf("localisation.rcvbuf must be non-negative, got %d", c.Localisation.RcvBuf)
	}

	if err := c.Navigation.Gains.Validate(); err != nil {
		return fmt.Errorf("navigation.gains: %w", err)
	}
	if err := c.Navigation.Map.Validate(); err != nil {
		return fmt.Errorf("navigation.map: %w", err)
	}
	if c.Navigation.LowVoltage < 0 {
		return fmt.Errorf("navigation.low_voltage must be non-negative, got %f", c.Navigation.LowVoltage)
	}

	if c.MQTT.Enabled {
		if err := c.MQTT.Config.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetScanFreshness returns lidar.freshness or the default.
func (c *Config) GetScanFreshness() time.Duration {
	return parseDuration(c.Lidar.Freshness, lidar.DefaultScanFreshness)
}

// GetReopenMax returns lidar.reopen_max or the default.
func (c *Config) GetReopenMax() time.Duration {
	return parseDuration(c.Lidar.ReopenMax, 5*time.Second)
}

// GetScanCone returns the half-width of the collision cone in radians.
func (c *Config) GetScanCone() float64 {
	if c.Lidar.ConeDegrees <= 0 {
		return lidar.ScanArea
	}
	return units.DegToRad(c.Lidar.ConeDegrees)
}

// GetSafeDistance returns lidar.safe_distance or the default.
func (c *Config) GetSafeDistance() float64 {
	if c.Lidar.SafeDistance <= 0 {
		return lidar.SafeDistance
	}
	return c.Lidar.SafeDistance
}

// GetPoseFreshness returns localisation.freshness or the default.
func (c *Config) GetPoseFreshness() time.Duration {
	return parseDuration(c.Localisation.Freshness, localisation.DefaultPoseFreshness)
}

// GetBackend returns the parsed localisation backend.
func (c *Config) GetBackend() localisation.Backend {
	b, err := localisation.ParseBackend(c.Localisation.Backend)
	if err != nil {
		return localisation.BackendIRMarker
	}
	return b
}

// GetTickInterval returns navigation.tick_interval or the default.
func (c *Config) GetTickInterval() time.Duration {
	return parseDuration(c.Navigation.TickInterval, 100*time.Millisecond)
}

// GetManualTimeout returns navigation.manual_timeout or the default.
func (c *Config) GetManualTimeout() time.Duration {
	return parseDuration(c.Navigation.ManualTimeout, navigation.DefaultManualTimeout)
}

// GetBatteryInterval returns navigation.battery_interval or the default.
func (c *Config) GetBatteryInterval() time.Duration {
	return parseDuration(c.Navigation.BatteryInterval, navigation.DefaultBatteryInterval)
}
