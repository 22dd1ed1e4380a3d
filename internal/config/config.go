package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Location LocationConfig `json:"location" mapstructure:"location"`
	Display  DisplayConfig  `json:"display" mapstructure:"display"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
	Log      LogConfig      `json:"log" mapstructure:"log"`
}

// StorageConfig selects the key-value backend
type StorageConfig struct {
	Driver        string `json:"driver" mapstructure:"driver"` // sqlite, redis or memory
	Path          string `json:"path" mapstructure:"path"`     // sqlite file, empty = ~/.stride/data.db
	RedisAddr     string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" mapstructure:"redis_db"`
	KeyPrefix     string `json:"key_prefix" mapstructure:"key_prefix"`
}

// LocationConfig holds the position source and sample filter settings
type LocationConfig struct {
	Source       string  `json:"source" mapstructure:"source"` // nmea or gpx
	Device       string  `json:"device" mapstructure:"device"`
	BaudRate     int     `json:"baud_rate" mapstructure:"baud_rate"`
	GPXFile      string  `json:"gpx_file" mapstructure:"gpx_file"`
	ReplaySpeed  float64 `json:"replay_speed" mapstructure:"replay_speed"`
	MinInterval  string  `json:"min_interval" mapstructure:"min_interval"`
	MinDistanceM float64 `json:"min_distance_m" mapstructure:"min_distance_m"`
	MaxAccuracyM float64 `json:"max_accuracy_m" mapstructure:"max_accuracy_m"`
	MaxJumpMi    float64 `json:"max_jump_mi" mapstructure:"max_jump_mi"`
}

// Interval parses MinInterval
func (l LocationConfig) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(l.MinInterval)
	if err != nil {
		return 0, fmt.Errorf("location.min_interval: %w", err)
	}
	return d, nil
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit" mapstructure:"distance_unit"`
	PaceUnit     string `json:"pace_unit" mapstructure:"pace_unit"`
}

// MetricsConfig holds the Prometheus endpoint address, empty = disabled
type MetricsConfig struct {
	Listen string `json:"listen" mapstructure:"listen"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"` // empty = ~/.stride/stride.log
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Driver:    "sqlite",
			RedisAddr: "localhost:6379",
			KeyPrefix: "stride:",
		},
		Location: LocationConfig{
			Source:       "nmea",
			Device:       "/dev/ttyUSB0",
			BaudRate:     9600,
			ReplaySpeed:  1,
			MinInterval:  "2s",
			MinDistanceM: 3,
			MaxAccuracyM: 50,
			MaxJumpMi:    0.2,
		},
		Display: DisplayConfig{
			DistanceUnit: "mi",
			PaceUnit:     "min/mi",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// newViper returns a viper instance seeded with the defaults and STRIDE_*
// environment overrides, e.g. STRIDE_STORAGE_DRIVER=redis.
func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.redis_addr", d.Storage.RedisAddr)
	v.SetDefault("storage.redis_password", d.Storage.RedisPassword)
	v.SetDefault("storage.redis_db", d.Storage.RedisDB)
	v.SetDefault("storage.key_prefix", d.Storage.KeyPrefix)

	v.SetDefault("location.source", d.Location.Source)
	v.SetDefault("location.device", d.Location.Device)
	v.SetDefault("location.baud_rate", d.Location.BaudRate)
	v.SetDefault("location.gpx_file", d.Location.GPXFile)
	v.SetDefault("location.replay_speed", d.Location.ReplaySpeed)
	v.SetDefault("location.min_interval", d.Location.MinInterval)
	v.SetDefault("location.min_distance_m", d.Location.MinDistanceM)
	v.SetDefault("location.max_accuracy_m", d.Location.MaxAccuracyM)
	v.SetDefault("location.max_jump_mi", d.Location.MaxJumpMi)

	v.SetDefault("display.distance_unit", d.Display.DistanceUnit)
	v.SetDefault("display.pace_unit", d.Display.PaceUnit)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetEnvPrefix("STRIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from ~/.stride/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path. Missing values take their
// defaults and environment variables override the file.
func LoadFrom(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// FromEnv returns the defaults with environment overrides applied, for runs
// without a config file.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := newViper().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to ~/.stride/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	return SaveTo(path, &example)
}

// Validate checks if the config is usable
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr is required when storage.driver is \"redis\"")
		}
	default:
		return fmt.Errorf("storage.driver must be \"sqlite\", \"redis\" or \"memory\", got %q", c.Storage.Driver)
	}
	if c.Storage.RedisDB < 0 {
		return fmt.Errorf("storage.redis_db must not be negative, got %d", c.Storage.RedisDB)
	}

	switch c.Location.Source {
	case "nmea":
		if c.Location.Device == "" {
			return errors.New("location.device is required when location.source is \"nmea\"")
		}
		if c.Location.BaudRate <= 0 {
			return fmt.Errorf("location.baud_rate must be positive, got %d", c.Location.BaudRate)
		}
	case "gpx":
		if c.Location.GPXFile == "" {
			return errors.New("location.gpx_file is required when location.source is \"gpx\"")
		}
		if c.Location.ReplaySpeed < 0 {
			return fmt.Errorf("location.replay_speed must not be negative, got %v", c.Location.ReplaySpeed)
		}
	default:
		return fmt.Errorf("location.source must be \"nmea\" or \"gpx\", got %q", c.Location.Source)
	}
	if _, err := c.Location.Interval(); err != nil {
		return err
	}
	if c.Location.MaxAccuracyM <= 0 {
		return fmt.Errorf("location.max_accuracy_m must be positive, got %v", c.Location.MaxAccuracyM)
	}
	if c.Location.MaxJumpMi <= 0 {
		return fmt.Errorf("location.max_jump_mi must be positive, got %v", c.Location.MaxJumpMi)
	}

	// Validate display units
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".stride"), nil
}
