package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test storage defaults
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, "sqlite")
	}
	if cfg.Storage.KeyPrefix != "stride:" {
		t.Errorf("Storage.KeyPrefix = %q, want %q", cfg.Storage.KeyPrefix, "stride:")
	}

	// Test filter defaults
	if cfg.Location.MaxAccuracyM != 50 {
		t.Errorf("Location.MaxAccuracyM = %v, want 50", cfg.Location.MaxAccuracyM)
	}
	if cfg.Location.MaxJumpMi != 0.2 {
		t.Errorf("Location.MaxJumpMi = %v, want 0.2", cfg.Location.MaxJumpMi)
	}
	if d, err := cfg.Location.Interval(); err != nil || d != 2*time.Second {
		t.Errorf("Location.Interval() = %v, %v; want 2s", d, err)
	}

	// Test display defaults
	if cfg.Display.DistanceUnit != "mi" {
		t.Errorf("Display.DistanceUnit = %q, want %q", cfg.Display.DistanceUnit, "mi")
	}
	if cfg.Display.PaceUnit != "min/mi" {
		t.Errorf("Display.PaceUnit = %q, want %q", cfg.Display.PaceUnit, "min/mi")
	}

	// Metrics endpoint is off by default
	if cfg.Metrics.Listen != "" {
		t.Errorf("Metrics.Listen should be empty, got %q", cfg.Metrics.Listen)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errContains string
	}{
		{
			name:        "defaults",
			mutate:      func(*Config) {},
			expectError: false,
		},
		{
			name:        "redis with address",
			mutate:      func(c *Config) { c.Storage.Driver = "redis" },
			expectError: false,
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Storage.Driver = "redis"
				c.Storage.RedisAddr = ""
			},
			expectError: true,
			errContains: "redis_addr",
		},
		{
			name:        "unknown driver",
			mutate:      func(c *Config) { c.Storage.Driver = "postgres" },
			expectError: true,
			errContains: "storage.driver",
		},
		{
			name:        "nmea without device",
			mutate:      func(c *Config) { c.Location.Device = "" },
			expectError: true,
			errContains: "location.device",
		},
		{
			name:        "gpx without file",
			mutate:      func(c *Config) { c.Location.Source = "gpx" },
			expectError: true,
			errContains: "gpx_file",
		},
		{
			name: "gpx replay",
			mutate: func(c *Config) {
				c.Location.Source = "gpx"
				c.Location.GPXFile = "/tmp/run.gpx"
				c.Location.ReplaySpeed = 10
			},
			expectError: false,
		},
		{
			name:        "unknown source",
			mutate:      func(c *Config) { c.Location.Source = "wifi" },
			expectError: true,
			errContains: "location.source",
		},
		{
			name:        "bad interval",
			mutate:      func(c *Config) { c.Location.MinInterval = "soon" },
			expectError: true,
			errContains: "min_interval",
		},
		{
			name:        "zero accuracy threshold",
			mutate:      func(c *Config) { c.Location.MaxAccuracyM = 0 },
			expectError: true,
			errContains: "max_accuracy_m",
		},
		{
			name:        "bad distance unit",
			mutate:      func(c *Config) { c.Display.DistanceUnit = "furlong" },
			expectError: true,
			errContains: "distance_unit",
		},
		{
			name:        "bad pace unit",
			mutate:      func(c *Config) { c.Display.PaceUnit = "min/furlong" },
			expectError: true,
			errContains: "pace_unit",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Log.Level = "loud" },
			expectError: true,
			errContains: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestLoadFromMissing(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("LoadFrom(missing) error = %v, want ErrNoConfig", err)
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"storage": {"driver": "redis", "redis_addr": "cache:6379"}, "display": {"distance_unit": "km"}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Storage.Driver != "redis" || cfg.Storage.RedisAddr != "cache:6379" {
		t.Errorf("Storage = %+v, want redis at cache:6379", cfg.Storage)
	}
	if cfg.Storage.KeyPrefix != "stride:" {
		t.Errorf("Storage.KeyPrefix = %q, want default", cfg.Storage.KeyPrefix)
	}
	if cfg.Display.DistanceUnit != "km" {
		t.Errorf("Display.DistanceUnit = %q, want km", cfg.Display.DistanceUnit)
	}
	if cfg.Display.PaceUnit != "min/mi" {
		t.Errorf("Display.PaceUnit = %q, want default min/mi", cfg.Display.PaceUnit)
	}
	if cfg.Location.MaxJumpMi != 0.2 {
		t.Errorf("Location.MaxJumpMi = %v, want default 0.2", cfg.Location.MaxJumpMi)
	}
}

func TestLoadFromEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"storage": {"driver": "sqlite"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STRIDE_STORAGE_DRIVER", "memory")
	t.Setenv("STRIDE_LOCATION_MAX_ACCURACY_M", "25")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, want env override memory", cfg.Storage.Driver)
	}
	if cfg.Location.MaxAccuracyM != 25 {
		t.Errorf("Location.MaxAccuracyM = %v, want env override 25", cfg.Location.MaxAccuracyM)
	}
}

func TestLoadFromMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFrom(path)
	if err == nil || errors.Is(err, ErrNoConfig) {
		t.Errorf("LoadFrom(malformed) error = %v, want a parse error", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("STRIDE_LOCATION_SOURCE", "gpx")
	t.Setenv("STRIDE_LOCATION_GPX_FILE", "/data/morning.gpx")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Location.Source != "gpx" || cfg.Location.GPXFile != "/data/morning.gpx" {
		t.Errorf("Location = %+v, want gpx replay of /data/morning.gpx", cfg.Location)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Metrics.Listen = "127.0.0.1:9464"
	cfg.Location.Source = "gpx"
	cfg.Location.GPXFile = "/tmp/run.gpx"

	if err := SaveTo(path, &cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if *loaded != cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *loaded, cfg)
	}
}
