package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"stride/internal/config"
	"stride/internal/location"
	"stride/internal/observability"
	"stride/internal/session"
	"stride/internal/store"
	"stride/internal/tui"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Created a default config at:\n  %s/config.json\n\n", configDir)
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s/config.json\n", configDir)
		return nil
	}

	logger, logFile, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer logFile.Close()

	// Open storage
	kv, err := openKV(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}
	defer kv.Close()
	logger.WithField("driver", cfg.Storage.Driver).Info("storage ready")

	samplerCfg, err := samplerConfig(cfg.Location)
	if err != nil {
		return err
	}
	provider := newProvider(cfg.Location, logger.WithField("component", "location"))

	go func() {
		if err := observability.Serve(ctx, cfg.Metrics.Listen, logger.WithField("component", "metrics")); err != nil {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	runs := store.NewRunStateStore(kv, logger.WithField("component", "store"))
	history := store.NewHistoryStore(kv, logger.WithField("component", "store"))
	controller := session.New(provider, runs, history, session.Config{Sampler: samplerCfg}, logger.WithField("component", "session"))
	defer controller.Close()

	// Offer an unfinished run from a previous launch
	recovered, ok, err := controller.Recover(ctx)
	if err != nil {
		logger.WithError(err).Warn("checking for an unfinished run")
	}
	if !ok {
		recovered = nil
	}

	configDir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	exportDir := filepath.Join(configDir, "exports")

	// Launch TUI
	app := tui.NewApp(controller, history, cfg.Display, exportDir, recovered)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

// newLogger writes to log.file since the TUI owns the terminal
func newLogger(cfg config.LogConfig) (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	path := cfg.File
	if path == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "stride.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return logger, f, nil
}

func openKV(ctx context.Context, cfg config.StorageConfig) (store.KV, error) {
	switch cfg.Driver {
	case "redis":
		kv, err := store.ConnectRedis(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return kv, nil
	case "memory":
		return store.NewMemoryKV(), nil
	default:
		kv, err := store.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return kv, nil
	}
}

func newProvider(cfg config.LocationConfig, log logrus.FieldLogger) location.Provider {
	if cfg.Source == "gpx" {
		return location.NewGPXProvider(location.GPXConfig{
			Path:  cfg.GPXFile,
			Speed: cfg.ReplaySpeed,
		}, log)
	}
	return location.NewNMEAProvider(location.NMEAConfig{
		Device:   cfg.Device,
		BaudRate: cfg.BaudRate,
	}, log)
}

func samplerConfig(cfg config.LocationConfig) (location.SamplerConfig, error) {
	interval, err := cfg.Interval()
	if err != nil {
		return location.SamplerConfig{}, err
	}
	sc := location.DefaultSamplerConfig()
	sc.Options.MinInterval = interval
	sc.Options.MinDistanceMeters = cfg.MinDistanceM
	sc.MaxAccuracyMeters = cfg.MaxAccuracyM
	sc.MaxJumpMi = cfg.MaxJumpMi
	return sc, nil
}
