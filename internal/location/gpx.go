package location

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tkrajina/gpxgo/gpx"
)

// GPXConfig configures a track replay.
type GPXConfig struct {
	Path string
	// Speed scales the recorded time between points. 1 replays in real time,
	// 0 replays without delay.
	Speed float64
	UERE  float64
}

// GPXProvider replays a recorded GPX track as a live position source.
type GPXProvider struct {
	cfg GPXConfig
	log logrus.FieldLogger
}

// NewGPXProvider creates a replay provider for cfg.Path.
func NewGPXProvider(cfg GPXConfig, log logrus.FieldLogger) *GPXProvider {
	if cfg.UERE <= 0 {
		cfg.UERE = DefaultUERE
	}
	if cfg.Speed < 0 {
		cfg.Speed = 0
	}
	return &GPXProvider{cfg: cfg, log: log}
}

func (p *GPXProvider) Permission(ctx context.Context) (Permission, error) {
	_, err := os.Stat(p.cfg.Path)
	switch {
	case err == nil:
		return PermissionGranted, nil
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied, nil
	case errors.Is(err, fs.ErrNotExist):
		return PermissionUnavailable, nil
	default:
		return PermissionUnavailable, fmt.Errorf("checking %s: %w", p.cfg.Path, err)
	}
}

func (p *GPXProvider) RequestPermission(ctx context.Context) (Permission, error) {
	return p.Permission(ctx)
}

// Subscribe parses the track and replays its points.
func (p *GPXProvider) Subscribe(ctx context.Context, opts Options) (Subscription, error) {
	samples, err := p.load()
	if err != nil {
		return nil, err
	}

	st := newStream(ctx, opts, nil)
	st.run(func() { p.replay(st, samples) })
	p.log.WithFields(logrus.Fields{
		"file":   p.cfg.Path,
		"points": len(samples),
		"speed":  p.cfg.Speed,
	}).Info("gpx replay subscribed")
	return st, nil
}

func (p *GPXProvider) load() ([]Sample, error) {
	g, err := gpx.ParseFile(p.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("parsing gpx file: %w", err)
	}

	var samples []Sample
	var base time.Time
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			for _, pt := range segment.Points {
				s := Sample{Lat: pt.Latitude, Lng: pt.Longitude, Timestamp: pt.Timestamp}
				if pt.HorizontalDilution.NotNull() {
					s.AccuracyMeters = pt.HorizontalDilution.Value() * p.cfg.UERE
				}
				// Untimed tracks are spaced one second apart.
				if s.Timestamp.IsZero() {
					if base.IsZero() {
						base = time.Now()
					}
					s.Timestamp = base.Add(time.Duration(len(samples)) * time.Second)
				}
				samples = append(samples, s)
			}
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("gpx file %s has no track points", p.cfg.Path)
	}
	return samples, nil
}

func (p *GPXProvider) replay(st *stream, samples []Sample) {
	for i, s := range samples {
		if i > 0 && p.cfg.Speed > 0 {
			gap := s.Timestamp.Sub(samples[i-1].Timestamp)
			if gap > 0 {
				timer := time.NewTimer(time.Duration(float64(gap) / p.cfg.Speed))
				select {
				case <-timer.C:
				case <-st.ctx.Done():
					timer.Stop()
					return
				}
			}
		}
		if !st.emit(s) {
			return
		}
	}
	p.log.Info("gpx replay finished")
}
