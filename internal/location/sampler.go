package location

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"stride/internal/observability"
)

// Movement is an accepted sample and its distance from the previous anchor.
type Movement struct {
	Sample  Sample
	DeltaMi float64
}

// SamplerConfig configures a Sampler.
type SamplerConfig struct {
	Options           Options
	MaxAccuracyMeters float64
	MaxJumpMi         float64
}

// DefaultSamplerConfig returns the run tracking defaults.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Options:           DefaultOptions(),
		MaxAccuracyMeters: DefaultMaxAccuracyMeters,
		MaxJumpMi:         DefaultMaxJumpMi,
	}
}

// Sampler filters a provider subscription in its own goroutine and delivers
// accepted movements. While inactive (paused) samples still move the anchor
// but nothing is delivered.
type Sampler struct {
	sub    Subscription
	filter *Filter
	log    logrus.FieldLogger

	active atomic.Bool
	out    chan Movement

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartSampler subscribes to p and starts filtering.
func StartSampler(ctx context.Context, p Provider, cfg SamplerConfig, active bool, log logrus.FieldLogger) (*Sampler, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub, err := p.Subscribe(ctx, cfg.Options)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribing to location: %w", err)
	}

	s := &Sampler{
		sub:    sub,
		filter: NewFilter(cfg.MaxAccuracyMeters, cfg.MaxJumpMi),
		log:    log,
		out:    make(chan Movement),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.active.Store(active)
	go s.loop()
	return s, nil
}

// Movements delivers accepted samples. It is closed when the sampler stops
// or the underlying stream ends.
func (s *Sampler) Movements() <-chan Movement {
	return s.out
}

// SetActive switches accumulation on or off.
func (s *Sampler) SetActive(active bool) {
	s.active.Store(active)
}

// Stop unsubscribes and waits for the filter goroutine to exit. Safe to call
// more than once.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.sub.Close(); err != nil {
			s.log.WithError(err).Warn("closing location subscription")
		}
		<-s.done
	})
}

func (s *Sampler) loop() {
	defer close(s.done)
	defer close(s.out)

	samples := s.sub.Samples()
	errs := s.sub.Errors()
	for {
		select {
		case <-s.ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				s.log.Warn("location stream ended")
				return
			}
			if !s.handle(sample) {
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			observability.LocationError()
			s.log.WithError(err).Warn("location error")
		}
	}
}

func (s *Sampler) handle(sample Sample) bool {
	delta, decision := s.filter.Apply(sample, s.active.Load())
	switch decision {
	case Accepted:
		observability.SampleAccepted()
		select {
		case s.out <- Movement{Sample: sample, DeltaMi: delta}:
		case <-s.ctx.Done():
			return false
		}
	case RejectedAccuracy:
		observability.SampleRejected(observability.ReasonAccuracy)
		s.log.WithField("accuracy_m", sample.AccuracyMeters).Debug("sample rejected: poor accuracy")
	case RejectedOutlier:
		observability.SampleRejected(observability.ReasonOutlier)
		s.log.WithFields(logrus.Fields{
			"lat": sample.Lat,
			"lng": sample.Lng,
		}).Debug("sample rejected: outlier")
	}
	return true
}
