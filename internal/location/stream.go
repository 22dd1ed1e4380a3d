package location

import (
	"context"
	"io"
	"sync"

	"stride/internal/geo"
)

// stream is the Subscription shared by the providers. The producer goroutine
// owns the samples channel and closes it on exit.
type stream struct {
	samples chan Sample
	errs    chan error

	ctx    context.Context
	cancel context.CancelFunc
	closer io.Closer
	once   sync.Once

	opts Options
	last *Sample
}

func newStream(parent context.Context, opts Options, closer io.Closer) *stream {
	ctx, cancel := context.WithCancel(parent)
	return &stream{
		samples: make(chan Sample),
		errs:    make(chan error, 8),
		ctx:     ctx,
		cancel:  cancel,
		closer:  closer,
		opts:    opts,
	}
}

func (s *stream) Samples() <-chan Sample { return s.samples }
func (s *stream) Errors() <-chan error   { return s.errs }

// Close stops the producer. Safe to call more than once.
func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

// run starts produce in a goroutine and closes the samples channel when it
// returns.
func (s *stream) run(produce func()) {
	go func() {
		defer close(s.samples)
		produce()
	}()
}

// emit delivers sample unless it arrives sooner than the minimum interval or
// closer than the minimum distance to the previously delivered one. It
// returns false once the stream has been closed.
func (s *stream) emit(sample Sample) bool {
	if s.throttled(sample) {
		return s.ctx.Err() == nil
	}
	select {
	case s.samples <- sample:
		s.last = &sample
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *stream) throttled(sample Sample) bool {
	if s.last == nil {
		return false
	}
	if sample.Timestamp.Sub(s.last.Timestamp) < s.opts.MinInterval {
		return true
	}
	movedM := geo.HaversineKm(s.last.Lat, s.last.Lng, sample.Lat, sample.Lng) * 1000
	return movedM < s.opts.MinDistanceMeters
}

// report forwards a non-fatal error without blocking the producer.
func (s *stream) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
