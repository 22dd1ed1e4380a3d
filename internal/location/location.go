// Package location turns a raw position source into the filtered stream of
// samples a run session accumulates distance from.
package location

import (
	"context"
	"errors"
	"time"

	"stride/internal/geo"
)

// Permission is the outcome of a location permission query.
type Permission int

const (
	PermissionDenied Permission = iota
	PermissionGranted
	// PermissionUnavailable means the source cannot provide positions at all
	// (no GPS device attached, replay file missing).
	PermissionUnavailable
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionUnavailable:
		return "unavailable"
	default:
		return "denied"
	}
}

// Accuracy is the desired accuracy hint passed to a provider.
type Accuracy string

const (
	AccuracyHigh     Accuracy = "high"
	AccuracyBalanced Accuracy = "balanced"
	AccuracyLow      Accuracy = "low"
)

// Options are lower bounds on sample frequency, not guarantees. A provider
// may emit less often under poor signal.
type Options struct {
	MinInterval       time.Duration
	MinDistanceMeters float64
	DesiredAccuracy   Accuracy
}

// DefaultOptions returns the options used for run tracking.
func DefaultOptions() Options {
	return Options{
		MinInterval:       2 * time.Second,
		MinDistanceMeters: 3,
		DesiredAccuracy:   AccuracyHigh,
	}
}

// Sample is a single position reading.
type Sample struct {
	Lat            float64
	Lng            float64
	AccuracyMeters float64 // horizontal accuracy; 0 when the source does not report it
	Timestamp      time.Time
}

// Point returns the sample's coordinate.
func (s Sample) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lng: s.Lng}
}

// Subscription is a cancellable stream of samples. Close is idempotent and
// closes the Samples channel once the producer has stopped.
type Subscription interface {
	Samples() <-chan Sample
	Errors() <-chan error
	Close() error
}

// Provider is a position source.
type Provider interface {
	Permission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (Permission, error)
	Subscribe(ctx context.Context, opts Options) (Subscription, error)
}

// ErrNotPermitted is returned by Subscribe when permission has not been granted.
var ErrNotPermitted = errors.New("location permission not granted")
