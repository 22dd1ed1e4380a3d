package location

import (
	"stride/internal/geo"
)

const (
	// DefaultMaxAccuracyMeters is the worst horizontal accuracy still used.
	DefaultMaxAccuracyMeters = 50.0
	// DefaultMaxJumpMi is the smallest delta treated as a GPS jump.
	DefaultMaxJumpMi = 0.2
)

// Decision is the filter's verdict on a sample.
type Decision int

const (
	// Accepted samples contribute their delta to the run.
	Accepted Decision = iota
	// Anchored is the first usable sample of a subscription. It only sets the anchor.
	Anchored
	// Paused samples move the anchor but contribute nothing.
	Paused
	RejectedAccuracy
	RejectedOutlier
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Anchored:
		return "anchored"
	case Paused:
		return "paused"
	case RejectedAccuracy:
		return "rejected_accuracy"
	case RejectedOutlier:
		return "rejected_outlier"
	default:
		return "unknown"
	}
}

// Filter applies the accuracy and outlier rules to a sequence of samples.
// The zero value uses the default thresholds.
type Filter struct {
	MaxAccuracyMeters float64
	MaxJumpMi         float64

	anchor *geo.Point
}

// NewFilter returns a filter with the given thresholds. Non-positive values
// fall back to the defaults.
func NewFilter(maxAccuracyMeters, maxJumpMi float64) *Filter {
	return &Filter{MaxAccuracyMeters: maxAccuracyMeters, MaxJumpMi: maxJumpMi}
}

// Apply classifies s and returns its distance from the anchor in miles when
// accepted. A sample that fails the accuracy check leaves the anchor alone;
// every other sample becomes the new anchor, including rejected outliers.
func (f *Filter) Apply(s Sample, running bool) (float64, Decision) {
	if s.AccuracyMeters > f.maxAccuracy() {
		return 0, RejectedAccuracy
	}

	prev := f.anchor
	p := s.Point()
	f.anchor = &p

	if prev == nil {
		return 0, Anchored
	}
	if !running {
		return 0, Paused
	}

	delta := geo.HaversineMiles(*prev, p)
	if !f.acceptsDelta(delta) {
		return 0, RejectedOutlier
	}
	return delta, Accepted
}

// Anchor returns the current anchor.
func (f *Filter) Anchor() (geo.Point, bool) {
	if f.anchor == nil {
		return geo.Point{}, false
	}
	return *f.anchor, true
}

func (f *Filter) acceptsDelta(deltaMi float64) bool {
	return deltaMi > 0 && deltaMi < f.maxJump()
}

func (f *Filter) maxAccuracy() float64 {
	if f.MaxAccuracyMeters > 0 {
		return f.MaxAccuracyMeters
	}
	return DefaultMaxAccuracyMeters
}

func (f *Filter) maxJump() float64 {
	if f.MaxJumpMi > 0 {
		return f.MaxJumpMi
	}
	return DefaultMaxJumpMi
}
