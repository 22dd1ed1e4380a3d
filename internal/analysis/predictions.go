package analysis

import (
	"math"
	"time"

	"stride/internal/store"
)

// PredictionWindow is how far back a race result may be and still seed predictions
const PredictionWindow = 365 * 24 * time.Hour

// PredictionTargets are the race categories predicted, shortest first
var PredictionTargets = []string{"5K", "10K", "Half", "Marathon"}

// RaceSource is the race result predictions are derived from
type RaceSource struct {
	Category    string
	Run         store.Run
	DurationSec int
	VDOT        float64
}

// RacePrediction is a predicted finish time for one race category
type RacePrediction struct {
	Category         string
	DistanceMi       float64
	PredictedSeconds int
	PacePerMile      float64
	Confidence       string  // "high", "medium", "low"
	ConfidenceScore  float64 // 0.0 to 1.0
}

// SelectRaceSource picks the longest race-distance best from the window
// ending at now. Returns nil if none qualifies.
func SelectRaceSource(pb PersonalBests, now time.Time) *RaceSource {
	cutoff := now.Add(-PredictionWindow)

	for i := len(RaceOrder) - 1; i >= 0; i-- {
		cat := RaceOrder[i]
		run, ok := pb.Races[cat]
		if !ok || run.Date.Before(cutoff) {
			continue
		}
		secs, ok := RunSeconds(run)
		if !ok || secs <= 0 {
			continue
		}
		vdot := CalculateVDOT(run.Distance, secs)
		if vdot <= 0 {
			continue
		}
		return &RaceSource{Category: cat, Run: run, DurationSec: secs, VDOT: vdot}
	}
	return nil
}

// Confidence scores a prediction by how far it extrapolates from the
// source distance and how old the source result is
func Confidence(src *RaceSource, targetMi float64, now time.Time) (float64, string) {
	if src == nil || src.Run.Distance <= 0 {
		return 0, "low"
	}

	score := 1.0

	ratio := targetMi / src.Run.Distance
	if ratio < 1 {
		ratio = 1 / ratio
	}
	switch {
	case ratio > 4:
		score *= 0.7
	case ratio > 2:
		score *= 0.85
	case ratio > 1.5:
		score *= 0.95
	}

	days := now.Sub(src.Run.Date).Hours() / 24
	switch {
	case days > 180:
		score *= 0.75
	case days > 90:
		score *= 0.9
	case days > 30:
		score *= 0.95
	}

	switch {
	case score >= 0.85:
		return score, "high"
	case score >= 0.65:
		return score, "medium"
	default:
		return score, "low"
	}
}

// PredictRaces predicts finish times for PredictionTargets from the best
// recent race result. The source's own category is skipped.
func PredictRaces(pb PersonalBests, now time.Time) (*RaceSource, []RacePrediction) {
	src := SelectRaceSource(pb, now)
	if src == nil {
		return nil, nil
	}

	var predictions []RacePrediction
	for _, cat := range PredictionTargets {
		if cat == src.Category {
			continue
		}
		dist := RaceDistances[cat]

		secs := PredictTime(src.VDOT, dist)
		if secs <= 0 {
			continue
		}
		score, label := Confidence(src, dist, now)

		predictions = append(predictions, RacePrediction{
			Category:         cat,
			DistanceMi:       dist,
			PredictedSeconds: secs,
			PacePerMile:      PacePerMile(dist, secs),
			Confidence:       label,
			ConfidenceScore:  math.Round(score*100) / 100,
		})
	}
	return src, predictions
}

// RaceLabel returns the long name of a race category
func RaceLabel(category string) string {
	switch category {
	case "1 mi":
		return "1 Mile"
	case "Half":
		return "Half Marathon"
	}
	return category
}
