package analysis

import (
	"sort"

	"stride/internal/store"
)

// Standard race distances in miles
const (
	Distance1Mile     = 1.0
	Distance5K        = 3.10686
	Distance10K       = 6.21371
	DistanceHalfMara  = 13.1094
	DistanceMarathon  = 26.2188
	DistanceTolerance = 0.05 // 5% tolerance for race distance matching

	// MinPaceDistanceMi is the shortest run eligible for the fastest pace record
	MinPaceDistanceMi = 1.0
)

// RaceDistances defines the standard race distances for whole-run bests
var RaceDistances = map[string]float64{
	"1 mi":     Distance1Mile,
	"5K":       Distance5K,
	"10K":      Distance10K,
	"Half":     DistanceHalfMara,
	"Marathon": DistanceMarathon,
}

// RaceOrder lists RaceDistances keys shortest first
var RaceOrder = []string{"1 mi", "5K", "10K", "Half", "Marathon"}

// PersonalBests are the standout runs in a history
type PersonalBests struct {
	Longest     *store.Run
	FastestPace *store.Run // among runs of at least MinPaceDistanceMi
	// Fastest whole run matching each race distance, keyed by RaceDistances name
	Races map[string]store.Run
}

// FindPersonalBests scans runs for personal bests. Runs without a usable
// duration only count toward Longest.
func FindPersonalBests(runs []store.Run) PersonalBests {
	pb := PersonalBests{Races: make(map[string]store.Run)}
	bestPace := 0.0
	racePace := make(map[string]float64)

	for i := range runs {
		r := runs[i]
		if r.Distance <= 0 {
			continue
		}
		if pb.Longest == nil || r.Distance > pb.Longest.Distance {
			pb.Longest = &runs[i]
		}

		secs, ok := RunSeconds(r)
		if !ok || secs <= 0 {
			continue
		}
		pace := PacePerMile(r.Distance, secs)

		if r.Distance >= MinPaceDistanceMi && (pb.FastestPace == nil || pace < bestPace) {
			pb.FastestPace = &runs[i]
			bestPace = pace
		}

		if cat, _, ok := MatchingRaceCategory(r.Distance); ok {
			if prev, seen := racePace[cat]; !seen || pace < prev {
				racePace[cat] = pace
				pb.Races[cat] = r
			}
		}
	}
	return pb
}

// MatchesRaceDistance checks if a run's distance matches a standard race
// distance within the tolerance (±5%)
func MatchesRaceDistance(runDistance, raceDistance float64) bool {
	lowerBound := raceDistance * (1 - DistanceTolerance)
	upperBound := raceDistance * (1 + DistanceTolerance)
	return runDistance >= lowerBound && runDistance <= upperBound
}

// MatchingRaceCategory returns the race category if the run matches a
// standard distance
func MatchingRaceCategory(distanceMi float64) (category string, distance float64, matches bool) {
	for _, cat := range RaceOrder {
		dist := RaceDistances[cat]
		if MatchesRaceDistance(distanceMi, dist) {
			return cat, dist, true
		}
	}
	return "", 0, false
}

// PacePerMile calculates pace in seconds per mile
func PacePerMile(distanceMi float64, elapsedSec int) float64 {
	if distanceMi <= 0 || elapsedSec <= 0 {
		return 0
	}
	return float64(elapsedSec) / distanceMi
}

// RecentRuns returns up to n runs, newest first
func RecentRuns(runs []store.Run, n int) []store.Run {
	sorted := append([]store.Run(nil), runs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
