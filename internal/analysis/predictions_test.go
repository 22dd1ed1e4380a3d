package analysis

import (
	"testing"
	"time"

	"stride/internal/store"
)

func raceRun(id string, distance float64, secs int, date time.Time) store.Run {
	return store.Run{ID: id, Distance: distance, ElapsedSec: secs, Date: date}
}

func TestSelectRaceSource(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, -1, 0)
	old := now.AddDate(-2, 0, 0)

	tests := []struct {
		name    string
		races   map[string]store.Run
		wantCat string
		wantNil bool
	}{
		{
			name:    "no races",
			wantNil: true,
		},
		{
			name: "prefers marathon over half",
			races: map[string]store.Run{
				"Half":     raceRun("h", DistanceHalfMara, 5400, recent),
				"Marathon": raceRun("m", DistanceMarathon, 11400, recent),
			},
			wantCat: "Marathon",
		},
		{
			name: "skips results older than a year",
			races: map[string]store.Run{
				"Marathon": raceRun("m", DistanceMarathon, 11400, old),
				"5K":       raceRun("5", Distance5K, 1200, recent),
			},
			wantCat: "5K",
		},
		{
			name: "all results old",
			races: map[string]store.Run{
				"Half": raceRun("h", DistanceHalfMara, 5400, old),
			},
			wantNil: true,
		},
		{
			name: "skips results without a duration",
			races: map[string]store.Run{
				"10K": raceRun("t", Distance10K, 0, recent),
				"5K":  raceRun("5", Distance5K, 1200, recent),
			},
			wantCat: "5K",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectRaceSource(PersonalBests{Races: tt.races}, now)
			if tt.wantNil {
				if got != nil {
					t.Errorf("SelectRaceSource() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("SelectRaceSource() = nil")
			}
			if got.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCat)
			}
			if got.VDOT <= 0 {
				t.Errorf("VDOT = %v, want > 0", got.VDOT)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		source    *RaceSource
		targetMi  float64
		wantLabel string
	}{
		{
			name:      "nil source",
			targetMi:  Distance5K,
			wantLabel: "low",
		},
		{
			name:      "recent, close distance",
			source:    &RaceSource{Run: raceRun("a", Distance5K, 1200, now.AddDate(0, 0, -7))},
			targetMi:  Distance10K,
			wantLabel: "high",
		},
		{
			name:      "recent, 5K to marathon",
			source:    &RaceSource{Run: raceRun("a", Distance5K, 1200, now.AddDate(0, 0, -7))},
			targetMi:  DistanceMarathon,
			wantLabel: "medium",
		},
		{
			name:      "old, 5K to marathon",
			source:    &RaceSource{Run: raceRun("a", Distance5K, 1200, now.AddDate(0, -8, 0))},
			targetMi:  DistanceMarathon,
			wantLabel: "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, label := Confidence(tt.source, tt.targetMi, now)
			if label != tt.wantLabel {
				t.Errorf("Confidence() = %.2f %q, want %q", score, label, tt.wantLabel)
			}
			if score < 0 || score > 1 {
				t.Errorf("score = %v, want within [0, 1]", score)
			}
		})
	}
}

func TestPredictRaces(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	pb := PersonalBests{Races: map[string]store.Run{
		"10K": raceRun("t", Distance10K, 2364, now.AddDate(0, 0, -10)),
	}}

	src, preds := PredictRaces(pb, now)
	if src == nil || src.Category != "10K" {
		t.Fatalf("source = %+v, want the 10K", src)
	}
	if len(preds) != 3 {
		t.Fatalf("got %d predictions, want 3 (10K itself skipped)", len(preds))
	}

	want := map[string]int{"5K": 1140, "Half": 5100, "Marathon": 10494}
	for _, p := range preds {
		w, ok := want[p.Category]
		if !ok {
			t.Errorf("unexpected prediction for %s", p.Category)
			continue
		}
		if abs(p.PredictedSeconds-w) > 60 {
			t.Errorf("%s = %s, want about %s", p.Category, formatDuration(p.PredictedSeconds), formatDuration(w))
		}
		if p.PacePerMile <= 0 {
			t.Errorf("%s pace = %v, want > 0", p.Category, p.PacePerMile)
		}
	}
}

func TestPredictRacesNoSource(t *testing.T) {
	src, preds := PredictRaces(PersonalBests{}, time.Now())
	if src != nil || preds != nil {
		t.Errorf("PredictRaces() = %v, %v; want nil, nil", src, preds)
	}
}

func TestRaceLabel(t *testing.T) {
	for cat, want := range map[string]string{"1 mi": "1 Mile", "Half": "Half Marathon", "5K": "5K", "Marathon": "Marathon"} {
		if got := RaceLabel(cat); got != want {
			t.Errorf("RaceLabel(%q) = %q, want %q", cat, got, want)
		}
	}
}
