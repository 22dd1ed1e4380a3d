package analysis

import (
	"fmt"
	"math"
	"testing"
)

func TestCalculateVDOT(t *testing.T) {
	tests := []struct {
		name            string
		distanceMi      float64
		durationSeconds int
		wantVDOT        float64
		tolerance       float64
	}{
		{
			name:            "5K at 19:00 (VDOT ~50)",
			distanceMi:      Distance5K,
			durationSeconds: 1140, // 19:00 - matches VDOT 50 in table
			wantVDOT:        50.0,
			tolerance:       1.0,
		},
		{
			name:            "5K at 23:42 (VDOT ~40)",
			distanceMi:      Distance5K,
			durationSeconds: 1422, // 23:42 - matches VDOT 40 in table
			wantVDOT:        40.0,
			tolerance:       1.0,
		},
		{
			name:            "10K at 39:24 (VDOT ~50)",
			distanceMi:      Distance10K,
			durationSeconds: 2364, // 39:24 - matches VDOT 50 in table
			wantVDOT:        50.0,
			tolerance:       1.0,
		},
		{
			name:            "Marathon at 2:54:54 (VDOT ~50)",
			distanceMi:      DistanceMarathon,
			durationSeconds: 10494, // 2:54:54 - matches VDOT 50 in table
			wantVDOT:        50.0,
			tolerance:       1.0,
		},
		{
			name:            "Half marathon at 1:25:00 (VDOT ~50)",
			distanceMi:      DistanceHalfMara,
			durationSeconds: 5100, // 1:25:00 - matches VDOT 50 in table
			wantVDOT:        50.0,
			tolerance:       1.0,
		},
		{
			name:            "1 Mile at 5:44 (VDOT ~50)",
			distanceMi:      Distance1Mile,
			durationSeconds: 344, // 5:44 - matches VDOT 50 in table
			wantVDOT:        50.0,
			tolerance:       1.0,
		},
		{
			name:            "Elite 5K at 13:00 (VDOT ~75+)",
			distanceMi:      Distance5K,
			durationSeconds: 786, // 13:06 - matches VDOT 75 in table
			wantVDOT:        75.0,
			tolerance:       2.0,
		},
		{
			name:            "Beginner 5K at 31:00 (VDOT ~31)",
			distanceMi:      Distance5K,
			durationSeconds: 1806, // 30:06 - matches VDOT 31 in table
			wantVDOT:        31.0,
			tolerance:       1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateVDOT(tt.distanceMi, tt.durationSeconds)
			if math.Abs(got-tt.wantVDOT) > tt.tolerance {
				t.Errorf("CalculateVDOT() = %v, want %v (±%v)", got, tt.wantVDOT, tt.tolerance)
			}
		})
	}
}

func TestCalculateVDOT_EdgeCases(t *testing.T) {
	// Zero duration should return 0
	if got := CalculateVDOT(Distance5K, 0); got != 0 {
		t.Errorf("CalculateVDOT with zero duration = %v, want 0", got)
	}

	// Negative duration should return 0
	if got := CalculateVDOT(Distance5K, -100); got != 0 {
		t.Errorf("CalculateVDOT with negative duration = %v, want 0", got)
	}

	// Very slow time should return minimum VDOT
	got := CalculateVDOT(Distance5K, 3600) // 1 hour 5K
	if got > 30 {
		t.Errorf("CalculateVDOT for very slow time = %v, want <= 30", got)
	}

	// Very fast time should return maximum VDOT
	got = CalculateVDOT(Distance5K, 600) // 10:00 5K (world record pace)
	if got < 80 {
		t.Errorf("CalculateVDOT for very fast time = %v, want >= 80", got)
	}
}

func TestPredictTime(t *testing.T) {
	tests := []struct {
		name           string
		vdot           float64
		targetDistance float64
		wantSeconds    int
		tolerance      int
	}{
		{
			name:           "VDOT 50 predicting 5K",
			vdot:           50.0,
			targetDistance: Distance5K,
			wantSeconds:    1140, // 19:00
			tolerance:      60,   // ±1 min
		},
		{
			name:           "VDOT 50 predicting 10K",
			vdot:           50.0,
			targetDistance: Distance10K,
			wantSeconds:    2364, // 39:24
			tolerance:      120,  // ±2 min
		},
		{
			name:           "VDOT 50 predicting half marathon",
			vdot:           50.0,
			targetDistance: DistanceHalfMara,
			wantSeconds:    5100, // 1:25:00
			tolerance:      180,  // ±3 min
		},
		{
			name:           "VDOT 50 predicting marathon",
			vdot:           50.0,
			targetDistance: DistanceMarathon,
			wantSeconds:    10494, // 2:54:54
			tolerance:      300,   // ±5 min
		},
		{
			name:           "VDOT 40 predicting 5K",
			vdot:           40.0,
			targetDistance: Distance5K,
			wantSeconds:    1422, // 23:42
			tolerance:      60,
		},
		{
			name:           "VDOT 60 predicting marathon",
			vdot:           60.0,
			targetDistance: DistanceMarathon,
			wantSeconds:    8664, // 2:24:24
			tolerance:      300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictTime(tt.vdot, tt.targetDistance)
			if abs(got-tt.wantSeconds) > tt.tolerance {
				t.Errorf("PredictTime() = %v (%v), want %v (±%v)",
					got, formatDuration(got), tt.wantSeconds, tt.tolerance)
			}
		})
	}
}

func TestPredictTime_EdgeCases(t *testing.T) {
	// Zero VDOT should return 0
	if got := PredictTime(0, Distance5K); got != 0 {
		t.Errorf("PredictTime with zero VDOT = %v, want 0", got)
	}

	// Negative VDOT should return 0
	if got := PredictTime(-50, Distance5K); got != 0 {
		t.Errorf("PredictTime with negative VDOT = %v, want 0", got)
	}
}

func TestVDOTLabel(t *testing.T) {
	tests := []struct {
		vdot      float64
		wantLabel string
	}{
		{80, "Elite"},
		{75, "Elite"},
		{70, "Highly Competitive"},
		{65, "Highly Competitive"},
		{60, "Competitive"},
		{55, "Competitive"},
		{50, "Advanced Recreational"},
		{45, "Advanced Recreational"},
		{42, "Intermediate"},
		{38, "Intermediate"},
		{35, "Beginner"},
		{30, "Beginner"},
		{25, "Novice"},
	}

	for _, tt := range tests {
		t.Run(tt.wantLabel, func(t *testing.T) {
			got := VDOTLabel(tt.vdot)
			if got != tt.wantLabel {
				t.Errorf("VDOTLabel(%v) = %v, want %v", tt.vdot, got, tt.wantLabel)
			}
		})
	}
}

func TestPredictTime_OffTableDistance(t *testing.T) {
	// 15K sits between the 10K and half columns
	got := PredictTime(50, 9.32057)
	if got <= 2364 || got >= 5100 {
		t.Errorf("PredictTime(50, 15K) = %v, want between the 10K and half times", formatDuration(got))
	}
}

func TestTimeAtColumns(t *testing.T) {
	entry := VDOTTable[20] // VDOT 50

	tests := []struct {
		name       string
		distanceMi float64
		want       float64
	}{
		{"1500m column", Distance1500m, entry.Time1500},
		{"mile column", Distance1Mile, entry.Time1Mi},
		{"5K column", Distance5K, entry.Time5K},
		{"GPS-long 5K reads the 5K column", 3.2, entry.Time5K},
		{"GPS-short half reads the half column", 12.9, entry.TimeHalf},
		{"marathon column", DistanceMarathon, entry.TimeFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timeAt(entry, tt.distanceMi); got != tt.want {
				t.Errorf("timeAt(%v) = %v, want %v", tt.distanceMi, got, tt.want)
			}
		})
	}
}

func TestTimeAtOffTable(t *testing.T) {
	entry := VDOTTable[20]

	// Shorter than 1500m extrapolates from the first two columns
	if got := timeAt(entry, 0.5); got <= 0 || got >= entry.Time1500 {
		t.Errorf("timeAt(0.5 mi) = %v, want between 0 and %v", got, entry.Time1500)
	}

	// Longer than a marathon extrapolates from the last two columns
	if got := timeAt(entry, 31.07); got <= entry.TimeFull {
		t.Errorf("timeAt(50K) = %v, want more than the marathon %v", got, entry.TimeFull)
	}

	// Times rise with distance across the whole range
	prev := 0.0
	for _, d := range []float64{0.5, Distance1500m, Distance1Mile, 2, Distance5K, 5, Distance10K, 9.32, DistanceHalfMara, 20, DistanceMarathon, 31.07} {
		got := timeAt(entry, d)
		if got <= prev {
			t.Errorf("timeAt(%v) = %v, not above %v", d, got, prev)
		}
		prev = got
	}
}

func TestCalculateVDOT_OffTableDistance(t *testing.T) {
	// A 15K and a 50K run at VDOT 50 effort read back as about 50
	for _, d := range []float64{9.32057, 31.0686} {
		secs := PredictTime(50, d)
		if got := CalculateVDOT(d, secs); math.Abs(got-50) > 0.5 {
			t.Errorf("CalculateVDOT(%v mi, %v) = %v, want about 50", d, formatDuration(secs), got)
		}
	}
}

func TestCalculateVDOT_Clamps(t *testing.T) {
	if got := CalculateVDOT(Distance10K, 3*3600); got != VDOTTable[0].VDOT {
		t.Errorf("slow 10K = %v, want %v", got, VDOTTable[0].VDOT)
	}
	if got := CalculateVDOT(Distance10K, 20*60); got != VDOTTable[len(VDOTTable)-1].VDOT {
		t.Errorf("fast 10K = %v, want %v", got, VDOTTable[len(VDOTTable)-1].VDOT)
	}
	if got := CalculateVDOT(0, 1200); got != 0 {
		t.Errorf("zero distance = %v, want 0", got)
	}
	if got := PredictTime(25, Distance5K); got != int(VDOTTable[0].Time5K) {
		t.Errorf("PredictTime below the table = %v, want %v", got, VDOTTable[0].Time5K)
	}
	if got := PredictTime(90, Distance5K); got != int(VDOTTable[len(VDOTTable)-1].Time5K) {
		t.Errorf("PredictTime above the table = %v, want %v", got, VDOTTable[len(VDOTTable)-1].Time5K)
	}
}

func TestRoundTrip(t *testing.T) {
	// Test that calculating VDOT from a time and predicting back gives similar time
	tests := []struct {
		distance float64
		duration int
	}{
		{Distance5K, 1200},        // 20:00 5K
		{Distance10K, 2400},       // 40:00 10K
		{DistanceHalfMara, 5400},  // 1:30:00 half
		{DistanceMarathon, 11400}, // 3:10:00 marathon
	}

	for _, tt := range tests {
		t.Run(formatDuration(tt.duration), func(t *testing.T) {
			vdot := CalculateVDOT(tt.distance, tt.duration)
			predicted := PredictTime(vdot, tt.distance)

			// Should be within 2% of original time
			tolerance := int(float64(tt.duration) * 0.02)
			if abs(predicted-tt.duration) > tolerance {
				t.Errorf("Round trip: original %v, VDOT %.1f, predicted %v (diff: %v)",
					formatDuration(tt.duration), vdot, formatDuration(predicted), abs(predicted-tt.duration))
			}
		})
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func formatDuration(seconds int) string {
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
