package analysis

import (
	"strconv"
	"strings"
	"time"

	"stride/internal/store"
)

// Summary aggregates a set of runs
type Summary struct {
	Runs       int
	DistanceMi float64
	ElapsedSec int
}

// AvgPaceSec returns the average pace in seconds per mile, 0 when unknown
func (s Summary) AvgPaceSec() float64 {
	return PacePerMile(s.DistanceMi, s.ElapsedSec)
}

// Summaries holds the dashboard totals
type Summaries struct {
	Week  Summary // last 7 days
	Month Summary // last 30 days
	Total Summary
}

// Summarize totals runs completed in the last 7 and 30 days and overall
func Summarize(runs []store.Run, now time.Time) Summaries {
	weekStart := now.AddDate(0, 0, -7)
	monthStart := now.AddDate(0, 0, -30)

	var s Summaries
	for _, r := range runs {
		elapsed, _ := RunSeconds(r)
		add(&s.Total, r.Distance, elapsed)
		if r.Date.After(monthStart) {
			add(&s.Month, r.Distance, elapsed)
		}
		if r.Date.After(weekStart) {
			add(&s.Week, r.Distance, elapsed)
		}
	}
	return s
}

func add(s *Summary, dist float64, elapsed int) {
	s.Runs++
	s.DistanceMi += dist
	s.ElapsedSec += elapsed
}

// DailyTotal is the distance run on one calendar day
type DailyTotal struct {
	Date       time.Time
	DistanceMi float64
}

// DailyDistance returns one entry per day for the `days` days ending on now's
// day, oldest first. Days without runs are zero.
func DailyDistance(runs []store.Run, days int, now time.Time) []DailyTotal {
	if days <= 0 {
		return nil
	}

	loc := now.Location()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := end.AddDate(0, 0, -(days - 1))

	// Sum multiple runs on the same day
	byDay := make(map[string]float64)
	for _, r := range runs {
		byDay[r.Date.In(loc).Format("2006-01-02")] += r.Distance
	}

	totals := make([]DailyTotal, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		totals = append(totals, DailyTotal{Date: d, DistanceMi: byDay[d.Format("2006-01-02")]})
	}
	return totals
}

// RunSeconds returns a run's elapsed seconds, falling back to parsing its
// formatted duration for records that predate elapsedSec.
func RunSeconds(r store.Run) (int, bool) {
	if r.ElapsedSec > 0 {
		return r.ElapsedSec, true
	}
	return ParseDuration(r.Duration)
}

// ParseDuration parses M:SS or H:MM:SS
func ParseDuration(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
