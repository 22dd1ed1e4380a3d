package session

import (
	"fmt"
	"math"
)

// FormatPace returns minutes per mile as M:SS. Seconds are rounded and carry
// into the minutes when they round to 60. No distance yields "0:00".
func FormatPace(elapsedSec int, distanceMi float64) string {
	if elapsedSec <= 0 || distanceMi <= 0 || math.IsNaN(distanceMi) || math.IsInf(distanceMi, 0) {
		return "0:00"
	}
	paceMin := float64(elapsedSec) / 60 / distanceMi
	mins := int(math.Floor(paceMin))
	secs := int(math.Round((paceMin - float64(mins)) * 60))
	if secs == 60 {
		mins++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// FormatDuration returns H:MM:SS when the duration reaches an hour, M:SS otherwise.
func FormatDuration(elapsedSec int) string {
	if elapsedSec < 0 {
		elapsedSec = 0
	}
	h := elapsedSec / 3600
	m := (elapsedSec % 3600) / 60
	s := elapsedSec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
