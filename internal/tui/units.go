package tui

import (
	"fmt"

	"stride/internal/config"
	"stride/internal/session"
)

const kmPerMile = 1.609344

// Units provides unit conversion and formatting based on user preferences.
// Every distance handed to it is in miles, the unit runs are stored in.
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// Distance converts miles to the user's preferred unit
func (u Units) Distance(miles float64) float64 {
	if u.IsMiles() {
		return miles
	}
	return miles * kmPerMile
}

// FormatDistance formats a distance in miles to the user's preferred unit
func (u Units) FormatDistance(miles float64) string {
	return fmt.Sprintf("%.2f %s", u.Distance(miles), u.DistanceLabel())
}

// FormatDistanceValue returns just the numeric distance value (no unit label)
func (u Units) FormatDistanceValue(miles float64) string {
	return fmt.Sprintf("%.2f", u.Distance(miles))
}

// FormatPace formats pace from total seconds and miles to the user's preferred unit
func (u Units) FormatPace(seconds int, miles float64) string {
	if miles <= 0 || seconds <= 0 {
		return "-"
	}
	if u.cfg.PaceUnit == "min/km" {
		return session.FormatPace(seconds, miles*kmPerMile)
	}
	return session.FormatPace(seconds, miles)
}

// FormatPaceWithUnit formats pace with the unit label
func (u Units) FormatPaceWithUnit(seconds int, miles float64) string {
	pace := u.FormatPace(seconds, miles)
	if pace == "-" {
		return pace
	}
	return pace + "/" + u.paceDistanceLabel()
}

// DistanceLabel returns the short unit label ("mi" or "km")
func (u Units) DistanceLabel() string {
	if u.IsMiles() {
		return "mi"
	}
	return "km"
}

// DistanceLabelLong returns the long unit label ("miles" or "km")
func (u Units) DistanceLabelLong() string {
	if u.IsMiles() {
		return "miles"
	}
	return "km"
}

// PaceLabel returns the pace unit label ("min/mi" or "min/km")
func (u Units) PaceLabel() string {
	return "min/" + u.paceDistanceLabel()
}

func (u Units) paceDistanceLabel() string {
	if u.cfg.PaceUnit == "min/km" {
		return "km"
	}
	return "mi"
}

// ConvertDistanceData converts a series in miles for charts
func (u Units) ConvertDistanceData(miles []float64) []float64 {
	if u.IsMiles() {
		return miles
	}
	converted := make([]float64, len(miles))
	for i, d := range miles {
		converted[i] = d * kmPerMile
	}
	return converted
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit != "km"
}
