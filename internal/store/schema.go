package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"stride/internal/geo"
)

// ErrSchemaMismatch is returned when a stored record cannot be interpreted
// by this build. Callers treat such records as absent.
var ErrSchemaMismatch = errors.New("stored record schema mismatch")

// Records are decoded into these loose shapes first so that missing fields
// can be told apart from zero values while migrating.

type activeRunRecord struct {
	Version         int             `json:"v"`
	StartedAt       *int64          `json:"startedAt"`
	TotalDistanceMi *float64        `json:"totalDistanceMi"`
	ElapsedSec      *int            `json:"elapsedSec"`
	IsRunning       *bool           `json:"isRunning"`
	LastLat         *float64        `json:"lastLat"`
	LastLng         *float64        `json:"lastLng"`
	Path            json.RawMessage `json:"path"`
	UpdatedAt       *int64          `json:"updatedAt"`
}

type runRecord struct {
	Version    int             `json:"v"`
	ID         any             `json:"id"`
	Distance   *float64        `json:"distance"`
	Duration   *string         `json:"duration"`
	Pace       *string         `json:"pace"`
	Date       *string         `json:"date"`
	ElapsedSec *int            `json:"elapsedSec"`
	Path       json.RawMessage `json:"path"`
}

// DecodeActiveRunState parses a stored active run record, migrating legacy
// records and normalizing values that would break the session invariants.
func DecodeActiveRunState(raw string, now time.Time) (*ActiveRunState, error) {
	var rec activeRunRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if rec.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: version %d is newer than %d", ErrSchemaMismatch, rec.Version, SchemaVersion)
	}

	st := &ActiveRunState{
		Version:   SchemaVersion,
		StartedAt: now.UnixMilli(),
		IsRunning: true,
		Path:      decodePath(rec.Path),
	}
	if rec.StartedAt != nil && *rec.StartedAt > 0 {
		st.StartedAt = *rec.StartedAt
	}
	if rec.TotalDistanceMi != nil && finite(*rec.TotalDistanceMi) && *rec.TotalDistanceMi > 0 {
		st.TotalDistanceMi = *rec.TotalDistanceMi
	}
	if rec.ElapsedSec != nil && *rec.ElapsedSec > 0 {
		st.ElapsedSec = *rec.ElapsedSec
	}
	if rec.IsRunning != nil {
		st.IsRunning = *rec.IsRunning
	}
	if rec.LastLat != nil && rec.LastLng != nil {
		if p := (geo.Point{Lat: *rec.LastLat, Lng: *rec.LastLng}); p.Valid() {
			st.LastLat, st.LastLng = &p.Lat, &p.Lng
		}
	}
	if rec.UpdatedAt != nil {
		st.UpdatedAt = *rec.UpdatedAt
	}
	if over := len(st.Path) - MaxPathPoints; over > 0 {
		st.Path = st.Path[over:]
	}
	return st, nil
}

// EncodeActiveRunState serializes st at the current schema version.
func EncodeActiveRunState(st *ActiveRunState) (string, error) {
	c := *st
	c.Version = SchemaVersion
	if c.Path == nil {
		c.Path = []geo.Point{}
	}
	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("encoding active run: %w", err)
	}
	return string(data), nil
}

// DecodeRuns parses the stored history list. Entries that cannot be
// interpreted, including those from a newer schema, are skipped and reported
// through skipped. A list that is not a JSON array fails the whole decode.
func DecodeRuns(raw string, now time.Time) (runs []Run, skipped int, err error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	runs = make([]Run, 0, len(items))
	for _, item := range items {
		var rec runRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped++
			continue
		}
		if rec.Version > SchemaVersion {
			skipped++
			continue
		}
		runs = append(runs, rec.toRun(now))
	}
	return runs, skipped, nil
}

// PrependRun adds run to the front of the stored list raw. Existing entries
// are carried over byte for byte, so entries this build cannot read survive.
// An empty raw is an empty list; anything but a JSON array is refused.
func PrependRun(raw string, run Run) (string, error) {
	var items []json.RawMessage
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
	}

	entry, err := json.Marshal(normalizeRun(run))
	if err != nil {
		return "", fmt.Errorf("encoding run: %w", err)
	}

	out := make([]json.RawMessage, 0, len(items)+1)
	out = append(out, entry)
	out = append(out, items...)
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding runs: %w", err)
	}
	return string(data), nil
}

func normalizeRun(r Run) Run {
	r.Version = SchemaVersion
	if r.Path == nil {
		r.Path = []geo.Point{}
	}
	return r
}

func (rec runRecord) toRun(now time.Time) Run {
	r := Run{
		Version:  SchemaVersion,
		Duration: "0:00",
		Pace:     "0:00",
		Date:     now.UTC(),
		Path:     decodePath(rec.Path),
	}

	switch id := rec.ID.(type) {
	case string:
		r.ID = id
	case float64:
		r.ID = fmt.Sprintf("%.0f", id)
	}
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if rec.Distance != nil && finite(*rec.Distance) && *rec.Distance > 0 {
		r.Distance = *rec.Distance
	}
	if rec.Duration != nil && *rec.Duration != "" {
		r.Duration = *rec.Duration
	}
	if rec.Pace != nil && *rec.Pace != "" {
		r.Pace = *rec.Pace
	}
	if rec.Date != nil {
		if t, err := time.Parse(time.RFC3339Nano, *rec.Date); err == nil {
			r.Date = t
		}
	}
	if rec.ElapsedSec != nil && *rec.ElapsedSec > 0 {
		r.ElapsedSec = *rec.ElapsedSec
	}
	return r
}

// decodePath keeps only entries with numeric, in-range lat and lng. Anything
// that is not an array yields an empty path.
func decodePath(raw json.RawMessage) []geo.Point {
	var items []any
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return []geo.Point{}
	}

	path := make([]geo.Point, 0, len(items))
	for _, v := range items {
		item, ok := v.(map[string]any)
		if !ok {
			continue
		}
		lat, latOK := item["lat"].(float64)
		lng, lngOK := item["lng"].(float64)
		if !latOK || !lngOK {
			continue
		}
		if pt := (geo.Point{Lat: lat, Lng: lng}); pt.Valid() {
			path = append(path, pt)
		}
	}
	return path
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
