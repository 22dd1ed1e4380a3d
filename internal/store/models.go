package store

import (
	"time"

	"github.com/google/uuid"

	"stride/internal/geo"
)

// SchemaVersion is the current version written into every persisted record.
// Records without a version were written by older builds and are migrated on
// read; records with a newer version are rejected.
const SchemaVersion = 1

// MaxPathPoints bounds ActiveRunState.Path. The oldest points are evicted first.
const MaxPathPoints = 5000

// ActiveRunState is the durable record of the run in progress. At most one
// exists at a time.
type ActiveRunState struct {
	Version         int         `json:"v"`
	StartedAt       int64       `json:"startedAt"`       // ms since epoch, immutable
	TotalDistanceMi float64     `json:"totalDistanceMi"` // miles
	ElapsedSec      int         `json:"elapsedSec"`      // frozen while paused
	IsRunning       bool        `json:"isRunning"`       // false = paused
	LastLat         *float64    `json:"lastLat,omitempty"`
	LastLng         *float64    `json:"lastLng,omitempty"`
	Path            []geo.Point `json:"path"`
	UpdatedAt       int64       `json:"updatedAt,omitempty"` // ms since epoch
}

// NewActiveRunState returns a fresh running state started at now.
func NewActiveRunState(now time.Time) *ActiveRunState {
	return &ActiveRunState{
		Version:   SchemaVersion,
		StartedAt: now.UnixMilli(),
		IsRunning: true,
		Path:      []geo.Point{},
		UpdatedAt: now.UnixMilli(),
	}
}

// Resumable reports whether the record describes a session worth offering
// back to the user after a restart.
func (s *ActiveRunState) Resumable() bool {
	return s.IsRunning || s.ElapsedSec > 0
}

// StartedTime returns StartedAt as a time.Time.
func (s *ActiveRunState) StartedTime() time.Time {
	return time.UnixMilli(s.StartedAt)
}

// LastPoint returns the last accepted coordinate, if any.
func (s *ActiveRunState) LastPoint() (geo.Point, bool) {
	if s.LastLat == nil || s.LastLng == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *s.LastLat, Lng: *s.LastLng}, true
}

// AppendPoint records p as the newest path point and last coordinate,
// evicting the oldest points beyond MaxPathPoints.
func (s *ActiveRunState) AppendPoint(p geo.Point) {
	s.Path = append(s.Path, p)
	if over := len(s.Path) - MaxPathPoints; over > 0 {
		// Copy so the evicted prefix does not pin the old backing array.
		s.Path = append([]geo.Point(nil), s.Path[over:]...)
	}
	lat, lng := p.Lat, p.Lng
	s.LastLat, s.LastLng = &lat, &lng
}

// Clone returns a deep copy.
func (s *ActiveRunState) Clone() *ActiveRunState {
	c := *s
	c.Path = append([]geo.Point(nil), s.Path...)
	if s.LastLat != nil {
		lat := *s.LastLat
		c.LastLat = &lat
	}
	if s.LastLng != nil {
		lng := *s.LastLng
		c.LastLng = &lng
	}
	return &c
}

// Run is a completed run. It is never modified once stored.
type Run struct {
	Version    int         `json:"v"`
	ID         string      `json:"id"`
	Distance   float64     `json:"distance"` // miles
	Duration   string      `json:"duration"` // M:SS or H:MM:SS
	Pace       string      `json:"pace"`     // M:SS per mile
	Date       time.Time   `json:"date"`     // completion time
	ElapsedSec int         `json:"elapsedSec,omitempty"`
	Path       []geo.Point `json:"path"`
}

// NewRunID returns a time-ordered unique run identifier.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
