// Package export writes completed runs to files other tools can read.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tkrajina/gpxgo/gpx"

	"stride/internal/store"
)

// ErrEmptyPath is returned when a run has no recorded points to export.
var ErrEmptyPath = errors.New("run has no recorded path")

// ToGPX converts run into a single-track GPX document.
func ToGPX(run store.Run) *gpx.GPX {
	points := make([]gpx.GPXPoint, 0, len(run.Path))
	for _, p := range run.Path {
		points = append(points, gpx.GPXPoint{
			Point: gpx.Point{Latitude: p.Lat, Longitude: p.Lng},
		})
	}

	date := run.Date
	return &gpx.GPX{
		Version:     "1.1",
		Creator:     "stride",
		Description: fmt.Sprintf("%.2f mi in %s (%s /mi)", run.Distance, run.Duration, run.Pace),
		Time:        &date,
		Tracks: []gpx.GPXTrack{{
			Name:     "Run " + run.Date.Local().Format("2006-01-02 15:04"),
			Type:     "running",
			Segments: []gpx.GPXTrackSegment{{Points: points}},
		}},
	}
}

// WriteGPX writes run as GPX 1.1 XML.
func WriteGPX(w io.Writer, run store.Run) error {
	if len(run.Path) == 0 {
		return ErrEmptyPath
	}
	data, err := ToGPX(run).ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("encoding gpx: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing gpx: %w", err)
	}
	return nil
}

// FileName returns the export file name for run.
func FileName(run store.Run) string {
	id := run.ID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return fmt.Sprintf("stride-%s-%s.gpx", run.Date.Local().Format("20060102-1504"), id)
}

// WriteFile exports run into dir and returns the written path.
func WriteFile(dir string, run store.Run) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, FileName(run))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteGPX(f, run); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}
