package geo

import (
	"fmt"
	"math"
	"strings"
)

// Route simplification limits used by the history list and the run detail view.
const (
	ListMapPoints   = 40
	DetailMapPoints = 100
)

const staticMapBase = "https://staticmap.openstreetmap.de/staticmap.php"

// SimplifyPath down-samples points for rendering. When the input already fits
// it is returned as is. Otherwise points are kept at a fixed stride starting
// with the first, and the last point is always included. The result never
// holds more than maxPoints+1 points and keeps the input order.
//
// The stride is ceil(len/maxPoints). A floor stride degenerates to 1 whenever
// len < 2*maxPoints and would return the whole path.
//
// Distance accumulation must never use the simplified path.
func SimplifyPath(points []Point, maxPoints int) []Point {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}

	step := (len(points) + maxPoints - 1) / maxPoints
	simplified := make([]Point, 0, maxPoints+1)
	for i := 0; i < len(points); i += step {
		simplified = append(simplified, points[i])
	}
	if (len(points)-1)%step != 0 {
		simplified = append(simplified, points[len(points)-1])
	}
	return simplified
}

// BoundingBox is the smallest lat/lng rectangle containing a path.
type BoundingBox struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
}

// Bounds returns the bounding box of points. ok is false for an empty path.
func Bounds(points []Point) (box BoundingBox, ok bool) {
	if len(points) == 0 {
		return BoundingBox{}, false
	}
	box = BoundingBox{
		MinLat: math.Inf(1), MinLng: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLng: math.Inf(-1),
	}
	for _, p := range points {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLng = math.Min(box.MinLng, p.Lng)
		box.MaxLng = math.Max(box.MaxLng, p.Lng)
	}
	return box, true
}

// StaticMapURL builds an OpenStreetMap static map URL that draws the route.
// maxPoints bounds the number of encoded coordinates so the URL stays short.
func StaticMapURL(points []Point, maxPoints, width, height int) string {
	pts := SimplifyPath(points, maxPoints)
	box, ok := Bounds(pts)
	if !ok {
		return fmt.Sprintf("%s?center=0,0&zoom=1&size=%dx%d", staticMapBase, width, height)
	}

	encoded := make([]string, len(pts))
	for i, p := range pts {
		encoded[i] = fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
	}

	center := box.Center()
	return fmt.Sprintf("%s?center=%.6f,%.6f&zoom=14&size=%dx%d&maptype=mapnik&path=weight:3|color:0x007AFF|%s",
		staticMapBase, center.Lat, center.Lng, width, height, strings.Join(encoded, "|"))
}
