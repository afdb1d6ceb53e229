// Package geometry models the free-form region-of-interest polygon in the
// normalized 0-100 coordinate space used by the drawing surface. Percentages
// decouple the interactive surface (displayed at any scale) from the native
// image resolution; conversion to pixels happens once, at mask-build time.
package geometry

import (
	"errors"
	"math"
)

// DefaultClosureThreshold is the proximity radius, in normalized units,
// within which a click on the first point closes the polygon.
const DefaultClosureThreshold = 2.0

// ErrInvalidSelection is returned when an operation requires a closed
// polygon with more than two points and the selection does not qualify.
var ErrInvalidSelection = errors.New("invalid selection")

// Point is a position in normalized 0-100 space, both axes.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Polygon is an ordered sequence of points, insertion order = drawing order.
// A polygon is open while being drawn and closed once the user clicks back
// near the first point.
type Polygon struct {
	Points []Point `json:"points"`
	Closed bool    `json:"closed"`
}

// Append implements the drawing rule: when the polygon already has at least
// one point and pt lies within threshold of the first point, the polygon
// closes and pt is NOT appended. Otherwise pt is appended and the polygon
// stays open. Appending to a closed polygon is a no-op. threshold <= 0 falls
// back to DefaultClosureThreshold. Value semantics: the receiver is never
// mutated.
func (pg Polygon) Append(pt Point, threshold float64) Polygon {
	if pg.Closed {
		return pg
	}
	if threshold <= 0 {
		threshold = DefaultClosureThreshold
	}
	if len(pg.Points) >= 1 && pt.DistanceTo(pg.Points[0]) < threshold {
		return Polygon{Points: pg.Points, Closed: true}
	}
	pts := make([]Point, len(pg.Points), len(pg.Points)+1)
	copy(pts, pg.Points)
	return Polygon{Points: append(pts, pt), Closed: false}
}

// Maskable reports whether the polygon may be used to derive a clipping
// mask: closed, with more than two points.
func (pg Polygon) Maskable() bool {
	return pg.Closed && len(pg.Points) > 2
}

// Empty reports whether no points have been drawn yet.
func (pg Polygon) Empty() bool {
	return len(pg.Points) == 0 && !pg.Closed
}

// Clone returns a deep copy of the polygon.
func (pg Polygon) Clone() Polygon {
	if pg.Points == nil {
		return Polygon{Closed: pg.Closed}
	}
	pts := make([]Point, len(pg.Points))
	copy(pts, pg.Points)
	return Polygon{Points: pts, Closed: pg.Closed}
}
