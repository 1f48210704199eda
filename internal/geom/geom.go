// Package geom provides the 2D primitives and predicates the resolver,
// drawing compiler, and solid synthesizer share: polygon validity checks,
// containment and edge-distance queries, half-plane clipping, and
// ear-clipping triangulation with hole support.
//
// All coordinates are plain float64 pairs. The package has no opinion about
// units; callers decide whether a Point is pixels or millimeters.
package geom

import "math"

// Eps is the tolerance used by the predicates in this package.
// Coordinates are millimeters (or pixels) in practice, so 1e-9 is far below
// any meaningful feature size.
const Eps = 1e-9

// Point is a 2D point or vector.
type Point struct {
	X float64
	Y float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Dot returns the dot product p · q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of the cross product p × q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Length returns the Euclidean norm of p.
func (p Point) Length() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Length() }

// Segment is a directed line segment from A to B.
type Segment struct {
	A Point
	B Point
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the X extent of the bounds.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the Y extent of the bounds.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// BoundsOf computes the bounding box of pts. Zero Bounds for empty input.
func BoundsOf(pts []Point) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := Bounds{pts[0].X, pts[0].Y, pts[0].X, pts[0].Y}
	for _, p := range pts[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// SignedArea returns the signed area of the polygon (positive for
// counter-clockwise winding).
func SignedArea(poly []Point) float64 {
	var sum float64
	n := len(poly)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[i].Cross(poly[j])
	}
	return sum / 2
}

// EnsureWinding returns poly with counter-clockwise winding when ccw is
// true, clockwise otherwise. The input slice is never mutated.
func EnsureWinding(poly []Point, ccw bool) []Point {
	area := SignedArea(poly)
	if (area > 0) == ccw {
		out := make([]Point, len(poly))
		copy(out, poly)
		return out
	}
	out := make([]Point, len(poly))
	for i, p := range poly {
		out[len(poly)-1-i] = p
	}
	return out
}

// DistToSegment returns the distance from p to the segment ab.
func DistToSegment(p Point, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Eps {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}

// MinEdgeDistance returns the minimum distance from p to any edge of poly.
// Returns +Inf for polygons with fewer than 2 vertices.
func MinEdgeDistance(p Point, poly []Point) float64 {
	if len(poly) < 2 {
		return math.Inf(1)
	}
	min := math.Inf(1)
	n := len(poly)
	for i := 0; i < n; i++ {
		d := DistToSegment(p, poly[i], poly[(i+1)%n])
		if d < min {
			min = d
		}
	}
	return min
}

// PointInPolygon reports whether p lies inside poly (even-odd ray cast).
// Points exactly on an edge count as inside within Eps.
func PointInPolygon(p Point, poly []Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if DistToSegment(p, poly[i], poly[(i+1)%n]) < Eps {
			return true
		}
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			x := pi.X + (p.Y-pi.Y)*(pj.X-pi.X)/(pj.Y-pi.Y)
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// SegmentInPolygon reports whether both endpoints and the midpoint of s lie
// inside poly. Sufficient for convex regions and the sanity checks the
// resolver needs; full segment-polygon clipping is not required.
func SegmentInPolygon(s Segment, poly []Point) bool {
	mid := s.A.Add(s.B).Scale(0.5)
	return PointInPolygon(s.A, poly) && PointInPolygon(s.B, poly) && PointInPolygon(mid, poly)
}

// orient returns the orientation of the triple (a, b, c):
// >0 counter-clockwise, <0 clockwise, 0 collinear (within Eps).
func orient(a, b, c Point) float64 {
	v := b.Sub(a).Cross(c.Sub(a))
	if math.Abs(v) < Eps {
		return 0
	}
	return v
}

// onSegment reports whether c lies on the segment ab, assuming collinearity.
func onSegment(a, b, c Point) bool {
	return math.Min(a.X, b.X)-Eps <= c.X && c.X <= math.Max(a.X, b.X)+Eps &&
		math.Min(a.Y, b.Y)-Eps <= c.Y && c.Y <= math.Max(a.Y, b.Y)+Eps
}

// SegmentsIntersect reports whether segments ab and cd intersect, including
// collinear overlap and endpoint touching.
func SegmentsIntersect(a, b, c, d Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)

	if o1*o2 < 0 && o3*o4 < 0 {
		return true
	}
	if o1 == 0 && onSegment(a, b, c) {
		return true
	}
	if o2 == 0 && onSegment(a, b, d) {
		return true
	}
	if o3 == 0 && onSegment(c, d, a) {
		return true
	}
	if o4 == 0 && onSegment(c, d, b) {
		return true
	}
	return false
}

// IsSimplePolygon reports whether poly has at least 3 vertices, no repeated
// consecutive vertices, and no two non-adjacent edges that intersect.
func IsSimplePolygon(poly []Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if poly[i].Dist(poly[(i+1)%n]) < Eps {
			return false
		}
	}
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges; they always share a vertex.
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			c, d := poly[j], poly[(j+1)%n]
			if SegmentsIntersect(a, b, c, d) {
				return false
			}
		}
	}
	return true
}

// CirclePoints samples a circle of radius r around center as a
// counter-clockwise polygon with the given number of segments.
func CirclePoints(center Point, r float64, segments int) []Point {
	if segments < 3 {
		segments = 3
	}
	pts := make([]Point, segments)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		pts[i] = Point{
			X: center.X + r*math.Cos(theta),
			Y: center.Y + r*math.Sin(theta),
		}
	}
	return pts
}

// HalfPlaneClip clips poly against the line through a and b, keeping the
// side where cross(b-a, p-a) >= 0 when keepLeft is true, the other side
// otherwise. Sutherland-Hodgman; the result may be empty.
func HalfPlaneClip(poly []Point, a, b Point, keepLeft bool) []Point {
	side := func(p Point) float64 {
		v := b.Sub(a).Cross(p.Sub(a))
		if !keepLeft {
			v = -v
		}
		return v
	}
	var out []Point
	n := len(poly)
	for i := 0; i < n; i++ {
		cur, next := poly[i], poly[(i+1)%n]
		sc, sn := side(cur), side(next)
		if sc >= -Eps {
			out = append(out, cur)
		}
		if (sc > Eps && sn < -Eps) || (sc < -Eps && sn > Eps) {
			t := sc / (sc - sn)
			out = append(out, cur.Add(next.Sub(cur).Scale(t)))
		}
	}
	return out
}
