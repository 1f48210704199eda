package solid

import (
	"math"

	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
)

func rectPoints(w, h float64) []geom.Point {
	return []geom.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

func arcPoints(center geom.Point, r, startDeg, endDeg float64, segments int) []geom.Point {
	pts := make([]geom.Point, 0, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		theta := (startDeg + (endDeg-startDeg)*t) * math.Pi / 180
		pts = append(pts, geom.Point{
			X: center.X + r*math.Cos(theta),
			Y: center.Y + r*math.Sin(theta),
		})
	}
	return pts
}

// roundedRect traces a counter-clockwise rectangle with filleted corners,
// origin at the lower-left. The fillet is clamped to half the shorter side;
// zero fillet degrades to a plain rectangle.
func roundedRect(w, h, fillet float64, segments int) []geom.Point {
	r := math.Min(fillet, math.Min(w/2, h/2))
	if r <= 0 {
		return rectPoints(w, h)
	}
	var pts []geom.Point
	pts = append(pts, arcPoints(geom.Point{X: w - r, Y: r}, r, -90, 0, segments)...)
	pts = append(pts, arcPoints(geom.Point{X: w - r, Y: h - r}, r, 0, 90, segments)...)
	pts = append(pts, arcPoints(geom.Point{X: r, Y: h - r}, r, 90, 180, segments)...)
	pts = append(pts, arcPoints(geom.Point{X: r, Y: r}, r, 180, 270, segments)...)
	return dedupeRing(pts)
}

// gearProfile traces a simplified involute spur-gear outline: seven points
// per tooth between the root and outer circles. Addendum is one module,
// dedendum 1.25 modules, and the root radius never drops below one module.
// The pressure angle shapes a true involute flank; this approximation keys
// the flank points off the pitch and outer circles instead, which is close
// enough for fit checks and printing.
func gearProfile(module float64, teeth int) []geom.Point {
	if teeth < 3 {
		teeth = 3
	}
	pitchR := module * float64(teeth) / 2
	outerR := pitchR + module
	rootR := gearRootRadius(module, teeth)

	toothAngle := 2 * math.Pi / float64(teeth)
	toothHalf := toothAngle * 0.25

	flank := []struct {
		offset float64
		radius float64
	}{
		{-toothHalf * 1.4, rootR},
		{-toothHalf * 0.8, pitchR * 0.95},
		{-toothHalf * 0.3, outerR * 0.98},
		{0, outerR},
		{toothHalf * 0.3, outerR * 0.98},
		{toothHalf * 0.8, pitchR * 0.95},
		{toothHalf * 1.4, rootR},
	}

	pts := make([]geom.Point, 0, teeth*len(flank))
	for i := 0; i < teeth; i++ {
		base := float64(i) * toothAngle
		for _, f := range flank {
			a := base + f.offset
			pts = append(pts, geom.Point{X: f.radius * math.Cos(a), Y: f.radius * math.Sin(a)})
		}
	}
	return pts
}

// gearRootRadius is the radius of the root circle gearProfile traces its
// tooth gaps on.
func gearRootRadius(module float64, teeth int) float64 {
	if teeth < 3 {
		teeth = 3
	}
	pitchR := module * float64(teeth) / 2
	return math.Max(pitchR-1.25*module, module)
}

// dedupeRing drops consecutive points closer than the mesh weld grid so
// clipped or filleted rings cannot produce sliver wall facets.
func dedupeRing(ring []geom.Point) []geom.Point {
	const tol = 1e-5
	var out []geom.Point
	for _, p := range ring {
		if len(out) > 0 && p.Dist(out[len(out)-1]) < tol {
			continue
		}
		out = append(out, p)
	}
	for len(out) >= 2 && out[len(out)-1].Dist(out[0]) < tol {
		out = out[:len(out)-1]
	}
	return out
}
