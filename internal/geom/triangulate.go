package geom

import (
	"errors"
	"math"
)

// ErrDegeneratePolygon indicates a polygon with fewer than 3 vertices or
// effectively zero area, which cannot be triangulated.
var ErrDegeneratePolygon = errors.New("geom: degenerate polygon")

// Triangulate triangulates a simple polygon with optional interior holes
// using ear clipping. Holes are first bridged into the outer ring (each
// hole's rightmost vertex is connected to a visible outer-ring vertex), then
// the merged ring is clipped ear by ear.
//
// The outer ring may be given in either winding; holes likewise. Returned
// triangles are counter-clockwise and index into the returned vertex slice,
// which contains the merged ring (bridge vertices appear twice).
//
// Complexity is O(n^2) in the merged vertex count, which is comfortably
// small for plate outlines with sampled circular holes.
func Triangulate(outer []Point, holes [][]Point) ([]Point, [][3]int, error) {
	if len(outer) < 3 {
		return nil, nil, ErrDegeneratePolygon
	}
	ring := EnsureWinding(outer, true)
	if math.Abs(SignedArea(ring)) < Eps {
		return nil, nil, ErrDegeneratePolygon
	}

	// Bridge holes in order of decreasing rightmost X so each bridge ray
	// only ever hits the current merged ring.
	hs := make([][]Point, 0, len(holes))
	for _, h := range holes {
		if len(h) >= 3 {
			hs = append(hs, EnsureWinding(h, false))
		}
	}
	for len(hs) > 0 {
		best, bestX := 0, math.Inf(-1)
		for i, h := range hs {
			if x := maxX(h); x > bestX {
				best, bestX = i, x
			}
		}
		ring = bridgeHole(ring, hs[best])
		hs = append(hs[:best], hs[best+1:]...)
	}

	tris, err := earClip(ring)
	if err != nil {
		return nil, nil, err
	}
	return ring, tris, nil
}

func maxX(pts []Point) float64 {
	m := math.Inf(-1)
	for _, p := range pts {
		if p.X > m {
			m = p.X
		}
	}
	return m
}

// bridgeHole splices hole into ring via a mutual-visibility bridge from the
// hole's rightmost vertex. The bridge edge appears twice in the result
// (once in each direction), so the merged ring stays a closed loop.
func bridgeHole(ring, hole []Point) []Point {
	mi := 0
	for i, p := range hole {
		if p.X > hole[mi].X {
			mi = i
		}
	}
	m := hole[mi]

	bi := visibleRingVertex(ring, m)

	merged := make([]Point, 0, len(ring)+len(hole)+2)
	merged = append(merged, ring[:bi+1]...)
	for k := 0; k <= len(hole); k++ {
		merged = append(merged, hole[(mi+k)%len(hole)])
	}
	merged = append(merged, ring[bi:]...)
	return merged
}

// visibleRingVertex finds the index of a ring vertex visible from m by
// casting a ray in +X from m and selecting the nearest intersected edge's
// rightmost endpoint, then correcting for reflex vertices that block the
// bridge (Eberly's method).
func visibleRingVertex(ring []Point, m Point) int {
	n := len(ring)
	bestT := math.Inf(1)
	bestEdge := -1
	var hit Point
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		if (a.Y > m.Y) == (b.Y > m.Y) {
			continue
		}
		t := a.X + (m.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		if t >= m.X-Eps && t-m.X < bestT {
			bestT = t - m.X
			bestEdge = i
			hit = Point{t, m.Y}
		}
	}
	if bestEdge < 0 {
		// Hole outside the ring; fall back to the nearest vertex so the
		// caller still terminates. Upstream validation rejects this case.
		return nearestVertex(ring, m)
	}

	a, b := ring[bestEdge], ring[(bestEdge+1)%n]
	cand := bestEdge
	if b.X > a.X {
		cand = (bestEdge + 1) % n
	}
	if hit.Dist(ring[cand]) < Eps {
		return cand
	}

	// Any reflex ring vertex strictly inside triangle (m, hit, cand) would
	// block the bridge; prefer the blocker closest in angle to the ray.
	p := ring[cand]
	bestAngle := math.Inf(1)
	blocker := -1
	for i := 0; i < n; i++ {
		v := ring[i]
		if i == cand || v.Dist(m) < Eps || v.Dist(hit) < Eps || v.Dist(p) < Eps {
			continue
		}
		prev, next := ring[(i-1+n)%n], ring[(i+1)%n]
		if orient(prev, v, next) >= 0 {
			continue // convex, cannot block
		}
		if !pointInTriangleStrict(v, m, hit, p) {
			continue
		}
		ang := math.Abs(math.Atan2(v.Y-m.Y, v.X-m.X))
		if ang < bestAngle || (ang == bestAngle && v.X < ring[blocker].X) {
			bestAngle = ang
			blocker = i
		}
	}
	if blocker >= 0 {
		return blocker
	}
	return cand
}

func nearestVertex(ring []Point, m Point) int {
	best, bestD := 0, math.Inf(1)
	for i, p := range ring {
		if d := p.Dist(m); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func pointInTriangleStrict(p, a, b, c Point) bool {
	d1 := b.Sub(a).Cross(p.Sub(a))
	d2 := c.Sub(b).Cross(p.Sub(b))
	d3 := a.Sub(c).Cross(p.Sub(c))
	hasNeg := d1 < -Eps || d2 < -Eps || d3 < -Eps
	hasPos := d1 > Eps || d2 > Eps || d3 > Eps
	return !(hasNeg && hasPos)
}

// earClip triangulates a counter-clockwise ring that may contain duplicated
// bridge vertices. Returns triangles as index triples into ring.
func earClip(ring []Point) ([][3]int, error) {
	n := len(ring)
	if n < 3 {
		return nil, ErrDegeneratePolygon
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	var tris [][3]int

	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			ip, ic, in := idx[(i-1+len(idx))%len(idx)], idx[i], idx[(i+1)%len(idx)]
			if isEar(ring, idx, ip, ic, in) {
				tris = append(tris, [3]int{ip, ic, in})
				idx = append(idx[:i], idx[i+1:]...)
				clipped = true
				break
			}
		}
		if !clipped {
			// Numerical stalemate: clip the most convex remaining vertex so
			// the loop always terminates. Downstream manifold checking
			// catches any damage this causes on truly malformed input.
			bi, bv := -1, -math.Inf(1)
			for i := 0; i < len(idx); i++ {
				ip, ic, in := idx[(i-1+len(idx))%len(idx)], idx[i], idx[(i+1)%len(idx)]
				v := ring[ic].Sub(ring[ip]).Cross(ring[in].Sub(ring[ic]))
				if v > bv {
					bi, bv = i, v
				}
			}
			ip, ic, in := idx[(bi-1+len(idx))%len(idx)], idx[bi], idx[(bi+1)%len(idx)]
			if bv > Eps {
				tris = append(tris, [3]int{ip, ic, in})
			}
			idx = append(idx[:bi], idx[bi+1:]...)
		}
	}
	a, b, c := idx[0], idx[1], idx[2]
	if ring[b].Sub(ring[a]).Cross(ring[c].Sub(ring[b])) > Eps {
		tris = append(tris, [3]int{a, b, c})
	}
	return tris, nil
}

func isEar(ring []Point, idx []int, ip, ic, in int) bool {
	a, b, c := ring[ip], ring[ic], ring[in]
	if b.Sub(a).Cross(c.Sub(b)) <= Eps {
		return false // reflex or collinear
	}
	for _, j := range idx {
		if j == ip || j == ic || j == in {
			continue
		}
		p := ring[j]
		// Bridge duplicates coincide with corners; they never block.
		if p.Dist(a) < Eps || p.Dist(b) < Eps || p.Dist(c) < Eps {
			continue
		}
		if pointInTriangleStrict(p, a, b, c) {
			return false
		}
	}
	return true
}
