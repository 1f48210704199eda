package solid

import (
	"math"

	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
)

// foldStrips is the number of arc strips approximating the bend cylinder.
const foldStrips = 8

// minPieceArea discards clip slivers that would extrude into degenerate
// shells.
const minPieceArea = 1e-6

// fold maps the flat extrusion of a bent part onto its folded shape. The
// side of the bend line with the smaller flat area swings upward around a
// cylinder tangent to the top face; the larger side stays put. The bend
// allowance, measured along the mid-thickness neutral axis, is consumed from
// the moving side's flat material.
type fold struct {
	a      geom.Point // axis origin
	that   geom.Point // unit axis direction
	nhat   geom.Point // unit left normal of that; positive side moves
	theta  float64    // bend angle, radians
	radius float64    // inner radius at the top face
	thick  float64
	band   float64 // neutral-axis bend allowance
}

func newFold(bend *ir.Bend, outline []geom.Point, thick float64) (*fold, bool) {
	a := geom.Point{X: bend.LineMM[0].X(), Y: bend.LineMM[0].Y()}
	b := geom.Point{X: bend.LineMM[1].X(), Y: bend.LineMM[1].Y()}
	if a.Dist(b) < geom.Eps || bend.AngleDeg <= 0 || bend.AngleDeg >= 180 || thick <= 0 {
		return nil, false
	}

	left := math.Abs(geom.SignedArea(geom.HalfPlaneClip(outline, a, b, true)))
	right := math.Abs(geom.SignedArea(geom.HalfPlaneClip(outline, a, b, false)))
	if left > right {
		a, b = b, a
	}

	axis := b.Sub(a)
	that := axis.Scale(1 / axis.Length())
	f := &fold{
		a:      a,
		that:   that,
		nhat:   geom.Point{X: -that.Y, Y: that.X},
		theta:  bend.AngleDeg * math.Pi / 180,
		radius: bend.InnerRadiusMM,
		thick:  thick,
	}
	f.band = (f.radius + thick/2) * f.theta
	return f, true
}

// sdist is the signed distance from p to the bend line; positive on the
// moving side.
func (f *fold) sdist(p geom.Point) float64 {
	return p.Sub(f.a).Dot(f.nhat)
}

// lineAt returns two points spanning the strip line at offset s.
func (f *fold) lineAt(s float64) (geom.Point, geom.Point) {
	base := f.a.Add(f.nhat.Scale(s))
	return base, base.Add(f.that)
}

type profile struct {
	outline []geom.Point
	holes   [][]geom.Point
}

// pieces splits the flat outline into the regions extruded as separate
// shells: the fixed side, foldStrips slices across the bend allowance, and
// the tail beyond it. Keeping every face triangle inside one strip bounds
// the chord error of the deformed faces by a single strip's sagitta.
//
// Each hole is punched into the piece holding its center; a hole straddling
// a strip boundary distorts rather than splits, which the manifold
// postcondition tolerates as long as the hole stays inside its piece.
func (f *fold) pieces(outer []geom.Point, holes [][]geom.Point, centers []geom.Point) []profile {
	type span struct {
		lo, hi float64
		openLo bool
		openHi bool
	}
	spans := make([]span, 0, foldStrips+2)
	spans = append(spans, span{hi: 0, openLo: true})
	step := f.band / foldStrips
	for k := 0; k < foldStrips; k++ {
		spans = append(spans, span{lo: float64(k) * step, hi: float64(k+1) * step})
	}
	spans = append(spans, span{lo: f.band, openHi: true})

	var out []profile
	for _, sp := range spans {
		ring := outer
		if !sp.openLo {
			base, dir := f.lineAt(sp.lo)
			ring = geom.HalfPlaneClip(ring, base, dir, true)
		}
		if !sp.openHi {
			base, dir := f.lineAt(sp.hi)
			ring = geom.HalfPlaneClip(ring, base, dir, false)
		}
		ring = dedupeRing(ring)
		if len(ring) < 3 || math.Abs(geom.SignedArea(ring)) < minPieceArea {
			continue
		}
		p := profile{outline: ring}
		for i, h := range holes {
			sc := f.sdist(centers[i])
			if (sp.openLo || sc > sp.lo) && (sp.openHi || sc <= sp.hi) {
				p.holes = append(p.holes, h)
			}
		}
		out = append(out, p)
	}
	return out
}

// apply maps one flat vertex onto the folded solid. Points on the fixed
// side are unchanged. Inside the allowance a point wraps around the bend
// cylinder at its own radius, so the top fiber compresses and the bottom
// stretches while the neutral axis keeps its length. Beyond the allowance
// the tail continues rigidly along the exit tangent.
func (f *fold) apply(v mesh.Vec3) mesh.Vec3 {
	p := geom.Point{X: v.X, Y: v.Y}
	s := f.sdist(p)
	if s <= 0 {
		return v
	}
	u := p.Sub(f.a).Dot(f.that)

	outerR := f.thick + f.radius
	rho := outerR - v.Z
	phi := math.Min(s, f.band) / (f.radius + f.thick/2)

	n := rho * math.Sin(phi)
	z := outerR - rho*math.Cos(phi)
	if s > f.band {
		e := s - f.band
		n += e * math.Cos(f.theta)
		z += e * math.Sin(f.theta)
	}

	flat := f.a.Add(f.that.Scale(u)).Add(f.nhat.Scale(n))
	return mesh.Vec3{X: flat.X, Y: flat.Y, Z: z}
}
