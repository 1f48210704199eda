// Package solid lowers finalized records into closed triangle meshes:
// outline extrusion with bores and bend folding for sheet parts, and
// parametric catalog generators for everything else. Every mesh is checked
// against the manifold postcondition before it leaves the package.
package solid

import (
	"fmt"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
)

// defaultThicknessMM is assumed when a record carries no min_thickness
// constraint.
const defaultThicknessMM = 5.0

// recordHoleSegments is the circle sampling for record hole bores.
const recordHoleSegments = 48

// Synthesize builds the solid for one record. Plate and bracket records
// extrude their resolved outline; every other archetype dispatches to its
// parametric generator. The result is guaranteed manifold or the error is a
// NotManifoldError naming the part.
func Synthesize(cat *catalog.Catalog, rec *ir.Record) (*mesh.Mesh, error) {
	if rec == nil {
		return nil, fmt.Errorf("solid: nil record")
	}
	thick := thicknessOf(rec)

	var (
		m   *mesh.Mesh
		err error
	)
	arch := rec.Identity.Archetype
	if (arch == ir.ArchetypePlate || arch == ir.ArchetypeBracket) && len(rec.Geometry.Outline.PointsMM) >= 3 {
		m, err = extrudeRecord(rec, thick)
	} else {
		m, err = Generate(cat, string(arch), rec.Intent, thick)
	}
	if err != nil {
		return nil, err
	}
	if merr := mesh.CheckManifold(m); merr != nil {
		return nil, &NotManifoldError{Part: rec.Part, Detail: merr.Error()}
	}
	return m, nil
}

// extrudeRecord extrudes the record outline with its hole pattern, folding
// across the bend when one is declared. A bend that fails the fold
// preconditions (degenerate axis, angle outside (0, 180)) extrudes flat;
// the resolver rejects such bends before records normally get here.
func extrudeRecord(rec *ir.Record, thick float64) (*mesh.Mesh, error) {
	outer := outlinePoints(rec)
	rings, centers := holeRings(rec)

	if bend := rec.Geometry.Bend; bend != nil {
		if f, ok := newFold(bend, outer, thick); ok {
			var shells []*mesh.Mesh
			for _, p := range f.pieces(outer, rings, centers) {
				sh, err := shell(p.outline, p.holes, 0, thick)
				if err != nil {
					return nil, err
				}
				sh.MapVertices(f.apply)
				shells = append(shells, sh)
			}
			if len(shells) == 0 {
				return nil, fmt.Errorf("solid: bend across %q leaves no material", rec.Part)
			}
			return mesh.Concat(shells...), nil
		}
	}
	return shell(outer, rings, 0, thick)
}

func thicknessOf(rec *ir.Record) float64 {
	if t, ok := rec.ThicknessMM(); ok && t > 0 {
		return t
	}
	return defaultThicknessMM
}

func outlinePoints(rec *ir.Record) []geom.Point {
	pts := make([]geom.Point, len(rec.Geometry.Outline.PointsMM))
	for i, p := range rec.Geometry.Outline.PointsMM {
		pts[i] = geom.Point{X: p.X(), Y: p.Y()}
	}
	return pts
}

// holeRings samples each record hole as a circle ring, skipping holes with
// a nonpositive diameter.
func holeRings(rec *ir.Record) ([][]geom.Point, []geom.Point) {
	var rings [][]geom.Point
	var centers []geom.Point
	for _, h := range rec.Geometry.Holes {
		if h.DiameterMM <= 0 {
			continue
		}
		c := geom.Point{X: h.CenterMM.X(), Y: h.CenterMM.Y()}
		rings = append(rings, geom.CirclePoints(c, h.DiameterMM/2, recordHoleSegments))
		centers = append(centers, c)
	}
	return rings, centers
}
