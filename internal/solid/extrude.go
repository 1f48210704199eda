package solid

import (
	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
)

func at(p geom.Point, z float64) mesh.Vec3 {
	return mesh.Vec3{X: p.X, Y: p.Y, Z: z}
}

// extrudeProfile adds a closed prism shell to b: the triangulated profile as
// the top face at z0+height, its mirror as the bottom face at z0, and quad
// walls along the outer ring and every hole ring. Vertex welding in the
// builder makes face and wall boundaries share vertices, so the shell closes
// without a stitching pass.
func extrudeProfile(b *mesh.Builder, outer []geom.Point, holes [][]geom.Point, z0, height float64) error {
	oc := geom.EnsureWinding(outer, true)
	hcs := make([][]geom.Point, 0, len(holes))
	for _, h := range holes {
		if len(h) >= 3 {
			hcs = append(hcs, geom.EnsureWinding(h, false))
		}
	}

	ring, tris, err := geom.Triangulate(oc, hcs)
	if err != nil {
		return err
	}

	z1 := z0 + height
	for _, t := range tris {
		p0, p1, p2 := ring[t[0]], ring[t[1]], ring[t[2]]
		b.Triangle(at(p0, z1), at(p1, z1), at(p2, z1))
		b.Triangle(at(p0, z0), at(p2, z0), at(p1, z0))
	}

	// Outer ring counter-clockwise and holes clockwise both put the
	// material on the left of each edge, so one wall winding serves both.
	wallRing(b, oc, z0, z1)
	for _, h := range hcs {
		wallRing(b, h, z0, z1)
	}
	return nil
}

func wallRing(b *mesh.Builder, ring []geom.Point, z0, z1 float64) {
	n := len(ring)
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		b.Quad(at(p, z0), at(q, z0), at(q, z1), at(p, z1))
	}
}

// shell extrudes one profile into its own closed surface.
func shell(outer []geom.Point, holes [][]geom.Point, z0, height float64) (*mesh.Mesh, error) {
	b := mesh.NewBuilder()
	if err := extrudeProfile(b, outer, holes, z0, height); err != nil {
		return nil, err
	}
	return b.Mesh(), nil
}

// ringShell extrudes an annulus: an outer circle with a concentric bore.
func ringShell(center geom.Point, outerR, boreR, z0, height float64, outerSeg, boreSeg int) (*mesh.Mesh, error) {
	return shell(
		geom.CirclePoints(center, outerR, outerSeg),
		[][]geom.Point{geom.CirclePoints(center, boreR, boreSeg)},
		z0, height,
	)
}
