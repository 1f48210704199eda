package mesh

import "math"

// weldGridMM quantizes coordinates for vertex welding. Points closer
// than half a grid step land in the same cell and share one vertex.
const weldGridMM = 1e-6

type weldKey [3]int64

// Builder accumulates a welded triangle mesh. Faces and walls built
// from the same profile points resolve to the same vertex indices, so
// extrusions close up without a stitching pass.
type Builder struct {
	mesh  Mesh
	index map[weldKey]int
}

func NewBuilder() *Builder {
	return &Builder{index: make(map[weldKey]int)}
}

func quantize(v Vec3) weldKey {
	return weldKey{
		int64(math.Round(v.X / weldGridMM)),
		int64(math.Round(v.Y / weldGridMM)),
		int64(math.Round(v.Z / weldGridMM)),
	}
}

// Vertex returns the index for v, reusing a previously added vertex
// when the coordinates coincide.
func (b *Builder) Vertex(v Vec3) int {
	k := quantize(v)
	if i, ok := b.index[k]; ok {
		return i
	}
	i := len(b.mesh.Vertices)
	b.mesh.Vertices = append(b.mesh.Vertices, v)
	b.index[k] = i
	return i
}

// Triangle adds a facet wound counter-clockwise as seen from outside.
// Facets that collapse under welding are dropped.
func (b *Builder) Triangle(p, q, r Vec3) {
	i, j, k := b.Vertex(p), b.Vertex(q), b.Vertex(r)
	if i == j || j == k || k == i {
		return
	}
	b.mesh.Triangles = append(b.mesh.Triangles, Triangle{i, j, k})
}

// Quad adds the quadrilateral p,q,r,s as two triangles sharing the p-r
// diagonal.
func (b *Builder) Quad(p, q, r, s Vec3) {
	b.Triangle(p, q, r)
	b.Triangle(p, r, s)
}

// Mesh returns the accumulated surface. The builder must not be used
// again afterwards.
func (b *Builder) Mesh() *Mesh {
	return &b.mesh
}
