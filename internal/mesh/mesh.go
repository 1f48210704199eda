// Package mesh provides the indexed triangle surfaces behind solid
// output: a welding builder, closed-surface verification, and a binary
// STL encoder. Coordinates are millimeters throughout.
package mesh

import "math"

// Vec3 is a point or displacement in solid space.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Cross returns the right-handed cross product v x w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Triangle indexes three mesh vertices wound counter-clockwise as seen
// from outside the solid.
type Triangle [3]int

// Mesh is an indexed triangle surface. Meshes are independent values:
// transforms mutate only the receiver.
type Mesh struct {
	Vertices  []Vec3
	Triangles []Triangle
}

// Translate shifts every vertex by d.
func (m *Mesh) Translate(d Vec3) {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(d)
	}
}

// MapVertices applies f to every vertex in place. The mapping must be
// injective on the mesh's vertices or the surface folds onto itself.
func (m *Mesh) MapVertices(f func(Vec3) Vec3) {
	for i := range m.Vertices {
		m.Vertices[i] = f(m.Vertices[i])
	}
}

// Bounds returns the axis-aligned extent of the mesh. An empty mesh
// reports zero bounds.
func (m *Mesh) Bounds() (lo, hi Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo.X = math.Min(lo.X, v.X)
		lo.Y = math.Min(lo.Y, v.Y)
		lo.Z = math.Min(lo.Z, v.Z)
		hi.X = math.Max(hi.X, v.X)
		hi.Y = math.Max(hi.Y, v.Y)
		hi.Z = math.Max(hi.Z, v.Z)
	}
	return lo, hi
}

// Concat merges meshes into one surface without welding. Vertex
// indices are offset per input, so disjoint shells stay disjoint.
func Concat(meshes ...*Mesh) *Mesh {
	out := &Mesh{}
	for _, m := range meshes {
		base := len(out.Vertices)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, t := range m.Triangles {
			out.Triangles = append(out.Triangles, Triangle{t[0] + base, t[1] + base, t[2] + base})
		}
	}
	return out
}
