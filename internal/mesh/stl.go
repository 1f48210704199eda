package mesh

import (
	"bytes"
	"encoding/binary"
	"math"
)

// EncodeSTL renders the mesh as binary STL. Facet normals come from
// vertex winding; coordinates are little-endian float32 millimeters.
func EncodeSTL(name string, m *Mesh) []byte {
	var buf bytes.Buffer
	header := make([]byte, 80)
	copy(header, name)
	buf.Write(header)

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(m.Triangles)))
	buf.Write(count[:])

	facet := make([]byte, 50)
	for _, t := range m.Triangles {
		a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		putVec3(facet[0:], facetNormal(a, b, c))
		putVec3(facet[12:], a)
		putVec3(facet[24:], b)
		putVec3(facet[36:], c)
		buf.Write(facet)
	}
	return buf.Bytes()
}

func putVec3(dst []byte, v Vec3) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(float32(v.Z)))
}

// facetNormal returns the unit normal for counter-clockwise winding,
// or the zero vector when the facet has no area.
func facetNormal(a, b, c Vec3) Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l == 0 {
		return Vec3{}
	}
	return n.Scale(1 / l)
}
