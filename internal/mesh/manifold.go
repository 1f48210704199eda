package mesh

import "fmt"

type meshEdge struct{ a, b int }

// CheckManifold verifies the mesh bounds a printable solid: every
// directed edge appears exactly once and its reverse exists, which
// makes the surface closed, orientable, and consistently wound.
func CheckManifold(m *Mesh) error {
	if len(m.Triangles) == 0 {
		return fmt.Errorf("mesh has no triangles")
	}
	seen := make(map[meshEdge]bool, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			return fmt.Errorf("degenerate triangle %v", t)
		}
		for i := 0; i < 3; i++ {
			if t[i] < 0 || t[i] >= len(m.Vertices) {
				return fmt.Errorf("triangle %v references missing vertex %d", t, t[i])
			}
			e := meshEdge{t[i], t[(i+1)%3]}
			if seen[e] {
				return fmt.Errorf("directed edge %d-%d shared by multiple facets", e.a, e.b)
			}
			seen[e] = true
		}
	}
	for e := range seen {
		if !seen[meshEdge{e.b, e.a}] {
			return fmt.Errorf("edge %d-%d has no opposite facet", e.a, e.b)
		}
	}
	return nil
}
