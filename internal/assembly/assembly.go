// Package assembly composes multi-component records into a single print
// plate. The subcomponents intent field names the parts; each one is
// synthesized through the parametric generators, kinematic-chain members are
// stacked along Z in declaration order, and everything else lines up in a
// row beside the chain.
package assembly

import (
	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
)

// Placement is one planned component slot.
type Placement struct {
	// Name is the canonical catalog part name.
	Name string

	// Source is the intent text the slot was derived from, or "robotarm"
	// for slots injected by arm completion.
	Source string

	// Chain marks members of the kinematic chain, which stack along Z.
	Chain bool

	// AttachTo is the plan index of the previous chain member, -1 for the
	// chain root and for side-row parts.
	AttachTo int
}

// Component is one placed part of a composed assembly.
type Component struct {
	Placement

	// Mesh is the component solid, already translated into assembly
	// coordinates.
	Mesh *mesh.Mesh

	// Offset is the translation that moved the generator-local mesh into
	// place.
	Offset mesh.Vec3
}

// Assembly is the composed result: the combined mesh plus the per-component
// breakdown in plan order.
type Assembly struct {
	Mesh       *mesh.Mesh
	Components []Component
}

// Build plans and composes the assembly for one record.
func Build(cat *catalog.Catalog, rec *ir.Record) (*Assembly, error) {
	plan, err := Plan(cat, rec)
	if err != nil {
		return nil, err
	}
	return Compose(cat, rec, plan)
}
