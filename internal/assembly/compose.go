package assembly

import (
	"fmt"
	"sync"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
	"github.com/ryohei-iwamoto/mml-mvp/internal/solid"
)

// componentGapMM separates side-row parts on the plate.
const componentGapMM = 20.0

// Compose synthesizes every planned component and lays the results out:
// chain members stack along Z in plan order, centered on the origin, and
// side parts line up along X beside the chain's widest member. Components
// are generated concurrently; the first failure in plan order wins.
func Compose(cat *catalog.Catalog, rec *ir.Record, plan []Placement) (*Assembly, error) {
	if rec == nil {
		return nil, fmt.Errorf("assembly: nil record")
	}
	if len(plan) == 0 {
		return nil, ErrNoSubcomponents
	}
	for i, pl := range plan {
		if pl.AttachTo < -1 || pl.AttachTo >= i {
			return nil, fmt.Errorf("assembly: placement %d (%s) attaches to invalid slot %d", i, pl.Name, pl.AttachTo)
		}
	}

	thick := 5.0
	if t, ok := rec.ThicknessMM(); ok && t > 0 {
		thick = t
	}

	meshes := make([]*mesh.Mesh, len(plan))
	errs := make([]error, len(plan))
	var wg sync.WaitGroup
	for i, pl := range plan {
		wg.Add(1)
		go func(slot int, pl Placement) {
			defer wg.Done()
			m, err := solid.Generate(cat, pl.Name, rec.Intent, thick)
			if err == nil {
				if merr := mesh.CheckManifold(m); merr != nil {
					err = &solid.NotManifoldError{Part: pl.Name, Detail: merr.Error()}
				}
			}
			if err != nil {
				errs[slot] = &UnresolvedSubcomponentError{
					Part:         rec.Part,
					Subcomponent: pl.Name,
					Index:        slot,
					Reason:       fmt.Sprintf("component %q cannot be built", pl.Name),
					Cause:        err,
				}
				return
			}
			meshes[slot] = m
		}(i, pl)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	comps := make([]Component, len(plan))

	// Chain pass: stack along Z, each member's bounding box centered on the
	// Z axis and resting on the previous one.
	var cursorZ, chainHalfX float64
	hasChain := false
	for i, pl := range plan {
		if !pl.Chain {
			continue
		}
		lo, hi := meshes[i].Bounds()
		off := mesh.Vec3{
			X: -(lo.X + hi.X) / 2,
			Y: -(lo.Y + hi.Y) / 2,
			Z: cursorZ - lo.Z,
		}
		meshes[i].Translate(off)
		comps[i] = Component{Placement: pl, Mesh: meshes[i], Offset: off}
		cursorZ += hi.Z - lo.Z
		if half := (hi.X - lo.X) / 2; half > chainHalfX {
			chainHalfX = half
		}
		hasChain = true
	}

	// Side pass: a row along X, min corners on the XY plane.
	cursorX := 0.0
	if hasChain {
		cursorX = chainHalfX + componentGapMM
	}
	for i, pl := range plan {
		if pl.Chain {
			continue
		}
		lo, hi := meshes[i].Bounds()
		off := mesh.Vec3{X: cursorX - lo.X, Y: -lo.Y, Z: -lo.Z}
		meshes[i].Translate(off)
		comps[i] = Component{Placement: pl, Mesh: meshes[i], Offset: off}
		cursorX += (hi.X - lo.X) + componentGapMM
	}

	return &Assembly{Mesh: mesh.Concat(meshes...), Components: comps}, nil
}
