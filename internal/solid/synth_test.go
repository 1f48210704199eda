package solid

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
)

var testCatalog = catalog.MustLoad()

// plateRecord is a finalized 200x100 plate with four M5 clearance holes
// and a declared 3mm thickness.
func plateRecord() *ir.Record {
	return &ir.Record{
		FormatVersion: ir.FormatVersion,
		Part:          "cover_plate",
		Identity:      ir.Identity{Archetype: ir.ArchetypePlate, Units: "mm"},
		Scale:         ir.Scale{PxToMM: 1},
		Material:      ir.Tag{Name: "A5052"},
		Process:       ir.Tag{Name: "sheet_metal"},
		Geometry: ir.Geometry{
			Outline: ir.Outline{
				Type: "polygon",
				PointsMM: []ir.PointMM{
					{0, 0}, {200, 0}, {200, 100}, {0, 100},
				},
			},
			Holes: []ir.Hole{
				{Kind: ir.HoleKindClearance, Standard: "M5", DiameterMM: 5.5, CenterMM: ir.PointMM{30, 30}},
				{Kind: ir.HoleKindClearance, Standard: "M5", DiameterMM: 5.5, CenterMM: ir.PointMM{170, 30}},
				{Kind: ir.HoleKindClearance, Standard: "M5", DiameterMM: 5.5, CenterMM: ir.PointMM{170, 70}},
				{Kind: ir.HoleKindClearance, Standard: "M5", DiameterMM: 5.5, CenterMM: ir.PointMM{30, 70}},
			},
		},
		Constraints: []ir.Constraint{
			{Kind: ir.ConstraintMinThickness, ValueMM: ir.Float64Ptr(3)},
			{Kind: ir.ConstraintEdgeDistanceGte, Multiplier: ir.Float64Ptr(2)},
		},
	}
}

// bentRecord folds the right 80mm of a 200x100 sheet up by 90 degrees
// around a 2mm inner radius.
func bentRecord() *ir.Record {
	rec := plateRecord()
	rec.Geometry.Holes = nil
	rec.Geometry.Bend = &ir.Bend{
		LineMM:        [2]ir.PointMM{{120, 0}, {120, 100}},
		AngleDeg:      90,
		InnerRadiusMM: 2,
	}
	rec.Constraints[0].ValueMM = ir.Float64Ptr(2)
	return rec
}

func TestSynthesize_FlatPlateExtrusion(t *testing.T) {
	m, err := Synthesize(testCatalog, plateRecord())
	require.NoError(t, err)

	lo, hi := m.Bounds()
	assert.Equal(t, mesh.Vec3{}, lo)
	assert.Equal(t, mesh.Vec3{X: 200, Y: 100, Z: 3}, hi)

	// 4 outline corners plus 4 bores of 48 points, on both faces.
	assert.Len(t, m.Vertices, 2*(4+4*48))
	assert.Len(t, m.Triangles, 796)
}

func TestSynthesize_BendFold(t *testing.T) {
	m, err := Synthesize(testCatalog, bentRecord())
	require.NoError(t, err)

	lo, hi := m.Bounds()
	assert.Equal(t, mesh.Vec3{}, lo)

	// The flange wall stands at x = bendline + radius + thickness, and the
	// flat tail beyond the bend allowance rises vertically.
	band := 3 * math.Pi / 2
	assert.InDelta(t, 124, hi.X, 1e-9)
	assert.InDelta(t, 100, hi.Y, 1e-9)
	assert.InDelta(t, 4+(80-band), hi.Z, 1e-9)
}

func TestSynthesize_DegenerateBendExtrudesFlat(t *testing.T) {
	rec := bentRecord()
	rec.Geometry.Bend.LineMM = [2]ir.PointMM{{50, 50}, {50, 50}}

	m, err := Synthesize(testCatalog, rec)
	require.NoError(t, err)

	_, hi := m.Bounds()
	assert.Equal(t, mesh.Vec3{X: 200, Y: 100, Z: 2}, hi)
}

func TestSynthesize_BracketExtrudesOutline(t *testing.T) {
	rec := plateRecord()
	rec.Identity.Archetype = ir.ArchetypeBracket
	rec.Geometry.Outline.PointsMM = []ir.PointMM{
		{0, 0}, {60, 0}, {60, 15}, {20, 15}, {20, 50}, {0, 50},
	}
	rec.Geometry.Holes = nil
	rec.Constraints[0].ValueMM = ir.Float64Ptr(4)

	m, err := Synthesize(testCatalog, rec)
	require.NoError(t, err)

	lo, hi := m.Bounds()
	assert.Equal(t, mesh.Vec3{}, lo)
	assert.Equal(t, mesh.Vec3{X: 60, Y: 50, Z: 4}, hi)

	// 6-gon faces of 4 triangles each plus 6 wall quads.
	assert.Len(t, m.Triangles, 20)
}

func TestSynthesize_GearDispatchesToGenerator(t *testing.T) {
	rec := &ir.Record{
		Part:     "drive_gear",
		Identity: ir.Identity{Archetype: ir.ArchetypeGear, Units: "mm"},
	}

	m, err := Synthesize(testCatalog, rec)
	require.NoError(t, err)

	lo, hi := m.Bounds()
	assert.InDelta(t, -32.5, lo.X, 1e-12)
	assert.InDelta(t, 32.5, hi.X, 1e-12)
	assert.InDelta(t, 8, hi.Z, 1e-12)
}

func TestSynthesize_ActuatorUsesOwnLength(t *testing.T) {
	rec := &ir.Record{
		Part:     "wrist_actuator",
		Identity: ir.Identity{Archetype: ir.ArchetypeActuator, Units: "mm"},
		Constraints: []ir.Constraint{
			{Kind: ir.ConstraintMinThickness, ValueMM: ir.Float64Ptr(3)},
		},
	}

	m, err := Synthesize(testCatalog, rec)
	require.NoError(t, err)

	// Cylinder height comes from length_mm, not the record thickness.
	lo, hi := m.Bounds()
	assert.InDelta(t, -25, lo.X, 1e-12)
	assert.InDelta(t, 25, hi.X, 1e-12)
	assert.InDelta(t, 40, hi.Z, 1e-12)
}

func TestSynthesize_PlateWithoutOutlineFallsBack(t *testing.T) {
	rec := plateRecord()
	rec.Geometry.Outline.PointsMM = nil
	rec.Geometry.Holes = nil

	m, err := Synthesize(testCatalog, rec)
	require.NoError(t, err)

	_, hi := m.Bounds()
	assert.Equal(t, mesh.Vec3{X: 60, Y: 40, Z: 3}, hi)
}

func TestSynthesize_SelfTouchingOutlineIsNotManifold(t *testing.T) {
	rec := plateRecord()
	rec.Geometry.Holes = nil
	rec.Geometry.Outline.PointsMM = []ir.PointMM{
		{0, 0}, {10, 0}, {5, 0}, {0, 10},
	}

	_, err := Synthesize(testCatalog, rec)
	require.Error(t, err)
	assert.True(t, IsNotManifold(err))
	assert.Contains(t, err.Error(), "MESH_NOT_MANIFOLD")
	assert.Contains(t, err.Error(), "part=cover_plate")
}

func TestSynthesize_NilRecord(t *testing.T) {
	_, err := Synthesize(testCatalog, nil)
	require.Error(t, err)
	assert.False(t, IsNotManifold(err))
}

func TestNotManifoldError_Format(t *testing.T) {
	err := &NotManifoldError{Part: "swing_arm", Detail: "edge 3-7 has no opposite facet"}
	assert.Equal(t, "MESH_NOT_MANIFOLD: edge 3-7 has no opposite facet (part=swing_arm)", err.Error())

	bare := &NotManifoldError{Detail: "mesh has no triangles"}
	assert.Equal(t, "MESH_NOT_MANIFOLD: mesh has no triangles", bare.Error())
}

func TestIsNotManifold(t *testing.T) {
	err := &NotManifoldError{Part: "swing_arm", Detail: "degenerate triangle [0 0 1]"}
	assert.True(t, IsNotManifold(err))
	assert.True(t, IsNotManifold(fmt.Errorf("synthesis: %w", err)))
	assert.False(t, IsNotManifold(errors.New("MESH_NOT_MANIFOLD: impostor")))
}
