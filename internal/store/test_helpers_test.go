package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a finalized plate record with one hole. Canonical
// marshaling forbids null, so every non-optional slice is populated.
func createTestRecord(part string) *ir.Record {
	return &ir.Record{
		FormatVersion: ir.FormatVersion,
		Part:          part,
		Identity:      ir.Identity{Archetype: ir.ArchetypePlate, Units: "mm"},
		Scale:         ir.Scale{PxToMM: 0.5},
		Material:      ir.Tag{Name: "aluminum"},
		Process:       ir.Tag{Name: "laser_cut"},
		Geometry: ir.Geometry{
			Outline: ir.Outline{
				Type:     "polygon",
				PointsMM: []ir.PointMM{{0, 0}, {100, 0}, {100, 60}, {0, 60}},
			},
			Holes: []ir.Hole{
				{Kind: ir.HoleKindClearance, Standard: "M5", DiameterMM: 5.5, CenterMM: ir.PointMM{20, 20}},
			},
		},
		Constraints: []ir.Constraint{
			{Kind: ir.ConstraintMinThickness, ValueMM: ir.Float64Ptr(3)},
		},
	}
}

// createTestReport creates a report with one normalization decision.
func createTestReport() *ir.Report {
	return &ir.Report{
		ScalePxToMM:     0.5,
		HoleStandard:    "M5",
		HoleDiametersMM: []float64{5.5},
		Questions:       []ir.Question{},
		Answers:         []ir.Answer{},
		Decisions: []ir.Decision{
			{Kind: ir.DecisionStandardClearance, FieldPath: "geometry.holes[0].diameter_mm", Detail: "5.2 -> 5.5"},
		},
		Notes: []string{},
	}
}

// writeTestRun stores a run for the given part at the given time and returns
// it with the fingerprint filled in.
func writeTestRun(t *testing.T, s *Store, id, part, source string, at time.Time) Run {
	t.Helper()
	run, err := s.WriteRun(context.Background(), Run{ID: id, CreatedAt: at, Source: source}, createTestRecord(part), nil)
	if err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", id, err)
	}
	return run
}
