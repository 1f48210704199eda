package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison: the
// full record and report for finalized runs, the open question IDs for a
// questions outcome, the rejection code for a rejected one. Canonical form
// keeps the bytes identical across runs and platforms.
func Snapshot(result *Result) ([]byte, error) {
	tree := map[string]any{
		"scenario": result.Scenario,
		"outcome":  result.Outcome,
	}
	switch result.Outcome {
	case OutcomeFinalized:
		tree["record"] = result.Record
		tree["report"] = result.Report
	case OutcomeQuestions:
		tree["questions"] = questionIDs(result.Questions)
	case OutcomeRejected:
		tree["code"] = result.RejectCode
	}
	return ir.MarshalCanonical(tree)
}

// AssertGolden compares a result snapshot against
// testdata/golden/{scenario}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, result *Result) {
	t.Helper()

	snap, err := Snapshot(result)
	if err != nil {
		t.Fatalf("snapshot %s: %v", result.Scenario, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Scenario, snap)
}
