package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// floatTolerance bounds the error accepted when comparing expected hole
// diameters against resolved values, which carry 3 decimals.
const floatTolerance = 1e-9

// evaluate compares a finished result against the expect clause, recording
// one error per mismatch. When the outcome itself diverges the per-outcome
// checks are skipped; they would only restate the same failure.
func evaluate(result *Result, expect Expect) {
	if result.Outcome != expect.Outcome {
		result.failf("outcome = %s, want %s%s", result.Outcome, expect.Outcome, outcomeDetail(result))
		return
	}
	switch expect.Outcome {
	case OutcomeQuestions:
		evaluateQuestions(result, expect.Questions)
	case OutcomeRejected:
		if expect.Code != "" && result.RejectCode != expect.Code {
			result.failf("rejection code = %s, want %s", result.RejectCode, expect.Code)
		}
	case OutcomeFinalized:
		evaluateRecord(result, expect)
	}
}

// outcomeDetail appends the context that explains an unexpected outcome.
func outcomeDetail(result *Result) string {
	switch result.Outcome {
	case OutcomeQuestions:
		return fmt.Sprintf(" (open: %s)", strings.Join(questionIDs(result.Questions), ", "))
	case OutcomeRejected:
		return fmt.Sprintf(" (code %s)", result.RejectCode)
	}
	return ""
}

func evaluateQuestions(result *Result, want []string) {
	open := make(map[string]struct{}, len(result.Questions))
	for _, q := range result.Questions {
		open[q.ID] = struct{}{}
	}
	for _, id := range want {
		if _, ok := open[id]; !ok {
			result.failf("question %s not open (open: %s)", id, strings.Join(questionIDs(result.Questions), ", "))
		}
	}
}

func evaluateRecord(result *Result, expect Expect) {
	rep := result.Report
	if want := expect.HoleDiametersMM; len(want) > 0 {
		got := rep.HoleDiametersMM
		if len(got) != len(want) {
			result.failf("hole diameters = %v, want %v", got, want)
		} else {
			for i := range want {
				if math.Abs(got[i]-want[i]) > floatTolerance {
					result.failf("hole %d diameter = %.3f mm, want %.3f mm", i, got[i], want[i])
				}
			}
		}
	}
	if expect.Decisions != nil && len(rep.Decisions) != *expect.Decisions {
		result.failf("decisions = %d, want %d", len(rep.Decisions), *expect.Decisions)
	}
	if len(expect.Layers) > 0 {
		have := make(map[string]struct{}, len(result.Layers))
		for _, name := range result.Layers {
			have[name] = struct{}{}
		}
		for _, name := range expect.Layers {
			if _, ok := have[name]; !ok {
				result.failf("layer %s not populated (populated: %s)", name, strings.Join(result.Layers, ", "))
			}
		}
	}
	if expect.Mesh != nil {
		if expect.Mesh.Triangles > 0 && result.Triangles != expect.Mesh.Triangles {
			result.failf("triangles = %d, want %d", result.Triangles, expect.Mesh.Triangles)
		}
		if expect.Mesh.Manifold && !result.Manifold {
			result.failf("mesh is not manifold")
		}
		if expect.Mesh.Components > 0 && result.Components != expect.Mesh.Components {
			result.failf("components = %d, want %d", result.Components, expect.Mesh.Components)
		}
	}
}

func questionIDs(qs []ir.Question) []string {
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return ids
}
