package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ryohei-iwamoto/mml-mvp/internal/assembly"
	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/drawing"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/mesh"
	"github.com/ryohei-iwamoto/mml-mvp/internal/resolver"
	"github.com/ryohei-iwamoto/mml-mvp/internal/solid"
	"github.com/ryohei-iwamoto/mml-mvp/internal/store"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// Result captures everything one scenario run produced, plus the
// expectation mismatches found against the scenario's expect clause.
type Result struct {
	Scenario string
	Outcome  string
	State    resolver.State

	// Finalized outputs.
	Record      *ir.Record
	Report      *ir.Report
	Layers      []string
	Triangles   int
	Components  int
	Manifold    bool
	RunID       string
	Fingerprint string

	// Questions still open after the final pass.
	Questions []ir.Question

	// Rejection details.
	RejectCode string
	Violations []resolver.Violation

	// Errors lists expectation mismatches; Pass is their absence.
	Errors []string
	Pass   bool
}

func (r *Result) failf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes one scenario through the live pipeline: it resolves the
// observation with the scripted answers, then lowers any finalized record
// through the drawing compiler and solid synthesizer and persists the run
// to a fresh in-memory store. Each scenario is hermetic.
//
// The returned error reports harness failures such as unreadable files or
// store errors; expectation mismatches land in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	obs, err := loadObservation(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	sess, err := resolver.NewSession(resolver.Options{
		Part:          scenario.Part,
		Material:      scenario.Material,
		Process:       scenario.Process,
		Archetype:     scenario.Archetype,
		IncludeIntent: scenario.Intent,
		Params:        scenario.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{Scenario: scenario.Name, Pass: true}

	out, err := drive(sess, obs, scenario.Answers)
	switch {
	case err != nil:
		var rerr *resolver.ResolveError
		if !errors.As(err, &rerr) {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.Outcome = OutcomeRejected
		result.State = resolver.StateRejected
		result.RejectCode = string(rerr.Code)
		result.Violations = rerr.Violations
	case out.State == resolver.StateFinalized:
		result.Outcome = OutcomeFinalized
		result.State = out.State
		result.Record = out.Record
		result.Report = out.Report
		if err := lower(ctx, scenario, result); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	default:
		result.Outcome = OutcomeQuestions
		result.State = out.State
		result.Questions = out.Questions
	}

	evaluate(result, scenario.Expect)
	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"outcome", result.Outcome,
		"pass", result.Pass,
		"mismatches", len(result.Errors))
	return result, nil
}

// RunAll executes scenarios in order and returns every result. Execution
// stops at the first harness failure; expectation mismatches do not stop
// the suite.
func RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, sc := range scenarios {
		r, err := Run(ctx, sc)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// drive pushes the session as far as the scripted answers allow: a first
// resolution pass, one answer submission when questions come back, and a
// final pass. Scenarios model a single dialogue round trip.
func drive(sess *resolver.Session, obs vision.Observation, answers []AnswerStep) (resolver.Outcome, error) {
	if err := sess.Observe(obs); err != nil {
		return resolver.Outcome{State: resolver.StateRejected}, err
	}
	out, err := sess.Resolve()
	if err != nil || out.State == resolver.StateFinalized || len(answers) == 0 {
		return out, err
	}
	batch := make([]ir.Answer, 0, len(answers))
	for _, a := range answers {
		batch = append(batch, ir.Answer{ID: a.ID, Value: a.Value})
	}
	if err := sess.SubmitAnswers(batch); err != nil {
		return resolver.Outcome{State: resolver.StateRejected}, err
	}
	return sess.Resolve()
}

// lower runs the generators over a finalized record and stores the run, so
// every scenario exercises the same path the CLI drives. Generator failures
// on a finalized record are expectation errors, not harness errors: the
// scenario keeps running and reports them.
func lower(ctx context.Context, scenario *Scenario, result *Result) error {
	rec := result.Record

	doc, err := drawing.Compile(rec)
	if err != nil {
		result.failf("drawing: %v", err)
	} else {
		result.Layers = populatedLayers(doc)
	}

	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	var m *mesh.Mesh
	if _, ok := rec.Intent["subcomponents"]; ok {
		asm, err := assembly.Build(cat, rec)
		if err != nil {
			result.failf("assembly: %v", err)
		} else {
			m = asm.Mesh
			result.Components = len(asm.Components)
		}
	} else {
		m, err = solid.Synthesize(cat, rec)
		if err != nil {
			result.failf("solid: %v", err)
		}
	}
	if m != nil {
		result.Triangles = len(m.Triangles)
		result.Manifold = mesh.CheckManifold(m) == nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.WriteRun(ctx, store.Run{
		ID:     "harness-" + scenario.Name,
		Source: observationSource(scenario),
	}, rec, result.Report)
	if err != nil {
		return err
	}
	result.RunID = run.ID
	result.Fingerprint = run.Fingerprint
	return nil
}

// loadObservation produces the observation a scenario starts from. Inline
// observations round-trip through JSON so they take the exact decode path
// a vision payload from disk takes.
func loadObservation(scenario *Scenario) (vision.Observation, error) {
	var data []byte
	var err error
	if scenario.ObservationFile != "" {
		data, err = os.ReadFile(scenario.ObservationFile)
		if err != nil {
			return vision.Observation{}, fmt.Errorf("failed to read observation file: %w", err)
		}
	} else {
		data, err = json.Marshal(scenario.Observation)
		if err != nil {
			return vision.Observation{}, fmt.Errorf("encode inline observation: %w", err)
		}
	}
	return vision.Decode(data)
}

func observationSource(scenario *Scenario) string {
	if scenario.ObservationFile != "" {
		return scenario.ObservationFile
	}
	return "inline:" + scenario.Name
}

func populatedLayers(doc *drawing.Document) []string {
	names := make([]string, 0, len(doc.Layers))
	for _, l := range doc.Layers {
		if l.Empty() {
			continue
		}
		names = append(names, l.Name)
	}
	return names
}
