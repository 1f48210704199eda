package resolver

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// State names a resolver lifecycle stage.
type State string

const (
	StateObserving     State = "observing"
	StateAwaitingScale State = "awaiting_scale"
	StateNormalizing   State = "normalizing"
	StateValidating    State = "validating"
	StateFinalized     State = "finalized"
	StateRejected      State = "rejected"
)

// Outcome is the explicit result of one resolution step: a finalized record
// with its report, or the outstanding questions blocking progress. Callers
// branch on State; there is no panic-driven control flow.
type Outcome struct {
	State State

	// Record and Report are set only once State is StateFinalized.
	Record *ir.Record
	Report *ir.Report

	// Questions are the open questions, repair follow-ups first. Empty once
	// finalized.
	Questions []ir.Question

	// Violations are pending perception-value violations whose follow-up
	// questions appear in Questions.
	Violations []Violation
}

// Options configure a resolution session.
type Options struct {
	// Part names the record. Defaults to "Unknown".
	Part string

	// Material and Process tag the record. Default A5052 sheet metal.
	Material string
	Process  string

	// Archetype forces the generator archetype instead of inferring it from
	// the perception hint.
	Archetype string

	// IncludeIntent enables the design-intent interview.
	IncludeIntent bool

	// Params pre-answer questions by ID, the non-interactive path. They go
	// through the same coercion and contradiction checks as live answers.
	Params map[string]any

	// Catalog resolves part hints and canonical names. Loaded from the
	// embedded source when nil.
	Catalog *catalog.Catalog
}

// Session drives one part from pixel observation to a finalized record.
//
//	Observing → AwaitingScale → Normalizing → Validating → Finalized
//
// Contradictory or unrepairable input moves the session to Rejected, which
// is terminal. A Session is not safe for concurrent use.
type Session struct {
	opts     Options
	state    State
	obs      *vision.Observation
	answers  map[string]any
	order    []string
	asked    []ir.Question
	askedIDs map[string]struct{}
	notes    []string

	scaleNote string

	outcome   *Outcome
	rejection *ResolveError
}

// NewSession validates the options and returns a session in Observing.
func NewSession(opts Options) (*Session, error) {
	if opts.Archetype != "" {
		if _, err := ir.ParseArchetype(opts.Archetype); err != nil {
			return nil, fmt.Errorf("resolver: %w", err)
		}
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.MustLoad()
	}
	return &Session{
		opts:     opts,
		state:    StateObserving,
		answers:  map[string]any{},
		askedIDs: map[string]struct{}{},
	}, nil
}

// State reports the current lifecycle stage.
func (s *Session) State() State { return s.state }

// Observe installs the perception result. Pre-supplied params fold in as
// answers here so question building sees them.
func (s *Session) Observe(obs vision.Observation) error {
	switch s.state {
	case StateFinalized:
		return fmt.Errorf("resolver: observation after finalization")
	case StateRejected:
		return s.rejection
	}
	s.obs = &obs
	slog.Debug("observation installed",
		"part", s.partName(),
		"outline_points", len(obs.Outline.PointsPx),
		"holes", len(obs.Holes),
		"bend_lines", len(obs.BendLines),
		"hint", obs.PartHint)

	ids := make([]string, 0, len(s.opts.Params))
	for id := range s.opts.Params {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := s.accept(id, s.opts.Params[id]); err != nil {
			return err
		}
	}
	return nil
}

// SubmitAnswers folds dialogue answers into the session. Re-submitting the
// same value is a no-op; a different value for an already-answered question
// rejects the part.
func (s *Session) SubmitAnswers(answers []ir.Answer) error {
	switch s.state {
	case StateFinalized:
		return fmt.Errorf("resolver: answers after finalization")
	case StateRejected:
		return s.rejection
	}
	for _, a := range answers {
		if err := s.accept(a.ID, a.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) accept(id string, value any) error {
	q, known := questionByID(id)
	if !known {
		return fmt.Errorf("resolver: unknown question id %q", id)
	}
	coerced, usable, note := coerceAnswer(id, q.Type, value)
	if note != "" {
		s.notes = append(s.notes, note)
	}
	if !usable {
		return nil
	}
	if prev, answered := s.answers[id]; answered {
		if reflect.DeepEqual(prev, coerced) {
			return nil
		}
		return s.reject(NewContradictionError(s.partName(), id, prev, coerced))
	}
	s.answers[id] = coerced
	s.order = append(s.order, id)
	slog.Debug("answer accepted", "id", id, "value", coerced)
	return nil
}

// Resolve advances the pipeline as far as the answers allow: it finalizes
// the record, reports the questions still blocking progress, or rejects the
// part. Once finalized, repeated calls return the identical outcome.
func (s *Session) Resolve() (Outcome, error) {
	switch s.state {
	case StateFinalized:
		return *s.outcome, nil
	case StateRejected:
		return Outcome{State: StateRejected}, s.rejection
	}
	if s.obs == nil {
		return Outcome{State: s.state}, fmt.Errorf("resolver: Resolve before Observe")
	}

	open := s.openQuestions()
	s.recordAsked(open)

	scale, haveScale, serr := s.resolveScale()
	if serr != nil {
		return Outcome{State: StateRejected}, s.reject(serr)
	}
	if !haveScale {
		s.state = StateAwaitingScale
		slog.Debug("awaiting scale", "part", s.partName(), "open_questions", len(open))
		return Outcome{State: StateAwaitingScale, Questions: open}, nil
	}

	s.state = StateNormalizing
	n, err := s.normalize(scale)
	if err != nil {
		return Outcome{State: s.state}, err
	}

	s.state = StateValidating
	if geomViolations := CheckGeometry(&n.record); len(geomViolations) > 0 {
		rerr := &ResolveError{
			Code:       ErrCodeInvalidGeometry,
			Part:       s.partName(),
			Message:    "geometry failed validation",
			Violations: geomViolations,
		}
		return Outcome{State: StateRejected, Violations: geomViolations}, s.reject(rerr)
	}

	if violations := CheckConstraints(&n.record); len(violations) > 0 {
		if confirmed := confirmedViolations(n.record.Provenance, violations); len(confirmed) > 0 {
			rerr := NewConstraintViolationError(s.partName(), violations)
			return Outcome{State: StateRejected, Violations: violations}, s.reject(rerr)
		}
		followUps := s.followUpQuestions(violations)
		s.recordAsked(followUps)
		s.state = StateObserving
		slog.Info("validation follow-ups",
			"part", s.partName(),
			"violations", len(violations),
			"follow_ups", len(followUps))
		return Outcome{
			State:      StateObserving,
			Questions:  mergeQuestions(followUps, s.openQuestions()),
			Violations: violations,
		}, nil
	}

	rec := n.record
	fp, err := ir.RecordFingerprint(rec)
	if err != nil {
		return Outcome{State: s.state}, err
	}
	rec.Fingerprint = fp
	rep := s.buildReport(n, scale)
	s.outcome = &Outcome{
		State:     StateFinalized,
		Record:    &rec,
		Report:    &rep,
		Questions: []ir.Question{},
	}
	s.state = StateFinalized
	slog.Info("record finalized",
		"part", rec.Part,
		"archetype", string(rec.Identity.Archetype),
		"holes", len(rec.Geometry.Holes),
		"fingerprint", fp[:12])
	return *s.outcome, nil
}

// resolveScale derives px→mm from the answers: a direct factor, a plate
// width against the observed outline width, or both (which must agree).
// Nonpositive and non-finite results are passed through for the geometry
// check to reject with provenance attached.
func (s *Session) resolveScale() (float64, bool, *ResolveError) {
	direct, hasDirect := s.floatAnswer(QuestionScale)

	var derived float64
	hasDerived := false
	if width, ok := s.floatAnswer(QuestionPlateWidth); ok {
		widthPx := s.outlineWidthPx()
		derived = width / widthPx
		hasDerived = true
	}

	switch {
	case hasDirect && hasDerived:
		if !scalesAgree(direct, derived) {
			return 0, false, &ResolveError{
				Code: ErrCodeContradictoryAnswer,
				Part: s.partName(),
				Message: fmt.Sprintf("direct scale %s disagrees with plate-width derived scale %s",
					formatMM(direct), formatMM(derived)),
			}
		}
		s.scaleNote = ""
		return direct, true, nil
	case hasDirect:
		s.scaleNote = ""
		return direct, true, nil
	case hasDerived:
		s.scaleNote = fmt.Sprintf("scale %s mm/px derived from plate width answer", formatMM(derived))
		return derived, true, nil
	default:
		return 0, false, nil
	}
}

func scalesAgree(a, b float64) bool {
	diff := math.Abs(a - b)
	ref := math.Max(math.Abs(a), math.Abs(b))
	return diff <= 1e-6*math.Max(ref, 1)
}

func (s *Session) outlineWidthPx() float64 {
	pts := make([]geom.Point, 0, len(s.obs.Outline.PointsPx))
	for _, p := range s.obs.Outline.PointsPx {
		pts = append(pts, geom.Point{X: p.X(), Y: p.Y()})
	}
	return geom.BoundsOf(pts).Width()
}

// openQuestions builds the questions still unanswered, scale first. Intent
// mode extends the rule set rather than replacing it: a complete record
// still needs scale and thickness regardless of the interview depth.
func (s *Session) openQuestions() []ir.Question {
	answered := func(id string) bool {
		_, ok := s.answers[id]
		return ok
	}
	qs := buildRuleQuestions(s.obs, answered)
	if s.opts.IncludeIntent {
		qs = append(qs, buildIntentQuestions(s.obs, s.obs.PartHint, answered)...)
	}
	return qs
}

// followUpQuestions maps constraint violations on perception values to the
// questions that can repair them.
func (s *Session) followUpQuestions(violations []Violation) []ir.Question {
	var out []ir.Question
	seen := map[string]struct{}{}
	add := func(id string) {
		if _, answered := s.answers[id]; answered {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, ruleQuestions[id])
	}
	for _, v := range violations {
		switch v.Constraint {
		case ir.ConstraintMinThickness:
			add(QuestionThickness)
		case ir.ConstraintBendRadiusGteThickness:
			add(QuestionBendRadius)
		case ir.ConstraintEdgeDistanceGte:
			add(QuestionHoleStandard)
			add(QuestionHoleDiameter)
		case ir.ConstraintHoleStandardConsistency:
			add(QuestionHoleStandard)
			add(QuestionUnifyHoles)
		}
	}
	return out
}

// confirmedViolations filters to violations whose offending field was
// dialogue-confirmed. Those cannot be repaired by re-asking.
func confirmedViolations(led ir.Ledger, violations []Violation) []Violation {
	var confirmed []Violation
	for _, v := range violations {
		if e, ok := led.Lookup(v.Field); ok && e.Source == ir.SourceDialogue {
			confirmed = append(confirmed, v)
		}
	}
	return confirmed
}

func (s *Session) recordAsked(qs []ir.Question) {
	for _, q := range qs {
		if _, dup := s.askedIDs[q.ID]; dup {
			continue
		}
		s.askedIDs[q.ID] = struct{}{}
		s.asked = append(s.asked, q)
	}
}

func mergeQuestions(primary, rest []ir.Question) []ir.Question {
	seen := make(map[string]struct{}, len(primary))
	out := make([]ir.Question, 0, len(primary)+len(rest))
	for _, group := range [][]ir.Question{primary, rest} {
		for _, q := range group {
			if _, dup := seen[q.ID]; dup {
				continue
			}
			seen[q.ID] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}

func (s *Session) reject(err *ResolveError) error {
	s.state = StateRejected
	s.rejection = err
	slog.Warn("part rejected",
		"part", s.partName(),
		"code", string(err.Code),
		"reason", err.Message)
	return err
}

// answerList returns the accepted answers in submission order.
func (s *Session) answerList() []ir.Answer {
	out := make([]ir.Answer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, ir.Answer{ID: id, Value: s.answers[id]})
	}
	return out
}

func (s *Session) floatAnswer(id string) (float64, bool) {
	v, ok := s.answers[id]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (s *Session) boolAnswer(id string) (bool, bool) {
	v, ok := s.answers[id]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (s *Session) stringAnswer(id string) (string, bool) {
	v, ok := s.answers[id]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (s *Session) partName() string {
	if s.opts.Part != "" {
		return s.opts.Part
	}
	return "Unknown"
}

func (s *Session) materialName() string {
	if s.opts.Material != "" {
		return s.opts.Material
	}
	return "A5052"
}

func (s *Session) processName() string {
	if s.opts.Process != "" {
		return s.opts.Process
	}
	return "sheet_metal"
}

// coerceAnswer converts a raw answer to the question's value type. An
// unusable answer is dropped (the question stays open) with a note, never
// an error: garbled input must not kill an interactive session.
func coerceAnswer(id, qType string, value any) (any, bool, string) {
	if value == nil {
		return nil, false, ""
	}
	switch qType {
	case ir.QuestionFloat:
		f, ok := toFloat(value)
		if !ok {
			return nil, false, fmt.Sprintf("answer %q: cannot read %v as a number; ignored", id, value)
		}
		return f, true, ""
	case ir.QuestionBool:
		b, ok := toBool(value)
		if !ok {
			return nil, false, fmt.Sprintf("answer %q: cannot read %v as yes/no; ignored", id, value)
		}
		return b, true, ""
	default:
		switch v := value.(type) {
		case []any:
			return v, len(v) > 0, ""
		case []string:
			return v, len(v) > 0, ""
		}
		str := strings.TrimSpace(toString(value))
		if str == "" {
			return nil, false, ""
		}
		return str, true, ""
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	switch strings.ToLower(strings.TrimSpace(toString(v))) {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0":
		return false, true
	}
	return false, false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
