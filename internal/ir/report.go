package ir

// Question is one clarifying question the resolver needs answered before a
// field can be trusted. IDs are stable and double as answer keys.
type Question struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`
	FieldPath string `json:"field_path,omitempty"`
}

// Question value types. The dialogue layer coerces raw user input to these
// before answers reach the resolver.
const (
	QuestionFloat  = "float"
	QuestionBool   = "bool"
	QuestionString = "string"
)

// Answer is one (question-id, value) pair from the dialogue. Order matters:
// a later contradictory answer for the same mandatory question rejects the
// part rather than silently winning.
type Answer struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Decision kinds recorded in the report when the resolver transforms a value
// rather than copying it.
const (
	DecisionHoleSizeNormalized = "hole_size_normalized"
	DecisionStandardClearance  = "standard_clearance_applied"
	DecisionAssumedDefault     = "assumed_default"
)

// Decision records one normalization the resolver applied, e.g. unifying a
// hole diameter to the declared standard's clearance. One decision per
// altered value; values already at target produce no decision.
type Decision struct {
	Kind      string `json:"kind"`
	FieldPath string `json:"field_path"`
	Detail    string `json:"detail,omitempty"`
}

// VisionConfidence summarizes the perception confidences that went into a
// record. Averages are omitted when the observation had no such features.
type VisionConfidence struct {
	HolesAvg     *float64 `json:"holes_avg,omitempty"`
	BendLinesAvg *float64 `json:"bend_lines_avg,omitempty"`
}

// Report is the traceability document produced alongside every finalized
// Record: what was asked, what was answered, what was transformed, and how
// confident perception was. Written by the resolver, consumed by no core
// component.
type Report struct {
	ScalePxToMM      float64          `json:"scale_px_to_mm"`
	HoleStandard     string           `json:"hole_standard,omitempty"`
	HoleDiametersMM  []float64        `json:"hole_diameters_mm,omitempty"`
	Questions        []Question       `json:"questions"`
	Answers          []Answer         `json:"answers"`
	VisionConfidence VisionConfidence `json:"vision_confidence"`
	Decisions        []Decision       `json:"decisions"`
	Notes            []string         `json:"notes"`

	// Unchecked is set when the record carried zero evaluated constraints:
	// valid by vacuous truth, but nothing was actually verified.
	Unchecked bool `json:"constraints_unchecked,omitempty"`
}
