package ir

import "fmt"

// FormatVersion identifies the record layout. Bump on breaking changes to
// the serialized shape; stored alongside every persisted record.
const FormatVersion = "mml/1"

// Archetype is the closed set of part-type tags. It selects the solid
// generator and scopes which intent parameters apply.
type Archetype string

const (
	ArchetypePlate       Archetype = "plate"
	ArchetypeBracket     Archetype = "bracket"
	ArchetypeGear        Archetype = "gear"
	ArchetypeLink        Archetype = "link"
	ArchetypeJoint       Archetype = "joint"
	ArchetypeBase        Archetype = "base"
	ArchetypeShaft       Archetype = "shaft"
	ArchetypeBearing     Archetype = "bearing"
	ArchetypeEndEffector Archetype = "end_effector"
	ArchetypeActuator    Archetype = "actuator"
)

// Archetypes lists all valid archetype tags in a stable order.
func Archetypes() []Archetype {
	return []Archetype{
		ArchetypePlate, ArchetypeBracket, ArchetypeGear, ArchetypeLink,
		ArchetypeJoint, ArchetypeBase, ArchetypeShaft, ArchetypeBearing,
		ArchetypeEndEffector, ArchetypeActuator,
	}
}

// ParseArchetype validates a tag string against the closed set.
func ParseArchetype(s string) (Archetype, error) {
	a := Archetype(s)
	for _, known := range Archetypes() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown archetype %q", s)
}

// PointMM is a 2D millimeter-space point serialized as [x, y].
type PointMM [2]float64

// X returns the first coordinate.
func (p PointMM) X() float64 { return p[0] }

// Y returns the second coordinate.
func (p PointMM) Y() float64 { return p[1] }

// Identity tags a record with its archetype and declared units.
type Identity struct {
	Archetype Archetype `json:"archetype"`
	Units     string    `json:"units"`
}

// Scale records the pixel-to-millimeter conversion used to resolve the
// record's geometry. PxToMM must be positive in a finalized record.
type Scale struct {
	PxToMM float64 `json:"px_to_mm"`
}

// Tag is a free-form descriptive label (material, process). Never used in
// validation.
type Tag struct {
	Name string `json:"name"`
}

// Outline is the part's closed boundary polygon. Points are ordered and the
// polygon must be simple (non-self-intersecting) with at least 3 vertices.
type Outline struct {
	Type     string    `json:"type"`
	PointsMM []PointMM `json:"points_mm"`
}

// Hole is a through-hole. DiameterMM is always the clearance diameter, even
// when the input was a fastener standard label; the standard -> clearance
// normalization is one-way and recorded in the run report.
type Hole struct {
	Kind       string  `json:"type"`
	Standard   string  `json:"standard"`
	DiameterMM float64 `json:"diameter_mm"`
	CenterMM   PointMM `json:"center_mm"`
}

// HoleKindClearance is the only hole kind the resolver currently emits.
const HoleKindClearance = "clearance"

// Bend is a single straight bend across the outline.
type Bend struct {
	LineMM        [2]PointMM `json:"line_mm"`
	AngleDeg      float64    `json:"angle_deg"`
	InnerRadiusMM float64    `json:"inner_radius_mm"`
}

// Geometry holds the resolved millimeter-space shape of the part.
type Geometry struct {
	Outline Outline `json:"outline"`
	Holes   []Hole  `json:"holes"`
	Bend    *Bend   `json:"bend,omitempty"`
}

// Constraint kinds. Each kind carries the parameters needed to re-evaluate
// the predicate against the record's geometry.
const (
	ConstraintMinThickness            = "min_thickness"
	ConstraintBendRadiusGteThickness  = "bend_radius_gte_thickness"
	ConstraintEdgeDistanceGte         = "edge_distance_gte"
	ConstraintHoleStandardConsistency = "hole_standard_consistency"
)

// Constraint is one named rule instance. Evaluation order is the order of
// Record.Constraints.
type Constraint struct {
	Kind       string   `json:"kind"`
	ValueMM    *float64 `json:"value_mm,omitempty"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

// Record is the canonical design document for one physical part. A Record is
// immutable once finalized: generators read it, never write it, and edits go
// back through the resolver to produce a new Record.
type Record struct {
	FormatVersion string       `json:"format_version"`
	Part          string       `json:"part"`
	Identity      Identity     `json:"identity"`
	Scale         Scale        `json:"scale"`
	Material      Tag          `json:"material"`
	Process       Tag          `json:"process"`
	Geometry      Geometry     `json:"geometry"`
	Constraints   []Constraint `json:"constraints"`
	Intent        Intent       `json:"intent,omitempty"`
	Provenance    Ledger       `json:"provenance,omitempty"`

	// Fingerprint is the content address of the record (hash of the
	// canonical encoding with this field cleared). Set at finalization.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// ThicknessMM returns the declared thickness, read from the min_thickness
// constraint the resolver attaches during finalization.
func (r *Record) ThicknessMM() (float64, bool) {
	for _, c := range r.Constraints {
		if c.Kind == ConstraintMinThickness && c.ValueMM != nil {
			return *c.ValueMM, true
		}
	}
	return 0, false
}

// HoleStandard returns the standard label shared by the record's holes, or
// "" when there are no holes.
func (r *Record) HoleStandard() string {
	if len(r.Geometry.Holes) == 0 {
		return ""
	}
	return r.Geometry.Holes[0].Standard
}

// Float64Ptr is a convenience for optional constraint parameters.
func Float64Ptr(v float64) *float64 { return &v }
