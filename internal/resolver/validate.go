package resolver

import (
	"fmt"
	"math"

	"github.com/ryohei-iwamoto/mml-mvp/internal/geom"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// Validation error codes (V100-V199)
const (
	// Geometry errors (V100-V109): structurally unsound records, fatal.
	ErrOutlineTooFewVertices = "V100" // outline has fewer than 3 vertices
	ErrOutlineSelfIntersects = "V101" // outline edges cross
	ErrHoleOutsideOutline    = "V102" // hole center not inside outline
	ErrHoleNonPositive       = "V103" // hole diameter must be positive
	ErrBendDegenerate        = "V104" // bend line has zero length
	ErrBendOutsideOutline    = "V105" // bend line leaves the outline
	ErrScaleNonPositive      = "V106" // px_to_mm must be positive

	// Constraint violations (V110-V119): surfaced as follow-up questions
	// unless the offending value was dialogue-confirmed.
	ErrMinThickness             = "V110" // declared thickness below minimum
	ErrBendRadiusBelow          = "V111" // bend radius below thickness
	ErrEdgeDistanceBelow        = "V112" // hole too close to an outline edge
	ErrHoleStandardInconsistent = "V113" // unified holes have unequal diameters
	ErrUnknownConstraint        = "V114" // constraint kind not recognized
)

// Violation is one failed predicate against a record.
type Violation struct {
	Constraint string `json:"constraint"`
	Field      string `json:"field"`
	Message    string `json:"message"`
	Code       string `json:"code"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Field, v.Message)
}

// CheckGeometry validates the structural soundness of a record's geometry.
// Returns all problems found (does not fail-fast). Any violation here is
// fatal for the part: geometry is never auto-repaired.
func CheckGeometry(rec *ir.Record) []Violation {
	var errs []Violation

	if rec.Scale.PxToMM <= 0 || math.IsNaN(rec.Scale.PxToMM) || math.IsInf(rec.Scale.PxToMM, 0) {
		errs = append(errs, Violation{
			Constraint: "scale",
			Field:      "scale.px_to_mm",
			Message:    fmt.Sprintf("scale must be positive, got %v", rec.Scale.PxToMM),
			Code:       ErrScaleNonPositive,
		})
	}

	outline := outlinePoints(rec)
	if len(outline) < 3 {
		errs = append(errs, Violation{
			Constraint: "outline",
			Field:      "geometry.outline.points_mm",
			Message:    fmt.Sprintf("outline needs at least 3 vertices, got %d", len(outline)),
			Code:       ErrOutlineTooFewVertices,
		})
		return errs
	}
	if !geom.IsSimplePolygon(outline) {
		errs = append(errs, Violation{
			Constraint: "outline",
			Field:      "geometry.outline.points_mm",
			Message:    "outline polygon self-intersects",
			Code:       ErrOutlineSelfIntersects,
		})
	}

	for i, h := range rec.Geometry.Holes {
		if h.DiameterMM <= 0 {
			errs = append(errs, Violation{
				Constraint: "holes",
				Field:      fmt.Sprintf("geometry.holes.%d.diameter_mm", i),
				Message:    fmt.Sprintf("hole diameter must be positive, got %v", h.DiameterMM),
				Code:       ErrHoleNonPositive,
			})
		}
		center := geom.Point{X: h.CenterMM.X(), Y: h.CenterMM.Y()}
		if !geom.PointInPolygon(center, outline) {
			errs = append(errs, Violation{
				Constraint: "holes",
				Field:      fmt.Sprintf("geometry.holes.%d.center_mm", i),
				Message:    fmt.Sprintf("hole center (%v, %v) lies outside the outline", center.X, center.Y),
				Code:       ErrHoleOutsideOutline,
			})
		}
	}

	if b := rec.Geometry.Bend; b != nil {
		start := geom.Point{X: b.LineMM[0].X(), Y: b.LineMM[0].Y()}
		end := geom.Point{X: b.LineMM[1].X(), Y: b.LineMM[1].Y()}
		if start.Dist(end) < geom.Eps {
			errs = append(errs, Violation{
				Constraint: "bend",
				Field:      "geometry.bend.line_mm",
				Message:    "bend line is degenerate (zero length)",
				Code:       ErrBendDegenerate,
			})
		} else if !geom.SegmentInPolygon(geom.Segment{A: start, B: end}, outline) {
			errs = append(errs, Violation{
				Constraint: "bend",
				Field:      "geometry.bend.line_mm",
				Message:    "bend line leaves the outline polygon",
				Code:       ErrBendOutsideOutline,
			})
		}
	}

	return errs
}

// Revalidate re-runs every geometry and constraint check on an existing
// record. This is the editing path: a stored record modified outside a live
// session must pass the same predicates before it is trusted again.
func Revalidate(rec *ir.Record) []Violation {
	return append(CheckGeometry(rec), CheckConstraints(rec)...)
}

// CheckConstraints evaluates every declared constraint in record order
// against the resolved geometry. All constraints are evaluated (no
// short-circuit) so the caller can surface every problem at once. A record
// with zero constraints passes vacuously; the caller flags it unchecked in
// the report.
func CheckConstraints(rec *ir.Record) []Violation {
	var errs []Violation
	for _, c := range rec.Constraints {
		switch c.Kind {
		case ir.ConstraintMinThickness:
			errs = append(errs, checkMinThickness(c)...)
		case ir.ConstraintBendRadiusGteThickness:
			errs = append(errs, checkBendRadius(rec)...)
		case ir.ConstraintEdgeDistanceGte:
			errs = append(errs, checkEdgeDistance(rec, c)...)
		case ir.ConstraintHoleStandardConsistency:
			errs = append(errs, checkHoleConsistency(rec)...)
		default:
			errs = append(errs, Violation{
				Constraint: c.Kind,
				Field:      "constraints",
				Message:    fmt.Sprintf("unknown constraint kind %q", c.Kind),
				Code:       ErrUnknownConstraint,
			})
		}
	}
	return errs
}

func checkMinThickness(c ir.Constraint) []Violation {
	if c.ValueMM == nil || *c.ValueMM <= 0 {
		got := "absent"
		if c.ValueMM != nil {
			got = fmt.Sprintf("%v", *c.ValueMM)
		}
		return []Violation{{
			Constraint: ir.ConstraintMinThickness,
			Field:      "constraints.min_thickness.value_mm",
			Message:    fmt.Sprintf("thickness must be positive, got %s", got),
			Code:       ErrMinThickness,
		}}
	}
	return nil
}

// checkBendRadius passes vacuously when the record has no bend or no
// declared thickness.
func checkBendRadius(rec *ir.Record) []Violation {
	b := rec.Geometry.Bend
	if b == nil {
		return nil
	}
	thickness, ok := rec.ThicknessMM()
	if !ok {
		return nil
	}
	if b.InnerRadiusMM < thickness {
		return []Violation{{
			Constraint: ir.ConstraintBendRadiusGteThickness,
			Field:      "geometry.bend.inner_radius_mm",
			Message:    fmt.Sprintf("bend inner radius %vmm is below thickness %vmm", b.InnerRadiusMM, thickness),
			Code:       ErrBendRadiusBelow,
		}}
	}
	return nil
}

func checkEdgeDistance(rec *ir.Record, c ir.Constraint) []Violation {
	multiplier := 2.0
	if c.Multiplier != nil {
		multiplier = *c.Multiplier
	}
	outline := outlinePoints(rec)
	if len(outline) < 2 {
		return nil
	}
	var errs []Violation
	for i, h := range rec.Geometry.Holes {
		center := geom.Point{X: h.CenterMM.X(), Y: h.CenterMM.Y()}
		required := multiplier * h.DiameterMM
		dist := geom.MinEdgeDistance(center, outline)
		if dist < required-geom.Eps {
			errs = append(errs, Violation{
				Constraint: ir.ConstraintEdgeDistanceGte,
				Field:      fmt.Sprintf("geometry.holes.%d.diameter_mm", i),
				Message: fmt.Sprintf("hole is %.3fmm from the nearest edge, needs at least %.3fmm (%.1fx diameter)",
					dist, required, multiplier),
				Code: ErrEdgeDistanceBelow,
			})
		}
	}
	return errs
}

func checkHoleConsistency(rec *ir.Record) []Violation {
	holes := rec.Geometry.Holes
	if len(holes) < 2 {
		return nil
	}
	first := holes[0].DiameterMM
	for i := 1; i < len(holes); i++ {
		if math.Abs(holes[i].DiameterMM-first) > geom.Eps {
			return []Violation{{
				Constraint: ir.ConstraintHoleStandardConsistency,
				Field:      "geometry.holes",
				Message:    fmt.Sprintf("unified holes have unequal diameters (%v vs %v)", first, holes[i].DiameterMM),
				Code:       ErrHoleStandardInconsistent,
			}}
		}
	}
	return nil
}

func outlinePoints(rec *ir.Record) []geom.Point {
	pts := make([]geom.Point, 0, len(rec.Geometry.Outline.PointsMM))
	for _, p := range rec.Geometry.Outline.PointsMM {
		pts = append(pts, geom.Point{X: p.X(), Y: p.Y()})
	}
	return pts
}
