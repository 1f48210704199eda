package resolver

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// assumedConfidence tags provenance entries for values the resolver filled
// in itself (bend defaults). Below the perception default so validation
// treats these as the least trusted inputs, but still re-askable.
const assumedConfidence = 0.5

// round3 rounds to three decimals, the record-wide millimeter precision.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// formatMM renders a millimeter value without trailing zeros, matching the
// canonical JSON float encoding.
func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toMM(p vision.PointPx, scale float64) ir.PointMM {
	return ir.PointMM{round3(p.X() * scale), round3(p.Y() * scale)}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// normalized is the output of one normalization pass: the candidate record
// plus the report fragments describing what the pass changed.
type normalized struct {
	record    ir.Record
	decisions []ir.Decision
	notes     []string
	holeStd   string
	holeDiams []float64
}

// normalize converts the pixel observation into a millimeter record using
// the answers gathered so far. Re-running it after new answers rebuilds the
// record and its report fragments from scratch, so a follow-up round never
// sees stale values.
func (s *Session) normalize(scale float64) (*normalized, error) {
	obs := s.obs
	n := &normalized{
		decisions: []ir.Decision{},
		notes:     []string{},
	}
	if s.scaleNote != "" {
		n.notes = append(n.notes, s.scaleNote)
	}

	led := ir.NewLedger()
	led.MustRecord("scale.px_to_mm", ir.SourceDialogue, 0)

	outline := ir.Outline{Type: obs.Outline.Type}
	if outline.Type == "" {
		outline.Type = "polygon"
	}
	outline.PointsMM = make([]ir.PointMM, 0, len(obs.Outline.PointsPx))
	for _, p := range obs.Outline.PointsPx {
		outline.PointsMM = append(outline.PointsMM, toMM(p, scale))
	}
	led.MustRecord("geometry.outline", ir.SourcePerception, vision.DefaultConfidence)

	holes := s.normalizeHoles(n, led, scale)
	bend := s.normalizeBend(n, led, scale)
	constraints := s.buildConstraints(led)

	intent, err := s.buildIntent(led)
	if err != nil {
		return nil, err
	}

	confirm, _ := s.stringAnswer("part_type_confirm")
	arch, err := inferArchetype(s.opts.Catalog, s.opts.Archetype, confirm, obs.PartHint, s.partName())
	if err != nil {
		return nil, err
	}

	n.record = ir.Record{
		FormatVersion: ir.FormatVersion,
		Part:          s.partName(),
		Identity:      ir.Identity{Archetype: arch, Units: "mm"},
		Scale:         ir.Scale{PxToMM: scale},
		Material:      ir.Tag{Name: s.materialName()},
		Process:       ir.Tag{Name: s.processName()},
		Geometry:      ir.Geometry{Outline: outline, Holes: holes, Bend: bend},
		Constraints:   constraints,
		Intent:        intent,
		Provenance:    led,
	}
	return n, nil
}

// holeTarget returns the declared target diameter and standard label, if
// any. A recognized fastener standard wins over a bare diameter answer; a
// bare diameter is labeled "custom".
func (s *Session) holeTarget(n *normalized) (string, *float64) {
	if raw, ok := s.stringAnswer(QuestionHoleStandard); ok {
		key := strings.ToUpper(strings.TrimSpace(raw))
		if d, known := ir.Clearance(key); known {
			return key, &d
		}
		n.notes = append(n.notes, fmt.Sprintf("unrecognized hole standard %q ignored", raw))
	}
	if d, ok := s.floatAnswer(QuestionHoleDiameter); ok {
		return "custom", &d
	}
	return "", nil
}

// normalizeHoles converts hole candidates to clearance holes. A declared
// size applies to every hole unless unification was explicitly declined; a
// unify answer without a declared size adopts the largest observed hole.
func (s *Session) normalizeHoles(n *normalized, led ir.Ledger, scale float64) []ir.Hole {
	holeStd, target := s.holeTarget(n)
	declared := target != nil
	unify, unifyAnswered := s.boolAnswer(QuestionUnifyHoles)

	applyAll := declared && (!unifyAnswered || unify)
	if !declared && unifyAnswered && unify && len(s.obs.Holes) > 0 {
		largest := 0.0
		for _, h := range s.obs.Holes {
			largest = math.Max(largest, round3(h.RadiusPx*2*scale))
		}
		target = &largest
		applyAll = true
		n.notes = append(n.notes, fmt.Sprintf("holes unified to largest observed diameter %s mm", formatMM(largest)))
	}
	if holeStd == "" {
		holeStd = "custom"
	}
	n.holeStd = holeStd

	if applyAll && holeStd != "custom" && len(s.obs.Holes) > 0 {
		n.decisions = append(n.decisions, ir.Decision{
			Kind:      ir.DecisionStandardClearance,
			FieldPath: "geometry.holes",
			Detail:    fmt.Sprintf("%s -> %s mm clearance", holeStd, formatMM(*target)),
		})
	}

	holes := make([]ir.Hole, 0, len(s.obs.Holes))
	n.holeDiams = make([]float64, 0, len(s.obs.Holes))
	for idx, h := range s.obs.Holes {
		raw := round3(h.RadiusPx * 2 * scale)
		diameter := raw
		if applyAll {
			diameter = round3(*target)
		}
		holes = append(holes, ir.Hole{
			Kind:       ir.HoleKindClearance,
			Standard:   holeStd,
			DiameterMM: diameter,
			CenterMM:   toMM(h.CenterPx, scale),
		})
		n.holeDiams = append(n.holeDiams, diameter)

		led.MustRecord(fmt.Sprintf("geometry.holes.%d.center_mm", idx), ir.SourcePerception, h.Confidence)
		diamPath := fmt.Sprintf("geometry.holes.%d.diameter_mm", idx)
		if applyAll && declared {
			led.MustRecord(diamPath, ir.SourceDialogue, 0)
		} else {
			led.MustRecord(diamPath, ir.SourcePerception, h.Confidence)
		}
		if applyAll && diameter != raw {
			n.decisions = append(n.decisions, ir.Decision{
				Kind:      ir.DecisionHoleSizeNormalized,
				FieldPath: diamPath,
				Detail:    fmt.Sprintf("%s -> %s", formatMM(raw), formatMM(diameter)),
			})
		}
	}
	return holes
}

// normalizeBend converts the first bend candidate; extra candidates are
// noted and dropped. Missing angle/radius answers fall back to 90° and 1mm,
// recorded as assumed defaults so a later violation re-asks instead of
// rejecting.
func (s *Session) normalizeBend(n *normalized, led ir.Ledger, scale float64) *ir.Bend {
	if len(s.obs.BendLines) == 0 {
		return nil
	}
	first := s.obs.BendLines[0]
	if extra := len(s.obs.BendLines) - 1; extra > 0 {
		n.notes = append(n.notes, fmt.Sprintf("%d extra bend candidate(s) ignored; single-bend parts only", extra))
	}

	b := ir.Bend{
		LineMM: [2]ir.PointMM{toMM(first.LinePx[0], scale), toMM(first.LinePx[1], scale)},
	}
	led.MustRecord("geometry.bend.line_mm", ir.SourcePerception, first.Confidence)

	if angle, ok := s.floatAnswer(QuestionBendAngle); ok {
		b.AngleDeg = angle
		led.MustRecord("geometry.bend.angle_deg", ir.SourceDialogue, 0)
	} else {
		b.AngleDeg = 90.0
		led.MustRecord("geometry.bend.angle_deg", ir.SourcePerception, assumedConfidence)
		n.decisions = append(n.decisions, ir.Decision{
			Kind:      ir.DecisionAssumedDefault,
			FieldPath: "geometry.bend.angle_deg",
			Detail:    "90",
		})
		n.notes = append(n.notes, "bend angle not answered; assumed 90 degrees")
	}

	if radius, ok := s.floatAnswer(QuestionBendRadius); ok {
		b.InnerRadiusMM = radius
		led.MustRecord("geometry.bend.inner_radius_mm", ir.SourceDialogue, 0)
	} else {
		b.InnerRadiusMM = 1.0
		led.MustRecord("geometry.bend.inner_radius_mm", ir.SourcePerception, assumedConfidence)
		n.decisions = append(n.decisions, ir.Decision{
			Kind:      ir.DecisionAssumedDefault,
			FieldPath: "geometry.bend.inner_radius_mm",
			Detail:    "1",
		})
		n.notes = append(n.notes, "bend inner radius not answered; assumed 1 mm")
	}
	return &b
}

// buildConstraints attaches the constraint set. Thickness is declared only
// when answered; the bend-radius and edge-distance rules are always present
// and evaluate vacuously when their geometry is absent.
func (s *Session) buildConstraints(led ir.Ledger) []ir.Constraint {
	constraints := []ir.Constraint{}
	if thickness, ok := s.floatAnswer(QuestionThickness); ok {
		constraints = append(constraints, ir.Constraint{
			Kind:    ir.ConstraintMinThickness,
			ValueMM: ir.Float64Ptr(round3(thickness)),
		})
		led.MustRecord("constraints.min_thickness.value_mm", ir.SourceDialogue, 0)
	}
	constraints = append(constraints,
		ir.Constraint{Kind: ir.ConstraintBendRadiusGteThickness},
		ir.Constraint{Kind: ir.ConstraintEdgeDistanceGte, Multiplier: ir.Float64Ptr(2.0)},
	)
	if unify, ok := s.boolAnswer(QuestionUnifyHoles); ok && unify {
		constraints = append(constraints, ir.Constraint{Kind: ir.ConstraintHoleStandardConsistency})
	}
	return constraints
}

// buildIntent collects the answered registry fields. Only populated in
// intent mode; rule-mode records carry no intent block.
func (s *Session) buildIntent(led ir.Ledger) (ir.Intent, error) {
	if !s.opts.IncludeIntent {
		return nil, nil
	}
	intent := ir.Intent{}
	if s.obs.PartHint != "" {
		intent["inferred_part"] = s.obs.PartHint
		conf := vision.DefaultConfidence
		if s.obs.PartHintConfidence != nil {
			conf = clamp01(*s.obs.PartHintConfidence)
		}
		led.MustRecord("intent.inferred_part", ir.SourcePerception, conf)
	}
	for _, field := range ir.IntentFields() {
		v, ok := s.answers[field]
		if !ok {
			continue
		}
		if err := intent.Set(field, v); err != nil {
			return nil, err
		}
		led.MustRecord("intent."+field, ir.SourceDialogue, 0)
	}
	return intent, nil
}

// buildReport composes the traceability report for a finalized pass.
func (s *Session) buildReport(n *normalized, scale float64) ir.Report {
	rep := ir.Report{
		ScalePxToMM: scale,
		Questions:   append([]ir.Question{}, s.asked...),
		Answers:     s.answerList(),
		Decisions:   n.decisions,
		Notes:       append(append([]string{}, s.notes...), n.notes...),
		Unchecked:   len(n.record.Constraints) == 0,
	}
	if len(n.record.Geometry.Holes) > 0 {
		rep.HoleStandard = n.holeStd
		rep.HoleDiametersMM = n.holeDiams
	}
	if avg, ok := s.obs.MeanHoleConfidence(); ok {
		rep.VisionConfidence.HolesAvg = ir.Float64Ptr(round3(avg))
	}
	if avg, ok := s.obs.MeanBendConfidence(); ok {
		rep.VisionConfidence.BendLinesAvg = ir.Float64Ptr(round3(avg))
	}
	return rep
}
