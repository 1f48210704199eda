package resolver

import (
	"fmt"
	"math"
	"strings"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

// Question IDs outside the intent registry. These double as answer keys.
const (
	QuestionScale        = "px_to_mm"
	QuestionPlateWidth   = "plate_width_mm"
	QuestionHoleStandard = "hole_standard"
	QuestionHoleDiameter = "hole_diameter_mm"
	QuestionUnifyHoles   = "unify_holes"
	QuestionThickness    = "thickness_mm"
	QuestionBendAngle    = "bend_angle_deg"
	QuestionBendRadius   = "bend_radius_mm"
)

// holeRadiiVary reports whether the observed hole radii spread enough to be
// worth a unification question: relative standard deviation above 8%, which
// tolerates detection jitter on a uniform drilling pattern.
func holeRadiiVary(holes []vision.Hole) bool {
	if len(holes) < 2 {
		return false
	}
	var sum float64
	for _, h := range holes {
		sum += h.RadiusPx
	}
	mean := sum / float64(len(holes))
	if mean <= 0 {
		return false
	}
	var variance float64
	for _, h := range holes {
		variance += (h.RadiusPx - mean) * (h.RadiusPx - mean)
	}
	variance /= float64(len(holes))
	return math.Sqrt(variance)/mean > 0.08
}

// ruleQuestions defines the fixed clarification set by ID. Follow-up
// generation and answer coercion share this table with the builder.
var ruleQuestions = map[string]ir.Question{
	QuestionScale: {
		ID:        QuestionScale,
		Text:      "Reference scale: how many millimeters per pixel?",
		Type:      ir.QuestionFloat,
		FieldPath: "scale.px_to_mm",
	},
	QuestionPlateWidth: {
		ID:        QuestionPlateWidth,
		Text:      "Alternatively: how wide is the outlined part in millimeters?",
		Type:      ir.QuestionFloat,
		FieldPath: "scale.px_to_mm",
	},
	QuestionHoleStandard: {
		ID:        QuestionHoleStandard,
		Text:      "Hole standard? (M3/M4/M5/M6/M8, or leave blank)",
		Type:      ir.QuestionString,
		FieldPath: "geometry.holes",
	},
	QuestionHoleDiameter: {
		ID:        QuestionHoleDiameter,
		Text:      "Hole diameter in mm, if the standard is unknown",
		Type:      ir.QuestionFloat,
		FieldPath: "geometry.holes",
	},
	QuestionUnifyHoles: {
		ID:        QuestionUnifyHoles,
		Text:      "Detected hole sizes differ. Unify them? (y/n)",
		Type:      ir.QuestionBool,
		FieldPath: "geometry.holes",
	},
	QuestionThickness: {
		ID:        QuestionThickness,
		Text:      "Plate thickness in mm?",
		Type:      ir.QuestionFloat,
		FieldPath: "constraints.min_thickness.value_mm",
	},
	QuestionBendAngle: {
		ID:        QuestionBendAngle,
		Text:      "Bend angle in degrees?",
		Type:      ir.QuestionFloat,
		FieldPath: "geometry.bend.angle_deg",
	},
	QuestionBendRadius: {
		ID:        QuestionBendRadius,
		Text:      "Bend inner radius in mm?",
		Type:      ir.QuestionFloat,
		FieldPath: "geometry.bend.inner_radius_mm",
	},
}

// buildRuleQuestions returns the clarifying questions still open given the
// observation and the answers so far. Scale comes first: nothing downstream
// is trustworthy until px→mm is fixed, and there is no fallback scale.
func buildRuleQuestions(obs *vision.Observation, answered func(string) bool) []ir.Question {
	var questions []ir.Question

	if !answered(QuestionScale) && !answered(QuestionPlateWidth) {
		questions = append(questions, ruleQuestions[QuestionScale], ruleQuestions[QuestionPlateWidth])
	}

	if len(obs.Holes) > 0 && !answered(QuestionHoleStandard) && !answered(QuestionHoleDiameter) {
		questions = append(questions, ruleQuestions[QuestionHoleStandard], ruleQuestions[QuestionHoleDiameter])
	}

	if holeRadiiVary(obs.Holes) && !answered(QuestionUnifyHoles) {
		questions = append(questions, ruleQuestions[QuestionUnifyHoles])
	}

	if !answered(QuestionThickness) {
		questions = append(questions, ruleQuestions[QuestionThickness])
	}

	if len(obs.BendLines) > 0 {
		if !answered(QuestionBendAngle) {
			questions = append(questions, ruleQuestions[QuestionBendAngle])
		}
		if !answered(QuestionBendRadius) {
			questions = append(questions, ruleQuestions[QuestionBendRadius])
		}
	}

	return questions
}

// questionByID resolves any known question, rule-set or intent-registry.
func questionByID(id string) (ir.Question, bool) {
	if q, ok := ruleQuestions[id]; ok {
		return q, true
	}
	if ir.IsIntentField(id) {
		return intentQuestion(id), true
	}
	return ir.Question{}, false
}

// armFields are the structured robot-arm interview fields, asked only when
// the inferred part is a robot arm.
var armFields = []string{
	"arm_dof",
	"arm_joint_count",
	"arm_drive_type",
	"arm_reach_mm",
	"arm_payload_kg",
	"arm_link_length_mm",
	"arm_link_width_mm",
	"arm_joint_diameter_mm",
}

// conditionalIntentFields are excluded from the catch-all sweep and asked
// only when their trigger applies.
var conditionalIntentFields = func() map[string]struct{} {
	skip := map[string]struct{}{
		"inferred_part":     {},
		"part_type_confirm": {},
		"process_detail":    {},
	}
	for _, f := range armFields {
		skip[f] = struct{}{}
	}
	return skip
}()

// buildIntentQuestions assembles the design-intent interview: part-type
// confirmation when perception produced a hint, the structured arm block for
// robot arms, every unanswered registry field, and the bending-process
// question when bend candidates exist.
func buildIntentQuestions(obs *vision.Observation, inferredPart string, answered func(string) bool) []ir.Question {
	var questions []ir.Question

	if inferredPart != "" && !answered("part_type_confirm") {
		questions = append(questions, ir.Question{
			ID:        "part_type_confirm",
			Text:      fmt.Sprintf("The sketch looks like a %s. Is that right? (yes/no/other name)", inferredPart),
			Type:      ir.QuestionString,
			FieldPath: "intent.part_type_confirm",
		})
	}

	if strings.EqualFold(inferredPart, "robotarm") {
		for _, field := range armFields {
			if !answered(field) {
				questions = append(questions, intentQuestion(field))
			}
		}
	}

	for _, field := range ir.IntentFields() {
		if _, skip := conditionalIntentFields[field]; skip {
			continue
		}
		if !answered(field) {
			questions = append(questions, intentQuestion(field))
		}
	}

	if len(obs.BendLines) > 0 && !answered("process_detail") {
		questions = append(questions, intentQuestion("process_detail"))
	}

	return questions
}

func intentQuestion(field string) ir.Question {
	text, ok := intentPrompts[field]
	if !ok {
		text = field + "?"
	}
	qType := ir.QuestionString
	if _, numeric := numericIntentFields[field]; numeric {
		qType = ir.QuestionFloat
	}
	return ir.Question{
		ID:        field,
		Text:      text,
		Type:      qType,
		FieldPath: "intent." + field,
	}
}

// numericIntentFields bind to archetype parameters consumed as numbers by
// the solid generators, so their answers are parsed as floats at intake.
var numericIntentFields = func() map[string]struct{} {
	s := make(map[string]struct{})
	for _, f := range []string{
		"gear_module", "gear_teeth_count", "gear_pressure_angle",
		"gear_width", "gear_bore_mm", "arm_dof", "arm_joint_count",
		"arm_reach_mm", "arm_payload_kg", "arm_link_length_mm",
		"arm_link_width_mm", "arm_joint_diameter_mm",
	} {
		s[f] = struct{}{}
	}
	return s
}()

var intentPrompts = map[string]string{
	"intent_summary":        "What should this part accomplish overall?",
	"function_primary":      "Primary function: what does the part do?",
	"function_secondary":    "Secondary or auxiliary functions?",
	"material_intent":       "Material preference? (metal / plastic / rubber ...)",
	"surface_feel":          "Desired surface feel? (rough / smooth / soft ...)",
	"surface_finish":        "Surface finish? (polished / painted / anodized / plated ...)",
	"surface_color":         "Color or appearance preference?",
	"texture_pattern":       "Any surface texture or pattern?",
	"edge_treatment":        "Edge treatment? (chamfer / fillet / deburr ...)",
	"safety_edges":          "Edges that must be rounded for safety?",
	"mechanism_type":        "Mechanism type? (gear / linkage / cam ...)",
	"motion_type":           "Motion type? (rotary / linear / oscillating ...)",
	"motion_axis":           "Axis or direction of motion?",
	"motion_range":          "Range of motion? (angle / stroke ...)",
	"motion_speed":          "Target speed or responsiveness?",
	"motion_smoothness":     "Smoothness or backlash tolerance?",
	"motion_control":        "Control assumption? (manual / motor / spring ...)",
	"force_direction":       "Direction of applied force? (vertical / lateral / torsion ...)",
	"force_type":            "Kind of loading? (rotation / impact / shear / tension / compression ...)",
	"force_magnitude":       "Approximate magnitude of the load?",
	"torque_range":          "Expected torque range?",
	"shock_loads":           "Any shock or impulse loads?",
	"vibration":             "Vibration present? How severe?",
	"fatigue":               "Cyclic loading or fatigue expectations?",
	"moving_parts":          "Which parts move?",
	"fixed_parts":           "Which parts stay fixed?",
	"interfaces":            "Mounting, contact, and datum surfaces?",
	"alignment":             "Centering or alignment requirements?",
	"clearances":            "Clearance or interference-avoidance requirements?",
	"tolerances":            "Tolerance philosophy and allowable error?",
	"assembly_method":       "Assembly method and expected order?",
	"disassembly":           "Disassembly or maintainability requirements?",
	"fastening":             "Fastening method? (bolts / welding / adhesive / snap fit ...)",
	"wiring_routing":        "Wiring or piping routing requirements?",
	"connections":           "How does it connect to other parts? (bolts, welding, ...)",
	"load_cases":            "Where, in what direction, and how large are the loads?",
	"torque":                "Torque conditions?",
	"speed":                 "Rotational or travel speed?",
	"duty_cycle":            "Duty cycle and frequency of use?",
	"supports":              "What does it support, and where are the support points?",
	"power_transmission":    "Power transmission path or scheme?",
	"constraints_intent":    "Governing constraints? (strength, fabrication, standards ...)",
	"safety_factor":         "Required safety factor?",
	"accuracy":              "Accuracy requirements? (position / angle / speed ...)",
	"noise":                 "Noise or vibration requirements?",
	"lubrication":           "Lubrication conditions?",
	"environment":           "Operating environment? (temperature / corrosion / dust / water ...)",
	"regulations":           "Applicable standards or regulations?",
	"analysis_targets":      "Analysis targets? (strength / deflection / fatigue ...)",
	"verification":          "Verification method or test conditions?",
	"subcomponents":         "Which subcomponents make up the mechanism?",
	"notes_intent":          "Anything else worth noting?",
	"lifecycle":             "Expected product life?",
	"reliability":           "Reliability and failure-tolerance expectations?",
	"maintenance":           "Maintenance frequency and servicing requirements?",
	"cost_target":           "Cost target and its priority?",
	"weight_limit":          "Weight limit or lightweighting priority?",
	"size_limit":            "Size or envelope constraints?",
	"noise_limit":           "Noise level limit?",
	"heat_generation":       "Heat generation or thermal requirements?",
	"cooling":               "Cooling assumptions?",
	"chemical_resistance":   "Resistance to chemicals, oil, or water?",
	"electric_isolation":    "Electrical insulation requirements?",
	"grounding":             "Grounding or static-discharge requirements?",
	"ergonomics":            "Operability or tactile requirements?",
	"aesthetics":            "How much does appearance matter?",
	"modularity":            "Modularity or replaceability requirements?",
	"compatibility":         "Compatibility with existing parts?",
	"standards_fit":         "Reuse of standard catalog parts?",
	"transportation":        "Shipping or handling conditions?",
	"storage":               "Storage conditions?",
	"gear_module":           "Gear: module in mm?",
	"gear_teeth_count":      "Gear: number of teeth?",
	"gear_pressure_angle":   "Gear: pressure angle in degrees?",
	"gear_width":            "Gear: face width in mm?",
	"gear_backlash":         "Gear: backlash allowance?",
	"gear_material":         "Gear: material preference?",
	"gear_noise":            "Gear: noise and vibration tolerance?",
	"gear_lubrication":      "Gear: lubrication required?",
	"gear_bore_mm":          "Gear: bore diameter in mm?",
	"process_detail":        "Any constraints on the bending process?",
	"arm_dof":               "Arm: degrees of freedom?",
	"arm_joint_count":       "Arm: number of joints?",
	"arm_drive_type":        "Arm: drive type? (servo / stepper / pneumatic)",
	"arm_reach_mm":          "Arm: reach in mm?",
	"arm_payload_kg":        "Arm: payload in kg?",
	"arm_link_length_mm":    "Arm: link length in mm?",
	"arm_link_width_mm":     "Arm: link width in mm?",
	"arm_joint_diameter_mm": "Arm: joint outer diameter in mm?",
}
