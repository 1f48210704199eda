package ir

import (
	"fmt"
	"sort"
)

// Intent maps registered design-intent field names to values. Unset fields
// are absent from the map, never defaulted. Values are restricted to
// string, bool, float64, int, int64, []string, and []any of those; anything
// else fails canonical serialization.
type Intent map[string]any

// intentRegistry is the closed set of 91 intent field names. Field names
// outside this set are rejected at decode so typos cannot silently create
// provenance-less data.
var intentRegistry = []string{
	"intent_summary",
	"function_primary",
	"function_secondary",
	"material_intent",
	"surface_feel",
	"surface_finish",
	"surface_color",
	"texture_pattern",
	"edge_treatment",
	"safety_edges",
	"mechanism_type",
	"motion_type",
	"motion_axis",
	"motion_range",
	"motion_speed",
	"motion_smoothness",
	"motion_control",
	"force_direction",
	"force_type",
	"force_magnitude",
	"torque_range",
	"shock_loads",
	"vibration",
	"fatigue",
	"moving_parts",
	"fixed_parts",
	"interfaces",
	"alignment",
	"clearances",
	"tolerances",
	"assembly_method",
	"disassembly",
	"fastening",
	"wiring_routing",
	"connections",
	"load_cases",
	"torque",
	"speed",
	"duty_cycle",
	"supports",
	"power_transmission",
	"constraints_intent",
	"safety_factor",
	"accuracy",
	"noise",
	"lubrication",
	"environment",
	"regulations",
	"analysis_targets",
	"verification",
	"subcomponents",
	"notes_intent",
	"lifecycle",
	"reliability",
	"maintenance",
	"cost_target",
	"weight_limit",
	"size_limit",
	"noise_limit",
	"heat_generation",
	"cooling",
	"chemical_resistance",
	"electric_isolation",
	"grounding",
	"ergonomics",
	"aesthetics",
	"modularity",
	"compatibility",
	"standards_fit",
	"transportation",
	"storage",
	"gear_module",
	"gear_teeth_count",
	"gear_pressure_angle",
	"gear_width",
	"gear_backlash",
	"gear_material",
	"gear_noise",
	"gear_lubrication",
	"inferred_part",
	"part_type_confirm",
	"process_detail",
	"arm_dof",
	"arm_joint_count",
	"arm_drive_type",
	"arm_reach_mm",
	"arm_payload_kg",
	"arm_link_length_mm",
	"arm_link_width_mm",
	"arm_joint_diameter_mm",
	"gear_bore_mm",
}

var intentFieldSet = func() map[string]struct{} {
	s := make(map[string]struct{}, len(intentRegistry))
	for _, name := range intentRegistry {
		s[name] = struct{}{}
	}
	return s
}()

// IntentFields returns the registry in declaration order.
func IntentFields() []string {
	out := make([]string, len(intentRegistry))
	copy(out, intentRegistry)
	return out
}

// IsIntentField reports whether name is in the closed registry.
func IsIntentField(name string) bool {
	_, ok := intentFieldSet[name]
	return ok
}

// UnknownFields returns the keys of in that are not registered, sorted.
func (in Intent) UnknownFields() []string {
	var unknown []string
	for k := range in {
		if !IsIntentField(k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// SortedKeys returns the populated field names in lexical order.
func (in Intent) SortedKeys() []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string value of a field, or "" when absent or not a
// string.
func (in Intent) String(name string) string {
	v, ok := in[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Float returns the numeric value of a field. Accepts float64, int, and
// int64 representations.
func (in Intent) Float(name string) (float64, bool) {
	v, ok := in[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Int returns the integer value of a field. Float values with no fractional
// part are accepted.
func (in Intent) Int(name string) (int, bool) {
	f, ok := in.Float(name)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// Bool returns the boolean value of a field.
func (in Intent) Bool(name string) (bool, bool) {
	v, ok := in[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Subcomponents returns the ordered archetype tag list driving assembly
// composition. Accepts []string or []any of strings; invalid tags are
// returned as-is for the caller to reject with context.
func (in Intent) Subcomponents() []string {
	v, ok := in["subcomponents"]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, elem := range list {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Set assigns a registered field. Returns an error for unregistered names so
// callers cannot widen the schema by accident.
func (in Intent) Set(name string, value any) error {
	if !IsIntentField(name) {
		return fmt.Errorf("intent field %q is not registered", name)
	}
	in[name] = value
	return nil
}
