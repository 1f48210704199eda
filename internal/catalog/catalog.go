// Package catalog loads the embedded part library.
//
// The library is a CUE document: one entry per canonical part name, each
// carrying a parameter spec (type, default, bounds, optional intent-field
// binding). CUE validates the data against its own schema at compile time,
// so a malformed catalog fails Load rather than surfacing as a bad mesh
// three stages later.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed catalog.cue
var catalogCUE string

// ParamSpec describes one generator parameter.
type ParamSpec struct {
	Name    string
	Type    string // "float" or "int"
	Default float64
	Min     *float64
	Max     *float64
	Unit    string // "mm", "deg", or "count"
	Intent  string // intent field that overrides this parameter, if any
}

// PartDef is one catalog entry.
type PartDef struct {
	Name        string
	Category    string
	Description string
	Keywords    []string
	Params      []ParamSpec
}

// Param looks up a parameter spec by name.
func (d *PartDef) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Catalog is the loaded, indexed part library.
type Catalog struct {
	parts    map[string]*PartDef
	order    []string
	keywords map[string][]string
}

// Load parses and indexes the embedded catalog.
func Load() (*Catalog, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(catalogCUE, cue.Filename("catalog.cue"))
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := root.Validate(cue.Concrete(false)); err != nil {
		return nil, formatCUEError(err)
	}

	partsVal := root.LookupPath(cue.ParsePath("parts"))
	if !partsVal.Exists() {
		return nil, &Error{Field: "parts", Message: "catalog has no parts struct"}
	}

	c := &Catalog{
		parts:    make(map[string]*PartDef),
		keywords: make(map[string][]string),
	}

	iter, err := partsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		def, err := parsePart(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		c.parts[def.Name] = def
		c.order = append(c.order, def.Name)
		for _, kw := range def.Keywords {
			kw = strings.ToLower(kw)
			c.keywords[kw] = append(c.keywords[kw], def.Name)
		}
	}
	return c, nil
}

// MustLoad is Load but panics on error. The catalog is embedded data, so a
// load failure is a build defect, not a runtime condition.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func parsePart(name string, v cue.Value) (*PartDef, error) {
	def := &PartDef{Name: name}

	category, err := v.LookupPath(cue.ParsePath("category")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def.Category = category

	description, err := v.LookupPath(cue.ParsePath("description")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def.Description = description

	kwIter, err := v.LookupPath(cue.ParsePath("keywords")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for kwIter.Next() {
		kw, err := kwIter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Keywords = append(def.Keywords, kw)
	}

	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		paramIter, err := paramsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for paramIter.Next() {
			spec, err := parseParam(paramIter.Label(), paramIter.Value())
			if err != nil {
				return nil, err
			}
			def.Params = append(def.Params, spec)
		}
	}
	return def, nil
}

func parseParam(name string, v cue.Value) (ParamSpec, error) {
	spec := ParamSpec{Name: name}

	typ, err := v.LookupPath(cue.ParsePath("type")).String()
	if err != nil {
		return spec, formatCUEError(err)
	}
	spec.Type = typ

	def, err := v.LookupPath(cue.ParsePath("default")).Float64()
	if err != nil {
		return spec, formatCUEError(err)
	}
	spec.Default = def

	unit, err := v.LookupPath(cue.ParsePath("unit")).String()
	if err != nil {
		return spec, formatCUEError(err)
	}
	spec.Unit = unit

	if minVal := v.LookupPath(cue.ParsePath("min")); minVal.Exists() {
		f, err := minVal.Float64()
		if err != nil {
			return spec, formatCUEError(err)
		}
		spec.Min = &f
	}
	if maxVal := v.LookupPath(cue.ParsePath("max")); maxVal.Exists() {
		f, err := maxVal.Float64()
		if err != nil {
			return spec, formatCUEError(err)
		}
		spec.Max = &f
	}
	if intentVal := v.LookupPath(cue.ParsePath("intent")); intentVal.Exists() {
		s, err := intentVal.String()
		if err != nil {
			return spec, formatCUEError(err)
		}
		spec.Intent = s
	}
	return spec, nil
}

// Get looks up a part definition by canonical name.
func (c *Catalog) Get(name string) (*PartDef, bool) {
	def, ok := c.parts[name]
	return def, ok
}

// Parts returns all definitions in catalog order.
func (c *Catalog) Parts() []*PartDef {
	out := make([]*PartDef, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.parts[name])
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, def := range c.parts {
		seen[def.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// ByCategory returns the definitions in one category, in catalog order.
func (c *Catalog) ByCategory(category string) []*PartDef {
	var out []*PartDef
	for _, name := range c.order {
		if c.parts[name].Category == category {
			out = append(out, c.parts[name])
		}
	}
	return out
}

// MatchHint maps a perception part hint (e.g. "Gear", "RobotArm") to a
// catalog entry via the keyword index. Matching is case-insensitive.
func (c *Catalog) MatchHint(hint string) (*PartDef, bool) {
	names, ok := c.keywords[strings.ToLower(strings.TrimSpace(hint))]
	if !ok || len(names) == 0 {
		return nil, false
	}
	return c.parts[names[0]], true
}

// Canonical maps free-form subcomponent text ("Servo Motor", "arm segment")
// to a canonical part name by substring. The motor_mount rule runs before
// the actuator rule so "motor mount" is not swallowed by its "motor"
// substring.
func (c *Catalog) Canonical(text string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(text))
	if name == "" {
		return "", false
	}
	rules := []struct {
		needles []string
		part    string
	}{
		{[]string{"motor_mount", "motor mount", "mount"}, "motor_mount"},
		{[]string{"base"}, "base"},
		{[]string{"joint"}, "joint"},
		{[]string{"link", "arm"}, "link"},
		{[]string{"end effector", "end_effector", "gripper"}, "end_effector"},
		{[]string{"actuator", "motor", "servo"}, "actuator"},
		{[]string{"shaft"}, "shaft"},
		{[]string{"gear"}, "gear"},
		{[]string{"bearing"}, "bearing"},
		{[]string{"spacer"}, "spacer"},
		{[]string{"bracket"}, "bracket"},
		{[]string{"housing", "case"}, "housing"},
		{[]string{"plate", "sheet", "panel"}, "plate"},
	}
	for _, rule := range rules {
		for _, needle := range rule.needles {
			if strings.Contains(name, needle) {
				return rule.part, true
			}
		}
	}
	return "", false
}

// Defaults returns a fresh name -> default value map for one part.
func (c *Catalog) Defaults(name string) (map[string]float64, error) {
	def, ok := c.parts[name]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown part %q", name)
	}
	out := make(map[string]float64, len(def.Params))
	for _, p := range def.Params {
		out[p.Name] = p.Default
	}
	return out, nil
}

// CheckBounds validates supplied parameter values against the part's spec.
// Returns human-readable warnings; an empty slice means all values are in
// range. Unknown parameter names warn rather than error so callers can pass
// a superset.
func (c *Catalog) CheckBounds(name string, params map[string]float64) ([]string, error) {
	def, ok := c.parts[name]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown part %q", name)
	}
	var warnings []string
	for _, pname := range sortedKeys(params) {
		value := params[pname]
		spec, ok := def.Param(pname)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: unknown parameter for %s", pname, name))
			continue
		}
		if spec.Type == "int" && value != float64(int64(value)) {
			warnings = append(warnings, fmt.Sprintf("%s: expected int, got %v", pname, value))
		}
		if spec.Min != nil && value < *spec.Min {
			warnings = append(warnings, fmt.Sprintf("%s: value %v below minimum %v", pname, value, *spec.Min))
		}
		if spec.Max != nil && value > *spec.Max {
			warnings = append(warnings, fmt.Sprintf("%s: value %v above maximum %v", pname, value, *spec.Max))
		}
	}
	return warnings, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Error is a catalog load failure with source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
