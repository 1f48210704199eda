package assembly

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// subcomponentSeparators split free-form list answers. Dialogue transcripts
// mix Latin and Japanese punctuation, so both families are accepted.
var subcomponentSeparators = map[rune]bool{
	',': true, '\n': true, '\t': true, '/': true,
	'、': true, '・': true, ';': true, '|': true,
}

// chainParts stack along the Z axis; everything else lays out in a side row.
var chainParts = map[string]bool{
	"base":         true,
	"joint":        true,
	"link":         true,
	"end_effector": true,
}

// armPlan is the completion used when a robot arm record declares fewer
// subcomponents than an articulated arm needs.
var armPlan = []string{
	"base", "joint", "link", "joint", "link", "end_effector",
	"actuator", "motor_mount", "gear", "gear", "shaft", "bearing",
}

// Plan expands the record's subcomponents intent into placements: free-form
// text is split, canonicalized against the catalog, and completed to a full
// arm when the record is a robot arm. Text that matches no catalog part
// fails the plan with an UnresolvedSubcomponentError.
func Plan(cat *catalog.Catalog, rec *ir.Record) ([]Placement, error) {
	if rec == nil {
		return nil, fmt.Errorf("assembly: nil record")
	}
	names, sources, err := normalize(cat, rec)
	if err != nil {
		return nil, err
	}
	names, sources = completeArm(rec, names, sources)

	out := make([]Placement, len(names))
	last := -1
	for i, name := range names {
		p := Placement{Name: name, Source: sources[i], AttachTo: -1}
		if chainParts[name] {
			p.Chain = true
			p.AttachTo = last
			last = i
		}
		out[i] = p
	}
	return out, nil
}

// normalize flattens the raw subcomponents value into canonical part names.
// Items may be strings, JSON object strings, or decoded objects carrying a
// name, type, or part key. Plain strings split on list separators.
func normalize(cat *catalog.Catalog, rec *ir.Record) ([]string, []string, error) {
	raw, ok := rec.Intent["subcomponents"]
	if !ok {
		return nil, nil, nil
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case string:
		items = []any{v}
	default:
		return nil, nil, nil
	}

	var names, sources []string
	add := func(text string) error {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		name, ok := cat.Canonical(text)
		if !ok {
			return &UnresolvedSubcomponentError{
				Part:         rec.Part,
				Subcomponent: text,
				Index:        len(names),
				Reason:       fmt.Sprintf("cannot match %q to a catalog part", text),
			}
		}
		names = append(names, name)
		sources = append(sources, text)
		return nil
	}

	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			if name := objectName(v); name != "" {
				if err := add(name); err != nil {
					return nil, nil, err
				}
			}
		case string:
			trimmed := strings.TrimSpace(v)
			if strings.HasPrefix(trimmed, "{") {
				// An unparseable object string carries no usable name, so
				// it is dropped rather than failed.
				var obj map[string]any
				if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
					continue
				}
				if name := objectName(obj); name != "" {
					if err := add(name); err != nil {
						return nil, nil, err
					}
				}
				continue
			}
			for _, frag := range strings.FieldsFunc(trimmed, func(r rune) bool {
				return subcomponentSeparators[r]
			}) {
				if err := add(frag); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return names, sources, nil
}

// objectName extracts the part name from a decoded subcomponent object.
func objectName(obj map[string]any) string {
	for _, key := range []string{"name", "type", "part"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// completeArm replaces an underspecified robot arm plan with the canonical
// twelve-part arm. A plan already carrying two links, two joints, a base,
// and an end effector is left alone, as is any non-arm record or an empty
// list.
func completeArm(rec *ir.Record, names, sources []string) ([]string, []string) {
	if len(names) == 0 {
		return names, sources
	}
	if !strings.EqualFold(strings.TrimSpace(rec.Part), "robotarm") {
		return names, sources
	}

	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n]++
	}
	if counts["link"] >= 2 && counts["joint"] >= 2 && counts["base"] >= 1 && counts["end_effector"] >= 1 {
		return names, sources
	}

	full := make([]string, len(armPlan))
	copy(full, armPlan)
	src := make([]string, len(armPlan))
	for i := range src {
		src[i] = "robotarm"
	}
	return full, src
}
