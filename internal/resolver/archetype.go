package resolver

import (
	"strings"

	"github.com/ryohei-iwamoto/mml-mvp/internal/catalog"
	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// archetypeForCanonical maps a canonical catalog part name to its record
// archetype. Catalog entries without a dedicated archetype fold into the
// nearest generator family: mounts and housings are flat plates, spacers
// are rings.
func archetypeForCanonical(name string) ir.Archetype {
	switch name {
	case "motor_mount", "housing":
		return ir.ArchetypePlate
	case "spacer":
		return ir.ArchetypeBearing
	}
	if a, err := ir.ParseArchetype(name); err == nil {
		return a
	}
	return ir.ArchetypePlate
}

// confirmWords accept the perception part hint as-is.
var confirmWords = map[string]struct{}{
	"yes": {}, "y": {}, "ok": {}, "true": {}, "1": {},
}

// denyWords reject the hint without supplying a replacement.
var denyWords = map[string]struct{}{
	"no": {}, "n": {}, "false": {}, "0": {},
}

// inferArchetype decides the record archetype. Precedence: an explicit
// option, the part-type answer from dialogue, the perception hint, then the
// part name itself; anything unresolvable lands on plate, the least
// committal shape.
func inferArchetype(cat *catalog.Catalog, explicit string, confirmAnswer string, hint string, partName string) (ir.Archetype, error) {
	if explicit != "" {
		return ir.ParseArchetype(explicit)
	}

	answer := strings.ToLower(strings.TrimSpace(confirmAnswer))
	if answer != "" {
		if _, denied := denyWords[answer]; denied {
			hint = ""
		} else if _, confirmed := confirmWords[answer]; !confirmed {
			// The answer names a different part outright.
			hint = confirmAnswer
		}
	}

	if hint != "" {
		if def, ok := cat.MatchHint(hint); ok {
			return archetypeForCanonical(def.Name), nil
		}
		if name, ok := cat.Canonical(hint); ok {
			return archetypeForCanonical(name), nil
		}
	}
	if name, ok := cat.Canonical(partName); ok {
		return archetypeForCanonical(name), nil
	}
	return ir.ArchetypePlate, nil
}
