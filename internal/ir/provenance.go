package ir

import (
	"fmt"
	"sort"
)

// Source identifies where a field value came from.
type Source string

const (
	// SourcePerception marks values read from the pixel-space observation.
	SourcePerception Source = "perception"
	// SourceDialogue marks values confirmed by a user answer. Dialogue is
	// ground truth; perception is a prior.
	SourceDialogue Source = "dialogue"
)

// ProvenanceEntry records the origin of one field value. Confidence is set
// for perception entries and omitted for dialogue-confirmed values (a
// confirmed answer has no meaningful confidence score).
type ProvenanceEntry struct {
	Source     Source   `json:"source"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Ledger maps field paths (e.g. "scale.px_to_mm", "geometry.holes.2.diameter_mm",
// "intent.gear_teeth_count") to their provenance. It is an explicit
// side-record: the geometry values themselves stay plain and comparable.
type Ledger map[string]ProvenanceEntry

// NewLedger returns an empty ledger.
func NewLedger() Ledger { return make(Ledger) }

// Record appends or replaces the entry for fieldPath. Perception confidence
// must lie in [0,1]; dialogue entries ignore the confidence argument.
func (l Ledger) Record(fieldPath string, source Source, confidence float64) error {
	switch source {
	case SourceDialogue:
		l[fieldPath] = ProvenanceEntry{Source: SourceDialogue}
		return nil
	case SourcePerception:
		if confidence < 0 || confidence > 1 {
			return fmt.Errorf("provenance %s: confidence %v outside [0,1]", fieldPath, confidence)
		}
		c := confidence
		l[fieldPath] = ProvenanceEntry{Source: SourcePerception, Confidence: &c}
		return nil
	default:
		return fmt.Errorf("provenance %s: unknown source %q", fieldPath, source)
	}
}

// MustRecord is Record but panics on invalid input. For construction sites
// where the arguments are compile-time constants.
func (l Ledger) MustRecord(fieldPath string, source Source, confidence float64) {
	if err := l.Record(fieldPath, source, confidence); err != nil {
		panic(err)
	}
}

// Lookup returns the entry for fieldPath. The second result is false for
// unrecorded paths; there is no default confidence.
func (l Ledger) Lookup(fieldPath string) (ProvenanceEntry, bool) {
	e, ok := l[fieldPath]
	return e, ok
}

// Merge combines other into l and returns l. Dialogue-sourced entries always
// win over perception-sourced entries for the same field path, regardless of
// which ledger they come from; between two entries of the same source, the
// incoming one wins.
func (l Ledger) Merge(other Ledger) Ledger {
	for path, incoming := range other {
		existing, ok := l[path]
		if ok && existing.Source == SourceDialogue && incoming.Source == SourcePerception {
			continue
		}
		l[path] = incoming
	}
	return l
}

// Paths returns the recorded field paths in lexical order.
func (l Ledger) Paths() []string {
	paths := make([]string, 0, len(l))
	for p := range l {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
