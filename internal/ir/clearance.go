package ir

import "sort"

// clearanceMM maps metric fastener standards to their clearance hole
// diameters (medium fit). The resolver's standard -> diameter normalization
// is a one-way transformation through this table.
var clearanceMM = map[string]float64{
	"M3": 3.4,
	"M4": 4.5,
	"M5": 5.5,
	"M6": 6.6,
	"M8": 9.0,
}

// Clearance returns the clearance diameter for a fastener standard label.
// The label is matched case-sensitively ("M5", not "m5"); callers normalize
// user input before lookup.
func Clearance(standard string) (float64, bool) {
	d, ok := clearanceMM[standard]
	return d, ok
}

// KnownStandards returns the supported standard labels sorted by clearance
// diameter ascending.
func KnownStandards() []string {
	out := make([]string, 0, len(clearanceMM))
	for s := range clearanceMM {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return clearanceMM[out[i]] < clearanceMM[out[j]] })
	return out
}
