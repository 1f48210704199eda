// Package resolver assembles uncertain pixel-space observations and user
// answers into finalized IR records.
//
// A Session is a small state machine over one part-in-progress:
//
//	Observing → AwaitingScale → Normalizing → Validating → Finalized
//
// with a terminal Rejected state for contradictory or unrepairable input.
// Resolve() runs the pipeline as far as the collected answers allow and
// returns an explicit Outcome: a finalized record with its report, or the
// outstanding question set. There is no panic-driven control flow; callers
// branch on Outcome.State.
//
// # Scale is a hard precondition
//
// Every millimeter value in a record derives from the px→mm factor, so no
// record finalizes without one. The factor comes from a direct answer or is
// derived from a declared plate width against the observed pixel width;
// when both are answered they must agree to one part per million. There is
// deliberately no fallback scale: a drawing produced under a guessed scale
// is worse than no drawing.
//
// # Dialogue is ground truth
//
// Perception values are priors; answers are confirmations. The provenance
// ledger records the winner per field path. Validation failures on
// perception-sourced values re-enter the question loop (the resolver asks
// for the offending field); failures on dialogue-confirmed values reject
// the part, because re-asking a question the user already answered cannot
// converge.
//
// # Determinism
//
// Given the same observation and the same answer sequence, Resolve produces
// a byte-identical record and report, including the content fingerprints.
// Question order, decision order, notes, and provenance paths are all
// deterministic; pre-supplied params are folded in sorted key order.
package resolver
