// Package store provides SQLite-backed persistence for pipeline runs.
//
// One run captures a single trip through the pipeline:
//   - Runs: run metadata (source, part, archetype, record fingerprint)
//   - Records: content-addressed canonical record JSON
//   - Reports: the resolution report attached to a run
//   - Artifacts: generated file paths (dxf, svg, stl, record, report)
//
// # Critical Patterns
//
// Content-Addressed Records
//   - records are keyed by the RFC 8785 canonical-JSON SHA-256 fingerprint
//   - re-running an identical part inserts nothing (ON CONFLICT DO NOTHING)
//   - two runs over the same record share one records row
//
// Deterministic Query Results
//   - listings order by created_at DESC, id ASC COLLATE BINARY
//   - identical stores produce identical listings
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints are computed via internal/ir/hash.go using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
