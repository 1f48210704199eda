// Package ir provides the canonical intermediate representation of one
// mechanical part: the unit-resolved, provenance-tagged record the resolver
// emits and the drawing and solid generators consume.
//
// This package contains types and their serialization only. All other
// internal packages import ir; ir imports nothing internal, keeping it the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - All geometry is millimeters; pixel-space values never appear here.
//   - Millimeter values are rounded to 3 decimals before they enter a Record.
//   - Canonical JSON (MarshalCanonical) is the ONLY serialization used for
//     fingerprint computation: UTF-16 key order, NFC strings, no HTML
//     escaping, shortest round-trip numbers, no null (absence via omitted
//     fields instead).
//   - Provenance is a side ledger keyed by field path, never flags embedded
//     in geometry values.
//   - All JSON tags use snake_case.
package ir
