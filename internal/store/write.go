package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// Artifact kinds accepted by WriteArtifact.
const (
	ArtifactDXF    = "dxf"
	ArtifactSVG    = "svg"
	ArtifactSTL    = "stl"
	ArtifactRecord = "record"
	ArtifactReport = "report"
)

// timeLayout is RFC 3339 with a fixed nine-digit fraction. RFC3339Nano trims
// trailing zeros, which breaks lexicographic ordering of the TEXT column;
// fixed width keeps ORDER BY created_at chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one pipeline execution.
type Run struct {
	// ID is the caller-assigned run identifier.
	ID string

	// CreatedAt is the run timestamp, stored in UTC.
	CreatedAt time.Time

	// Source names the input the run started from (image or vision file).
	Source string

	// Part and Archetype are denormalized from the record for listing.
	Part      string
	Archetype string

	// Fingerprint is the content address of the run's record.
	Fingerprint string
}

// Artifact is one file written on behalf of a run.
type Artifact struct {
	RunID string
	Kind  string
	Path  string
}

// WriteRun persists a run with its record and optional report in one
// transaction. The record is content-addressed: its canonical JSON is
// inserted keyed by fingerprint with ON CONFLICT DO NOTHING, so re-running
// an identical part shares the existing row. Returns the run with its
// fingerprint and timestamp filled in.
func (s *Store) WriteRun(ctx context.Context, run Run, rec *ir.Record, rep *ir.Report) (Run, error) {
	if rec == nil {
		return Run{}, fmt.Errorf("write run: nil record")
	}
	if run.ID == "" {
		return Run{}, fmt.Errorf("write run: run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()
	if run.Part == "" {
		run.Part = rec.Part
	}
	if run.Archetype == "" {
		run.Archetype = string(rec.Identity.Archetype)
	}

	fp, err := ir.RecordFingerprint(*rec)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	run.Fingerprint = fp

	// The stored payload carries its own fingerprint, so equal records
	// always serialize to equal payloads.
	stamped := *rec
	stamped.Fingerprint = fp
	payload, err := marshalRecord(stamped)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (fingerprint, part, archetype, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, fp, rec.Part, string(rec.Identity.Archetype), payload)
	if err != nil {
		return Run{}, fmt.Errorf("write run: insert record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, source, part, archetype, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.CreatedAt.Format(timeLayout), run.Source, run.Part, run.Archetype, fp)
	if err != nil {
		return Run{}, fmt.Errorf("write run: insert run: %w", err)
	}

	if rep != nil {
		reportJSON, err := marshalReport(*rep)
		if err != nil {
			return Run{}, fmt.Errorf("write run: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reports (run_id, payload)
			VALUES (?, ?)
			ON CONFLICT(run_id) DO NOTHING
		`, run.ID, reportJSON)
		if err != nil {
			return Run{}, fmt.Errorf("write run: insert report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}

	return run, nil
}

// WriteArtifact records a file written for a run.
// Uses ON CONFLICT DO NOTHING for idempotency - re-recording the same path
// is silently ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteArtifact(ctx context.Context, runID, kind, path string) error {
	switch kind {
	case ArtifactDXF, ArtifactSVG, ArtifactSTL, ArtifactRecord, ArtifactReport:
	default:
		return fmt.Errorf("write artifact: unknown kind %q", kind)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (run_id, kind, path)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, kind, path) DO NOTHING
	`, runID, kind, path)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	return nil
}
