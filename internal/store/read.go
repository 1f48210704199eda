package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
)

// RunFilter narrows ListRuns results. Zero values mean "no constraint".
type RunFilter struct {
	// Archetype matches the run's archetype tag exactly.
	Archetype string

	// Source matches runs whose source contains this substring.
	Source string

	// Limit caps the number of rows returned. 0 returns all rows.
	Limit int
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var (
		run     Run
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, part, archetype, fingerprint
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &created, &run.Source, &run.Part, &run.Archetype, &run.Fingerprint)
	if err != nil {
		return Run{}, err
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: parse created_at: %w", id, err)
	}

	return run, nil
}

// ListRuns returns runs matching the filter, newest first. Ties on the
// timestamp are broken by ID so listings are deterministic.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	query := `
		SELECT id, created_at, source, part, archetype, fingerprint
		FROM runs
	`
	var (
		where []string
		args  []any
	)
	if f.Archetype != "" {
		where = append(where, "archetype = ?")
		args = append(args, f.Archetype)
	}
	if f.Source != "" {
		where = append(where, "instr(source, ?) > 0")
		args = append(args, f.Source)
	}
	for i, cond := range where {
		if i == 0 {
			query += "WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += `
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`
	if f.Limit > 0 {
		query += "LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{} // Return empty slice, not nil
	for rows.Next() {
		var (
			run     Run
			created string
		)
		if err := rows.Scan(&run.ID, &created, &run.Source, &run.Part, &run.Archetype, &run.Fingerprint); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("list runs: parse created_at for %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: iterate: %w", err)
	}

	return runs, nil
}

// ReadRecord retrieves a record by its fingerprint.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRecord(ctx context.Context, fingerprint string) (*ir.Record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM records WHERE fingerprint = ?
	`, fingerprint).Scan(&payload)
	if err != nil {
		return nil, err
	}

	rec, err := unmarshalRecord(payload)
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", fingerprint, err)
	}

	return rec, nil
}

// ReadReport retrieves the resolution report stored with a run.
// Returns sql.ErrNoRows if the run has no report.
func (s *Store) ReadReport(ctx context.Context, runID string) (*ir.Report, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM reports WHERE run_id = ?
	`, runID).Scan(&payload)
	if err != nil {
		return nil, err
	}

	rep, err := unmarshalReport(payload)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", runID, err)
	}

	return rep, nil
}

// ReadArtifacts returns the artifacts recorded for a run in insertion order.
func (s *Store) ReadArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, kind, path
		FROM artifacts
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{} // Return empty slice, not nil
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.RunID, &a.Kind, &a.Path); err != nil {
			return nil, fmt.Errorf("read artifacts: scan: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read artifacts: iterate: %w", err)
	}

	return artifacts, nil
}
