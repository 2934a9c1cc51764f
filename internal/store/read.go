package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/imgforge/internal/model"
)

// RecordedArtifact is an artifact row as stored in the journal.
type RecordedArtifact struct {
	Seq int64  `json:"seq"`
	ID  string `json:"id"`
	model.Artifact
}

// ListRuns returns the most recent runs first, at most limit of them
// (limit <= 0 means all). Recency is insertion order.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, target, profile, status, error, image_digest, manifest_hash
		FROM runs
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (model.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, target, profile, status, error, image_digest, manifest_hash
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ReadSteps returns the steps of a run ordered by seq.
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]model.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, stage, command, exit_code, duration_ms, error
		FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []model.Step{}
	for rows.Next() {
		var st model.Step
		if err := rows.Scan(&st.Seq, &st.Stage, &st.Command, &st.ExitCode, &st.DurationMS, &st.Error); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ReadArtifacts returns the artifacts of a run ordered by seq.
// Returns an empty slice (not nil) if the run produced nothing.
func (s *Store) ReadArtifacts(ctx context.Context, runID string) ([]RecordedArtifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, kind, path, provenance, digest
		FROM artifacts
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []RecordedArtifact{}
	for rows.Next() {
		var a RecordedArtifact
		var kind string
		if err := rows.Scan(&a.Seq, &a.ID, &kind, &a.Path, &a.Provenance, &a.Digest); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Kind = model.ArtifactKind(kind)
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// RunsProducing returns the ids of runs that recorded an artifact with
// digest, oldest first.
func (s *Store) RunsProducing(ctx context.Context, digest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT a.run_id
		FROM artifacts a
		JOIN runs r ON r.id = a.run_id
		WHERE a.digest = ?
		ORDER BY r.rowid ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query artifacts by digest: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	return ids, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var run model.Run
	var mode, status string
	err := row.Scan(&run.ID, &mode, &run.Target, &run.Profile, &status, &run.Error, &run.ImageDigest, &run.ManifestHash)
	if err == sql.ErrNoRows {
		return model.Run{}, err
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Mode = model.RunMode(mode)
	run.Status = model.RunStatus(status)
	return run, nil
}
