package store

import (
	"context"
	"fmt"

	"github.com/roach88/imgforge/internal/model"
)

// StartRun inserts the run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a repeated id keeps the
// first record.
func (s *Store) StartRun(ctx context.Context, run model.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, mode, target, profile, status, error, image_digest, manifest_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		string(run.Mode),
		run.Target,
		run.Profile,
		string(run.Status),
		run.Error,
		run.ImageDigest,
		run.ManifestHash,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun records the final status of a run.
// A run that was never started is inserted, so a journal opened mid-run
// still ends up with a complete record.
func (s *Store) FinishRun(ctx context.Context, run model.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, mode, target, profile, status, error, image_digest, manifest_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			image_digest = excluded.image_digest,
			manifest_hash = excluded.manifest_hash
	`,
		run.ID,
		string(run.Mode),
		run.Target,
		run.Profile,
		string(run.Status),
		run.Error,
		run.ImageDigest,
		run.ManifestHash,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordStep inserts one process outcome.
// Uses ON CONFLICT DO NOTHING for idempotency on (run_id, seq).
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) RecordStep(ctx context.Context, runID string, step model.Step) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, seq, stage, command, exit_code, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		step.Seq,
		step.Stage,
		step.Command,
		step.ExitCode,
		step.DurationMS,
		step.Error,
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// RecordArtifact inserts one produced file together with its
// content-addressed id (see model.ArtifactID).
// Uses ON CONFLICT DO NOTHING for idempotency on (run_id, seq).
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) RecordArtifact(ctx context.Context, runID string, seq int64, artifact model.Artifact) error {
	id, err := model.ArtifactID(artifact)
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts
		(run_id, seq, id, kind, path, provenance, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		seq,
		id,
		string(artifact.Kind),
		artifact.Path,
		artifact.Provenance,
		artifact.Digest,
	)
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	return nil
}
