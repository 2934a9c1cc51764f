package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/imgforge/internal/model"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertRun inserts a minimal running build with raw SQL.
func insertRun(t *testing.T, s *Store, id string) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO runs (id, mode, target, profile, status)
		VALUES (?, 'build', 'riscv64gc-unknown-none-elf', 'release', 'running')
	`, id)
	if err != nil {
		t.Fatalf("insert run %q: %v", id, err)
	}
}

// createTestRun creates a running build with minimal required fields.
func createTestRun(id string) model.Run {
	return model.Run{
		ID:      id,
		Mode:    model.ModeBuild,
		Target:  "riscv64gc-unknown-none-elf",
		Profile: "release",
		Status:  model.RunRunning,
	}
}

// createTestStep creates a successful step.
func createTestStep(seq int64, stage, command string) model.Step {
	return model.Step{
		Seq:        seq,
		Stage:      stage,
		Command:    command,
		DurationMS: 3,
	}
}

// createTestArtifact creates an artifact with a fake digest.
func createTestArtifact(path string, kind model.ArtifactKind, digest string) model.Artifact {
	return model.Artifact{
		Path:       path,
		Kind:       kind,
		Provenance: "test",
		Digest:     digest,
	}
}
