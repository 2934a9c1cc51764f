package pipeline

import (
	"github.com/google/uuid"
)

// RunIDGenerator produces the identifier of a run.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunID.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids, so journal
// entries list naturally in creation order.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
