package testutil

// FixedRunID returns the same run id for every build.
//
// Golden transcripts and journal assertions need stable ids; a fixed id makes
// two runs of the same scenario byte-identical.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id. An empty id becomes "test-run".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run"
	}
	return &FixedRunID{id: id}
}

// Generate implements pipeline.RunIDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
