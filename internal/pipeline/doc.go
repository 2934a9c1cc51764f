// Package pipeline composes discovery, compilation, the external library
// build and the final link into one fail-fast run.
//
// A run is a small state machine (see State). The Driver owns it, stamps
// every spawned process with a logical sequence number and reports each
// step to an optional Recorder, which the CLI backs with the SQLite journal.
package pipeline
