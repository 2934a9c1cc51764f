// Package model provides the records that flow through an imgforge build.
//
// This package contains value types only. Every other internal package
// imports model; model imports nothing internal. Values are immutable once
// constructed: a SourceFile is fixed at discovery time and an Artifact is
// fixed when the step that produced it completes.
//
// Key design constraints:
//   - Object paths are derived purely from a source's base name and the
//     configured object directory
//   - Ordering is by logical sequence (seq), never by wall-clock time
//   - Content identity uses canonical JSON and SHA-256 with domain
//     separation (see hash.go)
package model
