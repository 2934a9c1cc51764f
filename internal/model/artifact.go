package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Artifact is a file produced by a build step.
//
// Artifacts are never mutated after creation. A subsequent full rebuild
// overwrites the file on disk and produces a new Artifact value.
type Artifact struct {
	// Path is the location of the file on disk.
	Path string `json:"path"`

	// Kind identifies the producing step.
	Kind ArtifactKind `json:"kind"`

	// Provenance links back to what produced the artifact: the source path
	// for objects, the external build command for the static library, and
	// the link command for the image.
	Provenance string `json:"provenance"`

	// Digest is the hex SHA-256 of the file contents at creation time.
	// Empty if the file could not be read.
	Digest string `json:"digest,omitempty"`
}

// NewArtifact creates an Artifact for an existing file and records its digest.
// path is relative to root unless absolute; the Artifact keeps path as given.
// Returns an error if the file does not exist or cannot be read.
func NewArtifact(root, path string, kind ArtifactKind, provenance string) (Artifact, error) {
	fsPath := path
	if !filepath.IsAbs(path) {
		fsPath = filepath.Join(root, path)
	}
	digest, err := FileDigest(fsPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", path, err)
	}
	return Artifact{
		Path:       path,
		Kind:       kind,
		Provenance: provenance,
		Digest:     digest,
	}, nil
}

// FileDigest returns the hex-encoded SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
