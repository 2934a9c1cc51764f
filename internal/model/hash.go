package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the hashing scheme to change later.
const (
	DomainManifest = "imgforge/manifest/v1"
	DomainArtifact = "imgforge/artifact/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactID computes a content-addressed ID for an artifact.
// Two artifacts with the same path, kind and contents share an ID.
func ArtifactID(a Artifact) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"path":   a.Path,
		"kind":   string(a.Kind),
		"digest": a.Digest,
	})
	if err != nil {
		return "", fmt.Errorf("ArtifactID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainArtifact, canonical), nil
}

// ManifestHash computes the identity of an ordered link input set.
//
// The hash covers the order of inputs as well as their paths and digests,
// so two builds with unchanged sources produce the same manifest hash and
// any reordering of link inputs changes it.
func ManifestHash(inputs []Artifact) (string, error) {
	list := make([]any, len(inputs))
	for i, a := range inputs {
		list[i] = map[string]any{
			"path":   a.Path,
			"kind":   string(a.Kind),
			"digest": a.Digest,
		}
	}
	canonical, err := MarshalCanonical(map[string]any{"inputs": list})
	if err != nil {
		return "", fmt.Errorf("ManifestHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}
