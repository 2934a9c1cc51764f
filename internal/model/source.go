package model

import (
	"path/filepath"
	"strings"
)

// SourceFile is one logical input discovered in a source directory.
type SourceFile struct {
	// Path is the file path as discovered (directory joined with filename).
	Path string `json:"path"`

	// Kind selects the toolchain used to build this file.
	Kind SourceKind `json:"kind"`

	// Name is the filename without its extension.
	// It determines the object artifact path: {objdir}/{Name}.o
	Name string `json:"name"`
}

// NewSourceFile builds a SourceFile from a path, deriving Name from the
// final path element.
func NewSourceFile(path string, kind SourceKind) SourceFile {
	base := filepath.Base(path)
	return SourceFile{
		Path: path,
		Kind: kind,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// ObjectPath returns the deterministic object artifact path for the source.
func (s SourceFile) ObjectPath(objDir string) string {
	return filepath.Join(objDir, s.Name+".o")
}
