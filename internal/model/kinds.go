package model

import "fmt"

// SourceKind tags a discovered source file with the toolchain that builds it.
type SourceKind string

const (
	// SourceAsm is an assembly source (.s), built by the assembler.
	SourceAsm SourceKind = "asm"

	// SourceNative is a freestanding C source (.c), built by the C compiler.
	SourceNative SourceKind = "native"
)

// Extension returns the filename extension (with dot) recognised for the kind.
func (k SourceKind) Extension() string {
	switch k {
	case SourceAsm:
		return ".s"
	case SourceNative:
		return ".c"
	default:
		return ""
	}
}

// Validate reports whether k is a known source kind.
func (k SourceKind) Validate() error {
	switch k {
	case SourceAsm, SourceNative:
		return nil
	default:
		return fmt.Errorf("unknown source kind %q", string(k))
	}
}

// ArtifactKind tags a produced file with the step that produced it.
type ArtifactKind string

const (
	ArtifactObject        ArtifactKind = "object"
	ArtifactStaticLibrary ArtifactKind = "static-library"
	ArtifactImage         ArtifactKind = "image"
)
