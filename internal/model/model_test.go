package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceFile(t *testing.T) {
	sf := NewSourceFile(filepath.Join("src", "asm", "boot.s"), SourceAsm)
	assert.Equal(t, "boot", sf.Name)
	assert.Equal(t, SourceAsm, sf.Kind)
	assert.Equal(t, filepath.Join("objects", "boot.o"), sf.ObjectPath("objects"))
}

func TestNewSourceFile_DottedName(t *testing.T) {
	// Only the final extension is stripped
	sf := NewSourceFile("trap.vector.s", SourceAsm)
	assert.Equal(t, "trap.vector", sf.Name)
}

func TestSourceKindExtension(t *testing.T) {
	assert.Equal(t, ".s", SourceAsm.Extension())
	assert.Equal(t, ".c", SourceNative.Extension())
	assert.Equal(t, "", SourceKind("rust").Extension())

	assert.NoError(t, SourceNative.Validate())
	assert.Error(t, SourceKind("rust").Validate())
}

func TestCommandString(t *testing.T) {
	cmd := Command{Exe: "riscv64-elf-gcc", Args: []string{"-ffreestanding", "-c", "src/c/entry.c", "-o", "objects/entry.o"}}
	assert.Equal(t, "riscv64-elf-gcc -ffreestanding -c src/c/entry.c -o objects/entry.o", cmd.String())

	quoted := Command{Exe: "ld", Args: []string{"my dir/a.o", ""}}
	assert.Equal(t, `ld "my dir/a.o" ""`, quoted.String())
}

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(out))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9
	out, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalCanonical_RejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestMarshalCanonical_Nested(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"list": []any{int64(2), "two", []string{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"list":[2,"two",["a","b"]]}`, string(out))
}

func TestManifestHash_OrderSensitive(t *testing.T) {
	a := Artifact{Path: "objects/boot.o", Kind: ArtifactObject, Digest: "aa"}
	b := Artifact{Path: "objects/entry.o", Kind: ArtifactObject, Digest: "bb"}

	h1, err := ManifestHash([]Artifact{a, b})
	require.NoError(t, err)
	h2, err := ManifestHash([]Artifact{a, b})
	require.NoError(t, err)
	h3, err := ManifestHash([]Artifact{b, a})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestArtifactID_ContentAddressed(t *testing.T) {
	a := Artifact{Path: "x.o", Kind: ArtifactObject, Digest: "aa", Provenance: "src/a.s"}
	b := a
	b.Provenance = "elsewhere"
	c := a
	c.Digest = "bb"

	idA, err := ArtifactID(a)
	require.NoError(t, err)
	idB, err := ArtifactID(b)
	require.NoError(t, err)
	idC, err := ArtifactID(c)
	require.NoError(t, err)

	assert.Equal(t, idA, idB, "provenance is not part of identity")
	assert.NotEqual(t, idA, idC)
}

func TestNewArtifact(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "boot.o"), []byte("hello"), 0o644))

	a, err := NewArtifact(root, "boot.o", ArtifactObject, "src/asm/boot.s")
	require.NoError(t, err)
	assert.Equal(t, "boot.o", a.Path)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", a.Digest)
	assert.Equal(t, ArtifactObject, a.Kind)

	_, err = NewArtifact(root, "missing.o", ArtifactObject, "")
	assert.Error(t, err)
}
