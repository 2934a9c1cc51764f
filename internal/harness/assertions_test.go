package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleCommands = []string{
	"riscv64-elf-as src/asm/boot.s -o objects/boot.o",
	"riscv64-elf-gcc -ffreestanding -nostdlib -c src/c/entry.c -o objects/entry.o",
	"cargo build --release",
	"riscv64-elf-ld -Tsrc/link_scripts/link.ld objects/boot.o objects/entry.o -o marrakech.elf",
}

func TestAssertCommandContains(t *testing.T) {
	assert.NoError(t, assertCommandContains(sampleCommands, Assertion{Command: "cargo build"}))

	err := assertCommandContains(sampleCommands, Assertion{Command: "cargo clean"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertCommandContains, ae.Type)
	assert.Contains(t, err.Error(), "[3] cargo build --release")
}

func TestAssertCommandOrder(t *testing.T) {
	assert.NoError(t, assertCommandOrder(sampleCommands, Assertion{Commands: []string{"riscv64-elf-as", "riscv64-elf-ld"}}))
	assert.NoError(t, assertCommandOrder(sampleCommands, Assertion{Commands: []string{"entry.c", "cargo", "-o marrakech.elf"}}))

	err := assertCommandOrder(sampleCommands, Assertion{Commands: []string{"cargo", "riscv64-elf-gcc"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no command matching "riscv64-elf-gcc" after [cargo]`)
}

func TestAssertCommandCount(t *testing.T) {
	assert.NoError(t, assertCommandCount(sampleCommands, Assertion{Command: "riscv64-elf", Count: 3}))
	assert.NoError(t, assertCommandCount(sampleCommands, Assertion{Command: "cargo clean", Count: 0}))

	err := assertCommandCount(sampleCommands, Assertion{Command: "objects/", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: 3")
}

func TestAssertManifest(t *testing.T) {
	outcomes := []Outcome{
		{Run: RunBuild, State: "done", ManifestHash: "m1"},
		{Run: RunBuild, State: "done", ManifestHash: "m1"},
		{Run: RunBuild, State: "done", ManifestHash: "m2"},
		{Run: RunClean, State: "done"},
	}

	assert.NoError(t, assertManifest(outcomes, Assertion{Type: AssertManifestEqual, Runs: []int{0, 1}}))
	assert.NoError(t, assertManifest(outcomes, Assertion{Type: AssertManifestDiffers, Runs: []int{1, 2}}))

	assert.Error(t, assertManifest(outcomes, Assertion{Type: AssertManifestEqual, Runs: []int{0, 2}}))
	assert.Error(t, assertManifest(outcomes, Assertion{Type: AssertManifestDiffers, Runs: []int{0, 1}}))

	err := assertManifest(outcomes, Assertion{Type: AssertManifestEqual, Runs: []int{0, 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to both produce an image")
}
