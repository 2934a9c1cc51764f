package harness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the spawned commands to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Commands []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Commands) > 0 {
		fmt.Fprintf(&buf, "\nCommands:\n")
		for i, c := range e.Commands {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, c)
		}
	}

	return buf.String()
}

func (h *Harness) evaluate(a Assertion) error {
	commands := h.result.Commands
	switch a.Type {
	case AssertCommandContains:
		return assertCommandContains(commands, a)
	case AssertCommandOrder:
		return assertCommandOrder(commands, a)
	case AssertCommandCount:
		return assertCommandCount(commands, a)
	case AssertFileExists, AssertFileAbsent, AssertFileContains:
		return h.assertFile(a)
	case AssertManifestEqual, AssertManifestDiffers:
		return assertManifest(h.result.Outcomes, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertCommandContains checks that some command line contains the text.
func assertCommandContains(commands []string, a Assertion) error {
	for _, c := range commands {
		if strings.Contains(c, a.Command) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertCommandContains,
		Expected: fmt.Sprintf("a command containing %q", a.Command),
		Actual:   "not found",
		Commands: commands,
	}
}

// assertCommandOrder checks that the matching commands appear in order.
// Other commands may appear in between.
func assertCommandOrder(commands []string, a Assertion) error {
	next := 0
	for _, c := range commands {
		if next < len(a.Commands) && strings.Contains(c, a.Commands[next]) {
			next++
		}
	}
	if next == len(a.Commands) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCommandOrder,
		Expected: fmt.Sprintf("commands in order %v", a.Commands),
		Actual:   fmt.Sprintf("no command matching %q after %v", a.Commands[next], a.Commands[:next]),
		Commands: commands,
	}
}

// assertCommandCount checks how many command lines contain the text.
func assertCommandCount(commands []string, a Assertion) error {
	n := 0
	for _, c := range commands {
		if strings.Contains(c, a.Command) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCommandCount,
		Expected: fmt.Sprintf("%d commands containing %q", a.Count, a.Command),
		Actual:   fmt.Sprintf("%d", n),
		Commands: commands,
	}
}

func (h *Harness) assertFile(a Assertion) error {
	data, err := os.ReadFile(h.cfg.Path(a.Path))
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", a.Path, err)
	}

	switch a.Type {
	case AssertFileExists:
		if !exists {
			return &AssertionError{Type: a.Type, Expected: a.Path + " exists", Actual: "missing"}
		}
	case AssertFileAbsent:
		if exists {
			return &AssertionError{Type: a.Type, Expected: a.Path + " absent", Actual: "exists"}
		}
	case AssertFileContains:
		if !exists {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s containing %q", a.Path, a.Text), Actual: "missing"}
		}
		if !strings.Contains(string(data), a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s containing %q", a.Path, a.Text), Actual: string(data)}
		}
	}
	return nil
}

// assertManifest compares the manifest hashes of two flow runs. Both runs
// must have produced an image.
func assertManifest(outcomes []Outcome, a Assertion) error {
	first, second := outcomes[a.Runs[0]], outcomes[a.Runs[1]]
	if first.ManifestHash == "" || second.ManifestHash == "" {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("flow[%d] and flow[%d] to both produce an image", a.Runs[0], a.Runs[1]),
			Actual:   fmt.Sprintf("manifests %q and %q", first.ManifestHash, second.ManifestHash),
		}
	}

	equal := first.ManifestHash == second.ManifestHash
	switch {
	case a.Type == AssertManifestEqual && !equal:
		return &AssertionError{
			Type:     a.Type,
			Expected: "equal manifests",
			Actual:   fmt.Sprintf("%s != %s", first.ManifestHash, second.ManifestHash),
		}
	case a.Type == AssertManifestDiffers && equal:
		return &AssertionError{
			Type:     a.Type,
			Expected: "different manifests",
			Actual:   "both " + first.ManifestHash,
		}
	}
	return nil
}
