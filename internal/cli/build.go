package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/imgforge/internal/pipeline"
)

// NewBuildCommand creates the build command. Running imgforge without a
// subcommand does the same.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the kernel image",
		Long: `Build the kernel image.

Every assembly source in the assembly directory and every C source in the
native directory is compiled to an object file, cargo builds the static
library, and the linker combines them with the link script into the image.
The build stops at the first failing step.

Example:
  imgforge build
  imgforge build --profile debug --journal .imgforge/journal.db
  imgforge build --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, cmd)
		},
	}
}

func runBuild(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	sess, err := openSession(opts, cmd, formatter, true)
	if err != nil {
		return err
	}
	defer sess.close()

	report, err := sess.driver.Build(cmd.Context())
	formatter.RunID = report.Run.ID
	if err != nil {
		return formatter.Fail(err)
	}

	return outputBuildSuccess(formatter, report)
}

func outputBuildSuccess(formatter *OutputFormatter, report *pipeline.Report) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Built %s\n", report.Image.Path)
	fmt.Fprintf(w, "  run:      %s\n", report.Run.ID)
	fmt.Fprintf(w, "  profile:  %s\n", report.Run.Profile)
	fmt.Fprintf(w, "  sources:  %d asm, %d native\n", len(report.Sources.Asm), len(report.Sources.Native))
	fmt.Fprintf(w, "  steps:    %d\n", len(report.Steps))
	fmt.Fprintf(w, "  image:    %s\n", shortDigest(report.Image.Digest))
	fmt.Fprintf(w, "  manifest: %s\n", shortDigest(report.ManifestHash))

	for _, a := range report.Artifacts {
		formatter.VerboseLog("%-14s %s %s", a.Kind, shortDigest(a.Digest), a.Path)
	}
	return nil
}
