package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/imgforge/internal/clean"
	"github.com/roach88/imgforge/internal/pipeline"
)

// CleanOptions holds flags for the clean command.
type CleanOptions struct {
	*RootOptions
	All bool
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs",
		Long: `Remove build outputs.

Runs cargo clean when cargo's target directory exists, then removes every
file in the object directory. With --all the image is removed as well.
Cleaning a clean tree does nothing.

Example:
  imgforge clean
  imgforge clean --all`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "also remove the image")

	return cmd
}

func runClean(opts *CleanOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sess, err := openSession(opts.RootOptions, cmd, formatter, true)
	if err != nil {
		return err
	}
	defer sess.close()

	report, err := sess.driver.Clean(cmd.Context(), clean.Options{RemoveImage: opts.All})
	formatter.RunID = report.Run.ID
	if err != nil {
		return formatter.Fail(err)
	}

	return outputCleanSuccess(formatter, report)
}

func outputCleanSuccess(formatter *OutputFormatter, report *pipeline.Report) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	if len(report.Clean.Removed) == 0 && !report.Clean.ExternalCleaned {
		fmt.Fprintln(w, "✓ Already clean")
		return nil
	}

	fmt.Fprintf(w, "✓ Cleaned: removed %s\n", plural(len(report.Clean.Removed), "file"))
	for _, p := range report.Clean.Removed {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}
