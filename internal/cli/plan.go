package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/imgforge/internal/source"
)

// PlanResult is the JSON payload of the plan command.
type PlanResult struct {
	Sources  source.Set `json:"sources"`
	Commands []string   `json:"commands"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the commands a build would run",
		Long: `Discover sources and print, in order, every command a build would run.
Nothing is executed and no file is written.

Example:
  imgforge plan
  imgforge plan --profile debug --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, cmd)
		},
	}
}

func runPlan(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	// Plan never writes, so it does not open the journal.
	sess, err := openSession(opts, cmd, formatter, false)
	if err != nil {
		return err
	}
	defer sess.close()

	plan, err := sess.driver.Plan(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(PlanResult{Sources: plan.Sources, Commands: plan.Lines()})
	}

	for _, line := range plan.Lines() {
		fmt.Fprintln(formatter.Writer, line)
	}
	return nil
}
