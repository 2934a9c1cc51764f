package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/imgforge/internal/model"
	"github.com/roach88/imgforge/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	RunID  string
	Digest string
	Limit  int
}

// RunDetail is the JSON payload of history --run.
type RunDetail struct {
	Run       model.Run                `json:"run"`
	Steps     []model.Step             `json:"steps"`
	Artifacts []store.RecordedArtifact `json:"artifacts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs from the build journal",
		Long: `Show runs recorded in the build journal.

Without flags, lists the most recent runs. With --run, shows every step
and artifact of one run in execution order. With --digest, lists the runs
that produced an artifact with that SHA-256, oldest first.

Examples:
  imgforge history --journal .imgforge/journal.db
  imgforge history --run 01928c4e-7d1a-7c3b-9a51-3f0e2b6d8a10
  imgforge history --digest "$(sha256sum marrakech.elf | cut -d' ' -f1)"
  imgforge history --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the steps and artifacts of one run")
	cmd.Flags().StringVar(&opts.Digest, "digest", "", "list the runs that produced an artifact with this SHA-256")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to list (0 = all)")
	cmd.MarkFlagsMutuallyExclusive("run", "digest")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(err)
	}
	if cfg.Journal == "" {
		return formatter.Reject(ErrCodeNoJournal, "no journal configured: pass --journal or set build.journal", nil)
	}

	// Reading must not create an empty journal.
	path := cfg.Path(cfg.Journal)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return formatter.Reject(ErrCodeJournal, fmt.Sprintf("journal not found: %s", path), nil)
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Reject(ErrCodeJournal, "failed to open journal", err)
	}
	defer st.Close()

	switch {
	case opts.RunID != "":
		return showRun(opts, cmd, formatter, st)
	case opts.Digest != "":
		return showProducers(opts, cmd, formatter, st)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Reject(ErrCodeJournal, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded")
		return nil
	}
	return writeRunTable(formatter, runs)
}

// showProducers lists the runs whose journal records an artifact with the
// requested digest.
func showProducers(opts *HistoryOptions, cmd *cobra.Command, formatter *OutputFormatter, st *store.Store) error {
	ctx := cmd.Context()
	digest := strings.ToLower(strings.TrimSpace(opts.Digest))

	ids, err := st.RunsProducing(ctx, digest)
	if err != nil {
		return formatter.Reject(ErrCodeJournal, "failed to look up digest", err)
	}

	runs := make([]model.Run, 0, len(ids))
	for _, id := range ids {
		run, err := st.ReadRun(ctx, id)
		if err != nil {
			return formatter.Reject(ErrCodeJournal, "failed to read run", err)
		}
		runs = append(runs, run)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(formatter.Writer, "No run produced %s\n", shortDigest(digest))
		return nil
	}
	return writeRunTable(formatter, runs)
}

func writeRunTable(formatter *OutputFormatter, runs []model.Run) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODE\tPROFILE\tSTATUS\tIMAGE")
	for _, r := range runs {
		image := shortDigest(r.ImageDigest)
		if image == "" {
			image = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Mode, r.Profile, r.Status, image)
	}
	return tw.Flush()
}

func showRun(opts *HistoryOptions, cmd *cobra.Command, formatter *OutputFormatter, st *store.Store) error {
	ctx := cmd.Context()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Reject(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Reject(ErrCodeJournal, "failed to read run", err)
	}
	formatter.RunID = run.ID

	steps, err := st.ReadSteps(ctx, run.ID)
	if err != nil {
		return formatter.Reject(ErrCodeJournal, "failed to read steps", err)
	}
	artifacts, err := st.ReadArtifacts(ctx, run.ID)
	if err != nil {
		return formatter.Reject(ErrCodeJournal, "failed to read artifacts", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunDetail{Run: run, Steps: steps, Artifacts: artifacts})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s, %s): %s\n", run.ID, run.Mode, run.Profile, run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", run.Error)
	}
	if run.ManifestHash != "" {
		fmt.Fprintf(w, "  manifest: %s\n", run.ManifestHash)
	}

	fmt.Fprintln(w, "\nSteps:")
	for _, s := range steps {
		mark := "✓"
		if !s.Succeeded() {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s [%d] %s: %s\n", mark, s.Seq, s.Stage, s.Command)
	}

	if len(artifacts) > 0 {
		fmt.Fprintln(w, "\nArtifacts:")
		for _, a := range artifacts {
			fmt.Fprintf(w, "  [%d] %s %s %s\n", a.Seq, a.Kind, shortDigest(a.Digest), a.Path)
		}
	}
	return nil
}
