package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/pipeline"
	"github.com/roach88/imgforge/internal/store"
	"github.com/roach88/imgforge/internal/toolchain"
)

// session is the wiring shared by the commands that drive the pipeline.
type session struct {
	cfg     config.Config
	driver  *pipeline.Driver
	journal *store.Store
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}

	cfg, err := config.Load(root, opts.Config)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Profile != "" {
		cfg.Profile = config.Profile(opts.Profile)
	}
	if opts.Journal != "" {
		cfg.Journal = opts.Journal
	}
	return cfg, cfg.Validate()
}

// openSession loads configuration, opens the journal if one is configured
// and record is set, and builds the driver. Errors are reported through
// formatter.
func openSession(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter, record bool) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, formatter.Fail(err)
	}
	slog.Debug("configuration loaded", "root", cfg.Root, "target", cfg.Target, "profile", cfg.Profile)

	s := &session{cfg: cfg}

	if record && cfg.Journal != "" {
		path := cfg.Path(cfg.Journal)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, formatter.Reject(ErrCodeJournal, "failed to create journal directory", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, formatter.Reject(ErrCodeJournal, "failed to open journal", err)
		}
		s.journal = st
		slog.Debug("journal ready", "path", path)
	}

	driverOpts := []pipeline.Option{}
	if formatter.Format == "text" {
		driverOpts = append(driverOpts, pipeline.WithEcho(formatter.Writer))
	}
	if s.journal != nil {
		driverOpts = append(driverOpts, pipeline.WithRecorder(s.journal))
	}
	if opts.RunIDs != nil {
		driverOpts = append(driverOpts, pipeline.WithRunIDGenerator(opts.RunIDs))
	}

	s.driver = pipeline.New(cfg, runnerFor(opts, cfg, cmd), driverOpts...)
	return s, nil
}

// runnerFor returns the injected runner or a real process runner. Tool
// stdout goes to our stdout in text mode and to stderr in JSON mode, so it
// never corrupts the JSON response.
func runnerFor(opts *RootOptions, cfg config.Config, cmd *cobra.Command) toolchain.Runner {
	if opts.Runner != nil {
		return opts.Runner
	}
	var stdout io.Writer = cmd.OutOrStdout()
	if opts.Format == "json" {
		stdout = cmd.ErrOrStderr()
	}
	return &toolchain.ExecRunner{
		Dir:     cfg.Root,
		Timeout: cfg.StepTimeout,
		Stdout:  stdout,
		Stderr:  cmd.ErrOrStderr(),
	}
}

func (s *session) close() {
	if s.journal == nil {
		return
	}
	if err := s.journal.Close(); err != nil {
		slog.Error("error closing journal", "error", err)
	}
}

// shortDigest abbreviates a hex digest for text output.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
