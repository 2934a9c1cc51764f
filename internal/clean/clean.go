// Package clean removes generated artifacts so the next build starts from
// a pristine tree.
package clean

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/external"
)

// Options select what Clean removes beyond the defaults.
type Options struct {
	// RemoveImage also deletes the final linked image.
	RemoveImage bool
}

// Report lists what a clean removed. Paths are root-relative.
type Report struct {
	Removed         []string `json:"removed"`
	ExternalCleaned bool     `json:"external_cleaned"`
}

// Stage removes object files and asks the external build system to clean.
type Stage struct {
	cfg     config.Config
	builder external.Builder
}

// NewStage creates a clean stage.
func NewStage(cfg config.Config, builder external.Builder) *Stage {
	return &Stage{cfg: cfg, builder: builder}
}

// Clean runs the external clean and then removes every regular file in the
// object directory. The object directory itself is kept.
//
// A missing or empty object directory and an already clean external build
// are no-ops, so Clean is idempotent.
func (s *Stage) Clean(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{Removed: []string{}}

	if s.builder != nil {
		externalDirty, err := s.exists(s.cfg.TargetDir)
		if err != nil {
			return nil, err
		}
		if err := s.builder.Clean(ctx); err != nil {
			return nil, err
		}
		report.ExternalCleaned = externalDirty
	}

	removed, err := s.removeObjects()
	if err != nil {
		return nil, err
	}
	report.Removed = append(report.Removed, removed...)

	if opts.RemoveImage {
		err := os.Remove(s.cfg.Path(s.cfg.Output))
		switch {
		case err == nil:
			report.Removed = append(report.Removed, s.cfg.Output)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("removing image: %w", err)
		}
	}

	return report, nil
}

func (s *Stage) removeObjects() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Path(s.cfg.ObjDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading object directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		rel := filepath.Join(s.cfg.ObjDir, e.Name())
		if err := os.Remove(s.cfg.Path(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", rel, err)
		}
		removed = append(removed, rel)
	}
	return removed, nil
}

func (s *Stage) exists(rel string) (bool, error) {
	_, err := os.Stat(s.cfg.Path(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", rel, err)
	}
	return true, nil
}
