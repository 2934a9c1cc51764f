package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultFile is the configuration file looked up in the invocation root
// when no explicit path is given.
const DefaultFile = "imgforge.cue"

// schema constrains imgforge.cue. #Build is closed, so unknown fields inside
// build are rejected.
const schema = `
#Tool: {
	exe:           string & !=""
	flags?:        [...string]
	compile_flag?: string
	output_flag?:  string
}

#Build: {
	target?:  string & !=""
	profile?: "debug" | "release"
	crate?:   string & =~"^[A-Za-z0-9_-]+$"
	dirs?: {
		asm?:     string
		native?:  string
		objects?: string & !=""
	}
	link_script?:  string & !=""
	output?:       string & !=""
	target_dir?:   string & !=""
	journal?:      string
	step_timeout?: string
	toolchain?: {
		assembler?: #Tool
		compiler?:  #Tool
		linker?:    #Tool
		external?:  #Tool
	}
}

build?: #Build
`

// fileConfig mirrors #Build for decoding. Pointers and nil slices mark
// fields that were not set, so defaults survive.
type fileConfig struct {
	Target      string     `json:"target"`
	Profile     string     `json:"profile"`
	Crate       string     `json:"crate"`
	Dirs        *fileDirs  `json:"dirs"`
	LinkScript  string     `json:"link_script"`
	Output      string     `json:"output"`
	TargetDir   string     `json:"target_dir"`
	Journal     string     `json:"journal"`
	StepTimeout string     `json:"step_timeout"`
	Toolchain   *fileTools `json:"toolchain"`
}

type fileDirs struct {
	Asm     *string `json:"asm"`
	Native  *string `json:"native"`
	Objects string  `json:"objects"`
}

type fileTools struct {
	Assembler *fileTool `json:"assembler"`
	Compiler  *fileTool `json:"compiler"`
	Linker    *fileTool `json:"linker"`
	External  *fileTool `json:"external"`
}

type fileTool struct {
	Exe         string   `json:"exe"`
	Flags       []string `json:"flags"`
	CompileFlag *string  `json:"compile_flag"`
	OutputFlag  *string  `json:"output_flag"`
}

// Load builds the configuration for an invocation rooted at root.
//
// If path is empty, root/imgforge.cue is used when it exists and defaults
// apply otherwise. If path is set (relative paths resolve against root), the
// file must exist.
//
// Returns a validated Config or a *Error.
func Load(root, path string) (Config, error) {
	cfg := Default()
	cfg.Root = root

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return cfg, cfg.Validate()
	case errors.Is(err, fs.ErrNotExist):
		return Config{}, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	case err != nil:
		return Config{}, &Error{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading config file: %v", err)}
	}

	return Parse(cfg, data, path)
}

// Parse applies CUE source data on top of base and validates the result.
// filename is used for error positions only.
func Parse(base Config, data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(schema, cue.Filename("imgforge-schema.cue"))
	if err := schemaVal.Err(); err != nil {
		// The embedded schema is fixed; failing here is a programming error.
		return Config{}, fmt.Errorf("compiling config schema: %w", err)
	}

	fileVal := ctx.CompileBytes(data, cue.Filename(filename))
	if err := fileVal.Err(); err != nil {
		return Config{}, fromCUEError(err)
	}

	unified := schemaVal.Unify(fileVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fromCUEError(err)
	}

	buildVal := unified.LookupPath(cue.ParsePath("build"))
	if !buildVal.Exists() {
		return base, base.Validate()
	}

	var fc fileConfig
	if err := buildVal.Decode(&fc); err != nil {
		return Config{}, fromCUEError(err)
	}

	cfg, err := apply(base, fc)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// apply overlays the fields set in fc onto base.
func apply(base Config, fc fileConfig) (Config, error) {
	cfg := base

	setString(&cfg.Target, fc.Target)
	if fc.Profile != "" {
		cfg.Profile = Profile(fc.Profile)
	}
	setString(&cfg.Crate, fc.Crate)
	setString(&cfg.LinkScript, fc.LinkScript)
	setString(&cfg.Output, fc.Output)
	setString(&cfg.TargetDir, fc.TargetDir)
	setString(&cfg.Journal, fc.Journal)

	if fc.Dirs != nil {
		if fc.Dirs.Asm != nil {
			cfg.AsmDir = *fc.Dirs.Asm
		}
		if fc.Dirs.Native != nil {
			cfg.NativeDir = *fc.Dirs.Native
		}
		setString(&cfg.ObjDir, fc.Dirs.Objects)
	}

	if fc.StepTimeout != "" {
		d, err := time.ParseDuration(fc.StepTimeout)
		if err != nil {
			return Config{}, &Error{Code: ErrCodeInvalidValue, Field: "step_timeout", Message: err.Error()}
		}
		cfg.StepTimeout = d
	}

	if fc.Toolchain != nil {
		applyTool(&cfg.Assembler, fc.Toolchain.Assembler)
		applyTool(&cfg.Compiler, fc.Toolchain.Compiler)
		applyTool(&cfg.Linker, fc.Toolchain.Linker)
		applyTool(&cfg.External, fc.Toolchain.External)
	}

	return cfg, nil
}

func applyTool(dst *ToolchainDescriptor, src *fileTool) {
	if src == nil {
		return
	}
	setString(&dst.Exe, src.Exe)
	if src.Flags != nil {
		dst.Flags = append([]string(nil), src.Flags...)
	}
	if src.CompileFlag != nil {
		dst.CompileFlag = *src.CompileFlag
	}
	if src.OutputFlag != nil {
		dst.OutputFlag = *src.OutputFlag
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
