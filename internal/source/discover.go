// Package source discovers the assembly and native source files of a build.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/roach88/imgforge/internal/model"
)

// ErrCodeCollision identifies a source name collision.
const ErrCodeCollision = "E205"

// Set is the frozen result of one discovery pass.
// Asm and Native are each in lexical filename order.
type Set struct {
	Asm    []model.SourceFile `json:"asm"`
	Native []model.SourceFile `json:"native"`
}

// All returns every source in link order: assembly first, then native.
func (s Set) All() []model.SourceFile {
	all := make([]model.SourceFile, 0, len(s.Asm)+len(s.Native))
	all = append(all, s.Asm...)
	all = append(all, s.Native...)
	return all
}

// Len returns the total number of sources.
func (s Set) Len() int {
	return len(s.Asm) + len(s.Native)
}

// CollisionError reports two sources that would produce the same object file.
type CollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s: sources %s and %s both produce %s.o", ErrCodeCollision, e.First, e.Second, e.Name)
}

// Discover returns the regular files directly inside dir whose extension
// matches kind, in lexical order.
//
// dir is a slash-separated path inside fsys. A missing dir yields an empty
// result and no error. Subdirectories are not descended into.
func Discover(fsys fs.FS, dir string, kind model.SourceKind) ([]model.SourceFile, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	fsDir := path.Clean(filepath.ToSlash(dir))
	entries, err := fs.ReadDir(fsys, fsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	ext := kind.Extension()
	var files []model.SourceFile
	for _, e := range entries {
		if path.Ext(e.Name()) != ext {
			continue
		}
		if !isRegular(fsys, path.Join(fsDir, e.Name()), e) {
			continue
		}
		files = append(files, model.NewSourceFile(filepath.Join(dir, e.Name()), kind))
	}

	// fs.ReadDir already sorts by name; keep the guarantee explicit.
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// DiscoverAll scans the assembly and native directories once each and
// returns the frozen source set.
//
// Two sources with the same base name would overwrite each other's object
// file, so DiscoverAll rejects them with a *CollisionError.
func DiscoverAll(fsys fs.FS, asmDir, nativeDir string) (Set, error) {
	asm, err := Discover(fsys, asmDir, model.SourceAsm)
	if err != nil {
		return Set{}, err
	}
	native, err := Discover(fsys, nativeDir, model.SourceNative)
	if err != nil {
		return Set{}, err
	}

	set := Set{Asm: asm, Native: native}
	seen := make(map[string]string, set.Len())
	for _, sf := range set.All() {
		if prev, ok := seen[sf.Name]; ok {
			return Set{}, &CollisionError{Name: sf.Name, First: prev, Second: sf.Path}
		}
		seen[sf.Name] = sf.Path
	}

	return set, nil
}

// isRegular reports whether the entry is a regular file, following symlinks.
func isRegular(fsys fs.FS, name string, e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && info.Mode().IsRegular()
}
