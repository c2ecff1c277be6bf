package emitter

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsafeRemoval is returned when Force would delete the working
// directory, the home directory or the filesystem root.
var ErrUnsafeRemoval = errors.New("emitter: refusing to remove directory")

// WriteError reports a failure to put generated output on disk.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("emitter: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CheckError lists files that differ from the rendered output in check mode.
type CheckError struct {
	Paths []string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("emitter: %d generated file(s) out of date: %s", len(e.Paths), strings.Join(e.Paths, ", "))
}

type WriteOptions struct {
	// Force removes the output directory before writing.
	Force bool
	// Check writes nothing and fails if any file would change.
	Check bool
}

// WriteFiles writes files under outDir. Files whose content is already on
// disk are left alone and reported as Unchanged. Files written before a
// failure stay in place.
func WriteFiles(outDir string, files Files, opts WriteOptions) ([]PlannedFile, error) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, &WriteError{Path: outDir, Err: err}
	}
	if err := validateOutputDirectory(abs); err != nil {
		return nil, err
	}
	if opts.Force && !opts.Check {
		if err := guardRemoval(abs); err != nil {
			return nil, err
		}
		if err := os.RemoveAll(abs); err != nil {
			return nil, &WriteError{Path: abs, Err: err}
		}
	}

	planned := Plan(files)
	var stale []string
	for i := range planned {
		rel := planned[i].RelPath
		full := filepath.Join(abs, filepath.FromSlash(rel))
		existing, rerr := os.ReadFile(full)
		switch {
		case rerr == nil && bytes.Equal(existing, files[rel]):
			planned[i].Unchanged = true
			continue
		case rerr != nil && !errors.Is(rerr, fs.ErrNotExist):
			return planned[:i], &WriteError{Path: rel, Err: rerr}
		}
		if opts.Check {
			stale = append(stale, rel)
			continue
		}
		if err := writeFileAtomic(full, files[rel], planned[i].Mode); err != nil {
			return planned[:i], &WriteError{Path: rel, Err: err}
		}
	}
	if len(stale) > 0 {
		return planned, &CheckError{Paths: stale}
	}
	return planned, nil
}

func validateOutputDirectory(abs string) error {
	st, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &WriteError{Path: abs, Err: err}
	}
	if !st.IsDir() {
		return &WriteError{Path: abs, Err: fmt.Errorf("not a directory")}
	}
	return nil
}

func guardRemoval(abs string) error {
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("%w %q: filesystem root", ErrUnsafeRemoval, abs)
	}
	if wd, err := os.Getwd(); err == nil && within(wd, abs) {
		return fmt.Errorf("%w %q: contains the working directory", ErrUnsafeRemoval, abs)
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == abs {
		return fmt.Errorf("%w %q: home directory", ErrUnsafeRemoval, abs)
	}
	return nil
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// writeFileAtomic writes through a uniquely named temp file in the target
// directory and renames it into place.
func writeFileAtomic(full string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure directory %s: %w", dir, err)
	}
	tmpPath := filepath.Join(dir, ".refitgen-"+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	success := false
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil
	if err := os.Rename(tmpPath, full); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	success = true
	return nil
}
