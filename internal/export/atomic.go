package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriter stages content in a hidden temp file next to its target
// and publishes it with a single rename, so readers of the target never
// observe a partially written export or config file.
type AtomicWriter struct {
	target string
	staged *os.File
}

// NewAtomicWriter stages a write to target, creating parent directories
// as needed. The staged file lives in the target's directory so the
// final rename stays on one filesystem.
func NewAtomicWriter(target string) (*AtomicWriter, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	staged, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", target, err)
	}

	return &AtomicWriter{target: target, staged: staged}, nil
}

// Write implements io.Writer over the staged file.
func (w *AtomicWriter) Write(p []byte) (int, error) {
	return w.staged.Write(p)
}

// Commit flushes the staged content and moves it over the target. On
// any failure the staged file is removed and the target is untouched.
func (w *AtomicWriter) Commit() (err error) {
	name := w.staged.Name()
	defer func() {
		if err != nil {
			os.Remove(name)
		}
	}()

	if err = w.staged.Sync(); err != nil {
		w.staged.Close()
		return fmt.Errorf("sync staged %s: %w", w.target, err)
	}
	if err = w.staged.Close(); err != nil {
		return fmt.Errorf("close staged %s: %w", w.target, err)
	}
	if err = os.Rename(name, w.target); err != nil {
		return fmt.Errorf("publish %s: %w", w.target, err)
	}

	// Persist the rename itself; without this a crash can roll the
	// directory entry back to the old file.
	if dir, dirErr := os.Open(filepath.Dir(w.target)); dirErr == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// Abort discards the staged content, leaving the target untouched.
func (w *AtomicWriter) Abort() error {
	name := w.staged.Name()
	w.staged.Close()
	return os.Remove(name)
}

// AtomicWriteFile writes data to path atomically.
func AtomicWriteFile(path string, data []byte) error {
	w, err := NewAtomicWriter(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Abort()
		return err
	}
	return w.Commit()
}
