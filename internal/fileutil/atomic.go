// Package fileutil provides file system utilities.
package fileutil

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile is an output file that only appears at its final path once
// Commit succeeds. Readers see either no file or the complete file.
type AtomicFile struct {
	path string
	perm os.FileMode
	tmp  *os.File
	w    *bufio.Writer
	done bool
}

// CreateAtomic opens a temporary file beside path. Opening up front means a
// destination that cannot be written fails before any expensive work starts.
func CreateAtomic(path string, perm os.FileMode) (*AtomicFile, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	// Same directory so the final rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &AtomicFile{path: path, perm: perm, tmp: tmp, w: bufio.NewWriter(tmp)}, nil
}

// Path is the final destination.
func (f *AtomicFile) Path() string { return f.path }

func (f *AtomicFile) Write(p []byte) (int, error) {
	if f.done {
		return 0, errors.New("write to closed atomic file")
	}
	return f.w.Write(p)
}

// Commit flushes, syncs and renames the temporary file into place.
func (f *AtomicFile) Commit() error {
	if f.done {
		return errors.New("atomic file already closed")
	}
	f.done = true
	tmpPath := f.tmp.Name()

	if err := f.w.Flush(); err != nil {
		f.discard()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.tmp.Sync(); err != nil {
		f.discard()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, f.perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Abort removes the temporary file. It is a no-op after Commit, so it can
// be deferred.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.discard()
}

func (f *AtomicFile) discard() {
	f.tmp.Close()
	os.Remove(f.tmp.Name())
}

// WriteFileAtomic writes data to filename through an AtomicFile.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	f, err := CreateAtomic(filename, perm)
	if err != nil {
		return err
	}
	defer f.Abort()

	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Commit()
}
