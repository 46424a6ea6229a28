package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var errWriteRefused = errors.New("destination no longer accepts data")

// destination owns the file a transfer streams into. It is released exactly
// once, either kept or discarded.
type destination struct {
	fs   afero.Fs
	path string
	file afero.File

	refused  atomic.Bool
	released bool
}

// createDestination replaces whatever exists at path with an empty file
// opened for writing.
func createDestination(fs afero.Fs, path string) (*destination, error) {
	if err := fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}

	if exists {
		if err := fs.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove existing file: %w", err)
		}
	}

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, err
	}

	return &destination{fs: fs, path: path, file: f}, nil
}

// Write implements io.Writer until refuse is called.
func (d *destination) Write(p []byte) (int, error) {
	if d.refused.Load() {
		return 0, errWriteRefused
	}

	return d.file.Write(p)
}

// refuse makes every further Write fail. Safe to call from any goroutine.
func (d *destination) refuse() {
	d.refused.Store(true)
}

// keep flushes and closes the file, leaving it on disk. When either step
// fails the file is removed, since its content cannot be trusted.
func (d *destination) keep() error {
	if d.released {
		return nil
	}

	d.released = true

	err := d.file.Sync()
	if err != nil {
		err = fmt.Errorf("failed to flush %s: %w", d.path, err)
	}

	if closeErr := d.file.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close %s: %w", d.path, closeErr)
	}

	if err != nil {
		_ = d.fs.Remove(d.path)
	}

	return err
}

// discard closes the file and removes it.
func (d *destination) discard() error {
	if d.released {
		return nil
	}

	d.released = true

	closeErr := d.file.Close()

	if err := d.fs.Remove(d.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", d.path, err)
	}

	return closeErr
}
