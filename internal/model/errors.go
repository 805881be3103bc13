package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks a malformed or missing configuration. Fatal.
	ErrConfig = errors.New("configuration error")
	// ErrSourceNotFound marks a missing source root. Fatal.
	ErrSourceNotFound = errors.New("source not found")
)

// FileIOError is a per-file read, copy or write failure. A run records it
// and moves on.
type FileIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileIOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileIOError) Unwrap() error {
	return e.Err
}

// BackupWarning is raised when a backup could not be written. The write it
// was guarding still happens.
type BackupWarning struct {
	Path string
	Err  error
}

func (w *BackupWarning) Error() string {
	return fmt.Sprintf("backup of %s failed, file left unprotected: %v", w.Path, w.Err)
}

func (w *BackupWarning) Unwrap() error {
	return w.Err
}

func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
