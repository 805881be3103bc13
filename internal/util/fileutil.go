package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const tmpSuffix = ".mergesync.tmp"

func AtomicWrite(dst string, r io.Reader) error {
	return AtomicWriteMode(dst, r, 0o644)
}

// AtomicWriteMode writes r to a temp file next to dst and renames it into
// place, creating parent directories as needed.
func AtomicWriteMode(dst string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	tmp := dst + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename: %w", err)
	}

	return nil
}

// CopyFile copies src to dst atomically, keeping the source permissions.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open src: %w", err)
	}

	defer func(srcFile *os.File) {
		_ = srcFile.Close()
	}(srcFile)

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat src: %w", err)
	}

	return AtomicWriteMode(dst, srcFile, info.Mode().Perm())
}

// StatRegular reports whether path exists and, if so, whether it is a
// regular file. Reading a FIFO or device would block, so callers check first.
func StatRegular(path string) (exists, regular bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.Mode().IsRegular(), nil
}
