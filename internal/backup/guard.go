// Package backup copies a destination file aside before it gets overwritten.
package backup

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"mergesync/internal/util"
)

const DefaultSuffix = "backup"

type Settings struct {
	Enabled bool
	Suffix  string
	// Format is a .NET style date format, see Layout.
	Format string
}

type Guard struct {
	enabled bool
	suffix  string
	layout  string
	now     func() time.Time
}

type fileSnapshot struct {
	path      string
	content   []byte
	mode      os.FileMode
	timestamp time.Time
}

func NewGuard(s Settings) (*Guard, error) {
	layout, err := Layout(s.Format)
	if err != nil {
		return nil, err
	}

	suffix := s.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}

	return &Guard{
		enabled: s.Enabled,
		suffix:  suffix,
		layout:  layout,
		now:     time.Now,
	}, nil
}

func (g *Guard) Enabled() bool {
	return g != nil && g.enabled
}

// Backup copies destPath to destPath.<suffix>.<timestamp> and returns the
// backup path. It returns "" without error when backups are disabled or
// destPath does not exist.
func (g *Guard) Backup(destPath string) (string, error) {
	if !g.Enabled() {
		return "", nil
	}

	snap, err := g.snapshot(destPath)
	if err != nil {
		return "", err
	}
	if snap == nil {
		return "", nil
	}

	backupPath := g.freePath(destPath, snap.timestamp)
	if err := util.AtomicWriteMode(backupPath, bytes.NewReader(snap.content), snap.mode); err != nil {
		return "", fmt.Errorf("failed to backup %s: %w", destPath, err)
	}

	return backupPath, nil
}

// Plan returns the path Backup would write to, without touching the
// filesystem. Used by dry runs.
func (g *Guard) Plan(destPath string) (string, error) {
	if !g.Enabled() {
		return "", nil
	}

	if _, err := os.Stat(destPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat %s: %w", destPath, err)
	}

	return g.freePath(destPath, g.now()), nil
}

func (g *Guard) PathFor(destPath string, t time.Time) string {
	return destPath + "." + g.suffix + "." + t.Format(g.layout)
}

func (g *Guard) snapshot(path string) (*fileSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &fileSnapshot{
		path:      path,
		content:   content,
		mode:      info.Mode().Perm(),
		timestamp: g.now(),
	}, nil
}

// freePath avoids clobbering an earlier backup taken within the same
// timestamp resolution.
func (g *Guard) freePath(destPath string, t time.Time) string {
	base := g.PathFor(destPath, t)
	candidate := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
