package daemon

import (
	"path/filepath"
	"strings"
	"time"
)

type PipelineOptions struct {
	Debounce time.Duration
}

func relative(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
