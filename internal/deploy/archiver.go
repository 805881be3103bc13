package deploy

import (
	"context"
	"fmt"
	"path/filepath"
)

// Archiver packs files (relative to root) into a compressed archive at out.
type Archiver interface {
	Create(ctx context.Context, root string, files []string, out string) (string, error)
}

type TarArchiver struct {
	Runner Runner
	// Tar is the tar binary, "tar" when empty.
	Tar string
}

func (a TarArchiver) Create(ctx context.Context, root string, files []string, out string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("nothing to archive under %s", root)
	}

	bin := a.Tar
	if bin == "" {
		bin = "tar"
	}

	args := []string{"-czf", out, "-C", root}
	for _, f := range files {
		args = append(args, "./"+filepath.ToSlash(f))
	}

	if _, err := a.Runner.Run(ctx, bin, args...); err != nil {
		return "", fmt.Errorf("failed to create archive %s: %w", out, err)
	}

	return out, nil
}
