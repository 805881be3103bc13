package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedGuard(t *testing.T, s Settings) *Guard {
	t.Helper()
	g, err := NewGuard(s)
	require.NoError(t, err)
	g.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	return g
}

func TestBackupMissingDestination(t *testing.T) {
	g := fixedGuard(t, Settings{Enabled: true})

	path, err := g.Backup(filepath.Join(t.TempDir(), "nope.md"))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackupCopiesOriginal(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o600))

	g := fixedGuard(t, Settings{Enabled: true, Suffix: "bak", Format: "yyyy-MM-dd-HH-mm-ss"})

	path, err := g.Backup(dst)
	require.NoError(t, err)
	assert.Equal(t, dst+".bak.2024-03-09-14-05-07", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	orig, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(orig))
}

func TestBackupDoesNotClobberSameSecond(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(dst, []byte("v1"), 0o644))

	g := fixedGuard(t, Settings{Enabled: true})

	first, err := g.Backup(dst)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dst, []byte("v2"), 0o644))
	second, err := g.Backup(dst)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, first+"-1", second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestBackupDisabled(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(dst, []byte("v1"), 0o644))

	g := fixedGuard(t, Settings{Enabled: false})
	path, err := g.Backup(dst)
	require.NoError(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPlanWritesNothing(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(dst, []byte("v1"), 0o644))

	g := fixedGuard(t, Settings{Enabled: true})
	path, err := g.Plan(dst)
	require.NoError(t, err)
	assert.Equal(t, dst+".backup.2024-03-09-14-05-07", path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	path, err = g.Plan(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestNilGuardIsDisabled(t *testing.T) {
	var g *Guard
	path, err := g.Backup("/does/not/matter")
	require.NoError(t, err)
	assert.Empty(t, path)
}
