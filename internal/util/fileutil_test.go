package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteCreatesParents(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "a", "b", "c.txt")

	require.NoError(t, AtomicWrite(dst, strings.NewReader("payload")))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(dst + tmpSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyFileKeepsMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "run.sh")
	dst := filepath.Join(dir, "out", "run.sh")

	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, CopyFile(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	assert.Error(t, err)
}

func TestStatRegular(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	exists, regular, err := StatRegular(file)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, regular)

	exists, regular, err = StatRegular(dir)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.False(t, regular)

	exists, _, err = StatRegular(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}
