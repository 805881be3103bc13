package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mergesync/internal/model"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, events <-chan model.FileEvent, match func(model.FileEvent) bool) model.FileEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-events:
			require.True(t, ok, "event channel closed")
			if match(e) {
				return e
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	w, err := New(16, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	target := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	e := waitFor(t, w.Events(), func(e model.FileEvent) bool { return e.Path == target })
	assert.Contains(t, []model.EventType{model.EventCreate, model.EventWrite}, e.Type)

	w.Stop()
	w.Stop()
	for range w.Events() {
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	w, err := New(64, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFor(t, w.Events(), func(e model.FileEvent) bool { return e.Path == sub })

	// the new directory is registered asynchronously
	time.Sleep(100 * time.Millisecond)
	nested := filepath.Join(sub, "b.txt")
	require.NoError(t, os.WriteFile(nested, []byte("y"), 0o644))
	waitFor(t, w.Events(), func(e model.FileEvent) bool { return e.Path == nested })

	w.Stop()
	for range w.Events() {
	}
}

func TestWatcherSkipsPrunedPaths(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ignored := filepath.Join(dir, "node_modules")
	require.NoError(t, os.Mkdir(ignored, 0o755))

	skip := func(p string) bool { return strings.Contains(p, "node_modules") }
	w, err := New(16, zap.NewNop(), skip)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	require.NoError(t, os.WriteFile(filepath.Join(ignored, "x.js"), []byte("x"), 0o644))
	kept := filepath.Join(dir, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("k"), 0o644))

	e := waitFor(t, w.Events(), func(e model.FileEvent) bool { return true })
	assert.NotContains(t, e.Path, "node_modules")

	w.Stop()
	for range w.Events() {
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w, err := New(1, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	err = w.Watch(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, model.ErrSourceNotFound)
}

func TestToEventType(t *testing.T) {
	assert.Equal(t, model.EventCreate, toEventType(fsnotify.Create))
	assert.Equal(t, model.EventWrite, toEventType(fsnotify.Write))
	assert.Equal(t, model.EventRemove, toEventType(fsnotify.Remove))
	assert.Equal(t, model.EventRename, toEventType(fsnotify.Rename))
	assert.Equal(t, model.EventType(""), toEventType(fsnotify.Chmod))
}
