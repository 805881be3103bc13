package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MERGESYNC_HOME", home)

	s, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, Default.DaemonPort, s.DaemonPort)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, 500*time.Millisecond, s.Debounce)
	assert.Equal(t, filepath.Join(home, "history.db"), s.DBPath)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MERGESYNC_HOME", home)
	t.Setenv("MERGESYNC_WORKERS", "4")

	settings := "daemon_port: 7000\ndebounce: 2s\nworkers: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "settings.yaml"), []byte(settings), 0o644))

	s, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 7000, s.DaemonPort)
	assert.Equal(t, 2*time.Second, s.Debounce)
	assert.Equal(t, 4, s.Workers)
}

func TestLoadClampsWorkers(t *testing.T) {
	t.Setenv("MERGESYNC_HOME", t.TempDir())
	t.Setenv("MERGESYNC_WORKERS", "0")

	s, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Workers)
}
