package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Settings struct {
	DaemonPort int           `mapstructure:"daemon_port"`
	BufferSize int           `mapstructure:"buffer_size"`
	Workers    int           `mapstructure:"workers"`
	Debounce   time.Duration `mapstructure:"debounce"`
	DBPath     string        `mapstructure:"db_path"`
	LogLevel   string        `mapstructure:"log_level"`
}

var Default = Settings{
	DaemonPort: 9011,
	BufferSize: 100,
	Workers:    1,
	Debounce:   500 * time.Millisecond,
	DBPath:     "history.db",
	LogLevel:   "info",
}

// Dir is where settings.yaml and the default history database live.
func Dir() (string, error) {
	if dir := os.Getenv("MERGESYNC_HOME"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	return filepath.Join(home, ".mergesync"), nil
}

// Load reads runtime settings from ~/.mergesync/settings.yaml, MERGESYNC_*
// environment variables and whatever flags were bound on v.
func Load(v *viper.Viper) (*Settings, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("buffer_size", Default.BufferSize)
	v.SetDefault("workers", Default.Workers)
	v.SetDefault("debounce", Default.Debounce)
	v.SetDefault("db_path", filepath.Join(configDir, Default.DBPath))
	v.SetDefault("log_level", Default.LogLevel)

	v.SetEnvPrefix("MERGESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if s.Workers < 1 {
		s.Workers = 1
	}

	return &s, nil
}
