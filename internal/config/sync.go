package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mergesync/internal/backup"
	"mergesync/internal/model"
	"mergesync/internal/pipeline"
)

// SyncConfig is the JSON document driving a sync run.
type SyncConfig struct {
	ExcludePatterns []string              `json:"excludePatterns"`
	ExcludeFile     string                `json:"excludeFile,omitempty"`
	MergeRules      map[string]RuleConfig `json:"mergeRules"`
	BackupSettings  BackupConfig          `json:"backupSettings"`
	Deploy          DeployConfig          `json:"deploy"`
	Aliases         map[string][]string   `json:"aliases,omitempty"`

	path string
}

type RuleConfig struct {
	Strategy  string `json:"strategy"`
	Separator string `json:"separator,omitempty"`
}

type BackupConfig struct {
	Enabled         *bool  `json:"enabled,omitempty"`
	Suffix          string `json:"suffix,omitempty"`
	TimestampFormat string `json:"timestampFormat,omitempty"`
}

type DeployConfig struct {
	Host         string   `json:"host,omitempty"`
	User         string   `json:"user,omitempty"`
	Port         int      `json:"port,omitempty"`
	RemoteDir    string   `json:"remoteDir,omitempty"`
	IdentityFile string   `json:"identityFile,omitempty"`
	SSHOptions   []string `json:"sshOptions,omitempty"`
	KeepPrevious bool     `json:"keepPrevious,omitempty"`
	ArchiveName  string   `json:"archiveName,omitempty"`
}

var DefaultExcludePatterns = []string{".git", ".DS_Store", "*.tmp", "*.swp"}

// DefaultSyncConfig is used when no --config is given.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		ExcludePatterns: append([]string(nil), DefaultExcludePatterns...),
		MergeRules:      map[string]RuleConfig{},
	}
}

// LoadSyncConfig reads and validates a sync configuration file. Every
// failure wraps model.ErrConfig.
func LoadSyncConfig(path string) (*SyncConfig, error) {
	if path == "" {
		return DefaultSyncConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.ConfigErrorf("failed to read %s: %v", path, err)
	}

	cfg, err := ParseSyncConfig(data)
	if err != nil {
		return nil, model.ConfigErrorf("%s: %v", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.path = abs

	return cfg, nil
}

func ParseSyncConfig(data []byte) (*SyncConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	cfg := &SyncConfig{}
	if err := dec.Decode(cfg); err != nil {
		return nil, model.ConfigErrorf("invalid json: %v", err)
	}

	if cfg.MergeRules == nil {
		cfg.MergeRules = map[string]RuleConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *SyncConfig) Validate() error {
	for _, p := range c.ExcludePatterns {
		if strings.TrimSpace(p) == "" {
			return model.ConfigErrorf("empty exclude pattern")
		}
		if err := pipeline.ValidatePattern(p); err != nil {
			return model.ConfigErrorf("bad exclude pattern %q: %v", p, err)
		}
	}

	seen := make(map[string]string, len(c.MergeRules))
	for key, rule := range c.MergeRules {
		norm := pipeline.NormalizePath(key)
		if norm == "" || norm == "." {
			return model.ConfigErrorf("merge rule with empty path")
		}
		if prev, dup := seen[norm]; dup {
			return model.ConfigErrorf("merge rules %q and %q name the same file", prev, key)
		}
		seen[norm] = key

		if _, err := model.ParseStrategy(rule.Strategy); err != nil {
			return model.ConfigErrorf("merge rule %q: %v", key, err)
		}
	}

	if _, err := backup.Layout(c.BackupSettings.TimestampFormat); err != nil {
		return model.ConfigErrorf("backupSettings: %v", err)
	}

	if strings.ContainsAny(c.BackupSettings.Suffix, `/\`) {
		return model.ConfigErrorf("backupSettings: suffix %q must not contain path separators", c.BackupSettings.Suffix)
	}

	for name, expansion := range c.Aliases {
		if strings.TrimSpace(name) == "" || len(expansion) == 0 {
			return model.ConfigErrorf("alias %q has no expansion", name)
		}
	}

	return nil
}

// Path is the absolute location the config was loaded from, "" for defaults.
func (c *SyncConfig) Path() string {
	return c.path
}

// Rules returns the merge rule table sorted by path. Strategies were
// checked by Validate.
func (c *SyncConfig) Rules() []model.Rule {
	rules := make([]model.Rule, 0, len(c.MergeRules))
	for key, rc := range c.MergeRules {
		strategy, _ := model.ParseStrategy(rc.Strategy)
		rules = append(rules, model.Rule{
			Path:      pipeline.NormalizePath(key),
			Strategy:  strategy,
			Separator: rc.Separator,
		})
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].Path < rules[j].Path })
	return rules
}

func (c *SyncConfig) Backup() backup.Settings {
	enabled := true
	if c.BackupSettings.Enabled != nil {
		enabled = *c.BackupSettings.Enabled
	}

	return backup.Settings{
		Enabled: enabled,
		Suffix:  c.BackupSettings.Suffix,
		Format:  c.BackupSettings.TimestampFormat,
	}
}

// IgnoreLines reads excludeFile, resolved relative to the config file. A
// missing file yields no lines.
func (c *SyncConfig) IgnoreLines() ([]string, error) {
	if c.ExcludeFile == "" {
		return nil, nil
	}

	p := c.ExcludeFile
	if !filepath.IsAbs(p) && c.path != "" {
		p = filepath.Join(filepath.Dir(c.path), p)
	}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, model.ConfigErrorf("failed to open exclude file %s: %v", p, err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, model.ConfigErrorf("failed to read exclude file %s: %v", p, err)
	}

	return lines, nil
}

// Classifier builds the path classifier for this configuration.
func (c *SyncConfig) Classifier() (*pipeline.Classifier, error) {
	lines, err := c.IgnoreLines()
	if err != nil {
		return nil, err
	}

	return pipeline.NewClassifier(c.ExcludePatterns, lines, c.Rules()), nil
}
