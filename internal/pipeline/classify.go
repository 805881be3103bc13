// Package pipeline decides what happens to each file of a sync run and
// shapes the event streams feeding watch mode.
package pipeline

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"mergesync/internal/model"

	ignore "github.com/sabhiram/go-gitignore"
)

type Classifier struct {
	patterns []string
	ignore   *ignore.GitIgnore
	rules    map[string]model.Rule
}

// NewClassifier compiles the exclusion patterns, the optional gitignore-style
// lines and the merge rule table into a reusable classifier.
func NewClassifier(patterns []string, ignoreLines []string, rules []model.Rule) *Classifier {
	c := &Classifier{
		patterns: normalizePatterns(patterns),
		rules:    RuleTable(rules),
	}

	if len(ignoreLines) > 0 {
		lowered := make([]string, 0, len(ignoreLines))
		for _, line := range ignoreLines {
			lowered = append(lowered, strings.ToLower(line))
		}
		c.ignore = ignore.CompileIgnoreLines(lowered...)
	}

	return c
}

func (c *Classifier) Classify(relPath string) model.Action {
	rel := NormalizePath(relPath)

	if c.ignore != nil && c.ignore.MatchesPath(strings.ToLower(rel)) {
		return model.Action{Kind: model.ActionSkip, Reason: "ignore file"}
	}

	return classify(rel, c.patterns, c.rules)
}

// Excluded reports whether relPath is skipped by the exclusion set alone.
func (c *Classifier) Excluded(relPath string) bool {
	rel := NormalizePath(relPath)
	if c.ignore != nil && c.ignore.MatchesPath(strings.ToLower(rel)) {
		return true
	}
	return excluded(rel, c.patterns)
}

// Rules returns the rule table sorted by path.
func (c *Classifier) Rules() []model.Rule {
	out := make([]model.Rule, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Classify maps a relative path to the action a sync run takes for it.
// Exclusions win over merge rules; rule keys match exactly.
func Classify(relPath string, patterns []string, rules map[string]model.Rule) model.Action {
	return classify(NormalizePath(relPath), normalizePatterns(patterns), rules)
}

func classify(rel string, patterns []string, rules map[string]model.Rule) model.Action {
	if excluded(rel, patterns) {
		return model.Action{Kind: model.ActionSkip, Reason: "excluded"}
	}

	rule, ok := rules[rel]
	if !ok {
		return model.Action{Kind: model.ActionCopy}
	}

	switch rule.Strategy {
	case model.StrategySkip:
		return model.Action{Kind: model.ActionSkip, Strategy: rule.Strategy, Reason: "rule"}
	case model.StrategyCopy:
		return model.Action{Kind: model.ActionCopy, Strategy: rule.Strategy, Reason: "rule"}
	default:
		return model.Action{
			Kind:      model.ActionMerge,
			Strategy:  rule.Strategy,
			Separator: rule.Separator,
			Reason:    "rule",
		}
	}
}

// excluded expects rel and patterns already normalized and lower-cased
// patterns. Single-segment patterns are globs tested against every path
// segment; patterns containing a slash match a run of whole segments or
// the full path as a glob.
func excluded(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	lower := strings.ToLower(rel)
	segments := strings.Split(lower, "/")

	for _, pattern := range patterns {
		if strings.Contains(pattern, "/") {
			if strings.Contains("/"+lower+"/", "/"+pattern+"/") {
				return true
			}
			if matched, err := path.Match(pattern, lower); err == nil && matched {
				return true
			}
			continue
		}

		for _, seg := range segments {
			matched, err := path.Match(pattern, seg)
			if err != nil {
				matched = pattern == seg
			}
			if matched {
				return true
			}
		}
	}

	return false
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(filepath.ToSlash(p)))
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RuleTable indexes rules by their normalized relative path.
func RuleTable(rules []model.Rule) map[string]model.Rule {
	table := make(map[string]model.Rule, len(rules))
	for _, r := range rules {
		r.Path = NormalizePath(r.Path)
		table[r.Path] = r
	}
	return table
}

// NormalizePath turns an OS-native or slash relative path into the
// canonical slash form used as rule key.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// ValidatePattern reports a malformed glob.
func ValidatePattern(pattern string) error {
	_, err := path.Match(strings.ToLower(strings.Trim(filepath.ToSlash(pattern), "/")), "")
	return err
}
