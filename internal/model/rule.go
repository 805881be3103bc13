package model

import (
	"fmt"
	"strings"
)

type Strategy string

const (
	StrategyCopy    Strategy = "copy"
	StrategyAppend  Strategy = "append"
	StrategyPrepend Strategy = "prepend"
	StrategyReplace Strategy = "replace"
	StrategySkip    Strategy = "skip"
)

// ParseStrategy accepts the config spelling of a strategy, case-insensitively.
// An empty value means append.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAppend:
		return StrategyAppend, nil
	case StrategyPrepend:
		return StrategyPrepend, nil
	case StrategyReplace:
		return StrategyReplace, nil
	case StrategyCopy:
		return StrategyCopy, nil
	case StrategySkip:
		return StrategySkip, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}

// IsMerge reports whether the strategy combines content with an existing file.
func (s Strategy) IsMerge() bool {
	return s == StrategyAppend || s == StrategyPrepend || s == StrategyReplace
}

// Rule is one entry of the merge rule table, keyed by slash-separated relative path.
type Rule struct {
	Path      string   `json:"path"`
	Strategy  Strategy `json:"strategy"`
	Separator string   `json:"separator,omitempty"`
}

type ActionKind string

const (
	ActionCopy  ActionKind = "COPY"
	ActionMerge ActionKind = "MERGE"
	ActionSkip  ActionKind = "SKIP"
)

type Action struct {
	Kind      ActionKind `json:"kind"`
	Strategy  Strategy   `json:"strategy,omitempty"`
	Separator string     `json:"separator,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}
