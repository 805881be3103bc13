// Package merge combines new source content into an existing destination
// file according to a merge strategy. It never touches the filesystem.
package merge

import (
	"bytes"
	"fmt"

	"mergesync/internal/model"
)

type Result struct {
	Content []byte
	// Noop is set when the destination already holds the source content.
	Noop bool
	// Copied is set when there was no destination and the source was taken as is.
	Copied bool
}

// Apply merges source into dest. destExists distinguishes a missing
// destination from an empty one: a missing destination always degrades to a
// plain copy, whatever the strategy.
func Apply(source, dest []byte, destExists bool, strategy model.Strategy, separator string) (Result, error) {
	if !destExists {
		return Result{Content: clone(source), Copied: true}, nil
	}

	if bytes.Contains(dest, source) {
		return Result{Content: dest, Noop: true}, nil
	}

	switch strategy {
	case model.StrategyAppend:
		return Result{Content: appendContent(source, dest, separator)}, nil
	case model.StrategyPrepend:
		return Result{Content: prependContent(source, dest, separator)}, nil
	case model.StrategyReplace:
		return Result{Content: clone(source)}, nil
	default:
		return Result{}, fmt.Errorf("strategy %q is not a merge strategy", strategy)
	}
}

func appendContent(source, dest []byte, separator string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(dest) + len(separator) + len(source) + 3)
	buf.Write(dest)
	buf.WriteString("\n\n")
	if separator != "" {
		buf.WriteString(separator)
		buf.WriteByte('\n')
	}
	buf.Write(source)
	return buf.Bytes()
}

func prependContent(source, dest []byte, separator string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(dest) + len(separator) + len(source) + 2)
	if separator != "" {
		buf.WriteString(separator)
		buf.WriteByte('\n')
	}
	buf.Write(source)
	buf.WriteByte('\n')
	buf.Write(dest)
	return buf.Bytes()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
