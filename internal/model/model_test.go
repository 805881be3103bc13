package model

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"":          StrategyAppend,
		"append":    StrategyAppend,
		"Prepend":   StrategyPrepend,
		" REPLACE ": StrategyReplace,
		"copy":      StrategyCopy,
		"skip":      StrategySkip,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("zip")
	assert.Error(t, err)

	assert.True(t, StrategyReplace.IsMerge())
	assert.False(t, StrategyCopy.IsMerge())
	assert.False(t, StrategySkip.IsMerge())
}

func TestReportRecord(t *testing.T) {
	var r Report
	r.Record(FileResult{RelPath: "a", Outcome: OutcomeCopied})
	r.Record(FileResult{RelPath: "b", Outcome: OutcomeMerged,
		Problems: []ReportError{{Path: "b", Message: "backup failed", Warning: true}}})
	r.Record(FileResult{RelPath: "c", Outcome: OutcomeSkipped})
	r.Record(FileResult{RelPath: "d", Outcome: OutcomeFailed,
		Problems: []ReportError{{Path: "d", Message: "denied"}}})

	assert.Equal(t, 1, r.Copied)
	assert.Equal(t, 1, r.Merged)
	assert.Equal(t, 1, r.Skipped)
	assert.Len(t, r.Errors, 2)
	assert.Len(t, r.Files, 4)
	assert.True(t, r.HasErrors())
	assert.Equal(t, "copied=1 merged=1 skipped=1 errors=2", r.Summary())

	r.Simulated = true
	assert.Equal(t, "copied=1 merged=1 skipped=1 errors=2 (dry run)", r.Summary())

	assert.Equal(t, "warning: b: backup failed", r.Errors[0].String())
	assert.Equal(t, "error: d: denied", r.Errors[1].String())
}

func TestErrorTypes(t *testing.T) {
	err := ConfigErrorf("bad %s", "thing")
	assert.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, "configuration error: bad thing", err.Error())

	ioErr := &FileIOError{Path: "a/b", Op: "write", Err: fs.ErrPermission}
	assert.ErrorIs(t, ioErr, fs.ErrPermission)
	assert.Equal(t, "failed to write a/b: permission denied", ioErr.Error())

	var target *FileIOError
	assert.True(t, errors.As(error(ioErr), &target))

	warn := &BackupWarning{Path: "x", Err: fs.ErrExist}
	assert.ErrorIs(t, warn, fs.ErrExist)
}
