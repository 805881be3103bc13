package model

import (
	"fmt"
	"time"
)

type Outcome string

const (
	OutcomeCopied  Outcome = "COPIED"
	OutcomeMerged  Outcome = "MERGED"
	OutcomeSkipped Outcome = "SKIPPED"
	OutcomeFailed  Outcome = "FAILED"
)

type ReportError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"`
}

func (e ReportError) String() string {
	if e.Warning {
		return fmt.Sprintf("warning: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("error: %s: %s", e.Path, e.Message)
}

// FileResult is the outcome of processing a single source file.
type FileResult struct {
	RelPath    string        `json:"rel_path"`
	SrcPath    string        `json:"src_path"`
	DstPath    string        `json:"dst_path"`
	Action     Action        `json:"action"`
	Outcome    Outcome       `json:"outcome"`
	BackupPath string        `json:"backup_path,omitempty"`
	Problems   []ReportError `json:"problems,omitempty"`
}

type Report struct {
	RunID      string        `json:"run_id"`
	Source     string        `json:"source"`
	Dest       string        `json:"dest"`
	Copied     int           `json:"copied"`
	Merged     int           `json:"merged"`
	Skipped    int           `json:"skipped"`
	Errors     []ReportError `json:"errors"`
	Files      []FileResult  `json:"files,omitempty"`
	Simulated  bool          `json:"simulated"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Record folds one file result into the counters. Failed files only
// contribute their errors.
func (r *Report) Record(res FileResult) {
	switch res.Outcome {
	case OutcomeCopied:
		r.Copied++
	case OutcomeMerged:
		r.Merged++
	case OutcomeSkipped:
		r.Skipped++
	}

	r.Errors = append(r.Errors, res.Problems...)
	r.Files = append(r.Files, res)
}

func (r *Report) AddError(path, message string) {
	r.Errors = append(r.Errors, ReportError{Path: path, Message: message})
}

func (r Report) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r Report) Summary() string {
	s := fmt.Sprintf("copied=%d merged=%d skipped=%d errors=%d",
		r.Copied, r.Merged, r.Skipped, len(r.Errors))
	if r.Simulated {
		s += " (dry run)"
	}
	return s
}
