// Package syncer walks a source tree and applies the classified action to
// every file: plain copy, merge into the destination, or skip.
package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mergesync/internal/backup"
	"mergesync/internal/merge"
	"mergesync/internal/model"
	"mergesync/internal/pipeline"
	"mergesync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BackupGuard protects a destination file before it is overwritten.
// *backup.Guard is the production implementation.
type BackupGuard interface {
	Backup(destPath string) (string, error)
	Plan(destPath string) (string, error)
}

var _ BackupGuard = (*backup.Guard)(nil)

type Options struct {
	Source     string
	Dest       string
	Classifier *pipeline.Classifier
	Backup     BackupGuard
	// DryRun computes everything but writes nothing.
	DryRun bool
	// Force recopies files whose destination is already identical.
	Force bool
	// Workers bounds how many files are processed at once. Values below 1 mean 1.
	Workers int
	Logger  *zap.Logger
}

type Syncer struct {
	opts Options
	src  string
	dst  string
	log  *zap.Logger
}

type entry struct {
	rel string
	src string
	dst string
}

func New(opts Options) (*Syncer, error) {
	absSrc, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("invalid src path: %w", err)
	}
	absDst, err := filepath.Abs(opts.Dest)
	if err != nil {
		return nil, fmt.Errorf("invalid dst path: %w", err)
	}

	info, err := os.Stat(absSrc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrSourceNotFound, absSrc, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", model.ErrSourceNotFound, absSrc)
	}

	if opts.Classifier == nil {
		opts.Classifier = pipeline.NewClassifier(nil, nil, nil)
	}
	if opts.Backup == nil {
		opts.Backup = (*backup.Guard)(nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Syncer{
		opts: opts,
		src:  absSrc,
		dst:  absDst,
		log:  opts.Logger,
	}, nil
}

func (s *Syncer) Source() string { return s.src }
func (s *Syncer) Dest() string   { return s.dst }

// Run performs one full pass over the source tree. Per-file failures end up
// in the report; the returned error is only set when ctx is cancelled or the
// source root cannot be walked at all.
func (s *Syncer) Run(ctx context.Context) (model.Report, error) {
	report := model.Report{
		RunID:     uuid.NewString(),
		Source:    s.src,
		Dest:      s.dst,
		Simulated: s.opts.DryRun,
		Errors:    []model.ReportError{},
		StartedAt: time.Now(),
	}

	s.log.Info("starting sync",
		zap.String("run", report.RunID),
		zap.String("src", s.src),
		zap.String("dst", s.dst),
		zap.Bool("dry_run", s.opts.DryRun))

	entries, err := s.scan(&report)
	if err != nil {
		report.FinishedAt = time.Now()
		return report, err
	}

	results := make([]model.FileResult, len(entries))
	processed := make([]bool, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = s.process(e)
			processed[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if processed[i] {
			report.Record(res)
		}
	}
	report.FinishedAt = time.Now()

	s.log.Info("sync finished",
		zap.String("run", report.RunID),
		zap.Int("copied", report.Copied),
		zap.Int("merged", report.Merged),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))

	return report, ctx.Err()
}

// scan lists every file under the source root in lexical order. Unreadable
// directories are recorded and skipped.
func (s *Syncer) scan(report *model.Report) ([]entry, error) {
	var entries []entry

	err := filepath.WalkDir(s.src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.src {
				return fmt.Errorf("%w: %v", model.ErrSourceNotFound, err)
			}
			ioErr := &model.FileIOError{Path: path, Op: "read", Err: err}
			report.AddError(s.rel(path), ioErr.Error())
			s.log.Error("walk failed", zap.String("path", path), zap.Error(err))
			return nil
		}

		if d.IsDir() {
			if path != s.src && s.isDest(path) {
				return filepath.SkipDir
			}
			return nil
		}

		rel := s.rel(path)
		entries = append(entries, entry{
			rel: rel,
			src: path,
			dst: filepath.Join(s.dst, filepath.FromSlash(rel)),
		})
		return nil
	})

	return entries, err
}

func (s *Syncer) process(e entry) model.FileResult {
	action := s.opts.Classifier.Classify(e.rel)
	res := model.FileResult{
		RelPath: e.rel,
		SrcPath: e.src,
		DstPath: e.dst,
		Action:  action,
	}

	switch action.Kind {
	case model.ActionSkip:
		res.Outcome = model.OutcomeSkipped
		s.log.Debug("skipped",
			zap.String("path", e.rel),
			zap.String("reason", action.Reason))
		return res

	case model.ActionMerge:
		s.merge(&res)

	default:
		s.copy(&res)
	}

	if res.Outcome == model.OutcomeFailed {
		for _, p := range res.Problems {
			if !p.Warning {
				s.log.Error("sync failed",
					zap.String("path", e.rel),
					zap.String("error", p.Message))
			}
		}
		return res
	}

	s.log.Info("synced",
		zap.String("path", e.rel),
		zap.String("action", string(action.Kind)),
		zap.String("outcome", string(res.Outcome)),
		zap.String("backup", res.BackupPath),
		zap.Bool("dry_run", s.opts.DryRun))

	return res
}

func (s *Syncer) copy(res *model.FileResult) {
	info, err := os.Stat(res.SrcPath)
	if err != nil {
		s.fail(res, "stat", err)
		return
	}
	if !info.Mode().IsRegular() {
		res.Outcome = model.OutcomeSkipped
		res.Action.Reason = "not a regular file"
		return
	}

	exists, regular, err := util.StatRegular(res.DstPath)
	if err != nil {
		s.fail(res, "stat", err)
		return
	}
	if exists && !regular {
		res.Outcome = model.OutcomeSkipped
		res.Action.Reason = "destination is not a regular file"
		return
	}

	if exists {
		same, err := pipeline.SameContent(res.SrcPath, res.DstPath)
		if err != nil {
			s.fail(res, "compare", err)
			return
		}
		if same && !s.opts.Force {
			res.Outcome = model.OutcomeSkipped
			res.Action.Reason = "unchanged"
			return
		}
		// Identical content needs no backup even when forced.
		if !same {
			s.protect(res)
		}
	}

	if !s.opts.DryRun {
		if err := util.CopyFile(res.SrcPath, res.DstPath); err != nil {
			s.fail(res, "copy", err)
			return
		}
	}

	res.Outcome = model.OutcomeCopied
}

func (s *Syncer) merge(res *model.FileResult) {
	info, err := os.Stat(res.SrcPath)
	if err != nil {
		s.fail(res, "stat", err)
		return
	}

	if !info.Mode().IsRegular() {
		res.Outcome = model.OutcomeSkipped
		res.Action.Reason = "not a regular file"
		return
	}

	mode := info.Mode().Perm()
	dstInfo, err := os.Stat(res.DstPath)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.fail(res, "stat", err)
		return
	}
	if exists {
		if !dstInfo.Mode().IsRegular() {
			res.Outcome = model.OutcomeSkipped
			res.Action.Reason = "destination is not a regular file"
			return
		}
		mode = dstInfo.Mode().Perm()
	}

	source, err := os.ReadFile(res.SrcPath)
	if err != nil {
		s.fail(res, "read", err)
		return
	}

	var dest []byte
	if exists {
		if dest, err = os.ReadFile(res.DstPath); err != nil {
			s.fail(res, "read", err)
			return
		}
	}

	out, err := merge.Apply(source, dest, exists, res.Action.Strategy, res.Action.Separator)
	if err != nil {
		s.fail(res, "merge", err)
		return
	}

	if out.Noop {
		res.Outcome = model.OutcomeSkipped
		res.Action.Reason = "already merged"
		return
	}

	if exists {
		s.protect(res)
	}

	if !s.opts.DryRun {
		if err := util.AtomicWriteMode(res.DstPath, bytes.NewReader(out.Content), mode); err != nil {
			s.fail(res, "write", err)
			return
		}
	}

	if out.Copied {
		res.Outcome = model.OutcomeCopied
		return
	}
	res.Outcome = model.OutcomeMerged
}

// protect backs up the destination before it is overwritten. A failed
// backup is a warning: the write goes ahead.
func (s *Syncer) protect(res *model.FileResult) {
	var (
		path string
		err  error
	)
	if s.opts.DryRun {
		path, err = s.opts.Backup.Plan(res.DstPath)
	} else {
		path, err = s.opts.Backup.Backup(res.DstPath)
	}

	if err != nil {
		w := &model.BackupWarning{Path: res.DstPath, Err: err}
		res.Problems = append(res.Problems, model.ReportError{
			Path:    res.RelPath,
			Message: w.Error(),
			Warning: true,
		})
		s.log.Warn("backup failed",
			zap.String("path", res.DstPath),
			zap.Error(err))
		return
	}

	res.BackupPath = path
}

func (s *Syncer) fail(res *model.FileResult, op string, err error) {
	ioErr := &model.FileIOError{Path: res.RelPath, Op: op, Err: err}
	res.Outcome = model.OutcomeFailed
	res.Problems = append(res.Problems, model.ReportError{
		Path:    res.RelPath,
		Message: ioErr.Error(),
	})
}

func (s *Syncer) rel(path string) string {
	rel, err := filepath.Rel(s.src, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isDest reports whether dir is the destination root or inside it, which
// happens when the destination is nested in the source.
func (s *Syncer) isDest(dir string) bool {
	if dir == s.dst {
		return true
	}
	return strings.HasPrefix(dir, s.dst+string(filepath.Separator))
}
