package cmd

import (
	"fmt"
	"io"

	"mergesync/internal/backup"
	"mergesync/internal/config"
	"mergesync/internal/daemon"
	"mergesync/internal/model"
	"mergesync/internal/pipeline"
	"mergesync/internal/repository"
	"mergesync/internal/syncer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pairFlags are the flags shared by every command that syncs a
// source/destination pair.
type pairFlags struct {
	source     string
	dest       string
	configPath string
	force      bool
	workers    int
	noHistory  bool
}

func (f *pairFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.source, "source", "s", "", "source directory")
	fl.StringVarP(&f.dest, "dest", "d", "", "destination directory")
	fl.StringVarP(&f.configPath, "config", "c", "", "sync configuration file (JSON)")
	fl.BoolVar(&f.force, "force", false, "copy files even when the destination is identical")
	fl.IntVar(&f.workers, "workers", 0, "files processed in parallel (default from settings)")
	fl.BoolVar(&f.noHistory, "no-history", false, "do not record runs in the history database")
}

// resolve fills source and dest from positional args when the flags are
// empty.
func (f *pairFlags) resolve(args []string) error {
	if f.source == "" && len(args) > 0 {
		f.source = args[0]
	}
	if f.dest == "" && len(args) > 1 {
		f.dest = args[1]
	}
	if f.source == "" || f.dest == "" {
		return model.ConfigErrorf("both --source and --dest are required")
	}
	if f.configPath == "" {
		f.configPath = envConfig()
	}
	return nil
}

// session is a loaded sync configuration bound to one source/destination
// pair.
type session struct {
	cfg        *config.SyncConfig
	classifier *pipeline.Classifier
	guard      *backup.Guard
	runner     *daemon.Runner
	src        string
	dst        string
}

func (a *app) openSession(f *pairFlags) (*session, error) {
	cfg, err := config.LoadSyncConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, err
	}

	guard, err := backup.NewGuard(cfg.Backup())
	if err != nil {
		return nil, model.ConfigErrorf("backup settings: %v", err)
	}

	workers := f.workers
	if workers < 1 {
		workers = a.settings.Workers
	}

	factory := func(dryRun bool) (*syncer.Syncer, error) {
		return syncer.New(syncer.Options{
			Source:     f.source,
			Dest:       f.dest,
			Classifier: classifier,
			Backup:     guard,
			DryRun:     dryRun,
			Force:      f.force,
			Workers:    workers,
			Logger:     a.log(),
		})
	}

	// Fail fast on a missing source before anything else is opened.
	probe, err := factory(true)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:        cfg,
		classifier: classifier,
		guard:      guard,
		src:        probe.Source(),
		dst:        probe.Dest(),
	}

	repo := a.historyOrNil(f.noHistory)
	s.runner = daemon.NewRunner(factory, repo, daemon.NewRunState(s.src, s.dst), a.log())

	a.log().Debug("session ready",
		zap.String("src", s.src),
		zap.String("dst", s.dst),
		zap.String("config", cfg.Path()),
		zap.Int("rules", len(cfg.MergeRules)),
		zap.Int("workers", workers))

	return s, nil
}

func (a *app) historyOrNil(disabled bool) *repository.HistoryRepository {
	if disabled {
		return nil
	}

	repo, err := a.history()
	if err != nil {
		a.log().Warn("history disabled",
			zap.Error(err))
		return nil
	}
	return repo
}

// printReport writes problems to errOut and the summary line to out.
func printReport(out, errOut io.Writer, report model.Report, verbose bool) {
	if verbose {
		for _, f := range report.Files {
			line := fmt.Sprintf("%-7s %s", f.Outcome, f.RelPath)
			if f.Action.Reason != "" {
				line += " (" + f.Action.Reason + ")"
			}
			if f.BackupPath != "" {
				line += " backup=" + f.BackupPath
			}
			_, _ = fmt.Fprintln(out, line)
		}
	}

	for _, e := range report.Errors {
		_, _ = fmt.Fprintln(errOut, e.String())
	}

	_, _ = fmt.Fprintln(out, report.Summary())
}
