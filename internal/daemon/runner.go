package daemon

import (
	"context"
	"errors"
	"sync"

	"mergesync/internal/model"
	"mergesync/internal/pipeline"
	"mergesync/internal/repository"
	"mergesync/internal/syncer"

	"go.uber.org/zap"
)

// SyncerFactory builds a fresh syncer for one run.
type SyncerFactory func(dryRun bool) (*syncer.Syncer, error)

// Runner serializes sync runs for one source/destination pair, keeps the
// latest result and optionally persists every run.
type Runner struct {
	mu      sync.Mutex
	factory SyncerFactory
	repo    *repository.HistoryRepository
	state   *RunState
	log     *zap.Logger
}

func NewRunner(factory SyncerFactory, repo *repository.HistoryRepository, state *RunState, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}

	return &Runner{
		factory: factory,
		repo:    repo,
		state:   state,
		log:     log,
	}
}

func (r *Runner) State() *RunState {
	return r.state
}

// History is the repository runs are saved to, nil when history is off.
func (r *Runner) History() *repository.HistoryRepository {
	return r.repo
}

// Run performs one sync. Runs never overlap.
func (r *Runner) Run(ctx context.Context, dryRun bool) (model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.factory(dryRun)
	if err != nil {
		return model.Report{}, err
	}

	r.state.Begin()
	report, err := s.Run(ctx)
	if err != nil {
		r.state.Abort()
		return report, err
	}

	r.state.RecordRun(report)

	if r.repo != nil {
		if err := r.repo.Save(report); err != nil {
			r.log.Warn("failed to save history",
				zap.String("run", report.RunID),
				zap.Error(err))
		}
	}

	return report, nil
}

// Watch reruns sync for every coalesced batch of events until the batch
// channel closes or ctx is done. onReport sees each finished run.
func (r *Runner) Watch(ctx context.Context, batches <-chan []model.FileEvent, onReport func(model.Report)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-batches:
			if !ok {
				return nil
			}

			r.log.Debug("change batch",
				zap.Int("events", len(batch)))

			report, err := r.Run(ctx, false)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				r.log.Error("sync run failed", zap.Error(err))
				continue
			}

			if onReport != nil {
				onReport(report)
			}
		}
	}
}

// Pipeline filters raw watcher events down to paths the classifier would act
// on and coalesces them into batches.
func Pipeline(events <-chan model.FileEvent, src string, classifier *pipeline.Classifier, opts PipelineOptions) <-chan []model.FileEvent {
	keep := func(e model.FileEvent) bool {
		rel, ok := relative(src, e.Path)
		if !ok {
			return false
		}
		return !classifier.Excluded(rel)
	}

	return pipeline.Coalesce(pipeline.Filter(events, keep), opts.Debounce)
}
