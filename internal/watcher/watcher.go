package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mergesync/internal/model"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher turns fsnotify events under a directory tree into FileEvents.
// New subdirectories are picked up as they appear.
type Watcher struct {
	fw       *fsnotify.Watcher
	eventCh  chan model.FileEvent
	doneCh   chan struct{}
	stopOnce sync.Once
	skip     func(path string) bool
	log      *zap.Logger
}

// New creates a watcher. skip, when set, prunes directories and events the
// caller does not care about (excluded paths, a nested destination).
func New(bufferSize int, log *zap.Logger, skip func(path string) bool) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	if skip == nil {
		skip = func(string) bool { return false }
	}

	return &Watcher{
		fw:      fw,
		eventCh: make(chan model.FileEvent, bufferSize),
		doneCh:  make(chan struct{}),
		skip:    skip,
		log:     log,
	}, nil
}

func (w *Watcher) Watch(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(absDir); err != nil {
		return fmt.Errorf("%w: %v", model.ErrSourceNotFound, err)
	}

	if err := w.addRecursive(absDir); err != nil {
		return err
	}

	go w.run()

	w.log.Info("watcher started",
		zap.String("dir", absDir))
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != dir && w.skip(path) {
			return filepath.SkipDir
		}

		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.log.Debug("watching directory",
			zap.String("path", path))

		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.eventCh)

	for {
		select {
		case <-w.doneCh:
			w.log.Info("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			eventType := toEventType(fsEvent.Op)
			if eventType == "" || w.skip(fsEvent.Name) {
				continue
			}

			if fsEvent.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsEvent.Name); err != nil {
						w.log.Warn("failed to watch new directory",
							zap.String("path", fsEvent.Name),
							zap.Error(err))
					}
				}
			}

			event := model.FileEvent{
				Type:      eventType,
				Path:      fsEvent.Name,
				Timestamp: time.Now(),
			}

			select {
			case w.eventCh <- event:
			default:
				w.log.Warn("event channel is full, dropping event",
					zap.String("path", fsEvent.Name))
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			w.log.Error("watcher error",
				zap.Error(err))
		}
	}
}

func (w *Watcher) Events() <-chan model.FileEvent {
	return w.eventCh
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneCh)
		_ = w.fw.Close()
	})
}

func toEventType(op fsnotify.Op) model.EventType {
	switch {
	case op.Has(fsnotify.Create):
		return model.EventCreate
	case op.Has(fsnotify.Write):
		return model.EventWrite
	case op.Has(fsnotify.Remove):
		return model.EventRemove
	case op.Has(fsnotify.Rename):
		return model.EventRename
	default:
		return ""
	}
}
