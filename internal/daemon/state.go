package daemon

import (
	"sync"
	"time"

	"mergesync/internal/model"
)

type RunState struct {
	mu        sync.RWMutex
	Source    string
	Dest      string
	StartedAt time.Time
	Running   bool
	Runs      int
	LastSync  *time.Time
	LastRun   *model.Report
}

func NewRunState(src, dst string) *RunState {
	return &RunState{
		Source:    src,
		Dest:      dst,
		StartedAt: time.Now(),
	}
}

func (s *RunState) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Running = true
}

func (s *RunState) RecordRun(report model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Running = false
	s.Runs++
	s.LastSync = new(report.FinishedAt)
	s.LastRun = &report
}

func (s *RunState) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Running = false
}

func (s *RunState) Snapshot() model.ServerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.ServerSnapshot{
		Source:    s.Source,
		Dest:      s.Dest,
		StartedAt: s.StartedAt,
		Running:   s.Running,
		Runs:      s.Runs,
		LastSync:  s.LastSync,
	}
	if s.LastRun != nil {
		last := *s.LastRun
		last.Files = nil
		snap.LastRun = &last
	}

	return snap
}
