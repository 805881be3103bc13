package model

import "time"

type ServerSnapshot struct {
	Source    string     `json:"source"`
	Dest      string     `json:"dest"`
	StartedAt time.Time  `json:"started_at"`
	Running   bool       `json:"running"`
	Runs      int        `json:"runs"`
	LastSync  *time.Time `json:"last_sync"`
	LastRun   *Report    `json:"last_run,omitempty"`
}
