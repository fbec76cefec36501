// Package state persists sqlift extraction runs using SQLite. A run
// records one invocation of the extractor together with the tables,
// columns, keys and chunk boundaries it produced.
package state

import "time"

// RunStatus describes the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one persisted extraction run.
type Run struct {
	ID          string
	Environment string
	Source      string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Store is the persistence surface used by the CLI commands.
type Store interface {
	CreateRun(env, source string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	Close() error
}
