// Package jobs runs experiments in the background on a bounded worker pool
// and streams their state changes to subscribers.
package jobs

import (
	"context"
	"time"

	"gopi/app"
	"gopi/domain/core"
	"gopi/domain/run"
)

// State is the lifecycle position of a job
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Finished reports whether the job can no longer change state
func (s State) Finished() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Kind tells single experiments from batches
type Kind string

const (
	KindExperiment Kind = "experiment"
	KindBatch      Kind = "batch"
)

// Job is one queued unit of work. Reports holds one report for an experiment
// and one per run for a batch.
type Job struct {
	ID          core.ID                 `json:"id"`
	Kind        Kind                    `json:"kind"`
	State       State                   `json:"state"`
	SeedKey     []uint32                `json:"seed_key,omitempty"` // batch only
	Requests    []app.ExperimentRequest `json:"requests"`
	Reports     []*run.Report           `json:"reports,omitempty"`
	Error       string                  `json:"error,omitempty"`
	SubmittedAt time.Time               `json:"submitted_at"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	FinishedAt  *time.Time              `json:"finished_at,omitempty"`

	cancel context.CancelFunc
}

// snapshot copies the job for callers outside the manager lock
func (j *Job) snapshot() Job {
	c := *j
	c.cancel = nil
	c.Requests = append([]app.ExperimentRequest(nil), j.Requests...)
	c.Reports = append([]*run.Report(nil), j.Reports...)
	return c
}

// Event is published on every state change of a job
type Event struct {
	JobID     core.ID   `json:"job_id"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Runner executes experiments; app.ExperimentService implements it
type Runner interface {
	Check(req app.ExperimentRequest) error
	CheckBatch(key []uint32, reqs []app.ExperimentRequest) error
	Run(ctx context.Context, req app.ExperimentRequest) (*run.Report, error)
	Batch(ctx context.Context, key []uint32, reqs []app.ExperimentRequest) ([]*run.Report, error)
}
