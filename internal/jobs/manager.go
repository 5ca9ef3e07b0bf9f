package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"gopi/app"
	"gopi/domain/core"
	"gopi/domain/run"
	"gopi/internal"
	"gopi/internal/config"
	"gopi/internal/errors"
)

// Manager queues jobs and runs them on a fixed pool of workers
type Manager struct {
	runner Runner
	cfg    config.JobsConfig
	queue  chan core.ID
	hub    *Hub
	logger *internal.Logger
	now    func() time.Time

	mu   sync.RWMutex
	jobs map[core.ID]*Job
	wg   sync.WaitGroup
}

// NewManager creates a manager; call Start to begin processing
func NewManager(runner Runner, cfg config.JobsConfig, logger *internal.Logger) *Manager {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return &Manager{
		runner: runner,
		cfg:    cfg,
		queue:  make(chan core.ID, cfg.QueueSize),
		hub:    NewHub(logger),
		logger: logger.WithComponent("jobs"),
		now:    time.Now,
		jobs:   make(map[core.ID]*Job),
	}
}

// Hub returns the event hub jobs publish to
func (m *Manager) Hub() *Hub {
	return m.hub
}

// Start launches the worker pool and the retention sweep. Both stop when ctx
// is cancelled; Wait blocks until they have.
func (m *Manager) Start(ctx context.Context) {
	m.logger.Info("🚀 Starting job worker pool with %d workers (queue %d)", m.cfg.Workers, m.cfg.QueueSize)
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.workerLoop(ctx, i)
	}
	if m.cfg.Retention > 0 {
		m.wg.Add(1)
		go m.cleanupLoop(ctx)
	}
}

// Wait blocks until every goroutine started by Start has returned
func (m *Manager) Wait() {
	m.wg.Wait()
}

// SubmitExperiment validates and queues one experiment
func (m *Manager) SubmitExperiment(req app.ExperimentRequest) (Job, error) {
	if err := m.runner.Check(req); err != nil {
		return Job{}, err
	}
	return m.enqueue(&Job{Kind: KindExperiment, Requests: []app.ExperimentRequest{req}})
}

// SubmitBatch validates and queues a batch that runs on one stream seeded from key
func (m *Manager) SubmitBatch(key []uint32, reqs []app.ExperimentRequest) (Job, error) {
	if err := m.runner.CheckBatch(key, reqs); err != nil {
		return Job{}, err
	}
	return m.enqueue(&Job{Kind: KindBatch, SeedKey: append([]uint32(nil), key...), Requests: reqs})
}

func (m *Manager) enqueue(job *Job) (Job, error) {
	job.ID = core.NewID()
	job.State = StateQueued
	job.SubmittedAt = m.now()

	m.mu.Lock()
	select {
	case m.queue <- job.ID:
		m.jobs[job.ID] = job
	default:
		m.mu.Unlock()
		return Job{}, core.NewResourceError("job queue", len(m.queue)+1, cap(m.queue))
	}
	snap := job.snapshot()
	m.mu.Unlock()

	m.logger.Debug("job %s queued (%s, %d run(s))", job.ID, job.Kind, len(job.Requests))
	m.publish(snap)
	return snap, nil
}

// Get returns a job by ID
func (m *Manager) Get(id core.ID) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, errors.NotFound("job " + id.String())
	}
	return job.snapshot(), nil
}

// List returns jobs in submission order, optionally only those in state
func (m *Manager) List(state State) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if state == "" || job.State == state {
			out = append(out, job.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Cancel stops a queued or running job. A running sequential experiment only
// observes cancellation before it starts drawing, so its result is discarded
// rather than interrupted.
func (m *Manager) Cancel(id core.ID) (Job, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return Job{}, errors.NotFound("job " + id.String())
	}
	if job.State.Finished() {
		m.mu.Unlock()
		return Job{}, core.NewArgumentError("job", string(job.State), "queued or running")
	}

	if job.cancel != nil {
		job.cancel()
	}
	m.finish(job, StateCancelled, nil, "cancelled")
	snap := job.snapshot()
	m.mu.Unlock()

	m.logger.Info("job %s cancelled", id)
	m.publish(snap)
	return snap, nil
}

// Cleanup drops finished jobs that finished more than maxAge ago
func (m *Manager) Cleanup(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if job.State.Finished() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) workerLoop(ctx context.Context, workerID int) {
	defer m.wg.Done()
	m.logger.Debug("👷 worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("worker %d stopped", workerID)
			return
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	defer m.wg.Done()

	interval := m.cfg.Retention / 4
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval <= 0 {
		interval = m.cfg.Retention
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Cleanup(m.cfg.Retention); removed > 0 {
				m.logger.Info("🧹 Cleaned up %d finished jobs", removed)
			}
		}
	}
}

func (m *Manager) process(ctx context.Context, id core.ID) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.State != StateQueued {
		m.mu.Unlock()
		return
	}
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	job.cancel = cancel
	job.State = StateRunning
	started := m.now()
	job.StartedAt = &started
	kind, key := job.Kind, job.SeedKey
	reqs := append([]app.ExperimentRequest(nil), job.Requests...)
	snap := job.snapshot()
	m.mu.Unlock()

	m.publish(snap)

	var reports []*run.Report
	var err error
	switch kind {
	case KindBatch:
		reports, err = m.runner.Batch(jobCtx, key, reqs)
	default:
		var report *run.Report
		if report, err = m.runner.Run(jobCtx, reqs[0]); err == nil {
			reports = []*run.Report{report}
		}
	}

	m.mu.Lock()
	if job.State != StateRunning {
		// cancelled while running
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.logger.Error("job %s failed: %v", id, err)
		m.finish(job, StateFailed, nil, err.Error())
	} else {
		m.logger.Info("job %s completed with %d report(s) in %v", id, len(reports), m.now().Sub(started))
		m.finish(job, StateCompleted, reports, "")
	}
	snap = job.snapshot()
	m.mu.Unlock()

	m.publish(snap)
}

// finish moves job to a terminal state; callers hold m.mu
func (m *Manager) finish(job *Job, state State, reports []*run.Report, msg string) {
	finished := m.now()
	job.State = state
	job.Reports = reports
	job.Error = msg
	job.FinishedAt = &finished
	job.cancel = nil
}

func (m *Manager) publish(job Job) {
	m.hub.Broadcast(Event{
		JobID:     job.ID,
		State:     job.State,
		Error:     job.Error,
		Timestamp: m.now(),
	})
}
