package jobs

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/app"
	"gopi/domain/core"
	"gopi/domain/run"
	"gopi/internal"
	"gopi/internal/config"
	"gopi/internal/errors"
	"gopi/internal/testkit"
)

// gatedRunner blocks every run until release is closed
type gatedRunner struct {
	release chan struct{}
	started chan string

	mu      sync.Mutex
	batches [][]uint32
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{release: make(chan struct{}), started: make(chan string, 16)}
}

func (r *gatedRunner) Check(req app.ExperimentRequest) error {
	if req.Trials == 1 {
		return core.NewArgumentError("trials", 1, ">= 2")
	}
	return nil
}

// CheckBatch accepts at most three runs
func (r *gatedRunner) CheckBatch(key []uint32, reqs []app.ExperimentRequest) error {
	if len(reqs) == 0 {
		return core.NewArgumentError("runs", "[]", "non-empty")
	}
	if len(reqs) > 3 {
		return core.NewResourceError("runs", len(reqs), 3)
	}
	for _, req := range reqs {
		if err := r.Check(req); err != nil {
			return err
		}
	}
	return nil
}

func (r *gatedRunner) Run(ctx context.Context, req app.ExperimentRequest) (*run.Report, error) {
	r.started <- "run"
	<-r.release
	if req.Trials == 99 {
		return nil, core.NewResourceError("trials", 99, 50)
	}
	return testkit.FixedReport(), nil
}

func (r *gatedRunner) Batch(ctx context.Context, key []uint32, reqs []app.ExperimentRequest) ([]*run.Report, error) {
	r.started <- "batch"
	<-r.release
	r.mu.Lock()
	r.batches = append(r.batches, key)
	r.mu.Unlock()
	out := make([]*run.Report, len(reqs))
	for i := range reqs {
		out[i] = testkit.FixedReport()
	}
	return out, nil
}

func silentLogger() *internal.Logger {
	l := internal.NewLogger(internal.LogLevelError)
	l.SetOutput(io.Discard)
	return l
}

func startManager(t *testing.T, runner Runner, cfg config.JobsConfig) *Manager {
	t.Helper()
	m := NewManager(runner, cfg, silentLogger())
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		m.Wait()
	})
	return m
}

func waitForState(t *testing.T, m *Manager, id core.ID, state State) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(id)
		return err == nil && job.State == state
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestManager_ExperimentLifecycle(t *testing.T) {
	runner := newGatedRunner()
	m := startManager(t, runner, config.JobsConfig{Workers: 1, QueueSize: 4})

	job, err := m.SubmitExperiment(app.ExperimentRequest{Trials: 3})
	require.NoError(t, err)
	assert.Equal(t, StateQueued, job.State)
	assert.Equal(t, KindExperiment, job.Kind)

	events, unsubscribe := m.Hub().Subscribe(job.ID)
	defer unsubscribe()

	<-runner.started
	waitForState(t, m, job.ID, StateRunning)
	close(runner.release)

	done := waitForState(t, m, job.ID, StateCompleted)
	require.Len(t, done.Reports, 1)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)
	assert.Empty(t, done.Error)

	var states []State
	for e := range events {
		states = append(states, e.State)
		if e.State.Finished() {
			break
		}
	}
	assert.Equal(t, StateCompleted, states[len(states)-1])
}

func TestManager_FailedJob(t *testing.T) {
	runner := newGatedRunner()
	close(runner.release)
	m := startManager(t, runner, config.JobsConfig{Workers: 1, QueueSize: 4})

	job, err := m.SubmitExperiment(app.ExperimentRequest{Trials: 99})
	require.NoError(t, err)

	failed := waitForState(t, m, job.ID, StateFailed)
	assert.Contains(t, failed.Error, "trials")
	assert.Empty(t, failed.Reports)
}

func TestManager_RejectsInvalidRequests(t *testing.T) {
	m := NewManager(newGatedRunner(), config.JobsConfig{Workers: 1, QueueSize: 1}, silentLogger())

	_, err := m.SubmitExperiment(app.ExperimentRequest{Trials: 1})
	assert.True(t, core.IsInvalidArgument(err))

	_, err = m.SubmitBatch(nil, nil)
	assert.True(t, core.IsInvalidArgument(err))

	_, err = m.SubmitBatch(nil, []app.ExperimentRequest{{Trials: 10}, {Trials: 1}})
	assert.True(t, core.IsInvalidArgument(err))

	_, err = m.SubmitBatch(nil, make([]app.ExperimentRequest, 4))
	assert.True(t, core.IsResourceExhausted(err))
	assert.Empty(t, m.List(""))
}

func TestManager_QueueFull(t *testing.T) {
	// not started, so nothing drains the queue
	m := NewManager(newGatedRunner(), config.JobsConfig{Workers: 1, QueueSize: 2}, silentLogger())

	for i := 0; i < 2; i++ {
		_, err := m.SubmitExperiment(app.ExperimentRequest{})
		require.NoError(t, err)
	}
	_, err := m.SubmitExperiment(app.ExperimentRequest{})
	assert.True(t, core.IsResourceExhausted(err))
	assert.Len(t, m.List(StateQueued), 2)
}

func TestManager_Batch(t *testing.T) {
	runner := newGatedRunner()
	close(runner.release)
	m := startManager(t, runner, config.JobsConfig{Workers: 2, QueueSize: 4})

	key := []uint32{7, 8}
	job, err := m.SubmitBatch(key, []app.ExperimentRequest{{Trials: 10}, {Trials: 20}})
	require.NoError(t, err)
	assert.Equal(t, KindBatch, job.Kind)

	done := waitForState(t, m, job.ID, StateCompleted)
	assert.Len(t, done.Reports, 2)
	assert.Equal(t, key, done.SeedKey)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, [][]uint32{key}, runner.batches)
}

func TestManager_Cancel(t *testing.T) {
	runner := newGatedRunner()
	m := startManager(t, runner, config.JobsConfig{Workers: 1, QueueSize: 4})

	running, err := m.SubmitExperiment(app.ExperimentRequest{})
	require.NoError(t, err)
	<-runner.started
	queued, err := m.SubmitExperiment(app.ExperimentRequest{})
	require.NoError(t, err)

	job, err := m.Cancel(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, job.State)

	job, err = m.Cancel(running.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, job.State)

	close(runner.release)

	// the cancelled running job keeps its state once the runner returns
	time.Sleep(20 * time.Millisecond)
	job, err = m.Get(running.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, job.State)
	assert.Empty(t, job.Reports)

	_, err = m.Cancel(running.ID)
	assert.True(t, core.IsInvalidArgument(err))

	_, err = m.Cancel(core.NewID())
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestManager_GetUnknown(t *testing.T) {
	m := NewManager(newGatedRunner(), config.JobsConfig{}, silentLogger())
	_, err := m.Get(core.ID("nope"))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestManager_Cleanup(t *testing.T) {
	runner := newGatedRunner()
	m := startManager(t, runner, config.JobsConfig{Workers: 1, QueueSize: 4})

	job, err := m.SubmitExperiment(app.ExperimentRequest{})
	require.NoError(t, err)
	events, unsubscribe := m.Hub().Subscribe(job.ID)
	defer unsubscribe()
	close(runner.release)

	// the completed event is published after the worker's last clock read
	for e := range events {
		if e.State == StateCompleted {
			break
		}
	}

	assert.Zero(t, m.Cleanup(time.Hour))
	assert.Len(t, m.List(""), 1)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, m.Cleanup(time.Hour))
	assert.Empty(t, m.List(""))
}

func TestManager_SweepsWithTinyRetention(t *testing.T) {
	runner := newGatedRunner()
	m := startManager(t, runner, config.JobsConfig{Workers: 1, QueueSize: 4, Retention: 3 * time.Nanosecond})

	job, err := m.SubmitExperiment(app.ExperimentRequest{})
	require.NoError(t, err)
	close(runner.release)

	require.Eventually(t, func() bool {
		_, err := m.Get(job.ID)
		return errors.GetCode(err) == errors.CodeNotFound
	}, 5*time.Second, 5*time.Millisecond)
}

func TestManager_ListOrder(t *testing.T) {
	m := NewManager(newGatedRunner(), config.JobsConfig{Workers: 1, QueueSize: 8}, silentLogger())

	var ids []core.ID
	for i := 0; i < 3; i++ {
		job, err := m.SubmitExperiment(app.ExperimentRequest{})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	list := m.List("")
	require.Len(t, list, 3)
	for i, job := range list {
		assert.Equal(t, ids[i], job.ID)
	}
	assert.Empty(t, m.List(StateRunning))
}
