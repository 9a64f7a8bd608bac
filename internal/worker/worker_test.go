package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/metrics"
	"github.com/toolsascode/shift/internal/migrator"
	"github.com/toolsascode/shift/internal/queue"
	"github.com/toolsascode/shift/internal/queue/memory"
)

type fakeRunner struct {
	mu         sync.Mutex
	migrateErr error
	targets    []string
	executedBy string
	method     string
	dryRuns    []string
}

func (f *fakeRunner) Migrate(ctx context.Context, target string) (*migrator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	f.executedBy, f.method, _ = executor.GetExecutionContext(ctx)
	if f.migrateErr != nil {
		return &migrator.Result{Applied: []string{"20240101000000_a"}}, f.migrateErr
	}
	return &migrator.Result{Applied: []string{"20240101000000_a", "20240102000000_b"}}, nil
}

func (f *fakeRunner) DryRun(_ context.Context, target string, _ migrator.ScriptOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dryRuns = append(f.dryRuns, target)
	return "-- plan to " + target, nil
}

func TestProcessJob_Migrates(t *testing.T) {
	runner := &fakeRunner{}
	collector := metrics.New("test")
	results := NewResults()
	w := NewWorker(runner, memory.NewQueue(1), results, collector)

	job := queue.NewJob("20240102000000_b")
	job.ExecutedBy = "deploy-bot"

	result, err := w.ProcessJob(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, []string{"20240101000000_a", "20240102000000_b"}, result.Applied)
	assert.Equal(t, []string{"20240102000000_b"}, runner.targets)
	assert.Equal(t, "deploy-bot", runner.executedBy)
	assert.Equal(t, "queue", runner.method)

	status, ok := results.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusSucceeded, status.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.JobsProcessed.WithLabelValues("success")))
}

func TestProcessJob_Failure(t *testing.T) {
	runner := &fakeRunner{migrateErr: errors.New("boom")}
	collector := metrics.New("test")
	results := NewResults()
	w := NewWorker(runner, memory.NewQueue(1), results, collector)

	job := queue.NewJob("")
	result, err := w.ProcessJob(context.Background(), job)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"20240101000000_a"}, result.Applied)
	assert.Equal(t, []string{"boom"}, result.Errors)
	assert.Equal(t, "system", runner.executedBy)

	status, _ := results.Get(job.ID)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.JobsProcessed.WithLabelValues("error")))
}

func TestProcessJob_DryRunRendersPlan(t *testing.T) {
	runner := &fakeRunner{}
	w := NewWorker(runner, memory.NewQueue(1), nil, nil)

	job := queue.NewJob("20240102000000_b")
	job.DryRun = true
	result, err := w.ProcessJob(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102000000_b"}, runner.dryRuns)
	assert.Equal(t, "-- plan to 20240102000000_b", result.Script)
	assert.Empty(t, runner.targets)
}

func TestStartConsumesUntilStopped(t *testing.T) {
	runner := &fakeRunner{}
	q := memory.NewQueue(4)
	results := NewResults()
	w := NewWorker(runner, q, results, nil)

	job := queue.NewJob("")
	results.Queued(job.ID)
	status, _ := results.Get(job.ID)
	assert.Equal(t, StatusQueued, status.Status)

	require.NoError(t, q.PublishJob(context.Background(), job))

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	assert.Eventually(t, func() bool {
		s, ok := results.Get(job.ID)
		return ok && s.Status == StatusSucceeded
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestResults_NilIsSafe(t *testing.T) {
	var r *Results
	r.Queued("x")
	_, ok := r.Get("x")
	assert.False(t, ok)
}
