package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nodeforge/internal/assets"
	"github.com/rendis/nodeforge/internal/logging"
	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/pkg/schema"
)

// failingStore fails every listing.
type failingStore struct {
	JobStore
}

func (failingStore) ListScheduledJobs(context.Context, store.ScheduledJobFilter) ([]*store.ScheduledJob, error) {
	return nil, errors.New("db down")
}

type counter struct {
	calls atomic.Int32
	err   error
}

func (c *counter) run(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func newTestScheduler(s JobStore) *Scheduler {
	return NewScheduler(s, logging.NewNop())
}

func dueJob(t *testing.T, s *store.MemoryStore, id, task string) {
	t.Helper()
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateScheduledJob(context.Background(), &store.ScheduledJob{
		ID:             id,
		Task:           task,
		CronExpression: "*/5 * * * *",
		Enabled:        true,
		NextRunAt:      &past,
	}))
}

func getJob(t *testing.T, s *store.MemoryStore, id string) *store.ScheduledJob {
	t.Helper()
	j, err := s.GetScheduledJob(context.Background(), id)
	require.NoError(t, err)
	return j
}

func TestCalculateNextRun(t *testing.T) {
	sched := newTestScheduler(store.NewMemoryStore())
	from := time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC)

	next, err := sched.CalculateNextRun("0 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC), next)

	next, err = sched.CalculateNextRun("*/15 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 12, 45, 0, 0, time.UTC), next)

	_, err = sched.CalculateNextRun("not a cron", from)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestRegisterTask(t *testing.T) {
	sched := newTestScheduler(store.NewMemoryStore())
	c := &counter{}
	require.NoError(t, sched.RegisterTask("b.task", c.run))
	require.NoError(t, sched.RegisterTask("a.task", c.run))

	err := sched.RegisterTask("a.task", c.run)
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))
	err = sched.RegisterTask("", c.run)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
	err = sched.RegisterTask("c.task", nil)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	assert.Equal(t, []string{"a.task", "b.task"}, sched.Tasks())
}

func TestEnsureJob(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sched := newTestScheduler(st)

	require.NoError(t, sched.EnsureJob(ctx, "refresh", TaskAssetRefresh, "0 * * * *"))
	j := getJob(t, st, "refresh")
	assert.Equal(t, TaskAssetRefresh, j.Task)
	assert.True(t, j.Enabled)
	require.NotNil(t, j.NextRunAt)
	assert.True(t, j.NextRunAt.After(time.Now().UTC()))

	require.NoError(t, sched.EnsureJob(ctx, "refresh", TaskAssetRefresh, "0 * * * *"))
	assert.Equal(t, "0 * * * *", getJob(t, st, "refresh").CronExpression)

	require.NoError(t, sched.EnsureJob(ctx, "refresh", TaskAssetRefresh, "*/10 * * * *"))
	assert.Equal(t, "*/10 * * * *", getJob(t, st, "refresh").CronExpression)

	err := sched.EnsureJob(ctx, "broken", TaskAssetRefresh, "every day")
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestTick_RunsDueJobs(t *testing.T) {
	st := store.NewMemoryStore()
	sched := newTestScheduler(st)
	c := &counter{}
	require.NoError(t, sched.RegisterTask("t", c.run))

	dueJob(t, st, "due", "t")
	future := time.Now().UTC().Add(time.Hour)
	require.NoError(t, st.CreateScheduledJob(context.Background(), &store.ScheduledJob{
		ID: "later", Task: "t", CronExpression: "0 * * * *", Enabled: true, NextRunAt: &future,
	}))

	sched.tick(context.Background())

	assert.Equal(t, int32(1), c.calls.Load())
	j := getJob(t, st, "due")
	assert.Equal(t, "success", j.LastRunStatus)
	require.NotNil(t, j.LastRunAt)
	assert.True(t, j.NextRunAt.After(*j.LastRunAt))
	assert.Nil(t, getJob(t, st, "later").LastRunAt)
}

func TestTick_RecordsFailures(t *testing.T) {
	st := store.NewMemoryStore()
	sched := newTestScheduler(st)
	require.NoError(t, sched.RegisterTask("boom", (&counter{err: errors.New("boom")}).run))

	dueJob(t, st, "failing", "boom")
	dueJob(t, st, "orphan", "no.such.task")

	sched.tick(context.Background())

	assert.Equal(t, "error", getJob(t, st, "failing").LastRunStatus)
	assert.Equal(t, "error", getJob(t, st, "orphan").LastRunStatus)
}

func TestTick_SkipsInflightJobs(t *testing.T) {
	st := store.NewMemoryStore()
	sched := newTestScheduler(st)
	c := &counter{}
	require.NoError(t, sched.RegisterTask("t", c.run))
	dueJob(t, st, "busy", "t")

	require.True(t, sched.tryAcquire("busy"))
	sched.tick(context.Background())
	assert.Zero(t, c.calls.Load())

	sched.releaseJob("busy")
	sched.tick(context.Background())
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestTick_ListFailureIsLogged(t *testing.T) {
	sched := newTestScheduler(failingStore{})
	assert.NotPanics(t, func() { sched.tick(context.Background()) })
	assert.Error(t, sched.RecoverMissed(context.Background()))
}

func TestRecoverMissed(t *testing.T) {
	st := store.NewMemoryStore()
	sched := newTestScheduler(st)
	c := &counter{}
	require.NoError(t, sched.RegisterTask("t", c.run))
	dueJob(t, st, "missed", "t")

	require.NoError(t, sched.RecoverMissed(context.Background()))
	assert.Equal(t, int32(1), c.calls.Load())

	// The next run moved into the future, so a second pass is a no-op.
	require.NoError(t, sched.RecoverMissed(context.Background()))
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestStartStop(t *testing.T) {
	st := store.NewMemoryStore()
	sched := newTestScheduler(st)
	c := &counter{}
	require.NoError(t, sched.RegisterTask("t", c.run))
	dueJob(t, st, "j", "t")

	require.NoError(t, sched.Start(context.Background()))
	assert.Error(t, sched.Start(context.Background()))

	require.Eventually(t, func() bool { return c.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sched.Stop())
	require.NoError(t, sched.Stop())
}

func TestAssetRefreshTask(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.PutDocument(ctx, &store.DocumentRecord{Name: "BP_Door", ParentClass: "Actor", Body: []byte(`{"name":"BP_Door"}`)}))

	idx := assets.NewIndex(logging.NewNop())
	sched := newTestScheduler(st)
	require.NoError(t, sched.RegisterTask(TaskAssetRefresh, func(ctx context.Context) error {
		return idx.Refresh(ctx, st)
	}))
	dueJob(t, st, "refresh", TaskAssetRefresh)

	sched.tick(ctx)

	containers, blueprints := idx.Counts()
	assert.Positive(t, containers, "seed containers are always present")
	assert.Equal(t, 1, blueprints)
	assert.Equal(t, "success", getJob(t, st, "refresh").LastRunStatus)
}
