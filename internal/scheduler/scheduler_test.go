package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestRegisterTask(t *testing.T) {
	s := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "b", Name: "B", Cron: "0 4 * * *", Func: noop}))
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "a", Name: "A", Cron: "*/10 * * * *", Func: noop}))

	assert.Error(t, s.RegisterTask(TaskConfig{ID: "a", Cron: "* * * * *", Func: noop}), "duplicate id")
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "c", Cron: "not a cron", Func: noop}))
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "d", Cron: "* * * * *"}), "missing func")

	tasks := s.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler(t)
	var runs atomic.Int32
	boom := errors.New("boom")

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "ok", Cron: "0 4 * * *", Func: func(context.Context) error {
		runs.Add(1)
		return nil
	}}))
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "fails", Cron: "0 4 * * *", Func: func(context.Context) error {
		return boom
	}}))

	require.NoError(t, s.RunNow("ok"))
	assert.Equal(t, int32(1), runs.Load())

	assert.ErrorIs(t, s.RunNow("fails"), boom)
	info, err := s.GetTask("fails")
	require.NoError(t, err)
	assert.Equal(t, "boom", info.LastError)
	assert.NotNil(t, info.LastRun)

	assert.Error(t, s.RunNow("missing"))
}

func TestRegisterTaskDefaultsNameToID(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "unnamed", Cron: "0 4 * * *", Func: func(context.Context) error { return nil }}))

	info, err := s.GetTask("unnamed")
	require.NoError(t, err)
	assert.Equal(t, "unnamed", info.Name)
}

func TestStartRunsStartupTasks(t *testing.T) {
	s := newTestScheduler(t)
	done := make(chan struct{})

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:         "startup",
		Cron:       "0 4 * * *",
		RunOnStart: true,
		Func: func(context.Context) error {
			close(done)
			return nil
		},
	}))
	s.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("startup task did not run")
	}
}
