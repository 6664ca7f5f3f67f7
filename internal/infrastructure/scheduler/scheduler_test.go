package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunDue(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

type countingTask struct {
	runs atomic.Int32
	err  error
}

func (t *countingTask) Name() string { return "counting" }

func (t *countingTask) Run(context.Context) error {
	t.runs.Add(1)
	return t.err
}

func TestReportScheduleTask_Run(t *testing.T) {
	t.Run("drains full batches", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("RunDue", mock.Anything, 2).Return(2, nil).Twice()
		runner.On("RunDue", mock.Anything, 2).Return(1, nil).Once()

		task := NewReportScheduleTask(runner, 2, zap.NewNop())
		require.NoError(t, task.Run(context.Background()))
		runner.AssertNumberOfCalls(t, "RunDue", 3)
	})

	t.Run("stops on error", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("RunDue", mock.Anything, 20).Return(0, errors.New("db down")).Once()

		task := NewReportScheduleTask(runner, 0, zap.NewNop())
		assert.EqualError(t, task.Run(context.Background()), "db down")
		runner.AssertExpectations(t)
	})
}

func TestScheduler_StartStop(t *testing.T) {
	task := &countingTask{}
	s := New(Config{PollInterval: 10 * time.Millisecond}, zap.NewNop(), task)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return task.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))

	stopped := task.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, task.runs.Load())
}

func TestScheduler_RunOnce(t *testing.T) {
	failing := &countingTask{err: errors.New("boom")}
	ok := &countingTask{}
	s := New(Config{}, zap.NewNop(), failing, ok)

	assert.EqualError(t, s.RunOnce(context.Background()), "boom")
	assert.Equal(t, int32(1), failing.runs.Load())
	assert.Equal(t, int32(1), ok.runs.Load(), "later tasks still run")
}

func TestScheduler_NoTasks(t *testing.T) {
	assert.ErrorIs(t, New(Config{}, zap.NewNop()).Start(context.Background()), ErrNoTasks)
}
