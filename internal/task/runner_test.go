package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockTaskType = "mock_task"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mockFactory rebuilds stored tasks as MockTasks that run execute.
func mockFactory(execute func(ctx context.Context, id uuid.UUID) error) Factory {
	return func(stored Task) (Task, error) {
		task := NewMockTask(stored.ID(), stored.Type(), stored.Payload())
		task.ExecuteFn = func(ctx context.Context) error { return execute(ctx, stored.ID()) }
		return task, nil
	}
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Parallel()

	t.Run("saves and publishes", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		queue := NewMemoryQueue(4, discardLogger())
		runner := NewTaskRunner(store, queue, nil, DefaultTaskRunnerConfig(), discardLogger())

		task := NewMockTask(uuid.New(), mockTaskType, []byte(`{}`))
		require.NoError(t, runner.Submit(context.Background(), task))

		record := store.Record(task.ID())
		require.NotNil(t, record)
		assert.Equal(t, TaskStatusPending, record.TaskStatus)
		assert.Equal(t, 1, queue.Len())
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		store.SaveFn = func(ctx context.Context, task Task) error {
			return errors.New("mock store error")
		}
		queue := NewMemoryQueue(4, discardLogger())
		runner := NewTaskRunner(store, queue, nil, DefaultTaskRunnerConfig(), discardLogger())

		err := runner.Submit(context.Background(), NewMockTask(uuid.New(), mockTaskType, nil))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save task")
		assert.Equal(t, 0, queue.Len())
	})

	t.Run("queue full leaves task pending", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		queue := NewMemoryQueue(1, discardLogger())
		runner := NewTaskRunner(store, queue, nil, DefaultTaskRunnerConfig(), discardLogger())

		require.NoError(t, runner.Submit(context.Background(), NewMockTask(uuid.New(), mockTaskType, nil)))
		second := NewMockTask(uuid.New(), mockTaskType, nil)
		err := runner.Submit(context.Background(), second)

		require.ErrorIs(t, err, ErrQueueFull)
		record := store.Record(second.ID())
		require.NotNil(t, record)
		assert.Equal(t, TaskStatusPending, record.TaskStatus)
	})

	t.Run("start without consumer", func(t *testing.T) {
		t.Parallel()

		runner := NewTaskRunner(NewMockTaskStore(), NewMemoryQueue(1, nil), nil, DefaultTaskRunnerConfig(), nil)
		assert.Error(t, runner.Start(context.Background()))
	})
}

func TestTaskRunner_Process(t *testing.T) {
	t.Parallel()

	newRunner := func() (*TaskRunner, *MockTaskStore) {
		store := NewMockTaskStore()
		runner := NewTaskRunner(store, NewMemoryQueue(8, nil), nil, DefaultTaskRunnerConfig(), discardLogger())
		return runner, store
	}

	t.Run("completes", func(t *testing.T) {
		t.Parallel()

		runner, store := newRunner()
		var statusDuringRun TaskStatus
		runner.Register(mockTaskType, mockFactory(func(ctx context.Context, id uuid.UUID) error {
			statusDuringRun = store.Record(id).TaskStatus
			return nil
		}))

		task := NewMockTask(uuid.New(), mockTaskType, nil)
		require.NoError(t, store.SaveTask(context.Background(), task))

		require.NoError(t, runner.Process(context.Background(), task.ID().String()))

		assert.Equal(t, TaskStatusProcessing, statusDuringRun)
		assert.Equal(t, TaskStatusCompleted, store.Record(task.ID()).TaskStatus)
	})

	t.Run("execution failure", func(t *testing.T) {
		t.Parallel()

		runner, store := newRunner()
		var handled []uuid.UUID
		runner.SetErrorHandler(func(task Task, err error) {
			handled = append(handled, task.ID())
		})
		runner.Register(mockTaskType, mockFactory(func(context.Context, uuid.UUID) error {
			return errors.New("boom")
		}))

		task := NewMockTask(uuid.New(), mockTaskType, nil)
		require.NoError(t, store.SaveTask(context.Background(), task))

		err := runner.Process(context.Background(), task.ID().String())

		require.Error(t, err)
		record := store.Record(task.ID())
		assert.Equal(t, TaskStatusFailed, record.TaskStatus)
		assert.NotEmpty(t, record.ErrorMessage)
		assert.Equal(t, []uuid.UUID{task.ID()}, handled)
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		runner, store := newRunner()
		runner.SetErrorHandler(func(Task, error) {})
		task := NewMockTask(uuid.New(), "unregistered", nil)
		require.NoError(t, store.SaveTask(context.Background(), task))

		err := runner.Process(context.Background(), task.ID().String())

		require.ErrorIs(t, err, ErrUnknownTaskType)
		assert.Equal(t, TaskStatusFailed, store.Record(task.ID()).TaskStatus)
	})

	t.Run("skips tasks that are not pending", func(t *testing.T) {
		t.Parallel()

		runner, store := newRunner()
		called := false
		runner.Register(mockTaskType, mockFactory(func(context.Context, uuid.UUID) error {
			called = true
			return nil
		}))

		task := NewMockTask(uuid.New(), mockTaskType, nil)
		task.TaskStatus = TaskStatusCompleted
		require.NoError(t, store.SaveTask(context.Background(), task))

		require.NoError(t, runner.Process(context.Background(), task.ID().String()))
		assert.False(t, called)
	})

	t.Run("invalid and missing ids", func(t *testing.T) {
		t.Parallel()

		runner, _ := newRunner()
		assert.Error(t, runner.Process(context.Background(), "not-a-uuid"))
		assert.Error(t, runner.Process(context.Background(), uuid.NewString()))
	})
}

func TestTaskRunner_Recover(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	queue := NewMemoryQueue(8, nil)
	runner := NewTaskRunner(store, queue, queue, DefaultTaskRunnerConfig(), discardLogger())

	pending := NewMockTask(uuid.New(), mockTaskType, nil)
	processing := NewMockTask(uuid.New(), mockTaskType, nil)
	processing.TaskStatus = TaskStatusProcessing
	completed := NewMockTask(uuid.New(), mockTaskType, nil)
	completed.TaskStatus = TaskStatusCompleted
	for _, task := range []*MockTask{pending, processing, completed} {
		require.NoError(t, store.SaveTask(context.Background(), task))
	}

	require.NoError(t, runner.Recover(context.Background()))

	assert.Equal(t, 2, queue.Len())
	assert.Equal(t, TaskStatusPending, store.Record(processing.ID()).TaskStatus)
	assert.Equal(t, TaskStatusCompleted, store.Record(completed.ID()).TaskStatus)
}

func TestTaskRunner_StartAndStop(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	queue := NewMemoryQueue(8, nil)
	config := DefaultTaskRunnerConfig()
	config.WorkerCount = 2
	runner := NewTaskRunner(store, queue, queue, config, discardLogger())

	var executed atomic.Int32
	var wg sync.WaitGroup
	runner.Register(mockTaskType, mockFactory(func(context.Context, uuid.UUID) error {
		executed.Add(1)
		wg.Done()
		return nil
	}))

	// Saved before Start, so Recover publishes it.
	early := NewMockTask(uuid.New(), mockTaskType, nil)
	require.NoError(t, store.SaveTask(context.Background(), early))
	wg.Add(3)

	require.NoError(t, runner.Start(context.Background()))
	for i := 0; i < 2; i++ {
		require.NoError(t, runner.Submit(context.Background(), NewMockTask(uuid.New(), mockTaskType, nil)))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks were not processed in time")
	}

	runner.Stop()
	assert.Equal(t, int32(3), executed.Load())
	assert.Eventually(t, func() bool {
		return store.Record(early.ID()).TaskStatus == TaskStatusCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestTaskRunner_StuckTasks(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	queue := NewMemoryQueue(8, nil)
	config := TaskRunnerConfig{
		WorkerCount:            1,
		StuckTaskAge:           time.Minute,
		StuckTaskCheckInterval: 20 * time.Millisecond,
	}
	runner := NewTaskRunner(store, queue, queue, config, discardLogger())
	runner.Register(mockTaskType, mockFactory(func(context.Context, uuid.UUID) error { return nil }))

	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	// A task another worker claimed long ago and never finished.
	stuck := NewMockTask(uuid.New(), mockTaskType, nil)
	stuck.TaskStatus = TaskStatusProcessing
	require.NoError(t, store.SaveTask(context.Background(), stuck))
	store.SetUpdatedAt(stuck.ID(), time.Now().Add(-time.Hour))

	assert.Eventually(t, func() bool {
		return store.Record(stuck.ID()).TaskStatus == TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
