package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/google/uuid"
)

// ErrUnknownTaskType is returned for tasks with no registered Factory.
var ErrUnknownTaskType = errors.New("unknown task type")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner persists tasks, publishes their IDs and, once started,
// consumes and executes them.
type TaskRunner struct {
	store     TaskStore
	producer  Producer
	consumer  Consumer
	factories map[string]Factory

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner. consumer may be nil for a
// process that only submits tasks.
func NewTaskRunner(
	store TaskStore,
	producer Producer,
	consumer Consumer,
	config TaskRunnerConfig,
	logger *slog.Logger,
) *TaskRunner {
	if store == nil {
		panic("store cannot be nil")
	}
	if producer == nil {
		panic("producer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With(slog.String("component", "task_runner"))

	return &TaskRunner{
		store:     store,
		producer:  producer,
		consumer:  consumer,
		factories: make(map[string]Factory),
		config:    config,
		logger:    logger,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", redact.Error(err))
		},
	}
}

// Register sets the Factory for a task type.
func (r *TaskRunner) Register(taskType string, f Factory) {
	r.factories[taskType] = f
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit saves the task, then publishes its ID. A task that was saved but
// could not be published stays pending and is picked up by Recover.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if err := r.producer.Publish(ctx, task.ID().String()); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	return nil
}

// Start recovers unfinished tasks and begins consuming.
func (r *TaskRunner) Start(ctx context.Context) error {
	if r.consumer == nil {
		return errors.New("task runner has no consumer")
	}
	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	ctx, r.cancelFunc = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.consumer.Consume(ctx, r.config.WorkerCount, r.Process); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("task consumer stopped", "error", redact.Error(err))
		}
	}()

	r.wg.Add(1)
	go r.stuckTaskMonitor(ctx)

	return nil
}

// Stop gracefully shuts down the task runner
func (r *TaskRunner) Stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.wg.Wait()
}

// Recover republishes pending tasks and resets tasks left processing by a
// previous run.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pendingTasks, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// All processing tasks regardless of age.
	processingTasks, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pendingTasks),
		"processing_count", len(processingTasks))

	for _, task := range pendingTasks {
		r.requeue(ctx, task)
	}
	for _, task := range processingTasks {
		if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
			continue
		}
		r.requeue(ctx, task)
	}
	return nil
}

func (r *TaskRunner) requeue(ctx context.Context, task Task) {
	if err := r.producer.Publish(ctx, task.ID().String()); err != nil {
		r.logger.Error("failed to requeue task",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
	}
}

// Process loads and executes one task. It is the queue Handler. Tasks that
// are no longer pending are ignored, so duplicate deliveries are harmless.
func (r *TaskRunner) Process(ctx context.Context, taskID string) error {
	id, err := uuid.Parse(taskID)
	if err != nil {
		return fmt.Errorf("invalid task id %q: %w", taskID, err)
	}

	stored, err := r.store.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", id, err)
	}
	logger := r.logger.With("task_id", id, "task_type", stored.Type())

	if stored.Status() != TaskStatusPending {
		logger.Debug("skipping task that is not pending", "status", stored.Status())
		return nil
	}

	factory, ok := r.factories[stored.Type()]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTaskType, stored.Type())
		r.fail(ctx, stored, err)
		return err
	}
	task, err := factory(stored)
	if err != nil {
		r.fail(ctx, stored, err)
		return err
	}

	if err := r.store.UpdateTaskStatus(ctx, id, TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return err
	}

	logger.Info("processing task")
	if err := task.Execute(ctx); err != nil {
		r.fail(ctx, task, err)
		return err
	}

	logger.Info("task completed successfully")
	if err := r.store.UpdateTaskStatus(ctx, id, TaskStatusCompleted, ""); err != nil {
		logger.Error("failed to update task status to completed", "error", err)
	}
	return nil
}

func (r *TaskRunner) fail(ctx context.Context, task Task, err error) {
	if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, redact.Error(err)); updateErr != nil {
		r.logger.Error("failed to update task status to failed",
			"task_id", task.ID(),
			"error", updateErr)
	}
	r.errHandler(task, err)
}

// stuckTaskMonitor periodically checks for tasks that have been in "processing"
// state for too long and resets them
func (r *TaskRunner) stuckTaskMonitor(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			stuckTasks, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}
			if len(stuckTasks) == 0 {
				continue
			}

			r.logger.Info("found stuck tasks", "count", len(stuckTasks))
			for _, task := range stuckTasks {
				if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusPending,
					"Reset after being stuck in processing state"); err != nil {
					r.logger.Error("failed to reset stuck task status",
						"task_id", task.ID(),
						"task_type", task.Type(),
						"error", err)
					continue
				}
				r.requeue(ctx, task)
			}
		}
	}
}
