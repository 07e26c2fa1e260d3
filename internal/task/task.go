package task

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeExtraction runs a batch extraction over pending announcements.
	TaskTypeExtraction = "batch_extraction"
)

// ErrNotExecutable is returned by a Record that was not turned back into a
// runnable task.
var ErrNotExecutable = errors.New("task record has no execution logic")

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// Record is a task as stored. It carries the payload but not the logic;
// a Factory registered for its type turns it back into a runnable Task.
type Record struct {
	TaskID       uuid.UUID
	TaskType     string
	TaskPayload  []byte
	TaskStatus   TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ID implements Task
func (r *Record) ID() uuid.UUID { return r.TaskID }

// Type implements Task
func (r *Record) Type() string { return r.TaskType }

// Payload implements Task
func (r *Record) Payload() []byte { return r.TaskPayload }

// Status implements Task
func (r *Record) Status() TaskStatus { return r.TaskStatus }

// Execute implements Task. Records are data only.
func (r *Record) Execute(context.Context) error { return ErrNotExecutable }

// Factory rebuilds a runnable task from its stored form.
type Factory func(stored Task) (Task, error)

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task to the database
	SaveTask(ctx context.Context, task Task) error

	// GetTask loads one task. It returns store.ErrNotFound for unknown IDs.
	GetTask(ctx context.Context, taskID uuid.UUID) (Task, error)

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
