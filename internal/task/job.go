package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/google/uuid"
)

// ExtractionJob is the payload of a batch extraction task.
type ExtractionJob struct {
	Kind  batch.Kind `json:"kind"`
	Limit int        `json:"limit,omitempty"`
	Force bool       `json:"force,omitempty"`
}

// BatchRunner runs batch extraction. *batch.Runner satisfies it.
type BatchRunner interface {
	Run(ctx context.Context, kind batch.Kind, opts batch.Options) (*batch.Summary, error)
}

// ExtractionTask runs one ExtractionJob.
type ExtractionTask struct {
	id      uuid.UUID
	job     ExtractionJob
	payload []byte
	status  TaskStatus

	runner  BatchRunner
	options func(batch.Kind) batch.Options
	logger  *slog.Logger
}

// ID implements Task
func (t *ExtractionTask) ID() uuid.UUID { return t.id }

// Type implements Task
func (t *ExtractionTask) Type() string { return TaskTypeExtraction }

// Payload implements Task
func (t *ExtractionTask) Payload() []byte { return t.payload }

// Status implements Task
func (t *ExtractionTask) Status() TaskStatus { return t.status }

// Job returns the job the task runs.
func (t *ExtractionTask) Job() ExtractionJob { return t.job }

// Execute runs the batch. Items that fail individually are recorded on the
// announcements and do not fail the task; only a run that could not finish
// does.
func (t *ExtractionTask) Execute(ctx context.Context) error {
	opts := t.options(t.job.Kind)
	opts.Limit = t.job.Limit
	opts.Force = t.job.Force

	summary, err := t.runner.Run(ctx, t.job.Kind, opts)
	if err != nil {
		return fmt.Errorf("batch %s: %w", t.job.Kind, err)
	}
	t.logger.InfoContext(ctx, "extraction job finished",
		slog.String("task_id", t.id.String()),
		slog.String("kind", string(t.job.Kind)),
		slog.Int("processed", summary.Processed),
		slog.Int("failed", summary.Failed))
	return nil
}

// ExtractionTaskFactory creates extraction tasks bound to a batch runner.
type ExtractionTaskFactory struct {
	runner  BatchRunner
	options func(batch.Kind) batch.Options
	logger  *slog.Logger
}

// NewExtractionTaskFactory creates a factory. options supplies the pacing
// for each kind, usually batch.OptionsFromConfig.
func NewExtractionTaskFactory(
	runner BatchRunner,
	options func(batch.Kind) batch.Options,
	logger *slog.Logger,
) *ExtractionTaskFactory {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if options == nil {
		panic("options cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionTaskFactory{
		runner:  runner,
		options: options,
		logger:  logger.With(slog.String("component", "extraction_task")),
	}
}

// CreateTask creates a new pending task for job.
func (f *ExtractionTaskFactory) CreateTask(job ExtractionJob) (*ExtractionTask, error) {
	if _, err := batch.ParseKind(string(job.Kind)); err != nil {
		return nil, err
	}
	if job.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative: %d", job.Limit)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return f.build(uuid.New(), job, payload, TaskStatusPending), nil
}

// Rebuild is the Factory for TaskTypeExtraction.
func (f *ExtractionTaskFactory) Rebuild(stored Task) (Task, error) {
	var job ExtractionJob
	if err := json.Unmarshal(stored.Payload(), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", stored.ID(), err)
	}
	if _, err := batch.ParseKind(string(job.Kind)); err != nil {
		return nil, err
	}
	return f.build(stored.ID(), job, stored.Payload(), stored.Status()), nil
}

func (f *ExtractionTaskFactory) build(id uuid.UUID, job ExtractionJob, payload []byte, status TaskStatus) *ExtractionTask {
	return &ExtractionTask{
		id:      id,
		job:     job,
		payload: payload,
		status:  status,
		runner:  f.runner,
		options: f.options,
		logger:  f.logger,
	}
}
