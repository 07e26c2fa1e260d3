package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryQueue is an in-process buffered queue. Publishing never blocks: a
// full queue is an error, so callers can report back-pressure.
type MemoryQueue struct {
	ids    chan string
	mu     sync.Mutex
	closed bool
	logger *slog.Logger
}

// NewMemoryQueue creates a queue with the given buffer size.
func NewMemoryQueue(size int, logger *slog.Logger) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryQueue{
		ids:    make(chan string, size),
		logger: logger.With(slog.String("component", "memory_queue")),
	}
}

// Publish implements Producer
func (q *MemoryQueue) Publish(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.ids <- taskID:
		q.logger.Debug("task enqueued",
			"task_id", taskID,
			"queue_len", len(q.ids),
			"queue_cap", cap(q.ids))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.ids))
	}
}

// Consume implements Consumer. It blocks until ctx is done and every worker
// has returned.
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	pool := NewWorkerPool(q.ids, handler, WorkerPoolConfig{WorkerCount: workerCount}, q.logger)
	pool.Start(ctx)
	<-ctx.Done()
	pool.Stop()
	return ctx.Err()
}

// Close implements Producer and Consumer
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ids)
		q.logger.Info("task queue closed")
	}
	return nil
}

// Len returns the number of queued IDs.
func (q *MemoryQueue) Len() int {
	return len(q.ids)
}
