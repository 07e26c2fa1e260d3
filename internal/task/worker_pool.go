package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool manages a pool of worker goroutines that hand task IDs from a
// channel to a handler. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// ids provides the task IDs to be processed
	ids <-chan string

	// handler processes one ID
	handler Handler

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// cancel stops the workers started by Start
	cancel context.CancelFunc

	logger *slog.Logger

	// errorHandler is called when a handler fails. If nil, errors are only
	// logged.
	errorHandler func(taskID string, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(ids <-chan string, handler Handler, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	return &WorkerPool{
		ids:         ids,
		handler:     handler,
		workerCount: workerCount,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for handler failures
func (p *WorkerPool) SetErrorHandler(handler func(taskID string, err error)) {
	p.errorHandler = handler
}

// Start launches the workers. They stop when ctx is done, Stop is called
// or the channel is closed.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop cancels the workers and waits for the running handlers to return.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case taskID, ok := <-p.ids:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			if err := p.handler(ctx, taskID); err != nil {
				p.logger.Error("task handler failed", "worker_id", id, "task_id", taskID, "error", err)
				if p.errorHandler != nil {
					p.errorHandler(taskID, err)
				}
			}
		}
	}
}
