package task

import (
	"context"
	"errors"
)

// Common queue errors
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Handler processes one task ID taken off a queue.
type Handler func(ctx context.Context, taskID string) error

// Producer publishes task IDs.
type Producer interface {
	Publish(ctx context.Context, taskID string) error
	Close() error
}

// Consumer feeds task IDs to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue is both ends of a task queue.
type Queue interface {
	Producer
	Consumer
}
