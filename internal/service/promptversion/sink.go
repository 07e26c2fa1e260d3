package promptversion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/store"
)

// UsageSink stores prompt usage entries.
type UsageSink interface {
	Record(ctx context.Context, entry *domain.PromptUsageLog) error
}

type discardSink struct{}

func (discardSink) Record(context.Context, *domain.PromptUsageLog) error { return nil }

// StoreSink writes entries synchronously to a UsageLogStore.
type StoreSink struct {
	logs store.UsageLogStore
}

// NewStoreSink creates a sink backed by logs.
func NewStoreSink(logs store.UsageLogStore) *StoreSink {
	return &StoreSink{logs: logs}
}

// Record implements UsageSink.
func (s *StoreSink) Record(ctx context.Context, entry *domain.PromptUsageLog) error {
	return s.logs.Create(ctx, entry)
}

// DefaultRecordTimeout bounds a single background write.
const DefaultRecordTimeout = 5 * time.Second

// AsyncSink hands entries to another sink on a background goroutine. Record
// never blocks on the write and never returns an error; failed writes are
// logged. Entries outlive the request context that produced them.
type AsyncSink struct {
	next    UsageSink
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewAsyncSink wraps next.
func NewAsyncSink(next UsageSink, logger *slog.Logger) *AsyncSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncSink{
		next:    next,
		timeout: DefaultRecordTimeout,
		logger:  logger.With(slog.String("component", "prompt_usage_sink")),
	}
}

// Record implements UsageSink.
func (a *AsyncSink) Record(ctx context.Context, entry *domain.PromptUsageLog) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Record(writeCtx, entry); err != nil {
			a.logger.Warn("prompt usage entry dropped",
				slog.String("prompt_version_id", entry.PromptVersionID.String()),
				slog.String("error", redact.Error(err)))
		}
	}()
	return nil
}

// Wait blocks until every pending write has finished.
func (a *AsyncSink) Wait() {
	a.wg.Wait()
}
