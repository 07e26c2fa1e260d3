// Package batch runs extraction over every pending announcement.
//
// Items are processed one at a time with a pause after each provider call
// and a longer pause between batches, which keeps free-tier vendor quotas
// intact. Every visited announcement is marked parsed, whatever the
// outcome, and the outcome itself is recorded as its parse status.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/choishiam0906/govhelper/internal/config"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// Kind names a batch job.
type Kind string

// Batch kinds
const (
	KindEligibility Kind = "eligibility"
	KindEvaluation  Kind = "evaluation"
	KindEmbedding   Kind = "embedding"
)

var (
	// ErrUnknownKind is returned for a kind the runner does not know.
	ErrUnknownKind = errors.New("unknown batch kind")

	// ErrNoEmbedder is returned for embedding runs on a runner built
	// without WithEmbedder.
	ErrNoEmbedder = errors.New("no embedder configured")
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindEligibility, KindEvaluation, KindEmbedding:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Outcome is how one item ended.
type Outcome string

// Item outcomes
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// Options control one run.
type Options struct {
	// Size is how many announcements are fetched per batch.
	Size int
	// Limit caps the number of items processed. Zero means no cap.
	Limit int
	// ItemDelay follows every item that called a provider.
	ItemDelay time.Duration
	// BatchDelay follows every full batch.
	BatchDelay time.Duration
	// MinContentLength is the shortest content, in characters, worth sending
	// to a provider. Shorter announcements are skipped.
	MinContentLength int
	// Force re-embeds announcements whose text is unchanged.
	Force bool
}

// OptionsFromConfig returns the configured pacing for kind.
func OptionsFromConfig(cfg config.BatchConfig, kind Kind) Options {
	opts := Options{
		Size:             cfg.Size,
		BatchDelay:       time.Duration(cfg.BatchDelayMS) * time.Millisecond,
		MinContentLength: cfg.MinContentLength,
	}
	switch kind {
	case KindEligibility:
		opts.ItemDelay = time.Duration(cfg.EligibilityDelayMS) * time.Millisecond
	case KindEvaluation:
		opts.ItemDelay = time.Duration(cfg.EvaluationDelayMS) * time.Millisecond
	case KindEmbedding:
		opts.ItemDelay = time.Duration(cfg.EmbeddingDelayMS) * time.Millisecond
	}
	return opts
}

// ItemResult reports one processed announcement.
type ItemResult struct {
	Kind           Kind
	AnnouncementID uuid.UUID
	Title          string
	Outcome        Outcome
	Detail         string
	Err            error
}

// Summary totals a run.
type Summary struct {
	Kind      Kind
	Processed int
	Succeeded int
	NotFound  int
	Skipped   int
	Unchanged int
	Failed    int
	Elapsed   time.Duration
}

func (s *Summary) add(r ItemResult) {
	s.Processed++
	switch r.Outcome {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeNotFound:
		s.NotFound++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeFailed:
		s.Failed++
	}
}

// Extractor parses announcements. *extraction.Service satisfies it.
type Extractor interface {
	ParseEligibility(ctx context.Context, title, targetCompany, content string) (*domain.EligibilityCriteria, error)
	ExtractEvaluation(ctx context.Context, title, content string) (*domain.EvaluationExtractionResult, error)
}

// Embedder stores announcement vectors. *embedding.Service satisfies it.
type Embedder interface {
	EmbedAnnouncement(ctx context.Context, a *domain.Announcement, force bool) (bool, error)
}

// Observer counts processed items.
type Observer interface {
	ObserveBatchItem(kind, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveBatchItem(string, string) {}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Runner executes batch runs.
type Runner struct {
	announcements store.AnnouncementStore
	extractor     Extractor
	embedder      Embedder
	observer      Observer
	progress      func(ItemResult)
	sleep         SleepFunc
	logger        *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithEmbedder enables embedding runs.
func WithEmbedder(e Embedder) Option {
	return func(r *Runner) { r.embedder = e }
}

// WithObserver reports item outcomes, typically to Prometheus.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithProgress is called after every item.
func WithProgress(fn func(ItemResult)) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithSleep replaces the pacing sleep.
func WithSleep(fn SleepFunc) Option {
	return func(r *Runner) { r.sleep = fn }
}

// NewRunner creates a Runner.
func NewRunner(announcements store.AnnouncementStore, extractor Extractor, logger *slog.Logger, opts ...Option) *Runner {
	if announcements == nil {
		panic("announcements cannot be nil")
	}
	if extractor == nil {
		panic("extractor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		announcements: announcements,
		extractor:     extractor,
		observer:      nopObserver{},
		progress:      func(ItemResult) {},
		sleep:         sleepContext,
		logger:        logger.With(slog.String("component", "batch_runner")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes announcements of kind until none are pending, the limit is
// reached or ctx is done. The summary is returned even when the run stops
// early.
func (r *Runner) Run(ctx context.Context, kind Kind, opts Options) (*Summary, error) {
	if opts.Size <= 0 {
		opts.Size = 5
	}
	if kind == KindEmbedding && r.embedder == nil {
		return nil, ErrNoEmbedder
	}

	log := logger.FromContextOrDefault(ctx, r.logger).With(slog.String("kind", string(kind)))
	start := time.Now()
	summary := &Summary{Kind: kind}

	log.Info("batch run started", slog.Int("batch_size", opts.Size), slog.Int("limit", opts.Limit))
	err := r.run(ctx, kind, opts, summary)
	summary.Elapsed = time.Since(start)

	attrs := []any{
		slog.Int("processed", summary.Processed),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("not_found", summary.NotFound),
		slog.Int("skipped", summary.Skipped),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed),
	}
	if err != nil {
		log.Warn("batch run stopped", append(attrs, slog.String("error", redact.Error(err)))...)
		return summary, err
	}
	log.Info("batch run finished", attrs...)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, kind Kind, opts Options, summary *Summary) error {
	if kind == KindEmbedding {
		return r.runEmbedding(ctx, opts, summary)
	}

	seen := make(map[uuid.UUID]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		size := opts.Size
		if opts.Limit > 0 {
			size = min(size, opts.Limit-summary.Processed)
		}
		if size <= 0 {
			return nil
		}

		batch, err := r.pending(ctx, kind, size)
		if err != nil {
			return fmt.Errorf("list pending %s: %w", kind, err)
		}

		fresh := batch[:0]
		for _, a := range batch {
			if !seen[a.ID] {
				seen[a.ID] = true
				fresh = append(fresh, a)
			}
		}
		if len(fresh) == 0 {
			if len(batch) > 0 {
				logger.FromContextOrDefault(ctx, r.logger).Warn("pending announcements did not advance, stopping",
					slog.String("kind", string(kind)), slog.Int("stuck", len(batch)))
			}
			return nil
		}

		if err := r.processBatch(ctx, kind, fresh, opts, summary); err != nil {
			return err
		}

		if len(batch) < size {
			return nil
		}
		if err := r.sleep(ctx, opts.BatchDelay); err != nil {
			return err
		}
	}
}

func (r *Runner) pending(ctx context.Context, kind Kind, limit int) ([]*domain.Announcement, error) {
	switch kind {
	case KindEligibility:
		return r.announcements.ListPendingEligibility(ctx, limit)
	case KindEvaluation:
		return r.announcements.ListPendingEvaluation(ctx, limit)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// runEmbedding walks the active announcements once. Unchanged texts are
// skipped by hash, so there is no pending flag to loop on.
func (r *Runner) runEmbedding(ctx context.Context, opts Options, summary *Summary) error {
	active, err := r.announcements.ListActive(ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("list active announcements: %w", err)
	}

	for i := 0; i < len(active); i += opts.Size {
		end := min(i+opts.Size, len(active))
		if err := r.processBatch(ctx, KindEmbedding, active[i:end], opts, summary); err != nil {
			return err
		}
		if end < len(active) {
			if err := r.sleep(ctx, opts.BatchDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) processBatch(ctx context.Context, kind Kind, batch []*domain.Announcement, opts Options, summary *Summary) error {
	for _, a := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, called := r.process(ctx, kind, a, opts)
		summary.add(res)
		r.observer.ObserveBatchItem(string(kind), string(res.Outcome))
		r.progress(res)

		if called {
			if err := r.sleep(ctx, opts.ItemDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// process handles one announcement and reports whether a provider was
// called.
func (r *Runner) process(ctx context.Context, kind Kind, a *domain.Announcement, opts Options) (ItemResult, bool) {
	res := ItemResult{Kind: kind, AnnouncementID: a.ID, Title: a.Title}
	log := logger.FromContextOrDefault(ctx, r.logger).With(
		slog.String("kind", string(kind)),
		slog.String("announcement_id", a.ID.String()))

	if kind == KindEmbedding {
		changed, err := r.embedder.EmbedAnnouncement(ctx, a, opts.Force)
		switch {
		case err != nil:
			res.Outcome, res.Err = OutcomeFailed, err
			log.Error("embedding failed", slog.String("error", redact.Error(err)))
		case changed:
			res.Outcome = OutcomeSucceeded
		default:
			res.Outcome = OutcomeUnchanged
		}
		return res, changed || err != nil
	}

	content := a.AnalysisContent()
	if n := utf8.RuneCountInString(content); n < opts.MinContentLength {
		res.Outcome = OutcomeSkipped
		res.Detail = fmt.Sprintf("content too short: %d chars", n)
		r.save(ctx, kind, a.ID, nil, domain.ParseStatusSkipped, &res)
		return res, false
	}

	switch kind {
	case KindEligibility:
		criteria, err := r.extractor.ParseEligibility(ctx, a.Title, a.TargetCompany, content)
		if err != nil {
			res.Outcome, res.Err = OutcomeFailed, err
			r.save(ctx, kind, a.ID, nil, domain.ParseStatusFailed, &res)
			return res, true
		}
		res.Outcome = OutcomeSucceeded
		res.Detail = fmt.Sprintf("confidence %.0f%%", criteria.Confidence*100)
		r.save(ctx, kind, a.ID, criteria, domain.ParseStatusSucceeded, &res)

	case KindEvaluation:
		result, err := r.extractor.ExtractEvaluation(ctx, a.Title, content)
		switch {
		case err != nil:
			res.Outcome, res.Err = OutcomeFailed, err
			r.save(ctx, kind, a.ID, nil, domain.ParseStatusFailed, &res)
		case !result.Success:
			res.Outcome = OutcomeNotFound
			res.Detail = result.Error
			r.save(ctx, kind, a.ID, nil, domain.ParseStatusSucceeded, &res)
		default:
			c := result.Criteria
			res.Outcome = OutcomeSucceeded
			res.Detail = fmt.Sprintf("%d items, %d bonus items, confidence %.0f%%",
				len(c.Items), len(c.BonusItems), c.Confidence*100)
			r.save(ctx, kind, a.ID, c, domain.ParseStatusSucceeded, &res)
		}
	}

	if res.Err != nil {
		log.Warn("extraction failed", slog.String("error", redact.Error(res.Err)))
	}
	return res, true
}

// save marks the announcement parsed. A failed write turns the item into a
// failure.
func (r *Runner) save(ctx context.Context, kind Kind, id uuid.UUID, criteria any, status domain.ParseStatus, res *ItemResult) {
	var err error
	switch kind {
	case KindEligibility:
		c, _ := criteria.(*domain.EligibilityCriteria)
		err = r.announcements.SaveEligibility(ctx, id, c, status)
	case KindEvaluation:
		c, _ := criteria.(*domain.EvaluationCriteria)
		err = r.announcements.SaveEvaluation(ctx, id, c, status)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Error("saving parse result failed",
			slog.String("kind", string(kind)),
			slog.String("announcement_id", id.String()),
			slog.String("error", redact.Error(err)))
		res.Outcome = OutcomeFailed
		res.Err = errors.Join(res.Err, err)
	}
}
