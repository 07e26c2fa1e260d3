package promptversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/prompts"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// ErrNoPrompt is returned when a prompt type has neither an active stored
// version nor a built-in template.
var ErrNoPrompt = errors.New("no prompt available for type")

// DrawFunc returns a number in [0, total).
type DrawFunc func(total int) float64

func defaultDraw(total int) float64 {
	return rand.Float64() * float64(total)
}

// Resolved is the prompt a call is made with. VersionID is nil when the
// built-in template was used.
type Resolved struct {
	prompts.Template
	VersionID *uuid.UUID
	Version   string
}

// Stored reports whether the prompt came from the prompt_versions table.
func (r Resolved) Stored() bool {
	return r.VersionID != nil
}

// UsageObserver counts recorded usage. The metrics package implements it.
type UsageObserver interface {
	ObservePromptUsage(promptType string, success bool)
}

type nopUsageObserver struct{}

func (nopUsageObserver) ObservePromptUsage(string, bool) {}

// Selector resolves prompt versions and records their usage.
type Selector struct {
	versions store.PromptVersionStore
	sink     UsageSink
	observer UsageObserver
	draw     DrawFunc
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithDraw replaces the random source used by weighted selection.
func WithDraw(draw DrawFunc) Option {
	return func(s *Selector) { s.draw = draw }
}

// WithUsageObserver reports every recorded usage to o.
func WithUsageObserver(o UsageObserver) Option {
	return func(s *Selector) { s.observer = o }
}

// WithClock replaces time.Now for response-time measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// NewSelector creates a selector. A nil sink disables usage recording.
func NewSelector(versions store.PromptVersionStore, sink UsageSink, logger *slog.Logger, opts ...Option) *Selector {
	if versions == nil {
		panic("versions cannot be nil")
	}
	if sink == nil {
		sink = discardSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Selector{
		versions: versions,
		sink:     sink,
		observer: nopUsageObserver{},
		draw:     defaultDraw,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "prompt_selector")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetActivePrompt returns the newest active version of t. A missing version
// or a store error falls back to the built-in template without retrying.
func (s *Selector) GetActivePrompt(ctx context.Context, t domain.PromptType) (Resolved, error) {
	v, err := s.versions.GetLatestActive(ctx, t)
	if err != nil {
		if !errors.Is(err, store.ErrPromptVersionNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Warn("prompt version lookup failed, using built-in template",
				slog.String("prompt_type", string(t)),
				slog.String("error", redact.Error(err)))
		}
		return fallback(t)
	}
	return resolved(v), nil
}

// GetPromptWithABTest draws a version by weight when useAB is set and
// otherwise behaves like GetActivePrompt.
func (s *Selector) GetPromptWithABTest(ctx context.Context, t domain.PromptType, useAB bool) (Resolved, error) {
	if !useAB {
		return s.GetActivePrompt(ctx, t)
	}

	active, err := s.versions.ListActive(ctx, t)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("active prompt listing failed, using built-in template",
			slog.String("prompt_type", string(t)),
			slog.String("error", redact.Error(err)))
		return fallback(t)
	}
	v := SelectWeighted(active, s.draw)
	if v == nil {
		return fallback(t)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("prompt version drawn",
		slog.String("prompt_type", string(t)),
		slog.String("version", v.Version),
		slog.Int("candidates", len(active)))
	return resolved(v), nil
}

// SelectWeighted picks a version with probability weight/total. The draw is
// compared with the running weight sum and the first version whose
// cumulative weight exceeds it wins, so a version of weight 0 is never
// picked while another has weight. An empty list yields nil. When the total
// weight is 0 the first version is returned.
func SelectWeighted(versions []*domain.PromptVersion, draw DrawFunc) *domain.PromptVersion {
	if len(versions) == 0 {
		return nil
	}

	total := 0
	for _, v := range versions {
		total += v.Weight
	}
	if total <= 0 {
		return versions[0]
	}
	if draw == nil {
		draw = defaultDraw
	}

	point := draw(total)
	cumulative := 0.0
	for _, v := range versions {
		cumulative += float64(v.Weight)
		if point < cumulative {
			return v
		}
	}
	return versions[0]
}

func resolved(v *domain.PromptVersion) Resolved {
	id := v.ID
	return Resolved{
		Template:  prompts.Settings(v.Type).WithSource(v.Content),
		VersionID: &id,
		Version:   v.Version,
	}
}

func fallback(t domain.PromptType) (Resolved, error) {
	tmpl, ok := prompts.Builtin(t)
	if !ok {
		return Resolved{}, fmt.Errorf("%w: %s", ErrNoPrompt, t)
	}
	return Resolved{Template: tmpl, Version: "builtin"}, nil
}

// Usage describes one call made with a stored prompt version.
type Usage struct {
	UserID       *uuid.UUID
	ResponseTime time.Duration
	Score        *float64
	Err          error
}

// LogUsage records u against the version in p. Calls made with a built-in
// template are not recorded. Recording failures are logged and dropped.
func (s *Selector) LogUsage(ctx context.Context, p Resolved, u Usage) {
	if !p.Stored() {
		return
	}

	ms := u.ResponseTime.Milliseconds()
	entry := &domain.PromptUsageLog{
		ID:              uuid.New(),
		PromptVersionID: *p.VersionID,
		UserID:          u.UserID,
		ResultScore:     u.Score,
		ResponseTimeMS:  &ms,
		CreatedAt:       s.now().UTC(),
	}
	if u.Err != nil {
		entry.ErrorMessage = redact.Error(u.Err)
	}

	s.observer.ObservePromptUsage(string(p.Type), u.Err == nil)
	if err := s.sink.Record(ctx, entry); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to record prompt usage",
			slog.String("prompt_version_id", entry.PromptVersionID.String()),
			slog.String("error", redact.Error(err)))
	}
}

// ExecuteWithLogging resolves the prompt of t, runs fn with it and records
// how long fn took together with its score or error. fn's result and error
// are returned unchanged.
func ExecuteWithLogging[T any](
	ctx context.Context,
	s *Selector,
	t domain.PromptType,
	userID *uuid.UUID,
	fn func(ctx context.Context, p Resolved) (T, *float64, error),
) (T, error) {
	var zero T

	p, err := s.GetActivePrompt(ctx, t)
	if err != nil {
		return zero, err
	}

	start := s.now()
	result, score, err := fn(ctx, p)
	s.LogUsage(ctx, p, Usage{
		UserID:       userID,
		ResponseTime: s.now().Sub(start),
		Score:        score,
		Err:          err,
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}
