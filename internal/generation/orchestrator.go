package generation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/sethvargo/go-retry"
)

// Operation names used in logs and metrics.
const (
	OpGenerate = "generate"
	OpStream   = "stream"
	OpEmbed    = "embed"
)

// Observer receives one call per provider request. The metrics package
// implements it with Prometheus collectors.
type Observer interface {
	ObserveCall(provider, operation string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, string, time.Duration, error) {}

// Options wires an Orchestrator. Generator may be nil for processes that
// only embed; generation calls then fail with ErrInvalidConfig.
type Options struct {
	Generator        Generator
	Embedder         Embedder
	FallbackEmbedder Embedder
	Retry            RetryPolicy
	Observer         Observer
}

// Orchestrator routes logical AI operations to the configured adapters.
type Orchestrator struct {
	generator Generator
	embedder  Embedder
	fallback  Embedder
	policy    RetryPolicy
	observer  Observer
	logger    *slog.Logger
}

// NewOrchestrator builds an orchestrator from explicit options.
func NewOrchestrator(opts Options, l *slog.Logger) *Orchestrator {
	if l == nil {
		l = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{
		generator: opts.Generator,
		embedder:  opts.Embedder,
		fallback:  opts.FallbackEmbedder,
		policy:    opts.Retry.normalized(),
		observer:  observer,
		logger:    l.With("component", "ai_orchestrator"),
	}
}

// Provider names the generation provider, or "" when none is configured.
func (o *Orchestrator) Provider() string {
	if o.generator == nil {
		return ""
	}
	return o.generator.Name()
}

// Generate sends req to the generation provider, retrying rate-limited
// calls. After the last attempt the provider's error is returned unchanged.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (string, error) {
	if o.generator == nil {
		return "", fmt.Errorf("%w: no generation provider configured", ErrInvalidConfig)
	}
	log := logger.FromContextOrDefault(ctx, o.logger)
	provider := o.generator.Name()
	log.Debug("generating text", "provider", provider, "json", req.JSON)

	var (
		out     string
		attempt int
	)
	err := retry.Do(ctx, o.policy.Backoff(), func(ctx context.Context) error {
		attempt++
		start := time.Now()
		text, err := o.generator.Generate(ctx, req)
		o.observer.ObserveCall(provider, OpGenerate, time.Since(start), err)
		if err != nil {
			if IsRateLimited(err) && attempt < o.policy.MaxAttempts {
				log.Warn("provider rate limited, retrying",
					"provider", provider,
					"attempt", attempt,
					"max_attempts", o.policy.MaxAttempts,
					"delay_ms", o.policy.Delay(attempt).Milliseconds(),
					"error", redact.Error(err))
				return retry.RetryableError(err)
			}
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		log.Error("generation failed",
			"provider", provider,
			"attempts", attempt,
			"error", redact.Error(err))
		return "", err
	}

	log.Info("generation served", "provider", provider, "attempts", attempt)
	return out, nil
}

// Stream yields chunks from the generation provider. A rate-limit error
// before the first chunk is retried like Generate; once chunks have been
// yielded, errors are passed through because the caller already holds a
// partial answer.
func (o *Orchestrator) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if o.generator == nil {
			yield("", fmt.Errorf("%w: no generation provider configured", ErrInvalidConfig))
			return
		}
		log := logger.FromContextOrDefault(ctx, o.logger)
		provider := o.generator.Name()
		backoff := o.policy.Backoff()
		log.Info("streaming text", "provider", provider)

		for attempt := 1; ; attempt++ {
			start := time.Now()
			started := false
			var streamErr error
			for chunk, err := range o.generator.Stream(ctx, req) {
				if err != nil {
					streamErr = err
					break
				}
				started = true
				if !yield(chunk, nil) {
					o.observer.ObserveCall(provider, OpStream, time.Since(start), nil)
					return
				}
			}
			o.observer.ObserveCall(provider, OpStream, time.Since(start), streamErr)

			if streamErr == nil {
				return
			}
			if started || !IsRateLimited(streamErr) {
				log.Error("stream failed", "provider", provider, "error", redact.Error(streamErr))
				yield("", streamErr)
				return
			}

			delay, stop := backoff.Next()
			if stop {
				log.Error("stream failed after retries",
					"provider", provider,
					"attempts", attempt,
					"error", redact.Error(streamErr))
				yield("", streamErr)
				return
			}
			log.Warn("provider rate limited, retrying stream",
				"provider", provider,
				"attempt", attempt,
				"delay_ms", delay.Milliseconds())

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				yield("", ctx.Err())
				return
			case <-timer.C:
			}
		}
	}
}

// Embed returns a vector from the primary embedder, falling back to the
// secondary one on any error. Fallback vectors are truncated to the
// primary's dimensionality so stored vectors stay comparable.
func (o *Orchestrator) Embed(ctx context.Context, text string) ([]float32, error) {
	if o.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", ErrInvalidConfig)
	}
	log := logger.FromContextOrDefault(ctx, o.logger)

	vec, primaryErr := o.embedOnce(ctx, o.embedder, text)
	if primaryErr == nil {
		log.Debug("embedding served", "provider", o.embedder.Name(), "dimensions", len(vec))
		return vec, nil
	}

	if o.fallback == nil {
		log.Error("embedding failed", "provider", o.embedder.Name(), "error", redact.Error(primaryErr))
		return nil, fmt.Errorf("%w: %s: %w", ErrEmbeddingFailed, o.embedder.Name(), primaryErr)
	}

	log.Warn("primary embedding failed, trying fallback",
		"provider", o.embedder.Name(),
		"fallback", o.fallback.Name(),
		"error", redact.Error(primaryErr))

	fvec, fallbackErr := o.embedOnce(ctx, o.fallback, text)
	if fallbackErr != nil {
		log.Error("embedding failed on both providers",
			"provider", o.embedder.Name(),
			"fallback", o.fallback.Name(),
			"error", redact.Error(fallbackErr))
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, errors.Join(
			fmt.Errorf("%s: %w", o.embedder.Name(), primaryErr),
			fmt.Errorf("%s: %w", o.fallback.Name(), fallbackErr),
		))
	}

	log.Info("embedding served by fallback", "provider", o.fallback.Name(), "dimensions", len(fvec))
	return Truncate(fvec, o.embedder.Dimensions()), nil
}

func (o *Orchestrator) embedOnce(ctx context.Context, e Embedder, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.Embed(ctx, text)
	o.observer.ObserveCall(e.Name(), OpEmbed, time.Since(start), err)
	if err == nil && len(vec) == 0 {
		err = fmt.Errorf("%w: empty embedding", ErrInvalidResponse)
	}
	return vec, err
}

// Truncate returns the first dims components of vec. Shorter vectors are
// returned unchanged.
func Truncate(vec []float32, dims int) []float32 {
	if dims <= 0 || len(vec) <= dims {
		return vec
	}
	out := make([]float32, dims)
	copy(out, vec[:dims])
	return out
}
