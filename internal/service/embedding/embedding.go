// Package embedding keeps announcement vectors in sync with their text.
//
// The text of an announcement is hashed before it is embedded; when the
// stored hash matches, the provider is not called again. Vectors of
// arbitrary text (search queries, company profiles) go through a short
// lived cache instead.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/store"
)

// Embedder produces vectors. generation.Orchestrator satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cache stores vectors by text. A *redis.Cache satisfies it; misses and
// failures both report false.
type Cache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)
	SetEmbedding(ctx context.Context, text string, vec []float32)
}

// Service embeds announcements and free text.
type Service struct {
	embedder   Embedder
	embeddings store.EmbeddingStore
	cache      Cache
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the text vector cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an embedding service.
func NewService(embedder Embedder, embeddings store.EmbeddingStore, logger *slog.Logger, opts ...Option) *Service {
	if embedder == nil {
		panic("embedder cannot be nil")
	}
	if embeddings == nil {
		panic("embeddings cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		embedder:   embedder,
		embeddings: embeddings,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "embedding_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmbedText returns the vector of text, from the cache when possible.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if s.cache != nil {
		if vec, ok := s.cache.GetEmbedding(ctx, text); ok {
			return vec, nil
		}
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetEmbedding(ctx, text, vec)
	}
	return vec, nil
}

// EmbedAnnouncement stores the vector of an announcement. Unless force is
// set, announcements whose text hash matches the stored one are left alone
// and false is returned.
func (s *Service) EmbedAnnouncement(ctx context.Context, a *domain.Announcement, force bool) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("announcement_id", a.ID.String()))

	text := a.EmbeddingText()
	hash := domain.ContentHash(text)

	if !force {
		stored, err := s.embeddings.GetContentHash(ctx, a.ID)
		switch {
		case err == nil && stored == hash:
			log.Debug("embedding unchanged")
			return false, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn("reading stored content hash failed, re-embedding",
				slog.String("error", redact.Error(err)))
		}
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return false, fmt.Errorf("embed announcement %s: %w", a.ID, err)
	}

	e := &domain.AnnouncementEmbedding{
		AnnouncementID: a.ID,
		Embedding:      vec,
		ContentHash:    hash,
		UpdatedAt:      s.now().UTC(),
	}
	if err := s.embeddings.Upsert(ctx, e); err != nil {
		return false, fmt.Errorf("store embedding %s: %w", a.ID, err)
	}

	log.Debug("embedding stored", slog.Int("dimensions", len(vec)))
	return true, nil
}
