package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// PostgresEmbeddingStore implements store.EmbeddingStore on a pgvector column.
type PostgresEmbeddingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEmbeddingStore creates an embedding store on db.
func NewPostgresEmbeddingStore(db store.DBTX, logger *slog.Logger) *PostgresEmbeddingStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEmbeddingStore{db: db, logger: logger.With(slog.String("component", "embedding_store"))}
}

var _ store.EmbeddingStore = (*PostgresEmbeddingStore)(nil)

// GetContentHash implements store.EmbeddingStore.
func (s *PostgresEmbeddingStore) GetContentHash(ctx context.Context, announcementID uuid.UUID) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM announcement_embeddings WHERE announcement_id = $1`,
		announcementID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrEmbeddingNotFound
		}
		return "", MapError(err)
	}
	return hash, nil
}

// Upsert implements store.EmbeddingStore. The vector must have
// domain.EmbeddingDimensions entries.
func (s *PostgresEmbeddingStore) Upsert(ctx context.Context, e *domain.AnnouncementEmbedding) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(e.Embedding) != domain.EmbeddingDimensions {
		return fmt.Errorf("%w: embedding has %d dimensions, want %d",
			store.ErrInvalidEntity, len(e.Embedding), domain.EmbeddingDimensions)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcement_embeddings (announcement_id, embedding, content_hash, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (announcement_id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    content_hash = EXCLUDED.content_hash,
		    updated_at = EXCLUDED.updated_at`,
		e.AnnouncementID, pgvector.NewVector(e.Embedding), e.ContentHash, e.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert embedding",
			slog.String("error", err.Error()),
			slog.String("announcement_id", e.AnnouncementID.String()))
		return MapError(err)
	}
	return nil
}
