package store

import (
	"context"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/google/uuid"
)

// MatchStore persists match analyses. Matches are written once.
type MatchStore interface {
	// Create saves a new match.
	Create(ctx context.Context, m *domain.Match) error

	// GetByID retrieves a match by its ID.
	// Returns ErrMatchNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)

	// ListRecentByCompany returns the latest matches of a company, newest first.
	ListRecentByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]*domain.Match, error)
}

// FeedbackStore persists user feedback on match scores.
type FeedbackStore interface {
	// Create saves feedback. The referenced match must exist.
	Create(ctx context.Context, f *domain.MatchFeedback) error

	// ListRecent returns the newest feedback rows across all companies.
	ListRecent(ctx context.Context, limit int) ([]*domain.MatchFeedback, error)
}

// EmbeddingStore persists announcement vectors.
type EmbeddingStore interface {
	// GetContentHash returns the hash of the text that produced the stored
	// vector. Returns ErrEmbeddingNotFound when nothing is stored.
	GetContentHash(ctx context.Context, announcementID uuid.UUID) (string, error)

	// Upsert inserts or replaces the vector of an announcement.
	Upsert(ctx context.Context, e *domain.AnnouncementEmbedding) error
}
