package store

import (
	"context"
	"database/sql"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/google/uuid"
)

// PromptVersionStore persists prompt versions.
type PromptVersionStore interface {
	// GetLatestActive returns the newest active version of a type.
	// Returns ErrPromptVersionNotFound if none is active.
	GetLatestActive(ctx context.Context, t domain.PromptType) (*domain.PromptVersion, error)

	// ListActive returns every active version of a type, newest first.
	ListActive(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error)

	// ListByType returns every version of a type, newest first.
	ListByType(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error)

	// GetByID retrieves a version.
	// Returns ErrPromptVersionNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptVersion, error)

	// Create saves a new version.
	// Returns ErrPromptVersionExists if the type/version pair is taken.
	Create(ctx context.Context, v *domain.PromptVersion) error

	// SetActive toggles whether a version takes part in selection.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// UpdateWeight changes the A/B weight of a version.
	UpdateWeight(ctx context.Context, id uuid.UUID, weight int) error

	// WithTx returns a store bound to the transaction.
	WithTx(tx *sql.Tx) PromptVersionStore
}

// UsageLogStore persists prompt usage logs.
type UsageLogStore interface {
	// Create saves one usage log.
	Create(ctx context.Context, l *domain.PromptUsageLog) error

	// ListByType returns the logs of every version of a type.
	ListByType(ctx context.Context, t domain.PromptType) ([]domain.PromptUsageLog, error)
}
