package store

import (
	"context"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/google/uuid"
)

// AnnouncementStore persists announcements and the criteria extracted from
// them.
type AnnouncementStore interface {
	// GetByID retrieves an announcement by its ID.
	// Returns ErrAnnouncementNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Announcement, error)

	// ListPendingEligibility returns active announcements whose eligibility
	// criteria have not been parsed yet, newest first.
	ListPendingEligibility(ctx context.Context, limit int) ([]*domain.Announcement, error)

	// ListPendingEvaluation returns active announcements whose evaluation
	// criteria have not been extracted yet, newest first.
	ListPendingEvaluation(ctx context.Context, limit int) ([]*domain.Announcement, error)

	// ListActive returns active announcements for the embedding pipeline,
	// newest first. A limit of 0 or less returns all of them.
	ListActive(ctx context.Context, limit int) ([]*domain.Announcement, error)

	// SaveEligibility stores criteria (nil leaves the column untouched), sets
	// eligibility_parsed and records status.
	// Returns ErrAnnouncementNotFound if it does not exist.
	SaveEligibility(ctx context.Context, id uuid.UUID, criteria *domain.EligibilityCriteria, status domain.ParseStatus) error

	// SaveEvaluation is SaveEligibility for evaluation criteria.
	SaveEvaluation(ctx context.Context, id uuid.UUID, criteria *domain.EvaluationCriteria, status domain.ParseStatus) error
}

// CompanyStore reads company profiles. Profiles are edited elsewhere.
type CompanyStore interface {
	// GetByID retrieves a company by its ID.
	// Returns ErrCompanyNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)

	// GetByUserID retrieves the company owned by a user.
	// Returns ErrCompanyNotFound if the user has none.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error)
}
