package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// MockAnnouncementStore is an in-memory store.AnnouncementStore.
type MockAnnouncementStore struct {
	SaveEligibilityFn func(ctx context.Context, id uuid.UUID, c *domain.EligibilityCriteria, s domain.ParseStatus) error
	SaveEvaluationFn  func(ctx context.Context, id uuid.UUID, c *domain.EvaluationCriteria, s domain.ParseStatus) error

	ListErr error

	mu            sync.Mutex
	announcements map[uuid.UUID]*domain.Announcement
}

// NewMockAnnouncementStore creates a store holding announcements.
func NewMockAnnouncementStore(announcements ...*domain.Announcement) *MockAnnouncementStore {
	m := &MockAnnouncementStore{announcements: make(map[uuid.UUID]*domain.Announcement)}
	for _, a := range announcements {
		m.announcements[a.ID] = a
	}
	return m
}

// Get returns the stored announcement without copying it.
func (m *MockAnnouncementStore) Get(id uuid.UUID) *domain.Announcement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.announcements[id]
}

// GetByID implements store.AnnouncementStore
func (m *MockAnnouncementStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.announcements[id]
	if !ok {
		return nil, store.ErrAnnouncementNotFound
	}
	c := *a
	return &c, nil
}

func (m *MockAnnouncementStore) list(limit int, pred func(*domain.Announcement) bool) ([]*domain.Announcement, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Announcement
	for _, a := range m.announcements {
		if a.Status == "active" && pred(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListPendingEligibility implements store.AnnouncementStore
func (m *MockAnnouncementStore) ListPendingEligibility(ctx context.Context, limit int) ([]*domain.Announcement, error) {
	return m.list(limit, func(a *domain.Announcement) bool { return !a.EligibilityParsed })
}

// ListPendingEvaluation implements store.AnnouncementStore
func (m *MockAnnouncementStore) ListPendingEvaluation(ctx context.Context, limit int) ([]*domain.Announcement, error) {
	return m.list(limit, func(a *domain.Announcement) bool { return !a.EvaluationParsed })
}

// ListActive implements store.AnnouncementStore
func (m *MockAnnouncementStore) ListActive(ctx context.Context, limit int) ([]*domain.Announcement, error) {
	return m.list(limit, func(*domain.Announcement) bool { return true })
}

// SaveEligibility implements store.AnnouncementStore
func (m *MockAnnouncementStore) SaveEligibility(
	ctx context.Context,
	id uuid.UUID,
	criteria *domain.EligibilityCriteria,
	status domain.ParseStatus,
) error {
	if m.SaveEligibilityFn != nil {
		return m.SaveEligibilityFn(ctx, id, criteria, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.announcements[id]
	if !ok {
		return store.ErrAnnouncementNotFound
	}
	if criteria != nil {
		a.EligibilityCriteria = criteria
	}
	a.EligibilityParsed = true
	a.EligibilityStatus = status
	return nil
}

// SaveEvaluation implements store.AnnouncementStore
func (m *MockAnnouncementStore) SaveEvaluation(
	ctx context.Context,
	id uuid.UUID,
	criteria *domain.EvaluationCriteria,
	status domain.ParseStatus,
) error {
	if m.SaveEvaluationFn != nil {
		return m.SaveEvaluationFn(ctx, id, criteria, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.announcements[id]
	if !ok {
		return store.ErrAnnouncementNotFound
	}
	if criteria != nil {
		a.EvaluationCriteria = criteria
	}
	a.EvaluationParsed = true
	a.EvaluationStatus = status
	return nil
}

// MockCompanyStore is an in-memory store.CompanyStore.
type MockCompanyStore struct {
	Err       error
	Companies []*domain.Company
}

// GetByID implements store.CompanyStore
func (m *MockCompanyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.Companies {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, store.ErrCompanyNotFound
}

// GetByUserID implements store.CompanyStore
func (m *MockCompanyStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.Companies {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, store.ErrCompanyNotFound
}
