package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// MockMatchStore is an in-memory store.MatchStore.
type MockMatchStore struct {
	CreateErr error

	mu      sync.Mutex
	Matches []*domain.Match
}

// Create implements store.MatchStore
func (m *MockMatchStore) Create(ctx context.Context, match *domain.Match) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Matches = append(m.Matches, match)
	return nil
}

// GetByID implements store.MatchStore
func (m *MockMatchStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, match := range m.Matches {
		if match.ID == id {
			return match, nil
		}
	}
	return nil, store.ErrMatchNotFound
}

// ListRecentByCompany implements store.MatchStore
func (m *MockMatchStore) ListRecentByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]*domain.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Match
	for _, match := range m.Matches {
		if match.CompanyID == companyID {
			out = append(out, match)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockFeedbackStore is an in-memory store.FeedbackStore.
type MockFeedbackStore struct {
	ListErr error

	mu       sync.Mutex
	Feedback []*domain.MatchFeedback
}

// Create implements store.FeedbackStore
func (m *MockFeedbackStore) Create(ctx context.Context, f *domain.MatchFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Feedback = append(m.Feedback, f)
	return nil
}

// ListRecent implements store.FeedbackStore. Entries are returned newest
// first in insertion order.
func (m *MockFeedbackStore) ListRecent(ctx context.Context, limit int) ([]*domain.MatchFeedback, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.MatchFeedback, 0, len(m.Feedback))
	for i := len(m.Feedback) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.Feedback[i])
	}
	return out, nil
}

// MockEmbeddingStore is an in-memory store.EmbeddingStore.
type MockEmbeddingStore struct {
	UpsertErr error

	mu         sync.Mutex
	Embeddings map[uuid.UUID]*domain.AnnouncementEmbedding
}

// NewMockEmbeddingStore creates an empty embedding store.
func NewMockEmbeddingStore() *MockEmbeddingStore {
	return &MockEmbeddingStore{Embeddings: make(map[uuid.UUID]*domain.AnnouncementEmbedding)}
}

// GetContentHash implements store.EmbeddingStore
func (m *MockEmbeddingStore) GetContentHash(ctx context.Context, announcementID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Embeddings[announcementID]
	if !ok {
		return "", store.ErrEmbeddingNotFound
	}
	return e.ContentHash, nil
}

// Upsert implements store.EmbeddingStore
func (m *MockEmbeddingStore) Upsert(ctx context.Context, e *domain.AnnouncementEmbedding) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Embeddings[e.AnnouncementID] = e
	return nil
}
