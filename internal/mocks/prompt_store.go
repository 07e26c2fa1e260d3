package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// MockPromptVersionStore is an in-memory store.PromptVersionStore.
type MockPromptVersionStore struct {
	GetLatestActiveFn func(ctx context.Context, t domain.PromptType) (*domain.PromptVersion, error)
	ListActiveFn      func(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error)

	// Err, when set, fails every call.
	Err error

	mu       sync.Mutex
	versions []*domain.PromptVersion
}

// NewMockPromptVersionStore creates a store holding versions.
func NewMockPromptVersionStore(versions ...*domain.PromptVersion) *MockPromptVersionStore {
	return &MockPromptVersionStore{versions: versions}
}

// Versions returns a snapshot of the stored versions.
func (m *MockPromptVersionStore) Versions() []domain.PromptVersion {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PromptVersion, len(m.versions))
	for i, v := range m.versions {
		out[i] = *v
	}
	return out
}

// newestFirst filters by pred and orders by created_at descending.
func (m *MockPromptVersionStore) newestFirst(pred func(*domain.PromptVersion) bool) []*domain.PromptVersion {
	var out []*domain.PromptVersion
	for _, v := range m.versions {
		if pred(v) {
			c := *v
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// GetLatestActive implements store.PromptVersionStore
func (m *MockPromptVersionStore) GetLatestActive(ctx context.Context, t domain.PromptType) (*domain.PromptVersion, error) {
	if m.GetLatestActiveFn != nil {
		return m.GetLatestActiveFn(ctx, t)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.newestFirst(func(v *domain.PromptVersion) bool { return v.Type == t && v.IsActive })
	if len(active) == 0 {
		return nil, store.ErrPromptVersionNotFound
	}
	return active[0], nil
}

// ListActive implements store.PromptVersionStore
func (m *MockPromptVersionStore) ListActive(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx, t)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(v *domain.PromptVersion) bool { return v.Type == t && v.IsActive }), nil
}

// ListByType implements store.PromptVersionStore
func (m *MockPromptVersionStore) ListByType(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(func(v *domain.PromptVersion) bool { return v.Type == t }), nil
}

// GetByID implements store.PromptVersionStore
func (m *MockPromptVersionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptVersion, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.find(id); v != nil {
		c := *v
		return &c, nil
	}
	return nil, store.ErrPromptVersionNotFound
}

func (m *MockPromptVersionStore) find(id uuid.UUID) *domain.PromptVersion {
	for _, v := range m.versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// Create implements store.PromptVersionStore
func (m *MockPromptVersionStore) Create(ctx context.Context, v *domain.PromptVersion) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.versions {
		if existing.Type == v.Type && existing.Version == v.Version {
			return store.ErrPromptVersionExists
		}
	}
	c := *v
	m.versions = append(m.versions, &c)
	return nil
}

// SetActive implements store.PromptVersionStore
func (m *MockPromptVersionStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.update(id, func(v *domain.PromptVersion) { v.IsActive = active })
}

// UpdateWeight implements store.PromptVersionStore
func (m *MockPromptVersionStore) UpdateWeight(ctx context.Context, id uuid.UUID, weight int) error {
	if err := domain.ValidateWeight(weight); err != nil {
		return err
	}
	return m.update(id, func(v *domain.PromptVersion) { v.Weight = weight })
}

func (m *MockPromptVersionStore) update(id uuid.UUID, fn func(*domain.PromptVersion)) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.find(id)
	if v == nil {
		return store.ErrPromptVersionNotFound
	}
	fn(v)
	return nil
}

// WithTx implements store.PromptVersionStore. The mock has no transactions
// and returns itself.
func (m *MockPromptVersionStore) WithTx(tx *sql.Tx) store.PromptVersionStore {
	return m
}

// MockUsageLogStore is an in-memory store.UsageLogStore.
type MockUsageLogStore struct {
	CreateErr error
	ListErr   error

	// Types maps version IDs to prompt types for ListByType.
	Types map[uuid.UUID]domain.PromptType

	mu   sync.Mutex
	logs []domain.PromptUsageLog
}

// NewMockUsageLogStore creates an empty usage log store.
func NewMockUsageLogStore() *MockUsageLogStore {
	return &MockUsageLogStore{Types: make(map[uuid.UUID]domain.PromptType)}
}

// Create implements store.UsageLogStore
func (m *MockUsageLogStore) Create(ctx context.Context, l *domain.PromptUsageLog) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *l)
	return nil
}

// ListByType implements store.UsageLogStore
func (m *MockUsageLogStore) ListByType(ctx context.Context, t domain.PromptType) ([]domain.PromptUsageLog, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PromptUsageLog
	for _, l := range m.logs {
		if m.Types[l.PromptVersionID] == t {
			out = append(out, l)
		}
	}
	return out, nil
}

// Logs returns every recorded entry.
func (m *MockUsageLogStore) Logs() []domain.PromptUsageLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PromptUsageLog(nil), m.logs...)
}
