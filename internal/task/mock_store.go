package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore for tests. It keeps Records, so
// loaded tasks need a Factory like the ones from the database do.
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*Record

	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

// NewMockTaskStore creates an empty store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{records: make(map[uuid.UUID]*Record)}
}

// SaveTask implements TaskStore
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, task)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := time.Now()
	s.records[task.ID()] = &Record{
		TaskID:      task.ID(),
		TaskType:    task.Type(),
		TaskPayload: task.Payload(),
		TaskStatus:  task.Status(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

// GetTask implements TaskStore
func (s *MockTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	r, ok := s.records[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *r
	return &c, nil
}

// UpdateTaskStatus implements TaskStore. Unknown IDs are a no-op.
func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if r, ok := s.records[taskID]; ok {
		r.TaskStatus = status
		r.ErrorMessage = errorMsg
		r.UpdatedAt = time.Now()
	}
	return nil
}

// SetUpdatedAt backdates a record, for stuck task tests.
func (s *MockTaskStore) SetUpdatedAt(taskID uuid.UUID, at time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if r, ok := s.records[taskID]; ok {
		r.UpdatedAt = at
	}
}

// Record returns a copy of the stored record, or nil.
func (s *MockTaskStore) Record(taskID uuid.UUID) *Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	r, ok := s.records[taskID]
	if !ok {
		return nil
	}
	c := *r
	return &c
}

// GetPendingTasks implements TaskStore
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks implements TaskStore
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []Task
	now := time.Now()
	for _, r := range s.records {
		if r.TaskStatus != status {
			continue
		}
		if olderThan == 0 || now.Sub(r.UpdatedAt) > olderThan {
			c := *r
			out = append(out, &c)
		}
	}
	return out
}

// WithTx implements TaskStore; the mock has no transactions.
func (s *MockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}
