package promptversion

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// Manager administers stored prompt versions.
type Manager struct {
	db       *sql.DB
	versions store.PromptVersionStore
	logs     store.UsageLogStore
	logger   *slog.Logger
}

// NewManager creates a manager. db is used for multi-row changes and may
// be nil, in which case Promote is unavailable.
func NewManager(db *sql.DB, versions store.PromptVersionStore, logs store.UsageLogStore, logger *slog.Logger) *Manager {
	if versions == nil {
		panic("versions cannot be nil")
	}
	if logs == nil {
		panic("logs cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		db:       db,
		versions: versions,
		logs:     logs,
		logger:   logger.With(slog.String("component", "prompt_manager")),
	}
}

// CreateVersion stores a new version. It starts inactive with weight 100.
func (m *Manager) CreateVersion(
	ctx context.Context,
	t domain.PromptType,
	version, content, description string,
) (*domain.PromptVersion, error) {
	v, err := domain.NewPromptVersion(t, version, content, description)
	if err != nil {
		return nil, err
	}
	if err := m.versions.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create prompt version %s/%s: %w", t, version, err)
	}
	return v, nil
}

// Activate includes a version in selection.
func (m *Manager) Activate(ctx context.Context, id uuid.UUID) error {
	return m.setActive(ctx, id, true)
}

// Deactivate removes a version from selection.
func (m *Manager) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.setActive(ctx, id, false)
}

func (m *Manager) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := m.versions.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set prompt version %s active=%t: %w", id, active, err)
	}
	logger.FromContextOrDefault(ctx, m.logger).Info("prompt version toggled",
		slog.String("prompt_version_id", id.String()),
		slog.Bool("active", active))
	return nil
}

// UpdateWeight sets the A/B weight of a version. weight must be 0..100.
func (m *Manager) UpdateWeight(ctx context.Context, id uuid.UUID, weight int) error {
	if err := domain.ValidateWeight(weight); err != nil {
		return err
	}
	if err := m.versions.UpdateWeight(ctx, id, weight); err != nil {
		return fmt.Errorf("update prompt version %s weight: %w", id, err)
	}
	return nil
}

// Promote makes id the only active version of its type, with full weight.
// All changes are applied in one transaction.
func (m *Manager) Promote(ctx context.Context, id uuid.UUID) error {
	if m.db == nil {
		return fmt.Errorf("promote prompt version: %w", store.ErrTransactionFailed)
	}

	return store.RunInTransaction(ctx, m.db, func(ctx context.Context, tx *sql.Tx) error {
		versions := m.versions.WithTx(tx)

		target, err := versions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		active, err := versions.ListActive(ctx, target.Type)
		if err != nil {
			return err
		}
		deactivated := 0
		for _, v := range active {
			if v.ID == id {
				continue
			}
			if err := versions.SetActive(ctx, v.ID, false); err != nil {
				return err
			}
			deactivated++
		}
		if err := versions.UpdateWeight(ctx, id, domain.DefaultPromptWeight); err != nil {
			return err
		}
		if err := versions.SetActive(ctx, id, true); err != nil {
			return err
		}

		logger.FromContextOrDefault(ctx, m.logger).Info("prompt version promoted",
			slog.String("prompt_version_id", id.String()),
			slog.String("prompt_type", string(target.Type)),
			slog.Int("deactivated", deactivated))
		return nil
	})
}

// ListVersions returns every version of t, newest first.
func (m *Manager) ListVersions(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error) {
	return m.versions.ListByType(ctx, t)
}

// GetMetrics aggregates the usage log of t per version.
func (m *Manager) GetMetrics(ctx context.Context, t domain.PromptType) ([]domain.PromptMetrics, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPromptType, t)
	}
	logs, err := m.logs.ListByType(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("load prompt usage for %s: %w", t, err)
	}
	return domain.AggregatePromptMetrics(logs), nil
}
