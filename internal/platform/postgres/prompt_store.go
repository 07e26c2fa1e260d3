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
)

// PostgresPromptVersionStore implements store.PromptVersionStore.
type PostgresPromptVersionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPromptVersionStore creates a prompt version store on db.
func NewPostgresPromptVersionStore(db store.DBTX, logger *slog.Logger) *PostgresPromptVersionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPromptVersionStore{db: db, logger: logger.With(slog.String("component", "prompt_version_store"))}
}

var _ store.PromptVersionStore = (*PostgresPromptVersionStore)(nil)

// WithTx returns a store that runs its queries inside tx.
func (s *PostgresPromptVersionStore) WithTx(tx *sql.Tx) store.PromptVersionStore {
	return &PostgresPromptVersionStore{db: tx, logger: s.logger}
}

const promptVersionQuery = `
	SELECT id, prompt_type, version, content, is_active, weight, description, created_at
	FROM prompt_versions`

func scanPromptVersion(row rowScanner) (*domain.PromptVersion, error) {
	var (
		v    domain.PromptVersion
		kind string
	)
	if err := row.Scan(&v.ID, &kind, &v.Version, &v.Content, &v.IsActive, &v.Weight, &v.Description, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Type = domain.PromptType(kind)
	return &v, nil
}

// GetLatestActive implements store.PromptVersionStore.
func (s *PostgresPromptVersionStore) GetLatestActive(ctx context.Context, t domain.PromptType) (*domain.PromptVersion, error) {
	v, err := scanPromptVersion(s.db.QueryRowContext(ctx,
		promptVersionQuery+` WHERE prompt_type = $1 AND is_active ORDER BY created_at DESC LIMIT 1`,
		string(t)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPromptVersionNotFound
		}
		return nil, MapError(err)
	}
	return v, nil
}

// ListActive implements store.PromptVersionStore.
func (s *PostgresPromptVersionStore) ListActive(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error) {
	return s.list(ctx, promptVersionQuery+` WHERE prompt_type = $1 AND is_active ORDER BY created_at DESC`, t)
}

// ListByType implements store.PromptVersionStore.
func (s *PostgresPromptVersionStore) ListByType(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error) {
	return s.list(ctx, promptVersionQuery+` WHERE prompt_type = $1 ORDER BY created_at DESC`, t)
}

func (s *PostgresPromptVersionStore) list(ctx context.Context, query string, t domain.PromptType) ([]*domain.PromptVersion, error) {
	rows, err := s.db.QueryContext(ctx, query, string(t))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list prompt versions",
			slog.String("error", err.Error()),
			slog.String("prompt_type", string(t)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.PromptVersion
	for rows.Next() {
		v, err := scanPromptVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt version row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompt version rows: %w", err)
	}
	return out, nil
}

// GetByID implements store.PromptVersionStore.
func (s *PostgresPromptVersionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptVersion, error) {
	v, err := scanPromptVersion(s.db.QueryRowContext(ctx, promptVersionQuery+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPromptVersionNotFound
		}
		return nil, MapError(err)
	}
	return v, nil
}

// Create implements store.PromptVersionStore. A second version with the same
// type and label fails with store.ErrPromptVersionExists.
func (s *PostgresPromptVersionStore) Create(ctx context.Context, v *domain.PromptVersion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompt_versions (id, prompt_type, version, content, is_active, weight, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, string(v.Type), v.Version, v.Content, v.IsActive, v.Weight, v.Description, v.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("prompt version already exists",
				slog.String("prompt_type", string(v.Type)),
				slog.String("version", v.Version))
			return MapUniqueViolation(err, "prompt version", "", store.ErrPromptVersionExists)
		}
		log.Error("failed to insert prompt version", slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Info("prompt version created",
		slog.String("prompt_version_id", v.ID.String()),
		slog.String("prompt_type", string(v.Type)),
		slog.String("version", v.Version))
	return nil
}

// SetActive implements store.PromptVersionStore.
func (s *PostgresPromptVersionStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.update(ctx, id, `UPDATE prompt_versions SET is_active = $1 WHERE id = $2`, active)
}

// UpdateWeight implements store.PromptVersionStore.
func (s *PostgresPromptVersionStore) UpdateWeight(ctx context.Context, id uuid.UUID, weight int) error {
	if err := domain.ValidateWeight(weight); err != nil {
		return err
	}
	return s.update(ctx, id, `UPDATE prompt_versions SET weight = $1 WHERE id = $2`, weight)
}

func (s *PostgresPromptVersionStore) update(ctx context.Context, id uuid.UUID, query string, value any) error {
	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update prompt version",
			slog.String("error", err.Error()),
			slog.String("prompt_version_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "prompt version"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrPromptVersionNotFound
		}
		return err
	}
	return nil
}

// PostgresUsageLogStore implements store.UsageLogStore.
type PostgresUsageLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUsageLogStore creates a usage log store on db.
func NewPostgresUsageLogStore(db store.DBTX, logger *slog.Logger) *PostgresUsageLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUsageLogStore{db: db, logger: logger.With(slog.String("component", "usage_log_store"))}
}

var _ store.UsageLogStore = (*PostgresUsageLogStore)(nil)

// Create implements store.UsageLogStore.
func (s *PostgresUsageLogStore) Create(ctx context.Context, l *domain.PromptUsageLog) error {
	var errMsg sql.NullString
	if l.ErrorMessage != "" {
		errMsg = sql.NullString{String: l.ErrorMessage, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompt_usage_logs (id, prompt_version_id, user_id, response_time, result_score, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.PromptVersionID, l.UserID, l.ResponseTimeMS, l.ResultScore, errMsg, l.CreatedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// ListByType implements store.UsageLogStore.
func (s *PostgresUsageLogStore) ListByType(ctx context.Context, t domain.PromptType) ([]domain.PromptUsageLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.prompt_version_id, l.user_id, l.response_time, l.result_score, l.error_message, l.created_at
		FROM prompt_usage_logs l
		JOIN prompt_versions v ON v.id = l.prompt_version_id
		WHERE v.prompt_type = $1
		ORDER BY l.created_at`, string(t))
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.PromptUsageLog
	for rows.Next() {
		var (
			l            domain.PromptUsageLog
			userID       uuid.NullUUID
			responseTime sql.NullInt64
			score        sql.NullFloat64
			errMsg       sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.PromptVersionID, &userID, &responseTime, &score, &errMsg, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage log row: %w", err)
		}
		if userID.Valid {
			id := userID.UUID
			l.UserID = &id
		}
		if responseTime.Valid {
			ms := responseTime.Int64
			l.ResponseTimeMS = &ms
		}
		if score.Valid {
			v := score.Float64
			l.ResultScore = &v
		}
		l.ErrorMessage = errMsg.String
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage log rows: %w", err)
	}
	return out, nil
}
