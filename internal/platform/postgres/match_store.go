package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// PostgresMatchStore implements store.MatchStore.
type PostgresMatchStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMatchStore creates a match store on db.
func NewPostgresMatchStore(db store.DBTX, logger *slog.Logger) *PostgresMatchStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMatchStore{db: db, logger: logger.With(slog.String("component", "match_store"))}
}

var _ store.MatchStore = (*PostgresMatchStore)(nil)

// Create implements store.MatchStore.
func (s *PostgresMatchStore) Create(ctx context.Context, m *domain.Match) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	analysis, err := json.Marshal(m.Analysis)
	if err != nil {
		return fmt.Errorf("encode match analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matches (id, company_id, announcement_id, match_score, analysis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.CompanyID, m.AnnouncementID, m.Score, analysis, m.CreatedAt,
	)
	if err != nil {
		log.Error("failed to insert match",
			slog.String("error", err.Error()),
			slog.String("company_id", m.CompanyID.String()),
			slog.String("announcement_id", m.AnnouncementID.String()))
		return MapError(err)
	}

	log.Debug("match created",
		slog.String("match_id", m.ID.String()),
		slog.Int("score", m.Score))
	return nil
}

const matchQuery = `SELECT id, company_id, announcement_id, match_score, analysis, created_at FROM matches`

func scanMatch(row rowScanner) (*domain.Match, error) {
	var (
		m   domain.Match
		raw []byte
	)
	if err := row.Scan(&m.ID, &m.CompanyID, &m.AnnouncementID, &m.Score, &raw, &m.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &m.Analysis); err != nil {
		return nil, fmt.Errorf("decode match analysis: %w", err)
	}
	return &m, nil
}

// GetByID implements store.MatchStore.
func (s *PostgresMatchStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	m, err := scanMatch(s.db.QueryRowContext(ctx, matchQuery+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMatchNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get match",
			slog.String("error", err.Error()),
			slog.String("match_id", id.String()))
		return nil, MapError(err)
	}
	return m, nil
}

// ListRecentByCompany implements store.MatchStore.
func (s *PostgresMatchStore) ListRecentByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]*domain.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		matchQuery+` WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2`, companyID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return out, nil
}

// PostgresFeedbackStore implements store.FeedbackStore.
type PostgresFeedbackStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFeedbackStore creates a feedback store on db.
func NewPostgresFeedbackStore(db store.DBTX, logger *slog.Logger) *PostgresFeedbackStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFeedbackStore{db: db, logger: logger.With(slog.String("component", "feedback_store"))}
}

var _ store.FeedbackStore = (*PostgresFeedbackStore)(nil)

// Create implements store.FeedbackStore.
func (s *PostgresFeedbackStore) Create(ctx context.Context, f *domain.MatchFeedback) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_feedback (id, match_id, company_id, feedback_type, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.MatchID, f.CompanyID, string(f.FeedbackType), f.Rating, f.Comment, f.CreatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert feedback",
			slog.String("error", err.Error()),
			slog.String("match_id", f.MatchID.String()))
		if IsForeignKeyViolation(err) {
			return store.ErrMatchNotFound
		}
		return MapError(err)
	}
	return nil
}

// ListRecent implements store.FeedbackStore.
func (s *PostgresFeedbackStore) ListRecent(ctx context.Context, limit int) ([]*domain.MatchFeedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, company_id, feedback_type, rating, comment, created_at
		FROM match_feedback
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.MatchFeedback
	for rows.Next() {
		var (
			f    domain.MatchFeedback
			kind string
		)
		if err := rows.Scan(&f.ID, &f.MatchID, &f.CompanyID, &kind, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		f.FeedbackType = domain.FeedbackType(kind)
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback rows: %w", err)
	}
	return out, nil
}
