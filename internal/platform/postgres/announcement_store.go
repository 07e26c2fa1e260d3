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

const announcementColumns = `
	id, source, source_id, title, organization, category, support_type,
	target_company, support_amount, application_start, application_end,
	content, parsed_content, status,
	eligibility_criteria, eligibility_parsed, eligibility_parse_status,
	evaluation_criteria, evaluation_parsed, evaluation_parse_status,
	created_at`

// PostgresAnnouncementStore implements store.AnnouncementStore.
type PostgresAnnouncementStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAnnouncementStore creates an announcement store on db.
func NewPostgresAnnouncementStore(db store.DBTX, logger *slog.Logger) *PostgresAnnouncementStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAnnouncementStore{
		db:     db,
		logger: logger.With(slog.String("component", "announcement_store")),
	}
}

var _ store.AnnouncementStore = (*PostgresAnnouncementStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row rowScanner) (*domain.Announcement, error) {
	var (
		a                       domain.Announcement
		eligibility, evaluation []byte
		eligStatus, evalStatus  string
	)
	err := row.Scan(
		&a.ID, &a.Source, &a.SourceID, &a.Title, &a.Organization, &a.Category, &a.SupportType,
		&a.TargetCompany, &a.SupportAmount, &a.ApplicationStart, &a.ApplicationEnd,
		&a.Content, &a.ParsedContent, &a.Status,
		&eligibility, &a.EligibilityParsed, &eligStatus,
		&evaluation, &a.EvaluationParsed, &evalStatus,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.EligibilityCriteria, err = decodeJSON[domain.EligibilityCriteria](eligibility); err != nil {
		return nil, err
	}
	if a.EvaluationCriteria, err = decodeJSON[domain.EvaluationCriteria](evaluation); err != nil {
		return nil, err
	}
	a.EligibilityStatus = domain.ParseStatus(eligStatus)
	a.EvaluationStatus = domain.ParseStatus(evalStatus)
	return &a, nil
}

// GetByID implements store.AnnouncementStore.
func (s *PostgresAnnouncementStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Announcement, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	a, err := scanAnnouncement(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("announcement not found", slog.String("announcement_id", id.String()))
			return nil, store.ErrAnnouncementNotFound
		}
		log.Error("failed to get announcement",
			slog.String("error", err.Error()),
			slog.String("announcement_id", id.String()))
		return nil, MapError(err)
	}
	return a, nil
}

// ListPendingEligibility implements store.AnnouncementStore.
func (s *PostgresAnnouncementStore) ListPendingEligibility(ctx context.Context, limit int) ([]*domain.Announcement, error) {
	return s.list(ctx, "eligibility", `
		SELECT `+announcementColumns+`
		FROM announcements
		WHERE status = 'active' AND eligibility_parsed = FALSE
		ORDER BY created_at DESC
		LIMIT $1`, limit)
}

// ListPendingEvaluation implements store.AnnouncementStore.
func (s *PostgresAnnouncementStore) ListPendingEvaluation(ctx context.Context, limit int) ([]*domain.Announcement, error) {
	return s.list(ctx, "evaluation", `
		SELECT `+announcementColumns+`
		FROM announcements
		WHERE status = 'active' AND evaluation_parsed = FALSE
		ORDER BY created_at DESC
		LIMIT $1`, limit)
}

// ListActive implements store.AnnouncementStore.
func (s *PostgresAnnouncementStore) ListActive(ctx context.Context, limit int) ([]*domain.Announcement, error) {
	return s.list(ctx, "active", `
		SELECT `+announcementColumns+`
		FROM announcements
		WHERE status = 'active'
		ORDER BY created_at DESC
		LIMIT NULLIF($1, 0)`, max(limit, 0))
}

func (s *PostgresAnnouncementStore) list(ctx context.Context, kind, query string, limit int) ([]*domain.Announcement, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		log.Error("failed to list announcements", slog.String("kind", kind), slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan announcement row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating announcement rows: %w", err)
	}

	log.Debug("listed announcements", slog.String("kind", kind), slog.Int("count", len(out)))
	return out, nil
}

// SaveEligibility implements store.AnnouncementStore.
func (s *PostgresAnnouncementStore) SaveEligibility(
	ctx context.Context,
	id uuid.UUID,
	criteria *domain.EligibilityCriteria,
	status domain.ParseStatus,
) error {
	raw, err := jsonValue(criteria)
	if err != nil {
		return err
	}
	return s.saveCriteria(ctx, id, status, raw, `
		UPDATE announcements
		SET eligibility_criteria = COALESCE($1, eligibility_criteria),
		    eligibility_parsed = TRUE,
		    eligibility_parse_status = $2
		WHERE id = $3`)
}

// SaveEvaluation implements store.AnnouncementStore.
func (s *PostgresAnnouncementStore) SaveEvaluation(
	ctx context.Context,
	id uuid.UUID,
	criteria *domain.EvaluationCriteria,
	status domain.ParseStatus,
) error {
	raw, err := jsonValue(criteria)
	if err != nil {
		return err
	}
	return s.saveCriteria(ctx, id, status, raw, `
		UPDATE announcements
		SET evaluation_criteria = COALESCE($1, evaluation_criteria),
		    evaluation_parsed = TRUE,
		    evaluation_parse_status = $2
		WHERE id = $3`)
}

func (s *PostgresAnnouncementStore) saveCriteria(
	ctx context.Context,
	id uuid.UUID,
	status domain.ParseStatus,
	raw any,
	query string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, raw, string(status), id)
	if err != nil {
		log.Error("failed to save extracted criteria",
			slog.String("error", err.Error()),
			slog.String("announcement_id", id.String()))
		return store.NewStoreError("announcement", "save criteria", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, "announcement"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrAnnouncementNotFound
		}
		return err
	}

	log.Debug("saved extracted criteria",
		slog.String("announcement_id", id.String()),
		slog.String("status", string(status)))
	return nil
}
