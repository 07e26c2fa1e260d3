package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresCompanyStore implements store.CompanyStore.
type PostgresCompanyStore struct {
	db      store.DBTX
	typeMap *pgtype.Map
	logger  *slog.Logger
}

// NewPostgresCompanyStore creates a company store on db.
func NewPostgresCompanyStore(db store.DBTX, logger *slog.Logger) *PostgresCompanyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCompanyStore{
		db:      db,
		typeMap: pgtype.NewMap(),
		logger:  logger.With(slog.String("component", "company_store")),
	}
}

var _ store.CompanyStore = (*PostgresCompanyStore)(nil)

const companyQuery = `
	SELECT id, user_id, name, business_number, industry, employee_count,
	       founded_date, location, certifications, annual_revenue, description
	FROM companies`

// GetByID implements store.CompanyStore.
func (s *PostgresCompanyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	return s.get(ctx, companyQuery+` WHERE id = $1`, id)
}

// GetByUserID implements store.CompanyStore.
func (s *PostgresCompanyStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	return s.get(ctx, companyQuery+` WHERE user_id = $1 ORDER BY created_at LIMIT 1`, userID)
}

func (s *PostgresCompanyStore) get(ctx context.Context, query string, arg uuid.UUID) (*domain.Company, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		c              domain.Company
		employees      sql.NullInt64
		revenue        sql.NullInt64
		founded        sql.NullTime
		certifications []string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID, &c.UserID, &c.Name, &c.BusinessNumber, &c.Industry, &employees,
		&founded, &c.Location, s.typeMap.SQLScanner(&certifications), &revenue, &c.Description,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCompanyNotFound
		}
		log.Error("failed to get company", slog.String("error", err.Error()), slog.String("key", arg.String()))
		return nil, MapError(err)
	}

	if employees.Valid {
		n := int(employees.Int64)
		c.EmployeeCount = &n
	}
	if revenue.Valid {
		r := revenue.Int64
		c.AnnualRevenue = &r
	}
	if founded.Valid {
		t := founded.Time
		c.FoundedDate = &t
	}
	c.Certifications = certifications
	return &c, nil
}
