package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/choishiam0906/govhelper/internal/platform/postgres"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "announcements",
		ColumnName:     "title",
		ConstraintName: "announcements_pkey",
	}
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, r.err }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	generic := errors.New("connection reset")

	tests := []struct {
		name    string
		err     error
		want    error
		passRaw bool
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: sql.ErrNoRows, want: store.ErrNotFound},
		{name: "unique violation", err: newPgError("23505"), want: store.ErrDuplicate},
		{name: "foreign key violation", err: newPgError("23503"), want: store.ErrInvalidEntity},
		{name: "check violation", err: newPgError("23514"), want: store.ErrInvalidEntity},
		{name: "not null violation", err: newPgError("23502"), want: store.ErrInvalidEntity},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", newPgError("23505")), want: store.ErrDuplicate},
		{name: "unmapped postgres code", err: newPgError("42P01"), passRaw: true},
		{name: "generic", err: generic, want: generic},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := postgres.MapError(tc.err)
			switch {
			case tc.err == nil:
				assert.NoError(t, got)
			case tc.passRaw:
				assert.Same(t, tc.err, got)
			default:
				assert.ErrorIs(t, got, tc.want)
			}
		})
	}
}

func TestConstraintPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsUniqueViolation(newPgError("23505")))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503")))
	assert.False(t, postgres.IsUniqueViolation(errors.New("plain")))
	assert.False(t, postgres.IsUniqueViolation(nil))

	assert.True(t, postgres.IsForeignKeyViolation(fmt.Errorf("wrapped: %w", newPgError("23503"))))
	assert.False(t, postgres.IsForeignKeyViolation(newPgError("23505")))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.CheckRowsAffected(fakeResult{rows: 1}, "match"))

	err := postgres.CheckRowsAffected(fakeResult{rows: 0}, "match")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "match not found")

	assert.Equal(t, store.ErrNotFound, postgres.CheckRowsAffected(fakeResult{rows: 0}, ""))

	driverErr := errors.New("driver does not support RowsAffected")
	assert.ErrorIs(t, postgres.CheckRowsAffected(fakeResult{err: driverErr}, "match"), driverErr)

	assert.Error(t, postgres.CheckRowsAffected(nil, "match"))
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	unique := newPgError("23505")

	err := postgres.MapUniqueViolation(unique, "prompt version", "", store.ErrPromptVersionExists)
	assert.ErrorIs(t, err, store.ErrPromptVersionExists)

	err = postgres.MapUniqueViolation(unique, "prompt version", "", nil)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "prompt version already exists")

	err = postgres.MapUniqueViolation(unique, "", "prompt_versions_prompt_type_version_key", nil)
	assert.Contains(t, err.Error(), "prompt_versions_prompt_type_version_key")

	other := errors.New("other")
	assert.Same(t, other, postgres.MapUniqueViolation(other, "x", "", nil))
}
