// Package postgres provides PostgreSQL implementations of the interfaces in
// internal/store, the embedded goose migrations that create their tables,
// and helpers to open a pooled database/sql connection through the pgx
// stdlib driver.
//
// JSON documents (extracted criteria, match analyses) are stored as JSONB
// and announcement vectors use the pgvector extension.
package postgres
