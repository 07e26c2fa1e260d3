package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audience is the aud claim carried by end-user access tokens.
const Audience = "authenticated"

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for userID. The hosted
	// auth service issues tokens in production; this is used by tooling and
	// tests.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims containing user information if the token is valid,
	// or an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of an access token.
type Claims struct {
	// UserID is parsed from the sub claim.
	UserID uuid.UUID

	// Role is the database role the token grants, usually "authenticated".
	Role string

	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
