package repositories

import (
	"context"
	"time"
)

// SessionRepository stores refresh tokens. Each token is single use.
type SessionRepository interface {
	// Save stores token for userID until ttl elapses
	Save(ctx context.Context, token, userID string, ttl time.Duration) error

	// Consume deletes token and returns its user id, or ErrNotFound if the
	// token is unknown or expired
	Consume(ctx context.Context, token string) (string, error)

	// Delete removes token; unknown tokens are ignored
	Delete(ctx context.Context, token string) error
}
