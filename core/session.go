package core

import (
	"context"
	"time"
)

// SessionStore tracks revoked access tokens by their id until they expire.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
