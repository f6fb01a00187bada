package refresh

import (
	"context"
	"time"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the raw token; the store only ever sees its SHA-256 hash.
type StoredRefreshToken struct {
	TokenHash string    // hex(sha256(token))
	UserID    string    // Owner of the token
	Iat       time.Time // Issued at
	ExpiresAt time.Time
}

// Repo manages server-side storage of refresh token metadata, keyed by token hash.
// Get and GetByUserID return errors.ErrNotFound for unknown tokens. Delete returns
// errors.ErrNotFound when the token was already gone, which makes it a one-shot consume.
type Repo interface {
	Upsert(ctx context.Context, refreshToken *StoredRefreshToken) error
	Delete(ctx context.Context, tokenHash string) error
	Get(ctx context.Context, tokenHash string) (*StoredRefreshToken, error)
	GetByUserID(ctx context.Context, userID string) (*StoredRefreshToken, error)
	DeleteByUserID(ctx context.Context, userID string) error
}
