package otp

import (
	"context"
	"time"
)

// Repo stores one code per (email, purpose). Get returns errors.ErrNotFound when absent.
type Repo interface {
	Upsert(ctx context.Context, code *Code) error
	Get(ctx context.Context, email string, purpose Purpose) (*Code, error)
	IncrementAttempts(ctx context.Context, email string, purpose Purpose) (int, error)
	Delete(ctx context.Context, email string, purpose Purpose) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
