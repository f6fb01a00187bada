package tx

import (
	"context"
	"sync"
)

// Manager runs fn so that every repository write made with the ctx it receives
// commits together or not at all.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type inTxKey struct{}

// Locking serialises transactions for the in-memory repositories. The fakes cannot roll
// back, so callers validate before they write.
type Locking struct {
	mu sync.Mutex
}

var _ Manager = (*Locking)(nil)

func (l *Locking) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(context.WithValue(ctx, inTxKey{}, true))
}
