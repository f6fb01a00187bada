package payments

import "context"

// Repo persists transactions and their ledger entries. CreateTransaction fails with
// errors.ErrConflict when (BuyerID, IdempotencyKey) already exists; lookups of missing
// rows return errors.ErrNotFound.
type Repo interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	CreateEntries(ctx context.Context, entries []LedgerEntry) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	GetByIdempotencyKey(ctx context.Context, buyerID, key string) (*Transaction, error)
	ListForUser(ctx context.Context, userID string, offset, limit int) ([]*Transaction, int, error)
	EntriesFor(ctx context.Context, transactionID string) ([]LedgerEntry, error)
	EntriesForUser(ctx context.Context, userID string) ([]LedgerEntry, error)
}
