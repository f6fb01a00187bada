package paymentrepofake

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/payments"
)

var _ payments.Repo = (*FakePaymentRepo)(nil)

type FakePaymentRepo struct {
	transactions map[string]*payments.Transaction
	keys         map[string]string // buyerID|key to transaction ID
	entries      []payments.LedgerEntry
	lock         sync.RWMutex
}

func NewFakePaymentRepo() *FakePaymentRepo {
	return &FakePaymentRepo{
		transactions: make(map[string]*payments.Transaction),
		keys:         make(map[string]string),
	}
}

func (r *FakePaymentRepo) CreateTransaction(_ context.Context, t *payments.Transaction) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	k := t.BuyerID + "|" + t.IdempotencyKey
	if _, exists := r.keys[k]; exists {
		return apperrors.ErrConflict
	}
	c := *t
	r.transactions[c.ID] = &c
	r.keys[k] = c.ID
	return nil
}

func (r *FakePaymentRepo) CreateEntries(_ context.Context, entries []payments.LedgerEntry) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *FakePaymentRepo) GetTransaction(_ context.Context, id string) (*payments.Transaction, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *FakePaymentRepo) GetByIdempotencyKey(_ context.Context, buyerID, key string) (*payments.Transaction, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.keys[buyerID+"|"+key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *r.transactions[id]
	return &c, nil
}

func (r *FakePaymentRepo) ListForUser(_ context.Context, userID string, offset, limit int) ([]*payments.Transaction, int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var matched []*payments.Transaction
	for _, t := range r.transactions {
		if t.BuyerID == userID || t.OwnerID == userID {
			c := *t
			matched = append(matched, &c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return utils.Page(matched, offset, limit), len(matched), nil
}

func (r *FakePaymentRepo) EntriesFor(_ context.Context, transactionID string) ([]payments.LedgerEntry, error) {
	return r.filterEntries(func(e payments.LedgerEntry) bool { return e.TransactionID == transactionID }), nil
}

func (r *FakePaymentRepo) EntriesForUser(_ context.Context, userID string) ([]payments.LedgerEntry, error) {
	return r.filterEntries(func(e payments.LedgerEntry) bool { return e.UserID == userID }), nil
}

func (r *FakePaymentRepo) filterEntries(keep func(payments.LedgerEntry) bool) []payments.LedgerEntry {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := []payments.LedgerEntry{}
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// AppendEntry adds a raw entry, letting tests unbalance a ledger
func (r *FakePaymentRepo) AppendEntry(e payments.LedgerEntry) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries = append(r.entries, e)
}
