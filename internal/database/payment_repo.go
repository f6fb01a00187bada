package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/payments"
)

type transactionRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	IdempotencyKey string `gorm:"size:128;not null;uniqueIndex:idx_buyer_idempotency"`
	BuyerID        string `gorm:"size:36;not null;index;uniqueIndex:idx_buyer_idempotency"`
	OwnerID        string `gorm:"size:36;not null;index"`
	PropertyID     string `gorm:"size:36;not null;index"`
	Kind           string `gorm:"size:16;not null"`
	Months         int
	Amount         int64     `gorm:"not null"`
	Currency       string    `gorm:"size:3;not null"`
	Method         string    `gorm:"size:16;not null"`
	Status         string    `gorm:"size:16;not null"`
	CreatedAt      time.Time `gorm:"index"`
}

func (transactionRecord) TableName() string { return "transactions" }

type ledgerEntryRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	TransactionID string `gorm:"size:36;not null;index"`
	UserID        string `gorm:"size:36;not null;index"`
	Direction     string `gorm:"size:8;not null"`
	Amount        int64  `gorm:"not null"`
	Currency      string `gorm:"size:3;not null"`
	CreatedAt     time.Time
}

func (ledgerEntryRecord) TableName() string { return "ledger_entries" }

func (r *transactionRecord) toTransaction() *payments.Transaction {
	return &payments.Transaction{
		ID:             r.ID,
		IdempotencyKey: r.IdempotencyKey,
		BuyerID:        r.BuyerID,
		OwnerID:        r.OwnerID,
		PropertyID:     r.PropertyID,
		Kind:           payments.Kind(r.Kind),
		Months:         r.Months,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Method:         payments.Method(r.Method),
		Status:         payments.Status(r.Status),
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func (r *ledgerEntryRecord) toEntry() payments.LedgerEntry {
	return payments.LedgerEntry{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		UserID:        r.UserID,
		Direction:     payments.Direction(r.Direction),
		Amount:        r.Amount,
		Currency:      r.Currency,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

// PaymentRepo stores transactions and the double-entry ledger
type PaymentRepo struct {
	db *gorm.DB
}

var _ payments.Repo = (*PaymentRepo)(nil)

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) CreateTransaction(ctx context.Context, t *payments.Transaction) error {
	rec := &transactionRecord{
		ID:             t.ID,
		IdempotencyKey: t.IdempotencyKey,
		BuyerID:        t.BuyerID,
		OwnerID:        t.OwnerID,
		PropertyID:     t.PropertyID,
		Kind:           string(t.Kind),
		Months:         t.Months,
		Amount:         t.Amount,
		Currency:       t.Currency,
		Method:         string(t.Method),
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt,
	}
	return translate(conn(ctx, r.db).Create(rec).Error, apperrors.ErrNotFound)
}

func (r *PaymentRepo) CreateEntries(ctx context.Context, entries []payments.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	recs := make([]ledgerEntryRecord, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, ledgerEntryRecord{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			UserID:        e.UserID,
			Direction:     string(e.Direction),
			Amount:        e.Amount,
			Currency:      e.Currency,
			CreatedAt:     e.CreatedAt,
		})
	}
	return translate(conn(ctx, r.db).Create(&recs).Error, apperrors.ErrNotFound)
}

func (r *PaymentRepo) GetTransaction(ctx context.Context, id string) (*payments.Transaction, error) {
	var rec transactionRecord
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toTransaction(), nil
}

func (r *PaymentRepo) GetByIdempotencyKey(ctx context.Context, buyerID, key string) (*payments.Transaction, error) {
	var rec transactionRecord
	err := conn(ctx, r.db).Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).Take(&rec).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toTransaction(), nil
}

func (r *PaymentRepo) ListForUser(ctx context.Context, userID string, offset, limit int) ([]*payments.Transaction, int, error) {
	q := conn(ctx, r.db).Model(&transactionRecord{}).Where("buyer_id = ? OR owner_id = ?", userID, userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []transactionRecord
	if err := q.Order("created_at DESC").Order("id ASC").Offset(offset).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	list := make([]*payments.Transaction, 0, len(recs))
	for i := range recs {
		list = append(list, recs[i].toTransaction())
	}
	return list, int(total), nil
}

func (r *PaymentRepo) EntriesFor(ctx context.Context, transactionID string) ([]payments.LedgerEntry, error) {
	return r.entries(ctx, "transaction_id = ?", transactionID)
}

func (r *PaymentRepo) EntriesForUser(ctx context.Context, userID string) ([]payments.LedgerEntry, error) {
	return r.entries(ctx, "user_id = ?", userID)
}

func (r *PaymentRepo) entries(ctx context.Context, where string, arg string) ([]payments.LedgerEntry, error) {
	var recs []ledgerEntryRecord
	// debit sorts after credit, so DESC keeps the buyer's side first
	err := conn(ctx, r.db).Where(where, arg).Order("created_at ASC").Order("direction DESC").Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]payments.LedgerEntry, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toEntry())
	}
	return out, nil
}
