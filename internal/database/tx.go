package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/jrsteele09/go-property-market/internal/tx"
)

type txKey struct{}

// TxManager runs callbacks inside a database transaction carried on the context
type TxManager struct {
	db *gorm.DB
}

var _ tx.Manager = (*TxManager)(nil)

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, txDB))
	})
}

// conn returns the transaction on ctx, or the pool when there is none
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if txDB, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return txDB.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
