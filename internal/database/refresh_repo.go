package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/token/refresh"
)

type refreshTokenRecord struct {
	TokenHash string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"uniqueIndex;size:36;not null"`
	Iat       time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (refreshTokenRecord) TableName() string { return "refresh_tokens" }

func (r *refreshTokenRecord) toStored() *refresh.StoredRefreshToken {
	return &refresh.StoredRefreshToken{
		TokenHash: r.TokenHash,
		UserID:    r.UserID,
		Iat:       r.Iat.UTC(),
		ExpiresAt: r.ExpiresAt.UTC(),
	}
}

// RefreshTokenRepo stores refresh token hashes, one per user
type RefreshTokenRepo struct {
	db *gorm.DB
}

var _ refresh.Repo = (*RefreshTokenRepo)(nil)

func NewRefreshTokenRepo(db *gorm.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

func (r *RefreshTokenRepo) Upsert(ctx context.Context, t *refresh.StoredRefreshToken) error {
	rec := &refreshTokenRecord{TokenHash: t.TokenHash, UserID: t.UserID, Iat: t.Iat, ExpiresAt: t.ExpiresAt}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "iat", "expires_at"}),
	}).Create(rec).Error
}

// Delete fails with ErrNotFound when no row was removed, so only one caller can consume a token
func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenHash string) error {
	res := conn(ctx, r.db).Delete(&refreshTokenRecord{}, "token_hash = ?", tokenHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *RefreshTokenRepo) Get(ctx context.Context, tokenHash string) (*refresh.StoredRefreshToken, error) {
	var rec refreshTokenRecord
	if err := conn(ctx, r.db).Where("token_hash = ?", tokenHash).Take(&rec).Error; err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toStored(), nil
}

func (r *RefreshTokenRepo) GetByUserID(ctx context.Context, userID string) (*refresh.StoredRefreshToken, error) {
	var rec refreshTokenRecord
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toStored(), nil
}

func (r *RefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return conn(ctx, r.db).Delete(&refreshTokenRecord{}, "user_id = ?", userID).Error
}
