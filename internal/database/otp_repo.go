package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/otp"
)

type otpRecord struct {
	Email     string    `gorm:"primaryKey;size:320"`
	Purpose   string    `gorm:"primaryKey;size:32"`
	CodeHash  string    `gorm:"size:64;not null"`
	Attempts  int       `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (otpRecord) TableName() string { return "one_time_codes" }

func (r *otpRecord) toCode() *otp.Code {
	return &otp.Code{
		Email:     r.Email,
		Purpose:   otp.Purpose(r.Purpose),
		CodeHash:  r.CodeHash,
		Attempts:  r.Attempts,
		ExpiresAt: r.ExpiresAt.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// OTPRepo keeps one passcode per email and purpose
type OTPRepo struct {
	db *gorm.DB
}

var _ otp.Repo = (*OTPRepo)(nil)

func NewOTPRepo(db *gorm.DB) *OTPRepo {
	return &OTPRepo{db: db}
}

func (r *OTPRepo) Upsert(ctx context.Context, code *otp.Code) error {
	rec := &otpRecord{
		Email:     code.Email,
		Purpose:   string(code.Purpose),
		CodeHash:  code.CodeHash,
		Attempts:  code.Attempts,
		ExpiresAt: code.ExpiresAt,
		CreatedAt: code.CreatedAt,
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "attempts", "expires_at", "created_at"}),
	}).Create(rec).Error
}

func (r *OTPRepo) Get(ctx context.Context, email string, purpose otp.Purpose) (*otp.Code, error) {
	var rec otpRecord
	err := conn(ctx, r.db).Where("email = ? AND purpose = ?", email, string(purpose)).Take(&rec).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toCode(), nil
}

func (r *OTPRepo) IncrementAttempts(ctx context.Context, email string, purpose otp.Purpose) (int, error) {
	db := conn(ctx, r.db)
	res := db.Model(&otpRecord{}).
		Where("email = ? AND purpose = ?", email, string(purpose)).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.ErrNotFound
	}
	var rec otpRecord
	if err := db.Where("email = ? AND purpose = ?", email, string(purpose)).Take(&rec).Error; err != nil {
		return 0, translate(err, apperrors.ErrNotFound)
	}
	return rec.Attempts, nil
}

func (r *OTPRepo) Delete(ctx context.Context, email string, purpose otp.Purpose) error {
	return conn(ctx, r.db).Delete(&otpRecord{}, "email = ? AND purpose = ?", email, string(purpose)).Error
}

func (r *OTPRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	res := conn(ctx, r.db).Delete(&otpRecord{}, "expires_at < ?", before)
	return int(res.RowsAffected), res.Error
}
