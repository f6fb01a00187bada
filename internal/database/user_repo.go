package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/users"
)

type userRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;size:320;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:100"`
	LastName     string `gorm:"size:100"`
	Phone        string `gorm:"size:32"`
	Role         string `gorm:"size:16;index;not null"`
	Verified     bool   `gorm:"not null;default:false"`
	Blocked      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    time.Time
}

func (userRecord) TableName() string { return "users" }

func toUserRecord(u *users.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		Role:         string(u.Role),
		Verified:     u.Verified,
		Blocked:      u.Blocked,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

func (r *userRecord) toUser() *users.User {
	return &users.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Phone:        r.Phone,
		Role:         users.RoleType(r.Role),
		Verified:     r.Verified,
		Blocked:      r.Blocked,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.UTC(),
	}
}

// UserRepo stores accounts in the users table
type UserRepo struct {
	db *gorm.DB
}

var _ users.UserRepo = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	rec := toUserRecord(user)
	if err := conn(ctx, r.db).Create(rec).Error; err != nil {
		return userError(err)
	}
	user.CreatedAt, user.UpdatedAt = rec.CreatedAt, rec.UpdatedAt
	return nil
}

func (r *UserRepo) Update(ctx context.Context, user *users.User) error {
	rec := toUserRecord(user)
	res := conn(ctx, r.db).Model(&userRecord{ID: user.ID}).
		Select("email", "first_name", "last_name", "phone", "updated_at").
		Updates(rec)
	if res.Error != nil {
		return userError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	user.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&userRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	var rec userRecord
	if err := conn(ctx, r.db).Where("email = ?", email).Take(&rec).Error; err != nil {
		return nil, userError(err)
	}
	return rec.toUser(), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	var rec userRecord
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, userError(err)
	}
	return rec.toUser(), nil
}

func (r *UserRepo) List(ctx context.Context, filter users.ListFilter) (users.ListResponse, error) {
	offset, limit := utils.ClampPage(filter.Offset, filter.Limit)
	q := conn(ctx, r.db).Model(&userRecord{})
	if filter.Role != "" {
		q = q.Where("role = ?", string(filter.Role))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return users.ListResponse{}, err
	}
	var recs []userRecord
	if err := q.Order("created_at ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&recs).Error; err != nil {
		return users.ListResponse{}, err
	}

	list := make([]*users.User, 0, len(recs))
	for i := range recs {
		list = append(list, recs[i].toUser())
	}
	return users.ListResponse{Users: list, Total: int(total), Offset: offset, Limit: limit}, nil
}

func (r *UserRepo) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.set(ctx, id, map[string]interface{}{"password_hash": passwordHash, "updated_at": time.Now().UTC()})
}

func (r *UserRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.set(ctx, id, map[string]interface{}{"last_login": at})
}

func (r *UserRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.setFlag(ctx, id, "blocked", blocked)
}

func (r *UserRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.setFlag(ctx, id, "verified", verified)
}

func (r *UserRepo) setFlag(ctx context.Context, id, column string, value bool) error {
	return r.set(ctx, id, map[string]interface{}{column: value, "updated_at": time.Now().UTC()})
}

func (r *UserRepo) set(ctx context.Context, id string, columns map[string]interface{}) error {
	res := conn(ctx, r.db).Model(&userRecord{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func userError(err error) error {
	err = translate(err, apperrors.ErrUserNotFound)
	if apperrors.Is(err, apperrors.ErrConflict) {
		return apperrors.ErrEmailTaken
	}
	return err
}
