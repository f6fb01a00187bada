package users

import (
	"context"
	"time"
)

// UserRepo stores marketplace accounts. Lookups of missing users return errors.ErrUserNotFound,
// and Create returns errors.ErrEmailTaken for a duplicate email.
// Update writes the profile only (email, names, phone). Credentials, login time and the
// blocked and verified flags each have their own targeted write, so a request holding an
// older copy of the user cannot undo an admin's block.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	SetPassword(ctx context.Context, id, passwordHash string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter ListFilter) (ListResponse, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetVerified(ctx context.Context, id string, verified bool) error
}
