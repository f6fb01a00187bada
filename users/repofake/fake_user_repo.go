package fakeuserrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.emailIds[user.Email]; ok {
		return apperrors.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	existing, ok := ur.users[user.ID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if existing.Email != user.Email {
		if _, taken := ur.emailIds[user.Email]; taken {
			return apperrors.ErrEmailTaken
		}
		delete(ur.emailIds, existing.Email)
		ur.emailIds[user.Email] = user.ID
	}
	existing.Email = user.Email
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Phone = user.Phone
	existing.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(ur.emailIds, user.Email)
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (ur *FakeUserRepo) List(_ context.Context, filter users.ListFilter) (users.ListResponse, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	offset, limit := utils.ClampPage(filter.Offset, filter.Limit)
	userList := make([]*users.User, 0)
	for _, v := range ur.users {
		if filter.Role != "" && v.Role != filter.Role {
			continue
		}
		u := *v
		userList = append(userList, &u)
	}

	sort.Slice(userList, func(i, j int) bool {
		if userList[i].CreatedAt.Equal(userList[j].CreatedAt) {
			return userList[i].ID < userList[j].ID
		}
		return userList[i].CreatedAt.Before(userList[j].CreatedAt)
	})

	return users.ListResponse{
		Users:  utils.Page(userList, offset, limit),
		Total:  len(userList),
		Offset: offset,
		Limit:  limit,
	}, nil
}

func (ur *FakeUserRepo) SetPassword(_ context.Context, id, passwordHash string) error {
	return ur.change(id, func(u *users.User) { u.PasswordHash = passwordHash })
}

func (ur *FakeUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	return ur.change(id, func(u *users.User) { u.LastLogin = at })
}

func (ur *FakeUserRepo) SetBlocked(_ context.Context, id string, blocked bool) error {
	return ur.change(id, func(u *users.User) { u.Blocked = blocked })
}

func (ur *FakeUserRepo) SetVerified(_ context.Context, id string, verified bool) error {
	return ur.change(id, func(u *users.User) { u.Verified = verified })
}

func (ur *FakeUserRepo) change(id string, fn func(*users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	user, ok := ur.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(user)
	user.UpdatedAt = time.Now().UTC()
	return nil
}
