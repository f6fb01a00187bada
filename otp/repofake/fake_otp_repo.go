package otprepofake

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/otp"
)

var _ otp.Repo = (*FakeOTPRepo)(nil)

type FakeOTPRepo struct {
	codes map[string]*otp.Code
	lock  sync.RWMutex
}

func NewFakeOTPRepo() *FakeOTPRepo {
	return &FakeOTPRepo{codes: make(map[string]*otp.Code)}
}

func key(email string, purpose otp.Purpose) string {
	return string(purpose) + "|" + email
}

func (r *FakeOTPRepo) Upsert(_ context.Context, code *otp.Code) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	c := *code
	r.codes[key(c.Email, c.Purpose)] = &c
	return nil
}

func (r *FakeOTPRepo) Get(_ context.Context, email string, purpose otp.Purpose) (*otp.Code, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.codes[key(email, purpose)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *FakeOTPRepo) IncrementAttempts(_ context.Context, email string, purpose otp.Purpose) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	c, ok := r.codes[key(email, purpose)]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	c.Attempts++
	return c.Attempts, nil
}

func (r *FakeOTPRepo) Delete(_ context.Context, email string, purpose otp.Purpose) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.codes, key(email, purpose))
	return nil
}

func (r *FakeOTPRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	n := 0
	for k, c := range r.codes {
		if c.ExpiresAt.Before(before) {
			delete(r.codes, k)
			n++
		}
	}
	return n, nil
}
