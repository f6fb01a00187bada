package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/pkg/errors"
)

// Purpose scopes a passcode to a single flow
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

const codeDigits = 6

// Code is a stored one-time passcode. Only the SHA-256 of the code is kept.
type Code struct {
	Email     string
	Purpose   Purpose
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Settings interface {
	GetOTPExpiry() time.Duration
	GetOTPMaxAttempts() int
}

// Manager issues and verifies passcodes
type Manager struct {
	repo     Repo
	settings Settings
	nowTime  func() time.Time
}

type ManagerOption func(*Manager)

func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(repo Repo, settings Settings, opts ...ManagerOption) *Manager {
	m := &Manager{repo: repo, settings: settings, nowTime: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a new code for (email, purpose), replacing any earlier one, and returns the plain code
func (m *Manager) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", errors.Wrap(err, "[Issue] generate code")
	}
	now := m.nowTime()
	if err := m.repo.Upsert(ctx, &Code{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  hashCode(code),
		ExpiresAt: now.Add(m.settings.GetOTPExpiry()),
		CreatedAt: now,
	}); err != nil {
		return "", errors.Wrap(err, "[Issue] store code")
	}
	return code, nil
}

// Verify checks a code. A matching code is consumed; expired or exhausted codes are burned.
func (m *Manager) Verify(ctx context.Context, email string, purpose Purpose, code string) error {
	stored, err := m.repo.Get(ctx, email, purpose)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidOTP
		}
		return errors.Wrap(err, "[Verify] load code")
	}

	if m.nowTime().After(stored.ExpiresAt) {
		_ = m.repo.Delete(ctx, email, purpose)
		return apperrors.ErrOTPExpired
	}

	if stored.Attempts >= m.settings.GetOTPMaxAttempts() {
		_ = m.repo.Delete(ctx, email, purpose)
		return apperrors.ErrOTPAttemptsExceeded
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(stored.CodeHash)) != 1 {
		attempts, err := m.repo.IncrementAttempts(ctx, email, purpose)
		if err != nil {
			return errors.Wrap(err, "[Verify] count attempt")
		}
		if attempts >= m.settings.GetOTPMaxAttempts() {
			_ = m.repo.Delete(ctx, email, purpose)
			return apperrors.ErrOTPAttemptsExceeded
		}
		return apperrors.ErrInvalidOTP
	}

	if err := m.repo.Delete(ctx, email, purpose); err != nil {
		return errors.Wrap(err, "[Verify] consume code")
	}
	return nil
}

// Cleanup removes every code that expired before now
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	return m.repo.DeleteExpired(ctx, m.nowTime())
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
