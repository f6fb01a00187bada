package refresh

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/go-property-market/internal/config"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	config config.AuthConfig
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.AuthConfig) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create generates a new refresh token and stores it
func (m *Manager) Create(ctx context.Context, userID string) (string, error) {
	// Single refresh token per user
	if err := m.repo.DeleteByUserID(ctx, userID); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	now := NowTimeFunc()
	if err := m.repo.Upsert(ctx, &StoredRefreshToken{
		TokenHash: Hash(tokenStr),
		UserID:    userID,
		Iat:       now,
		ExpiresAt: now.Add(m.config.GetRefreshTokenExpiry()),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tokenStr, nil
}

// Rotate exchanges a valid refresh token for a fresh one, returning the owning user ID
func (m *Manager) Rotate(ctx context.Context, token string) (userID string, newToken string, err error) {
	stored, err := m.repo.Get(ctx, Hash(token))
	if err != nil {
		return "", "", apperrors.ErrInvalidRefreshToken
	}
	if NowTimeFunc().After(stored.ExpiresAt) {
		_ = m.repo.Delete(ctx, stored.TokenHash)
		return "", "", apperrors.ErrRefreshTokenExpired
	}
	// consuming the old token first means only one of two concurrent rotations gets a new one
	if err := m.repo.Delete(ctx, stored.TokenHash); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", "", apperrors.ErrInvalidRefreshToken
		}
		return "", "", fmt.Errorf("failed to consume refresh token: %w", err)
	}
	newToken, err = m.Create(ctx, stored.UserID)
	if err != nil {
		return "", "", err
	}
	return stored.UserID, newToken, nil
}

// Delete removes the user's refresh token, if any
func (m *Manager) Delete(ctx context.Context, userID string) error {
	if err := m.repo.DeleteByUserID(ctx, userID); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return nil
}

// Hash returns the storage key for a raw refresh token
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
