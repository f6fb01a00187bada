package config

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

type AuthConfig interface {
	GetJWTSecret() []byte
	JWTSecretConfigured() bool
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type Auth struct{}

var _ AuthConfig = Auth{}

var (
	devSecretOnce sync.Once
	devSecret     []byte
)

// GetJWTSecret returns JWT_SECRET. Without it a random per-process secret is used,
// which invalidates every token on restart.
func (Auth) GetJWTSecret() []byte {
	if s := GetEnv("JWT_SECRET", ""); s != "" {
		return []byte(s)
	}
	devSecretOnce.Do(func() {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		devSecret = []byte(hex.EncodeToString(b))
	})
	return devSecret
}

// JWTSecretConfigured reports whether JWT_SECRET is set rather than generated
func (Auth) JWTSecretConfigured() bool {
	return GetEnv("JWT_SECRET", "") != ""
}

func (Auth) GetAccessTokenExpiry() time.Duration {
	return GetDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute)
}

func (Auth) GetRefreshTokenExpiry() time.Duration {
	return GetDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour) // 7 days
}

func (Auth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}
