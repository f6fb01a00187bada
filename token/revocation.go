package token

import (
	"sync"
	"time"
)

// RevokedTokenCache remembers logged-out access tokens by jti until they expire
type RevokedTokenCache interface {
	Add(jti string, exp time.Time) error
	IsRevoked(jti string) bool
	// Cleanup forgets entries past their expiry and reports how many it dropped
	Cleanup() int
}

type memoryRevocations struct {
	mu      sync.RWMutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewInMemoryRevokedTokenCache keeps revocations in process memory. A restart forgets
// them, which is bounded by the access token lifetime.
func NewInMemoryRevokedTokenCache() RevokedTokenCache {
	return &memoryRevocations{expires: make(map[string]time.Time), now: time.Now}
}

func (c *memoryRevocations) Add(jti string, exp time.Time) error {
	c.mu.Lock()
	c.expires[jti] = exp
	c.mu.Unlock()
	return nil
}

func (c *memoryRevocations) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.expires[jti]
	return ok
}

func (c *memoryRevocations) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for jti, exp := range c.expires {
		if now.After(exp) {
			delete(c.expires, jti)
			dropped++
		}
	}
	return dropped
}
