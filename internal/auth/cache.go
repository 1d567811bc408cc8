package auth

import (
	"sync"
	"time"
)

// TokenCache is the single in-memory slot holding the last known-good token
// record. It is the first stop for every credential lookup; disk and network
// are only touched when the slot is empty or stale.
type TokenCache struct {
	mu     sync.RWMutex
	rec    *TokenRecord
	buffer time.Duration
}

// NewTokenCache returns an empty cache that treats records as expired once
// now reaches expires_at minus buffer.
func NewTokenCache(buffer time.Duration) *TokenCache {
	return &TokenCache{buffer: buffer}
}

// Get returns the cached record, or nil when the slot is empty.
func (c *TokenCache) Get() *TokenRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rec
}

// Set replaces the slot wholesale. Records are never mutated in place.
func (c *TokenCache) Set(rec *TokenRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec = rec
}

// Clear empties the slot.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec = nil
}

// IsExpired reports whether the slot needs replacing at the given instant:
// empty slot, record without an expiry, or now at or past expires_at minus
// the buffer.
func (c *TokenCache) IsExpired(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rec.Expired(now, c.buffer)
}

// ExpiryTime returns the cached record's expires_at in epoch milliseconds,
// or 0 when the slot is empty or the record has none.
func (c *TokenCache) ExpiryTime() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rec == nil {
		return 0
	}
	return c.rec.ExpiresAt
}

// Buffer returns the configured expiry safety margin.
func (c *TokenCache) Buffer() time.Duration {
	return c.buffer
}
