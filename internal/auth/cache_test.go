package auth

import (
	"testing"
	"time"
)

func TestTokenCacheSetGetClear(t *testing.T) {
	c := NewTokenCache(DefaultRefreshBuffer)

	if c.Get() != nil {
		t.Error("new cache should be empty")
	}

	rec := &TokenRecord{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}
	c.Set(rec)
	if got := c.Get(); got != rec {
		t.Errorf("Get() = %p, want the record that was set", got)
	}

	c.Clear()
	if c.Get() != nil {
		t.Error("cache should be empty after Clear")
	}
}

func TestTokenCacheIsExpired(t *testing.T) {
	buffer := 5 * time.Minute
	expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	c := NewTokenCache(buffer)
	if !c.IsExpired(expiry.Add(-time.Hour)) {
		t.Error("empty cache should count as expired")
	}

	c.Set(&TokenRecord{AccessToken: "tok", ExpiresAt: expiry.UnixMilli()})

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"outside the buffer window", expiry.Add(-buffer - time.Millisecond), false},
		{"exactly at the window edge", expiry.Add(-buffer), true},
		{"past expiry", expiry.Add(time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsExpired(tt.now); got != tt.want {
				t.Errorf("IsExpired(%s) = %v, want %v",
					tt.now.Format(time.RFC3339Nano), got, tt.want)
			}
		})
	}
}

func TestTokenCacheExpiryTime(t *testing.T) {
	c := NewTokenCache(DefaultRefreshBuffer)
	if got := c.ExpiryTime(); got != 0 {
		t.Errorf("ExpiryTime() on empty cache = %d, want 0", got)
	}

	at := time.Now().Add(time.Hour).UnixMilli()
	c.Set(&TokenRecord{AccessToken: "tok", ExpiresAt: at})
	if got := c.ExpiryTime(); got != at {
		t.Errorf("ExpiryTime() = %d, want %d", got, at)
	}
}

func TestTokenCacheBuffer(t *testing.T) {
	c := NewTokenCache(90 * time.Second)
	if got := c.Buffer(); got != 90*time.Second {
		t.Errorf("Buffer() = %v, want %v", got, 90*time.Second)
	}
}
