package pardot

import (
	"sync"
	"time"
)

// tokenCache manages the session token with thread-safe access
type tokenCache struct {
	mu          sync.RWMutex
	accessToken string
	issuedAt    time.Time
}

func (c *tokenCache) get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *tokenCache) set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
	c.issuedAt = time.Now()
}

func (c *tokenCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.issuedAt = time.Time{}
}

// age returns how long the current token has been held.
func (c *tokenCache) age() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.issuedAt.IsZero() {
		return 0
	}
	return time.Since(c.issuedAt)
}

// prefix returns at most n leading characters, for logging identifiers
// without leaking them.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
