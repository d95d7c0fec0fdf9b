package translation

import (
	"context"
	"sync"
	"time"
)

// DefaultSafetyMargin is how long before expiry a cached token is
// considered stale.
const DefaultSafetyMargin = 60 * time.Second

// Token is a bearer credential for the translation service.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Authenticator obtains a fresh Token.
type Authenticator interface {
	Authenticate(ctx context.Context) (Token, error)
}

// CredentialCache hands out a cached token while it has more than the
// safety margin left, and authenticates otherwise.
//
// The mutex only guards the cached value. Authentication runs unlocked, so
// two callers finding a stale token may both authenticate; the last one to
// finish overwrites the cache.
type CredentialCache struct {
	auth   Authenticator
	margin time.Duration
	now    func() time.Time

	mu    sync.Mutex
	token Token
}

type CacheOption func(*CredentialCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CredentialCache) { c.now = now }
}

// WithSafetyMargin overrides DefaultSafetyMargin.
func WithSafetyMargin(d time.Duration) CacheOption {
	return func(c *CredentialCache) { c.margin = d }
}

func NewCredentialCache(auth Authenticator, opts ...CacheOption) *CredentialCache {
	c := &CredentialCache{
		auth:   auth,
		margin: DefaultSafetyMargin,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Token returns a usable access token.
func (c *CredentialCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.token
	c.mu.Unlock()

	if cached.AccessToken != "" && c.now().Add(c.margin).Before(cached.ExpiresAt) {
		return cached.AccessToken, nil
	}

	fresh, err := c.auth.Authenticate(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = fresh
	c.mu.Unlock()
	return fresh.AccessToken, nil
}

// Invalidate drops the cached token, e.g. after the service rejected it.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
}
