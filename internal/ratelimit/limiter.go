// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the spacing enforced between two requests to the same site
const DefaultInterval = 10 * time.Second

// RateLimiter defines the interface for rate limiting implementations.
//
// Keys are site identifiers. Requests that share a key are spaced out,
// requests with different keys never wait on each other.
type RateLimiter interface {
	// Wait blocks until a request for the given site can proceed.
	// If the context is cancelled before the rate limit allows, an error is returned.
	Wait(ctx context.Context, siteID string) error

	// Allow reports whether a request for the given site can proceed immediately
	// without blocking. A true result consumes the grant.
	Allow(siteID string) bool
}

// SiteLimiter enforces a minimum interval between granted requests per site.
// Each site gets a token bucket of size one that refills once per interval,
// so two grants for the same site are never closer together than the interval.
type SiteLimiter struct {
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
	mu        sync.RWMutex
	interval  time.Duration
}

// NewSiteLimiter creates a limiter with the given default interval per site
func NewSiteLimiter(interval time.Duration) *SiteLimiter {
	if interval < 0 {
		interval = DefaultInterval
	}

	return &SiteLimiter{
		limiters:  make(map[string]*rate.Limiter),
		intervals: make(map[string]time.Duration),
		interval:  interval,
	}
}

// Wait blocks until the request for the given site can proceed
func (sl *SiteLimiter) Wait(ctx context.Context, siteID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return sl.getLimiter(siteID).Wait(ctx)
}

// Allow checks if a request can proceed immediately without blocking
func (sl *SiteLimiter) Allow(siteID string) bool {
	return sl.getLimiter(siteID).Allow()
}

// Interval returns the spacing in effect for a site
func (sl *SiteLimiter) Interval(siteID string) time.Duration {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if d, ok := sl.intervals[siteID]; ok {
		return d
	}
	return sl.interval
}

// SetInterval overrides the spacing for one site
func (sl *SiteLimiter) SetInterval(siteID string, interval time.Duration) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.intervals[siteID] = interval
	if limiter, exists := sl.limiters[siteID]; exists {
		limiter.SetLimit(limitFor(interval))
	}
}

// getLimiter returns or creates the limiter for the given site
func (sl *SiteLimiter) getLimiter(siteID string) *rate.Limiter {
	sl.mu.RLock()
	limiter, exists := sl.limiters[siteID]
	sl.mu.RUnlock()

	if exists {
		return limiter
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := sl.limiters[siteID]; exists {
		return limiter
	}

	interval := sl.interval
	if d, ok := sl.intervals[siteID]; ok {
		interval = d
	}
	limiter = rate.NewLimiter(limitFor(interval), 1)
	sl.limiters[siteID] = limiter

	return limiter
}

func limitFor(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}
