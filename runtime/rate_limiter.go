package runtime

import (
	"context"
	"time"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/registry"
)

const (
	DefaultRateLimitWindow = 10 * time.Second
	DefaultRateLimitMax    = 5
)

// RateLimiter is a fixed-window counter kept in the shared registry.
// A window admits max sends; up to twice that may pass across a window edge.
// Every attempt consumes a slot, including ones that later fail.
type RateLimiter struct {
	registry contract.SharedRegistry
	window   time.Duration
	max      int64
}

func NewRateLimiter(registry contract.SharedRegistry, window time.Duration, max int) *RateLimiter {
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	return &RateLimiter{registry: registry, window: window, max: int64(max)}
}

func (l *RateLimiter) Allow(ctx context.Context, userID domain.UserID) (bool, error) {
	count, err := l.registry.IncrWithExpiry(ctx, registry.RateLimitKey(userID), l.window)
	if err != nil {
		return false, err
	}
	return count <= l.max, nil
}
