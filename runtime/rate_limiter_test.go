package runtime

import (
	"context"
	"testing"
	"time"

	"folio-chat/registry"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg := registry.NewMemoryRegistry(registry.WithClock(func() time.Time { return now }))
	limiter := NewRateLimiter(reg, 0, 0)

	for range DefaultRateLimitMax {
		allowed, err := limiter.Allow(ctx, "alice")
		req.NoError(err)
		req.True(allowed)
	}

	// The sixth attempt in the window is refused, other users are unaffected
	allowed, err := limiter.Allow(ctx, "alice")
	req.NoError(err)
	req.False(allowed)
	allowed, err = limiter.Allow(ctx, "bob")
	req.NoError(err)
	req.True(allowed)

	// Refused attempts still count, the window does not slide
	now = now.Add(DefaultRateLimitWindow - time.Millisecond)
	allowed, _ = limiter.Allow(ctx, "alice")
	req.False(allowed)

	now = now.Add(time.Millisecond)
	allowed, _ = limiter.Allow(ctx, "alice")
	req.True(allowed)
}
