package safety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRateLimiter_BurstAndRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := NewRateLimiter("klines", 2, 4)
	rl.now = clock.now
	rl.lastRefill = clock.t

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	wait, ok := rl.reserve(1)
	assert.False(t, ok)
	assert.Equal(t, 250*time.Millisecond, wait)

	clock.t = clock.t.Add(250 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	// refill never exceeds capacity
	clock.t = clock.t.Add(time.Hour)
	assert.Equal(t, 2, rl.GetStats().Tokens)
}

func TestRateLimiter_StatsRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := NewRateLimiter("klines", 4, 2)
	rl.now = clock.now
	rl.lastRefill = clock.t

	for i := 0; i < 4; i++ {
		require.True(t, rl.Allow())
	}
	assert.Equal(t, 0, rl.GetStats().Tokens)

	clock.t = clock.t.Add(time.Second)
	assert.Equal(t, 2, rl.GetStats().Tokens)

	// stats refill must not hand out extra tokens
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter("klines", 1, 50)

	require.NoError(t, rl.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	rl := NewRateLimiter("klines", 1, 1)
	require.True(t, rl.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}
