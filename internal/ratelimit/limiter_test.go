package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketRefill(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewTokenBucket(2, 1)
	b.now = func() time.Time { return now }
	b.lastRefill = now

	require.True(t, b.TryConsume(2))
	require.False(t, b.TryConsume(1))

	now = now.Add(1500 * time.Millisecond)
	require.True(t, b.TryConsume(1))
	require.InDelta(t, 0.5, b.Available(), 0.001)

	b.Return(10)
	require.InDelta(t, 2, b.Available(), 0.001)
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	b := NewTokenBucket(1, 0.001)
	require.True(t, b.TryConsume(1))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, b.Wait(ctx, 1), context.DeadlineExceeded)
}

func TestLimiterDisabledIsFree(t *testing.T) {
	l := NewLimiter(Config{Enabled: false, RequestsPerMinute: 1, BurstSize: 1})
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(context.Background(), 100))
	}
	require.Zero(t, l.Stats().TotalRequests)
}

func TestLimiterBlocksWhenExhausted(t *testing.T) {
	l := NewLimiter(Config{Enabled: true, RequestsPerMinute: 1, TokensPerMinute: 600000, BurstSize: 1})
	require.NoError(t, l.Acquire(context.Background(), 10))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.Error(t, l.Acquire(ctx, 10))

	st := l.Stats()
	require.Equal(t, int64(2), st.TotalRequests)
	require.Equal(t, int64(1), st.BlockedRequests)

	l.Release(10)
	require.NoError(t, l.Acquire(context.Background(), 10))
}

func TestNilLimiter(t *testing.T) {
	var l *Limiter
	require.NoError(t, l.Acquire(context.Background(), 1))
	l.Release(1)
}
