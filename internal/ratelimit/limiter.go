package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Limiter throttles provider requests by request count and estimated tokens.
type Limiter struct {
	requests *TokenBucket
	tokens   *TokenBucket
	enabled  atomic.Bool

	totalRequests   atomic.Int64
	blockedRequests atomic.Int64
}

// Config holds rate limiter configuration.
type Config struct {
	Enabled           bool
	RequestsPerMinute int
	TokensPerMinute   int64
	BurstSize         int
}

// NewLimiter creates a limiter from cfg.
func NewLimiter(cfg Config) *Limiter {
	burst := float64(cfg.BurstSize)
	if burst < 1 {
		burst = 1
	}

	l := &Limiter{
		requests: NewTokenBucket(burst, float64(cfg.RequestsPerMinute)/60.0),
		// Allow a tenth of the per-minute token budget as burst.
		tokens: NewTokenBucket(float64(cfg.TokensPerMinute)/10.0, float64(cfg.TokensPerMinute)/60.0),
	}
	l.enabled.Store(cfg.Enabled)
	return l
}

// Acquire waits for one request slot and estimatedTokens of token budget.
func (l *Limiter) Acquire(ctx context.Context, estimatedTokens int64) error {
	if l == nil || !l.enabled.Load() {
		return nil
	}
	l.totalRequests.Add(1)

	if !l.requests.TryConsume(1) {
		l.blockedRequests.Add(1)
		if err := l.requests.Wait(ctx, 1); err != nil {
			return fmt.Errorf("rate limit: request slot: %w", err)
		}
	}

	if estimatedTokens > 0 {
		if err := l.tokens.Wait(ctx, float64(estimatedTokens)); err != nil {
			l.requests.Return(1)
			return fmt.Errorf("rate limit: token budget: %w", err)
		}
	}
	return nil
}

// Release returns capacity taken by Acquire for a request that never ran.
func (l *Limiter) Release(estimatedTokens int64) {
	if l == nil || !l.enabled.Load() {
		return
	}
	l.requests.Return(1)
	if estimatedTokens > 0 {
		l.tokens.Return(float64(estimatedTokens))
	}
}

// SetEnabled toggles limiting.
func (l *Limiter) SetEnabled(enabled bool) {
	l.enabled.Store(enabled)
}

// Stats holds rate limiter statistics.
type Stats struct {
	Enabled           bool
	TotalRequests     int64
	BlockedRequests   int64
	AvailableRequests float64
	AvailableTokens   float64
}

// Stats returns a snapshot of limiter counters.
func (l *Limiter) Stats() Stats {
	return Stats{
		Enabled:           l.enabled.Load(),
		TotalRequests:     l.totalRequests.Load(),
		BlockedRequests:   l.blockedRequests.Load(),
		AvailableRequests: l.requests.Available(),
		AvailableTokens:   l.tokens.Available(),
	}
}

// EstimateTokens roughly estimates tokens at four characters per token.
func EstimateTokens(chars int) int64 {
	return int64(chars / 4)
}
