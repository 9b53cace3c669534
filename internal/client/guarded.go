package client

import (
	"context"
	"errors"

	"streamchat/internal/logging"
	"streamchat/internal/ratelimit"
	"streamchat/internal/robustness"
)

// GuardedClient applies rate limiting and a circuit breaker to another Client.
// A stream counts as opened once its first chunk arrives; an error before that
// point is a breaker failure and is returned from Stream directly.
type GuardedClient struct {
	inner   Client
	limiter *ratelimit.Limiter
	breaker *robustness.CircuitBreaker
}

// NewGuardedClient wraps inner. limiter and breaker may be nil.
func NewGuardedClient(inner Client, limiter *ratelimit.Limiter, breaker *robustness.CircuitBreaker) *GuardedClient {
	if breaker != nil && breaker.IsFailure == nil {
		breaker.IsFailure = func(err error) bool {
			// Client errors (bad key, bad request) will not heal by waiting.
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
				return apiErr.StatusCode == 408 || apiErr.StatusCode == 429
			}
			return true
		}
	}
	return &GuardedClient{inner: inner, limiter: limiter, breaker: breaker}
}

func estimateTokens(req Request) int64 {
	chars := len(req.Message) + len(req.SystemPrompt)
	for _, a := range req.Attachments {
		if a.IsText() {
			chars += len(a.Data)
		}
	}
	return ratelimit.EstimateTokens(chars)
}

// Stream implements Client.
func (g *GuardedClient) Stream(ctx context.Context, req Request) (*StreamingResponse, error) {
	estimated := estimateTokens(req)
	if err := g.limiter.Acquire(ctx, estimated); err != nil {
		return nil, err
	}

	if g.breaker == nil {
		return g.inner.Stream(ctx, req)
	}

	var (
		inner *StreamingResponse
		first ResponseChunk
		open  bool
	)
	err := g.breaker.Execute(ctx, func() error {
		sr, err := g.inner.Stream(ctx, req)
		if err != nil {
			return err
		}
		inner = sr

		select {
		case first, open = <-sr.Chunks:
		case <-ctx.Done():
			return context.Cause(ctx)
		}
		if open && first.Error != nil {
			return first.Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, robustness.ErrCircuitOpen) {
			g.limiter.Release(estimated)
			logging.Warn("provider circuit open, request rejected", "model", g.inner.Model())
		}
		return nil, err
	}

	return relay(ctx, inner, first, open), nil
}

// relay re-emits first followed by the rest of sr until ctx is done.
func relay(ctx context.Context, sr *StreamingResponse, first ResponseChunk, open bool) *StreamingResponse {
	chunks := make(chan ResponseChunk, cap(sr.Chunks))
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(chunks)
		if !open {
			return
		}
		forward := func(chunk ResponseChunk) bool {
			select {
			case chunks <- chunk:
				return !chunk.Done
			case <-ctx.Done():
				return false
			}
		}
		if !forward(first) {
			return
		}
		for {
			select {
			case chunk, ok := <-sr.Chunks:
				if !ok || !forward(chunk) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return &StreamingResponse{Chunks: chunks, Done: done}
}

// Breaker returns the circuit breaker, if any.
func (g *GuardedClient) Breaker() *robustness.CircuitBreaker { return g.breaker }

// Model implements Client.
func (g *GuardedClient) Model() string { return g.inner.Model() }

// Close implements Client.
func (g *GuardedClient) Close() error { return g.inner.Close() }
