package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamchat/internal/attachment"
	"streamchat/internal/ratelimit"
	"streamchat/internal/robustness"
)

// scriptedClient replays a fixed outcome for every Stream call.
type scriptedClient struct {
	calls   atomic.Int32
	openErr error
	chunks  []ResponseChunk
}

func (c *scriptedClient) Stream(ctx context.Context, req Request) (*StreamingResponse, error) {
	c.calls.Add(1)
	if c.openErr != nil {
		return nil, c.openErr
	}
	ch := make(chan ResponseChunk, len(c.chunks))
	done := make(chan struct{})
	for _, chunk := range c.chunks {
		ch <- chunk
	}
	close(ch)
	close(done)
	return &StreamingResponse{Chunks: ch, Done: done}, nil
}

func (c *scriptedClient) Model() string { return "scripted" }
func (c *scriptedClient) Close() error  { return nil }

func guardedRequest() Request {
	return Request{Message: "Hello", Tools: []any{}, Attachments: []attachment.Attachment{}}
}

func TestGuardedClientRelaysChunks(t *testing.T) {
	inner := &scriptedClient{chunks: []ResponseChunk{{Text: "Hi"}, {Text: " there"}, {Done: true}}}
	g := NewGuardedClient(inner, nil, robustness.NewCircuitBreaker(2, time.Minute))

	sr, err := g.Stream(context.Background(), guardedRequest())
	require.NoError(t, err)
	text, err := collectText(context.Background(), sr)
	require.NoError(t, err)
	require.Equal(t, "Hi there", text)
	require.Equal(t, robustness.StateClosed, g.Breaker().GetState())
}

func TestGuardedClientOpensBreakerOnServerErrors(t *testing.T) {
	boom := &APIError{StatusCode: 503, Message: "down"}
	inner := &scriptedClient{chunks: []ResponseChunk{{Error: boom, Done: true}}}
	g := NewGuardedClient(inner, nil, robustness.NewCircuitBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := g.Stream(context.Background(), guardedRequest())
		require.ErrorIs(t, err, boom)
	}
	require.Equal(t, robustness.StateOpen, g.Breaker().GetState())

	_, err := g.Stream(context.Background(), guardedRequest())
	require.ErrorIs(t, err, robustness.ErrCircuitOpen)
	require.Equal(t, int32(2), inner.calls.Load())
}

func TestGuardedClientIgnoresClientErrors(t *testing.T) {
	inner := &scriptedClient{openErr: &APIError{StatusCode: 401, Message: "bad key"}}
	g := NewGuardedClient(inner, nil, robustness.NewCircuitBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := g.Stream(context.Background(), guardedRequest())
		require.Error(t, err)
	}
	require.Equal(t, robustness.StateClosed, g.Breaker().GetState())
	require.Equal(t, int32(3), inner.calls.Load())
}

func TestGuardedClientRateLimitHonoursContext(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Enabled:           true,
		RequestsPerMinute: 1,
		TokensPerMinute:   1_000_000,
		BurstSize:         1,
	})
	inner := &scriptedClient{chunks: []ResponseChunk{{Text: "ok", Done: true}}}
	g := NewGuardedClient(inner, limiter, nil)

	sr, err := g.Stream(context.Background(), guardedRequest())
	require.NoError(t, err)
	_, err = collectText(context.Background(), sr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Stream(ctx, guardedRequest())
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Equal(t, int32(1), inner.calls.Load())
}

func TestRelayStopsWhenContextEnds(t *testing.T) {
	src := make(chan ResponseChunk)
	ctx, cancel := context.WithCancel(context.Background())
	sr := relay(ctx, &StreamingResponse{Chunks: src}, ResponseChunk{Text: "first"}, true)

	chunk := <-sr.Chunks
	require.Equal(t, "first", chunk.Text)
	cancel()

	select {
	case <-sr.Done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
