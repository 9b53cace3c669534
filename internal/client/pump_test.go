package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, RetryDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestStartStreamDeliversInOrderThenDone(t *testing.T) {
	sr := startStream(context.Background(), streamOptions{}, func(ctx context.Context, emit emitFunc) error {
		for _, s := range []string{"a", "b", "c"} {
			emit(ResponseChunk{Text: s})
		}
		return nil
	})

	var texts []string
	var last ResponseChunk
	for chunk := range sr.Chunks {
		texts = append(texts, chunk.Text)
		last = chunk
	}
	require.Equal(t, []string{"a", "b", "c", ""}, texts)
	require.True(t, last.Done)
	require.NoError(t, last.Error)
	<-sr.Done
}

func TestStartStreamIdleTimeout(t *testing.T) {
	opts := streamOptions{idleTimeout: 20 * time.Millisecond}
	sr := startStream(context.Background(), opts, func(ctx context.Context, emit emitFunc) error {
		emit(ResponseChunk{Text: "partial"})
		<-ctx.Done()
		return ctx.Err()
	})

	text, err := collectText(context.Background(), sr)
	require.Empty(t, text)
	require.ErrorIs(t, err, ErrStreamIdleTimeout)
	require.True(t, IsTimeoutError(err))
}

func TestStartStreamRetriesBeforeFirstChunk(t *testing.T) {
	var attempts atomic.Int32
	opts := streamOptions{retry: fastRetry(3)}
	sr := startStream(context.Background(), opts, func(ctx context.Context, emit emitFunc) error {
		if attempts.Add(1) < 3 {
			return &APIError{StatusCode: 503, Message: "unavailable"}
		}
		emit(ResponseChunk{Text: "ok"})
		return nil
	})

	text, err := collectText(context.Background(), sr)
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.Equal(t, int32(3), attempts.Load())
}

func TestStartStreamDoesNotRetryAfterEmitting(t *testing.T) {
	var attempts atomic.Int32
	boom := &APIError{StatusCode: 503, Message: "unavailable"}
	opts := streamOptions{retry: fastRetry(3)}
	sr := startStream(context.Background(), opts, func(ctx context.Context, emit emitFunc) error {
		attempts.Add(1)
		emit(ResponseChunk{Text: "half"})
		return boom
	})

	_, err := collectText(context.Background(), sr)
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(1), attempts.Load())
}

func TestStartStreamDoesNotRetryPermanentErrors(t *testing.T) {
	var attempts atomic.Int32
	bad := &APIError{StatusCode: 401, Message: "bad key"}
	sr := startStream(context.Background(), streamOptions{retry: fastRetry(3)}, func(ctx context.Context, emit emitFunc) error {
		attempts.Add(1)
		return bad
	})

	_, err := collectText(context.Background(), sr)
	require.ErrorIs(t, err, bad)
	require.Equal(t, int32(1), attempts.Load())
}

func TestStartStreamParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	sr := startStream(ctx, streamOptions{}, func(ctx context.Context, emit emitFunc) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	cancel()

	select {
	case <-sr.Done:
	case <-time.After(time.Second):
		t.Fatal("producer did not exit")
	}
}

func TestProcessStreamCallbacks(t *testing.T) {
	chunks := make(chan ResponseChunk, 4)
	chunks <- ResponseChunk{Text: "Hi"}
	chunks <- ResponseChunk{Text: ""}
	chunks <- ResponseChunk{Text: " there", FinishReason: "stop"}
	chunks <- ResponseChunk{Done: true, OutputTokens: 2}
	close(chunks)

	var got []string
	var completed *Response
	resp, err := ProcessStream(context.Background(), &StreamingResponse{Chunks: chunks}, &StreamHandler{
		OnText:     func(s string) { got = append(got, s) },
		OnError:    func(error) { t.Fatal("unexpected error") },
		OnComplete: func(r *Response) { completed = r },
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Hi", " there"}, got)
	require.Same(t, resp, completed)
	require.Equal(t, "Hi there", resp.Text)
	require.Equal(t, "stop", resp.FinishReason)
	require.Equal(t, 2, resp.OutputTokens)
}

func TestProcessStreamClosedWithoutDoneCompletes(t *testing.T) {
	chunks := make(chan ResponseChunk)
	close(chunks)

	completed := false
	_, err := ProcessStream(context.Background(), &StreamingResponse{Chunks: chunks}, &StreamHandler{
		OnComplete: func(*Response) { completed = true },
	})
	require.NoError(t, err)
	require.True(t, completed)
}

func TestProcessStreamContextDoneReportsError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var gotErr error
	_, err := ProcessStream(ctx, &StreamingResponse{Chunks: make(chan ResponseChunk)}, &StreamHandler{
		OnError: func(err error) { gotErr = err },
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, err, gotErr)
}

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "net" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func TestIsTimeoutError(t *testing.T) {
	require.False(t, IsTimeoutError(nil))
	require.True(t, IsTimeoutError(context.DeadlineExceeded))
	require.True(t, IsTimeoutError(errors.Join(errors.New("x"), ErrStreamIdleTimeout)))
	require.True(t, IsTimeoutError(fakeNetErr{timeout: true}))
	require.False(t, IsTimeoutError(fakeNetErr{timeout: false}))
	require.True(t, IsTimeoutError(&APIError{StatusCode: 504}))
	require.False(t, IsTimeoutError(&APIError{StatusCode: 500}))
	require.False(t, IsTimeoutError(errors.New("boom")))
}

func TestIsRetryableError(t *testing.T) {
	require.False(t, IsRetryableError(context.Canceled))
	require.True(t, IsRetryableError(&APIError{StatusCode: 429}))
	require.False(t, IsRetryableError(&APIError{StatusCode: 400}))
	require.True(t, IsRetryableError(errors.New("rpc error: UNAVAILABLE")))
	require.True(t, IsRetryableError(fakeNetErr{}))
}

func TestCalculateBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 40; attempt++ {
		d := CalculateBackoff(100*time.Millisecond, attempt, 2*time.Second)
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}

func collectText(ctx context.Context, sr *StreamingResponse) (string, error) {
	resp, err := ProcessStream(ctx, sr, &StreamHandler{})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
