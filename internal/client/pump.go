package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streamchat/internal/logging"
)

// emitFunc hands one chunk to the consumer. It returns false once the
// stream context is done and the producer should stop.
type emitFunc func(ResponseChunk) bool

// produceFunc is one provider attempt. It must return when ctx is done.
type produceFunc func(ctx context.Context, emit emitFunc) error

// streamOptions are shared by every provider.
type streamOptions struct {
	provider    string
	idleTimeout time.Duration
	retry       RetryConfig
}

// startStream runs produce on its own goroutine and adapts it to a
// StreamingResponse. Each attempt has an idle watchdog: if no chunk is
// emitted for idleTimeout the attempt is cancelled with ErrStreamIdleTimeout.
// Attempts that fail with a retryable error before emitting anything are
// retried with backoff. The final chunk always has Done set.
func startStream(ctx context.Context, opts streamOptions, produce produceFunc) *StreamingResponse {
	chunks := make(chan ResponseChunk, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(chunks)

		final := func(chunk ResponseChunk) {
			chunk.Done = true
			select {
			case chunks <- chunk:
			case <-ctx.Done():
			}
		}

		for attempt := 0; ; attempt++ {
			emitted, err := runAttempt(ctx, opts.idleTimeout, chunks, produce)
			if err == nil {
				final(ResponseChunk{})
				return
			}

			if emitted || attempt >= opts.retry.MaxRetries || ctx.Err() != nil || !IsRetryableError(err) {
				if ctx.Err() != nil && !IsTimeoutError(err) {
					err = context.Cause(ctx)
				}
				logging.Warn("stream failed", "provider", opts.provider, "attempt", attempt, "error", err)
				final(ResponseChunk{Error: err})
				return
			}

			delay := CalculateBackoff(opts.retry.RetryDelay, attempt, opts.retry.MaxDelay)
			logging.Info("retrying stream", "provider", opts.provider, "attempt", attempt+1, "delay", delay, "error", err)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				final(ResponseChunk{Error: context.Cause(ctx)})
				return
			case <-timer.C:
			}
		}
	}()

	return &StreamingResponse{Chunks: chunks, Done: done}
}

// runAttempt runs produce once and reports whether it emitted anything.
func runAttempt(parent context.Context, idle time.Duration, chunks chan<- ResponseChunk, produce produceFunc) (bool, error) {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	var watchdog *time.Timer
	if idle > 0 {
		watchdog = time.AfterFunc(idle, func() {
			cancel(fmt.Errorf("%w: no data received for %v", ErrStreamIdleTimeout, idle))
		})
		defer watchdog.Stop()
	}

	emitted := false
	emit := func(chunk ResponseChunk) bool {
		select {
		case chunks <- chunk:
			emitted = true
			if watchdog != nil {
				watchdog.Reset(idle)
			}
			return true
		case <-ctx.Done():
			return false
		}
	}

	err := produce(ctx, emit)

	// SDKs surface our cancellation as context.Canceled; report the cause.
	if cause := context.Cause(ctx); cause != nil && errors.Is(cause, ErrStreamIdleTimeout) {
		return emitted, cause
	}
	if err == nil && parent.Err() != nil {
		return emitted, context.Cause(parent)
	}
	return emitted, err
}
