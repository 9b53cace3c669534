package client

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EchoClient is an offline provider that streams the prompt back word by
// word. It needs no credentials and is useful for trying the UI.
type EchoClient struct {
	prefix string
	delay  time.Duration
	opts   streamOptions
}

// NewEchoClient creates an echo provider. delay is the pause between words.
func NewEchoClient(prefix string, delay time.Duration) *EchoClient {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Echo:"
	}
	return &EchoClient{
		prefix: prefix,
		delay:  delay,
		opts:   streamOptions{provider: "echo"},
	}
}

func (c *EchoClient) reply(req Request) string {
	var b strings.Builder
	b.WriteString(c.prefix)
	b.WriteString(" ")
	b.WriteString(req.Message)
	if len(req.Attachments) > 0 {
		names := make([]string, len(req.Attachments))
		for i, a := range req.Attachments {
			names[i] = a.Name
		}
		fmt.Fprintf(&b, " (attachments: %s)", strings.Join(names, ", "))
	}
	return b.String()
}

// Stream implements Client.
func (c *EchoClient) Stream(ctx context.Context, req Request) (*StreamingResponse, error) {
	words := strings.SplitAfter(c.reply(req), " ")

	return startStream(ctx, c.opts, func(ctx context.Context, emit emitFunc) error {
		for i, w := range words {
			if i > 0 && c.delay > 0 {
				select {
				case <-time.After(c.delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if !emit(ResponseChunk{Text: w}) {
				return ctx.Err()
			}
		}
		emit(ResponseChunk{FinishReason: "stop", OutputTokens: len(words)})
		return nil
	}), nil
}

// Model implements Client.
func (c *EchoClient) Model() string { return "echo" }

// Close implements Client.
func (c *EchoClient) Close() error { return nil }
