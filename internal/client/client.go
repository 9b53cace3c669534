package client

import (
	"context"

	"streamchat/internal/attachment"
)

// Request is one outbound prompt. It is built fresh for every prompt and
// never retained.
type Request struct {
	// Message is the user's text.
	Message string

	// SystemPrompt is already trimmed; empty means no system prompt.
	SystemPrompt string

	// Tools are provider-native tool definitions in registration order.
	// Providers ignore values of types they do not understand. Never nil.
	Tools []any

	// Attachments are passed through unchanged. Never nil.
	Attachments []attachment.Attachment
}

// Client is a language-model provider that answers a Request with a stream
// of text chunks.
type Client interface {
	// Stream starts a response. Errors that occur before the first chunk
	// may be returned directly or delivered on the stream.
	Stream(ctx context.Context, req Request) (*StreamingResponse, error)

	// Model returns the model name.
	Model() string

	// Close releases provider resources.
	Close() error
}

// StreamingResponse represents a streaming response from the model.
type StreamingResponse struct {
	// Chunks receives response chunks. It is closed after the final chunk.
	Chunks <-chan ResponseChunk

	// Done is closed when the producer has exited.
	Done <-chan struct{}
}

// ResponseChunk represents a single chunk in a streaming response.
type ResponseChunk struct {
	// Text contains any text content in this chunk.
	Text string

	// Error terminates the stream.
	Error error

	// Done indicates the final chunk.
	Done bool

	// FinishReason is the provider's stop reason, if reported.
	FinishReason string

	// InputTokens from API usage metadata (if available).
	InputTokens int

	// OutputTokens from API usage metadata (if available).
	OutputTokens int
}

// Response represents a complete response from the model.
type Response struct {
	Text         string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

func (r *Response) absorb(chunk ResponseChunk) {
	r.Text += chunk.Text
	if chunk.FinishReason != "" {
		r.FinishReason = chunk.FinishReason
	}
	// Keep the latest non-zero usage metadata (typically from the final chunk)
	if chunk.InputTokens > 0 {
		r.InputTokens = chunk.InputTokens
	}
	if chunk.OutputTokens > 0 {
		r.OutputTokens = chunk.OutputTokens
	}
}
