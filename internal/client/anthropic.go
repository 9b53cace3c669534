package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"streamchat/internal/attachment"
	"streamchat/internal/config"
	"streamchat/internal/logging"
)

// AnthropicClient streams responses from the Anthropic Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float32
	opts        streamOptions
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg *config.Config) (*AnthropicClient, error) {
	apiKey := strings.TrimSpace(cfg.API.AnthropicKey)
	if apiKey == "" {
		return nil, errors.New("Anthropic API key required: set ANTHROPIC_API_KEY or api.anthropic_key")
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		// Retries are handled by startStream.
		anthropicoption.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.API.AnthropicBaseURL); base != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}

	maxTokens := int64(cfg.Model.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model.Name,
		maxTokens:   maxTokens,
		temperature: cfg.Model.Temperature,
		opts: streamOptions{
			provider:    config.ProviderAnthropic,
			idleTimeout: cfg.Stream.IdleTimeout,
			retry:       retryConfigFrom(cfg.API.Retry),
		},
	}, nil
}

// Stream implements Client.
func (c *AnthropicClient) Stream(ctx context.Context, req Request) (*StreamingResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropicBlocks(req)...)},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.temperature))
	}
	params.Tools = anthropicTools(req.Tools)

	return startStream(ctx, c.opts, func(ctx context.Context, emit emitFunc) error {
		stream := c.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			var chunk ResponseChunk
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.MessageStartEvent:
				chunk.InputTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
					chunk.Text = delta.Text
				}
			case anthropic.MessageDeltaEvent:
				chunk.FinishReason = string(ev.Delta.StopReason)
				chunk.OutputTokens = int(ev.Usage.OutputTokens)
			default:
				continue
			}
			if chunk == (ResponseChunk{}) {
				continue
			}
			if !emit(chunk) {
				return ctx.Err()
			}
		}
		return wrapAnthropicError(stream.Err())
	}), nil
}

// anthropicBlocks sends supported images as base64 blocks and inlines the rest.
func anthropicBlocks(req Request) []anthropic.ContentBlockParamUnion {
	var images, rest []attachment.Attachment
	for _, a := range req.Attachments {
		switch attachment.NormalizeMIME(a.Name, a.MIMEType) {
		case "image/jpeg", "image/png", "image/gif", "image/webp":
			images = append(images, a)
		default:
			rest = append(rest, a)
		}
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, a := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			attachment.NormalizeMIME(a.Name, a.MIMEType),
			base64.StdEncoding.EncodeToString(a.Data),
		))
	}
	return append(blocks, anthropic.NewTextBlock(attachment.InlineText(req.Message, rest, true)))
}

func anthropicTools(tools []any) []anthropic.ToolUnionParam {
	var out []anthropic.ToolUnionParam
	for _, t := range tools {
		switch v := t.(type) {
		case anthropic.ToolUnionParam:
			out = append(out, v)
		case anthropic.ToolParam:
			out = append(out, anthropic.ToolUnionParam{OfTool: &v})
		default:
			logging.Debug("anthropic: skipping tool of unsupported type", "type", fmt.Sprintf("%T", t))
		}
	}
	return out
}

func wrapAnthropicError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   config.ProviderAnthropic,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
			Err:        err,
		}
	}
	return err
}

// Model implements Client.
func (c *AnthropicClient) Model() string { return c.model }

// Close implements Client.
func (c *AnthropicClient) Close() error { return nil }
