package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"streamchat/internal/attachment"
	"streamchat/internal/config"
	"streamchat/internal/logging"
)

// OpenAIClient streams chat completions from OpenAI or a compatible server.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	opts        streamOptions
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg *config.Config) (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(cfg.API.OpenAIKey)
	if apiKey == "" {
		return nil, errors.New("OpenAI API key required: set OPENAI_API_KEY or api.openai_key")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.API.OpenAIBaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model.Name,
		maxTokens:   int(cfg.Model.MaxOutputTokens),
		temperature: cfg.Model.Temperature,
		opts: streamOptions{
			provider:    config.ProviderOpenAI,
			idleTimeout: cfg.Stream.IdleTimeout,
			retry:       retryConfigFrom(cfg.API.Retry),
		},
	}, nil
}

// Stream implements Client.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (*StreamingResponse, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openaiUserMessage(req))

	chatReq := openai.ChatCompletionRequest{
		Model:         c.model,
		Messages:      messages,
		Stream:        true,
		Temperature:   c.temperature,
		Tools:         openaiTools(req.Tools),
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}
	if c.maxTokens > 0 {
		chatReq.MaxCompletionTokens = c.maxTokens
	}

	return startStream(ctx, c.opts, func(ctx context.Context, emit emitFunc) error {
		stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
		if err != nil {
			return wrapOpenAIError(err)
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return wrapOpenAIError(err)
			}

			var chunk ResponseChunk
			if len(resp.Choices) > 0 {
				chunk.Text = resp.Choices[0].Delta.Content
				chunk.FinishReason = string(resp.Choices[0].FinishReason)
			}
			if resp.Usage != nil {
				chunk.InputTokens = resp.Usage.PromptTokens
				chunk.OutputTokens = resp.Usage.CompletionTokens
			}
			if chunk == (ResponseChunk{}) {
				continue
			}
			if !emit(chunk) {
				return ctx.Err()
			}
		}
	}), nil
}

// openaiUserMessage uses multi-part content only when images are attached.
func openaiUserMessage(req Request) openai.ChatCompletionMessage {
	var images, rest []attachment.Attachment
	for _, a := range req.Attachments {
		if a.IsImage() {
			images = append(images, a)
		} else {
			rest = append(rest, a)
		}
	}

	text := attachment.InlineText(req.Message, rest, true)
	if len(images) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: text}}
	for _, a := range images {
		dataURL := fmt.Sprintf("data:%s;base64,%s",
			attachment.NormalizeMIME(a.Name, a.MIMEType),
			base64.StdEncoding.EncodeToString(a.Data))
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func openaiTools(tools []any) []openai.Tool {
	var out []openai.Tool
	for _, t := range tools {
		switch v := t.(type) {
		case openai.Tool:
			out = append(out, v)
		case *openai.FunctionDefinition:
			out = append(out, openai.Tool{Type: openai.ToolTypeFunction, Function: v})
		default:
			logging.Debug("openai: skipping tool of unsupported type", "type", fmt.Sprintf("%T", t))
		}
	}
	return out
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: config.ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: config.ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return err
}

// Model implements Client.
func (c *OpenAIClient) Model() string { return c.model }

// Close implements Client.
func (c *OpenAIClient) Close() error { return nil }
