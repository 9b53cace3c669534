package client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"streamchat/internal/attachment"
	"streamchat/internal/config"
	"streamchat/internal/logging"
)

// GeminiClient streams responses from the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	opts   streamOptions
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	if cfg.API.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key required: set GEMINI_API_KEY or api.gemini_key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.API.GeminiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logging.Debug("created Gemini client", "model", cfg.Model.Name)

	return &GeminiClient{
		client: client,
		model:  cfg.Model.Name,
		config: &genai.GenerateContentConfig{
			Temperature:     Ptr(cfg.Model.Temperature),
			MaxOutputTokens: cfg.Model.MaxOutputTokens,
		},
		opts: streamOptions{
			provider:    config.ProviderGemini,
			idleTimeout: cfg.Stream.IdleTimeout,
			retry:       retryConfigFrom(cfg.API.Retry),
		},
	}, nil
}

// Stream implements Client.
func (c *GeminiClient) Stream(ctx context.Context, req Request) (*StreamingResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(geminiParts(req), genai.RoleUser),
	}

	genConfig := *c.config
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	genConfig.Tools = geminiTools(req.Tools)

	return startStream(ctx, c.opts, func(ctx context.Context, emit emitFunc) error {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, &genConfig) {
			if err != nil {
				return err
			}
			if resp == nil {
				return nil
			}
			if !emit(geminiChunk(resp)) {
				return ctx.Err()
			}
		}
		return nil
	}), nil
}

// geminiParts sends images, video and PDFs as inline data and folds text
// files into the prompt.
func geminiParts(req Request) []*genai.Part {
	var inline, rest []attachment.Attachment
	for _, a := range req.Attachments {
		mt := attachment.NormalizeMIME(a.Name, a.MIMEType)
		if a.IsImage() || strings.HasPrefix(mt, "video/") || mt == "application/pdf" {
			inline = append(inline, a)
		} else {
			rest = append(rest, a)
		}
	}

	parts := []*genai.Part{genai.NewPartFromText(attachment.InlineText(req.Message, rest, true))}
	for _, a := range inline {
		parts = append(parts, genai.NewPartFromBytes(a.Data, attachment.NormalizeMIME(a.Name, a.MIMEType)))
	}
	return parts
}

func geminiTools(tools []any) []*genai.Tool {
	var out []*genai.Tool
	for _, t := range tools {
		switch v := t.(type) {
		case *genai.Tool:
			out = append(out, v)
		case genai.Tool:
			out = append(out, &v)
		default:
			logging.Debug("gemini: skipping tool of unsupported type", "type", fmt.Sprintf("%T", t))
		}
	}
	return out
}

// geminiChunk converts a Gemini response to a ResponseChunk.
func geminiChunk(resp *genai.GenerateContentResponse) ResponseChunk {
	chunk := ResponseChunk{}

	if resp.UsageMetadata != nil {
		chunk.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		chunk.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 {
		return chunk
	}

	candidate := resp.Candidates[0]
	chunk.FinishReason = string(candidate.FinishReason)
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			chunk.Text += part.Text
		}
	}
	return chunk
}

// Model implements Client.
func (c *GeminiClient) Model() string { return c.model }

// Close implements Client. The genai client has nothing to release.
func (c *GeminiClient) Close() error { return nil }

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
