package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"streamchat/internal/attachment"
	"streamchat/internal/config"
	"streamchat/internal/logging"
)

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	BaseURL     string        // Default: "http://localhost:11434"
	APIKey      string        // Optional, for remote Ollama servers with auth
	Model       string        // e.g., "llama3.2", "qwen2.5-coder"
	Temperature float32       // Temperature for generation
	MaxTokens   int32         // Max output tokens
	HTTPTimeout time.Duration // HTTP request timeout (default: 120s)
	IdleTimeout time.Duration
	Retry       RetryConfig
}

// OllamaClient streams responses from an Ollama server.
type OllamaClient struct {
	client *api.Client
	config OllamaConfig
	opts   streamOptions
}

// authTransport adds Authorization header to HTTP requests.
type authTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(reqClone)
}

// NewOllamaClient creates a new Ollama API client.
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = config.DefaultMaxTokens
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = config.DefaultHTTPTimeout
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	if baseURL.Scheme == "http" {
		host := baseURL.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			logging.Warn("Ollama connection uses unencrypted HTTP to remote host", "host", host)
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.APIKey != "" {
		httpClient.Transport = &authTransport{base: http.DefaultTransport, apiKey: cfg.APIKey}
	}

	return &OllamaClient{
		client: api.NewClient(baseURL, httpClient),
		config: cfg,
		opts: streamOptions{
			provider:    config.ProviderOllama,
			idleTimeout: cfg.IdleTimeout,
			retry:       cfg.Retry,
		},
	}, nil
}

func newOllamaClient(cfg *config.Config) (*OllamaClient, error) {
	return NewOllamaClient(OllamaConfig{
		BaseURL:     cfg.API.OllamaBaseURL,
		APIKey:      cfg.API.OllamaKey,
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxOutputTokens,
		HTTPTimeout: cfg.API.Retry.HTTPTimeout,
		IdleTimeout: cfg.Stream.IdleTimeout,
		Retry:       retryConfigFrom(cfg.API.Retry),
	})
}

// Stream implements Client.
func (c *OllamaClient) Stream(ctx context.Context, req Request) (*StreamingResponse, error) {
	chatReq := c.buildRequest(req)

	return startStream(ctx, c.opts, func(ctx context.Context, emit emitFunc) error {
		err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			chunk := ResponseChunk{Text: resp.Message.Content}
			if resp.Done {
				chunk.FinishReason = resp.DoneReason
				chunk.InputTokens = resp.PromptEvalCount
				chunk.OutputTokens = resp.EvalCount
			}
			if !emit(chunk) {
				return ctx.Err()
			}
			return nil
		})
		return c.wrapError(err)
	}), nil
}

func (c *OllamaClient) buildRequest(req Request) *api.ChatRequest {
	var images []api.ImageData
	var rest []attachment.Attachment
	for _, a := range req.Attachments {
		if a.IsImage() {
			images = append(images, api.ImageData(a.Data))
		} else {
			rest = append(rest, a)
		}
	}

	var messages []api.Message
	if req.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, api.Message{
		Role:    "user",
		Content: attachment.InlineText(req.Message, rest, true),
		Images:  images,
	})

	stream := true
	chatReq := &api.ChatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": c.config.Temperature,
			"num_predict": c.config.MaxTokens,
		},
	}

	for _, t := range req.Tools {
		switch v := t.(type) {
		case api.Tool:
			chatReq.Tools = append(chatReq.Tools, v)
		case *api.Tool:
			chatReq.Tools = append(chatReq.Tools, *v)
		default:
			logging.Debug("ollama: skipping tool of unsupported type", "type", fmt.Sprintf("%T", t))
		}
	}
	return chatReq
}

// wrapError maps Ollama status errors onto APIError.
func (c *OllamaClient) wrapError(err error) error {
	if err == nil {
		return nil
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return c.statusError(statusErr.StatusCode, statusErr.ErrorMessage, err)
	}
	var statusErrPtr *api.StatusError
	if errors.As(err, &statusErrPtr) {
		return c.statusError(statusErrPtr.StatusCode, statusErrPtr.ErrorMessage, err)
	}

	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("Ollama server is not running at %s (start it with: ollama serve): %w", c.config.BaseURL, err)
	}
	return err
}

func (c *OllamaClient) statusError(code int, msg string, err error) error {
	if code == http.StatusNotFound {
		msg = fmt.Sprintf("model %q is not installed (ollama pull %s)", c.config.Model, c.config.Model)
	}
	return &APIError{Provider: config.ProviderOllama, StatusCode: code, Message: msg, Err: err}
}

// ListModels returns the names of the models installed on the server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, c.wrapError(err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Model implements Client.
func (c *OllamaClient) Model() string { return c.config.Model }

// Close implements Client.
func (c *OllamaClient) Close() error { return nil }
