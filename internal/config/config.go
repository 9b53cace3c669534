package config

import "time"

// Config represents the main application configuration.
type Config struct {
	API            APIConfig            `yaml:"api"`
	Model          ModelConfig          `yaml:"model"`
	Chat           ChatConfig           `yaml:"chat"`
	Stream         StreamConfig         `yaml:"stream"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Uploads        UploadsConfig        `yaml:"uploads"`
	Transcript     TranscriptConfig     `yaml:"transcript"`
	Logging        LoggingConfig        `yaml:"logging"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds provider credentials and endpoints.
type APIConfig struct {
	// Active provider: gemini, anthropic, openai, ollama, echo (default: gemini)
	Provider string `yaml:"provider"`

	GeminiKey        string `yaml:"gemini_key,omitempty"`
	AnthropicKey     string `yaml:"anthropic_key,omitempty"`
	AnthropicBaseURL string `yaml:"anthropic_base_url,omitempty"`
	OpenAIKey        string `yaml:"openai_key,omitempty"`
	OpenAIBaseURL    string `yaml:"openai_base_url,omitempty"`
	OllamaKey        string `yaml:"ollama_key,omitempty"` // Optional, for remote Ollama servers with auth
	OllamaBaseURL    string `yaml:"ollama_base_url,omitempty"`

	Retry RetryConfig `yaml:"retry"`
}

// GetActiveProvider returns the provider name, defaulting to gemini.
func (c *APIConfig) GetActiveProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	return ProviderGemini
}

// GetActiveKey returns the API key for the active provider.
func (c *APIConfig) GetActiveKey() string {
	switch c.GetActiveProvider() {
	case ProviderGemini:
		return c.GeminiKey
	case ProviderAnthropic:
		return c.AnthropicKey
	case ProviderOpenAI:
		return c.OpenAIKey
	case ProviderOllama:
		return c.OllamaKey
	}
	return ""
}

// RequiresKey reports whether the active provider cannot run without a key.
func (c *APIConfig) RequiresKey() bool {
	switch c.GetActiveProvider() {
	case ProviderGemini, ProviderAnthropic, ProviderOpenAI:
		return true
	}
	return false
}

// RetryConfig holds retry settings for opening a provider stream.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`  // Maximum number of retry attempts (default: 3)
	RetryDelay  time.Duration `yaml:"retry_delay"`  // Initial delay between retries (default: 1s)
	MaxDelay    time.Duration `yaml:"max_delay"`    // Backoff cap (default: 30s)
	HTTPTimeout time.Duration `yaml:"http_timeout"` // HTTP request timeout (default: 120s)
}

// ModelConfig holds model-related settings.
type ModelConfig struct {
	Name            string  `yaml:"name"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// ChatConfig holds conversation presentation settings.
type ChatConfig struct {
	SystemPrompt  string `yaml:"system_prompt"`
	UserName      string `yaml:"user_name"`
	AssistantName string `yaml:"assistant_name"`

	// ErrorTemplate, when set, replaces the built-in error texts.
	// "{error}" is substituted with the underlying error.
	ErrorTemplate string `yaml:"error_template,omitempty"`

	// KeepTimeoutMessage keeps the built-in timeout text even when
	// ErrorTemplate is set.
	KeepTimeoutMessage bool `yaml:"keep_timeout_message"`
}

// StreamConfig holds streaming settings.
type StreamConfig struct {
	// IdleTimeout fails a stream that delivers nothing for this long.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool  `yaml:"enabled"`
	RequestsPerMinute int   `yaml:"requests_per_minute"`
	TokensPerMinute   int64 `yaml:"tokens_per_minute"`
	BurstSize         int   `yaml:"burst_size"`
}

// CircuitBreakerConfig holds provider circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Threshold    int           `yaml:"threshold"`     // Consecutive failures before opening
	ResetTimeout time.Duration `yaml:"reset_timeout"` // Time before a half-open probe
}

// UploadsConfig holds attachment intake settings.
type UploadsConfig struct {
	InboxDir   string `yaml:"inbox_dir,omitempty"` // Watched directory; empty disables
	MaxBytes   int64  `yaml:"max_bytes"`           // Per-file size cap
	DebounceMs int    `yaml:"debounce_ms"`
}

// TranscriptConfig holds conversation persistence settings.
type TranscriptConfig struct {
	Dir string `yaml:"dir,omitempty"` // Default: $XDG_DATA_HOME/streamchat/transcripts
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  bool   `yaml:"file"`  // Write streamchat.log into the config directory
	Audit bool   `yaml:"audit"` // Append one line per reply to <config dir>/audit/audit.jsonl
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Provider: ProviderGemini,
			Retry: RetryConfig{
				MaxRetries:  DefaultMaxRetries,
				RetryDelay:  DefaultRetryDelay,
				MaxDelay:    DefaultMaxRetryDelay,
				HTTPTimeout: DefaultHTTPTimeout,
			},
		},
		Model: ModelConfig{
			Name:            DefaultModel,
			Temperature:     1.0,
			MaxOutputTokens: DefaultMaxTokens,
		},
		Chat: ChatConfig{
			UserName:      DefaultUserName,
			AssistantName: DefaultAssistantName,
		},
		Stream: StreamConfig{
			IdleTimeout: DefaultStreamIdleTimeout,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: DefaultRequestsPerMinute,
			TokensPerMinute:   DefaultTokensPerMinute,
			BurstSize:         DefaultBurstSize,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:      true,
			Threshold:    DefaultBreakerThreshold,
			ResetTimeout: DefaultBreakerReset,
		},
		Uploads: UploadsConfig{
			MaxBytes:   DefaultMaxAttachmentBytes,
			DebounceMs: DefaultDebounceMs,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
