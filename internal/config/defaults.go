package config

import "time"

// Provider names.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderEcho      = "echo"
)

// Default configuration values.
const (
	DefaultModel     = "gemini-2.5-flash"
	DefaultMaxTokens = 8192

	DefaultUserName      = "You"
	DefaultAssistantName = "Assistant"

	// Retry settings
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 1 * time.Second
	DefaultMaxRetryDelay = 30 * time.Second
	DefaultHTTPTimeout   = 120 * time.Second

	DefaultStreamIdleTimeout = 30 * time.Second

	// Rate limiting
	DefaultRequestsPerMinute = 60
	DefaultTokensPerMinute   = 1000000
	DefaultBurstSize         = 10

	// Circuit breaker
	DefaultBreakerThreshold = 5
	DefaultBreakerReset     = 30 * time.Second

	// Uploads
	DefaultMaxAttachmentBytes = 20 << 20
	DefaultDebounceMs         = 300

	// Message-to-attachment correlation
	DefaultCorrelationCapacity = 256
	DefaultCorrelationTTL      = 24 * time.Hour
)
