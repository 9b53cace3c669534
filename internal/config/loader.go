package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"streamchat/internal/fileutil"
)

// Load loads configuration from file and environment variables.
// An empty path selects the default location. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// Dir returns the configuration directory.
func Dir() string {
	return filepath.Dir(getConfigPath())
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "streamchat", "config.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".streamchat", "config.yaml")
	}
	return filepath.Join(homeDir, ".config", "streamchat", "config.yaml")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Allow ${VAR} references, mostly for API keys.
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv overrides configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if provider := os.Getenv("STREAMCHAT_PROVIDER"); provider != "" {
		cfg.API.Provider = strings.ToLower(provider)
	}
	if model := os.Getenv("STREAMCHAT_MODEL"); model != "" {
		cfg.Model.Name = model
	}
	if prompt := os.Getenv("STREAMCHAT_SYSTEM_PROMPT"); prompt != "" {
		cfg.Chat.SystemPrompt = prompt
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.API.GeminiKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.API.AnthropicKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.API.OpenAIKey = key
	}
	if key := os.Getenv("OLLAMA_API_KEY"); key != "" {
		cfg.API.OllamaKey = key
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.API.OllamaBaseURL = host
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.API.GetActiveProvider() {
	case ProviderGemini, ProviderAnthropic, ProviderOpenAI, ProviderOllama, ProviderEcho:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.API.Provider)
	}

	if c.API.RequiresKey() && c.API.GetActiveKey() == "" {
		return ErrMissingAuth
	}
	if c.API.GetActiveProvider() != ProviderEcho && strings.TrimSpace(c.Model.Name) == "" {
		return ErrMissingModel
	}
	if strings.TrimSpace(c.Chat.UserName) == "" || strings.TrimSpace(c.Chat.AssistantName) == "" {
		return ErrBlankDisplayName
	}
	return nil
}

// Error types for configuration validation.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingAuth      ConfigError = "missing authentication: set the API key for the active provider (GEMINI_API_KEY, ANTHROPIC_API_KEY or OPENAI_API_KEY)"
	ErrMissingModel     ConfigError = "missing model name: set model.name or STREAMCHAT_MODEL"
	ErrUnknownProvider  ConfigError = "unknown provider"
	ErrBlankDisplayName ConfigError = "chat.user_name and chat.assistant_name must not be blank"
)

// Save writes cfg to path as YAML, readable only by the owner since it may
// hold API keys. An empty path selects the default location.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = getConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.AtomicWrite(path, data, 0600)
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return getConfigPath()
}
