// Package setup runs the first-start wizard that picks a provider and
// writes the config file.
package setup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"streamchat/internal/client"
	"streamchat/internal/config"
	"streamchat/internal/security"
)

// DefaultModels suggests a model per provider.
var DefaultModels = map[string]string{
	config.ProviderGemini:    config.DefaultModel,
	config.ProviderAnthropic: "claude-sonnet-4-5",
	config.ProviderOpenAI:    "gpt-4o-mini",
	config.ProviderOllama:    "llama3.2",
	config.ProviderEcho:      "",
}

var providerOrder = []string{
	config.ProviderGemini,
	config.ProviderAnthropic,
	config.ProviderOpenAI,
	config.ProviderOllama,
	config.ProviderEcho,
}

var keyEnv = map[string]string{
	config.ProviderGemini:    "GEMINI_API_KEY",
	config.ProviderAnthropic: "ANTHROPIC_API_KEY",
	config.ProviderOpenAI:    "OPENAI_API_KEY",
}

// Wizard asks for a provider, credentials and model.
type Wizard struct {
	in  *bufio.Reader
	out io.Writer

	// listOllama is replaced in tests.
	listOllama func(ctx context.Context, cfg *config.Config) ([]string, error)
}

// NewWizard creates a wizard reading answers from in.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		in:         bufio.NewReader(in),
		out:        out,
		listOllama: installedOllamaModels,
	}
}

// RunSetupWizard runs the wizard on the terminal and saves to path.
func RunSetupWizard(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if err := NewWizard(os.Stdin, os.Stdout).Run(cfg); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if path == "" {
		path = config.GetConfigPath()
	}
	fmt.Printf("\nSaved %s\n", path)
	return nil
}

// Run fills in cfg from the answers.
func (w *Wizard) Run(cfg *config.Config) error {
	fmt.Fprintln(w.out, "streamchat setup")
	fmt.Fprintln(w.out)

	provider, err := w.chooseProvider(cfg.API.GetActiveProvider())
	if err != nil {
		return err
	}
	cfg.API.Provider = provider

	switch provider {
	case config.ProviderGemini, config.ProviderAnthropic, config.ProviderOpenAI:
		if err := w.setupKey(cfg, provider); err != nil {
			return err
		}
	case config.ProviderOllama:
		if err := w.setupOllama(cfg); err != nil {
			return err
		}
		return nil
	case config.ProviderEcho:
		cfg.Model.Name = ""
		return nil
	}

	def := DefaultModels[provider]
	model, err := w.ask(fmt.Sprintf("Model [%s]: ", def))
	if err != nil {
		return err
	}
	if model == "" {
		model = def
	}
	cfg.Model.Name = model
	return nil
}

func (w *Wizard) chooseProvider(current string) (string, error) {
	fmt.Fprintln(w.out, "Providers:")
	defIndex := 1
	for i, p := range providerOrder {
		fmt.Fprintf(w.out, "  %d. %s\n", i+1, p)
		if p == current {
			defIndex = i + 1
		}
	}

	for {
		answer, err := w.ask(fmt.Sprintf("Choose a provider [%d]: ", defIndex))
		if err != nil {
			return "", err
		}
		if answer == "" {
			return providerOrder[defIndex-1], nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(providerOrder) {
			return providerOrder[n-1], nil
		}
		for _, p := range providerOrder {
			if strings.EqualFold(answer, p) {
				return p, nil
			}
		}
		fmt.Fprintf(w.out, "Unknown provider %q\n", answer)
	}
}

func (w *Wizard) setupKey(cfg *config.Config, provider string) error {
	existing := cfg.API.GetActiveKey()
	prompt := fmt.Sprintf("API key (or set %s): ", keyEnv[provider])
	if existing != "" {
		prompt = fmt.Sprintf("API key [%s]: ", security.MaskKey(existing))
	}

	for {
		key, err := w.ask(prompt)
		if err != nil {
			return err
		}
		if key == "" {
			key = existing
		}
		if key != "" {
			setKey(cfg, provider, key)
			return nil
		}
		fmt.Fprintln(w.out, "An API key is required for this provider.")
	}
}

func (w *Wizard) setupOllama(cfg *config.Config) error {
	def := cfg.API.OllamaBaseURL
	if def == "" {
		def = "http://localhost:11434"
	}
	host, err := w.ask(fmt.Sprintf("Ollama server [%s]: ", def))
	if err != nil {
		return err
	}
	if host == "" {
		host = def
	}
	cfg.API.OllamaBaseURL = host

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	suggested := DefaultModels[config.ProviderOllama]
	models, err := w.listOllama(ctx, cfg)
	switch {
	case err != nil:
		fmt.Fprintf(w.out, "Could not list models: %v\n", err)
	case len(models) == 0:
		fmt.Fprintf(w.out, "No models installed; run: ollama pull %s\n", suggested)
	default:
		fmt.Fprintf(w.out, "Installed: %s\n", strings.Join(models, ", "))
		suggested = models[0]
	}

	model, err := w.ask(fmt.Sprintf("Model [%s]: ", suggested))
	if err != nil {
		return err
	}
	if model == "" {
		model = suggested
	}
	cfg.Model.Name = model
	return nil
}

func (w *Wizard) ask(prompt string) (string, error) {
	fmt.Fprint(w.out, prompt)
	line, err := w.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("setup aborted: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func setKey(cfg *config.Config, provider, key string) {
	switch provider {
	case config.ProviderGemini:
		cfg.API.GeminiKey = key
	case config.ProviderAnthropic:
		cfg.API.AnthropicKey = key
	case config.ProviderOpenAI:
		cfg.API.OpenAIKey = key
	}
}

func installedOllamaModels(ctx context.Context, cfg *config.Config) ([]string, error) {
	c, err := client.NewOllamaClient(client.OllamaConfig{
		BaseURL: cfg.API.OllamaBaseURL,
		APIKey:  cfg.API.OllamaKey,
		Model:   DefaultModels[config.ProviderOllama],
	})
	if err != nil {
		return nil, err
	}
	return c.ListModels(ctx)
}
