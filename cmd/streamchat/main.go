package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"streamchat/internal/app"
	"streamchat/internal/config"
	"streamchat/internal/logging"
	"streamchat/internal/setup"
)

var (
	version      = "0.1.0"
	cfgFile      string
	provider     string
	model        string
	systemPrompt string
	runSetup     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "streamchat",
		Short: "Streaming chat with language models in the terminal",
		Long: `streamchat sends prompts, with optional file attachments, to Gemini,
Anthropic, OpenAI or Ollama models and streams the replies as they arrive.`,
		SilenceUsage: true,
		RunE:         runApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/streamchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "provider: gemini, anthropic, openai, ollama or echo")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use")
	rootCmd.PersistentFlags().StringVar(&systemPrompt, "system", "", "system prompt")
	rootCmd.Flags().BoolVar(&runSetup, "setup", false, "run the setup wizard before starting")

	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newTranscriptsCmd())
	rootCmd.AddCommand(newUsageCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Choose a provider and model and save the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup.RunSetupWizard(cfgFile)
		},
	})

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("streamchat version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if provider != "" {
		cfg.API.Provider = provider
	}
	if model != "" {
		cfg.Model.Name = model
	}
	if systemPrompt != "" {
		cfg.Chat.SystemPrompt = systemPrompt
	}
	cfg.Version = version
	return cfg, nil
}

func runApp(cmd *cobra.Command, args []string) error {
	if runSetup {
		if err := setup.RunSetupWizard(cfgFile); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// No key yet: run the wizard once and reload
	if err := cfg.Validate(); errors.Is(err, config.ErrMissingAuth) {
		if err := setup.RunSetupWizard(cfgFile); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
		if cfg, err = loadConfig(); err != nil {
			return err
		}
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return application.Run()
}

func newAskCmd() *cobra.Command {
	var (
		attach string
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send one prompt and print the streamed reply",
		Long: `Send one prompt without the interactive UI. The prompt is read from the
arguments, or from stdin when no arguments are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Configure(logging.ParseLevel(cfg.Logging.Level), cmd.ErrOrStderr())

			prompt := strings.Join(args, " ")
			if prompt == "" {
				data, err := readAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				prompt = data
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := app.Ask(ctx, cfg, app.AskOptions{
				Prompt: prompt,
				Attach: attach,
				Save:   save,
			}, cmd.OutOrStdout())
			if res != nil && res.TranscriptPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "transcript saved to %s\n", res.TranscriptPath)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&attach, "attach", "", "glob of files to attach (supports **)")
	cmd.Flags().BoolVar(&save, "save", false, "save the exchange as a transcript")
	return cmd
}
