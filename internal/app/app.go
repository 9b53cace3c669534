// Package app wires configuration, a provider client, the orchestrator and
// the terminal UI into a runnable chat application.
package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"streamchat/internal/client"
	"streamchat/internal/config"
	"streamchat/internal/logging"
	"streamchat/internal/orchestrator"
	"streamchat/internal/ui"
	"streamchat/internal/uiqueue"
	"streamchat/internal/watcher"
)

// App is the interactive chat application.
type App struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc

	client       client.Client
	tui          *ui.Model
	inbox        *watcher.Inbox
	orchestrator *orchestrator.Orchestrator

	program *tea.Program
	queue   *uiqueue.Queue
}

// New builds an App from cfg.
func New(cfg *config.Config) (*App, error) {
	return NewBuilder(cfg).Build()
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	defer a.shutdown()

	configureLogging(a.config)

	a.program = tea.NewProgram(a.tui, tea.WithAltScreen(), tea.WithContext(a.ctx))
	exec := uiqueue.NewProgramExecutor(a.program)
	a.queue = uiqueue.New(exec.Execute)
	a.tui.SetSession(a.queue)

	if a.inbox != nil {
		// The inbox goroutine is not the TUI goroutine, so Send is safe here.
		a.inbox.SetOnEvent(func(ev watcher.Event) {
			a.program.Send(watcher.NewFileChangeMsg(ev))
		})
		if err := a.inbox.Start(); err != nil {
			return fmt.Errorf("failed to start inbox: %w", err)
		}
		a.tui.SetStatus("watching " + a.inbox.Dir())
	}

	logging.Info("starting", "provider", a.config.API.GetActiveProvider(), "model", a.config.Model.Name)

	_, err := a.program.Run()
	// Tasks the exited program dropped still have to run, or a cycle in
	// flight would never release.
	exec.Finish()
	if err != nil && err != tea.ErrProgramKilled {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (a *App) shutdown() {
	a.cancel()
	if a.inbox != nil {
		if err := a.inbox.Stop(); err != nil {
			logging.Debug("failed to stop inbox", "error", err)
		}
	}
	if a.queue != nil {
		a.queue.Close()
	}
	a.orchestrator.Close()
	if err := a.client.Close(); err != nil {
		logging.Debug("failed to close client", "error", err)
	}
	logging.Close()
}

// configureLogging sends logs to a file in the config directory so the TUI
// owns the terminal.
func configureLogging(cfg *config.Config) {
	if !cfg.Logging.File {
		logging.DisableLogging()
		return
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	if err := logging.EnableFileLogging(config.Dir(), level); err != nil {
		logging.DisableLogging()
	}
}
