package app

import (
	"context"
	"fmt"
	"sync"

	"streamchat/internal/audit"
	"streamchat/internal/client"
	"streamchat/internal/config"
	"streamchat/internal/logging"
	"streamchat/internal/orchestrator"
	"streamchat/internal/ui"
	"streamchat/internal/watcher"
)

// Builder provides a fluent interface for constructing App instances.
type Builder struct {
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc

	// Optional components (nil means not configured)
	client       client.Client
	tuiModel     *ui.Model
	inbox        *watcher.Inbox
	orchestrator *orchestrator.Orchestrator
	auditLog     *audit.Logger

	// Build errors
	mu          sync.Mutex
	buildErrors []error
}

// NewBuilder creates a new App builder.
func NewBuilder(cfg *config.Config) *Builder {
	ctx, cancel := context.WithCancel(context.Background())
	return &Builder{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithClient uses c instead of the provider client selected by the config.
func (b *Builder) WithClient(c client.Client) *Builder {
	b.client = c
	return b
}

// Build constructs the App, returning every configuration problem at once.
func (b *Builder) Build() (*App, error) {
	if b.cfg == nil {
		b.cancel()
		return nil, fmt.Errorf("app build failed: config is required")
	}

	if err := b.initClient(); err != nil {
		b.addError(err)
	}
	b.initUI()
	if err := b.initAudit(); err != nil {
		b.addError(err)
	}
	if err := b.initInbox(); err != nil {
		b.addError(err)
	}
	if err := b.initOrchestrator(); err != nil {
		b.addError(err)
	}

	if err := b.finalizeError(); err != nil {
		b.cancel()
		if b.orchestrator != nil {
			b.orchestrator.Close()
		}
		if b.inbox != nil {
			b.inbox.Stop()
		}
		return nil, err
	}
	return b.assembleApp(), nil
}

func (b *Builder) initClient() error {
	if b.client != nil {
		return nil
	}
	if err := b.cfg.Validate(); err != nil {
		return err
	}
	c, err := client.NewClient(b.ctx, b.cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	b.client = c
	return nil
}

func (b *Builder) initUI() {
	b.tuiModel = ui.NewModel(ui.Options{
		UserName:      b.cfg.Chat.UserName,
		AssistantName: b.cfg.Chat.AssistantName,
		ModelName:     b.modelLabel(),
		MaxBytes:      b.cfg.Uploads.MaxBytes,
	})
}

func (b *Builder) initAudit() error {
	log, err := openAuditLog(b.cfg)
	if err != nil {
		return err
	}
	b.auditLog = log
	return nil
}

func (b *Builder) initInbox() error {
	if b.cfg.Uploads.InboxDir == "" {
		return nil
	}
	inbox, err := watcher.NewInbox(b.cfg.Uploads.InboxDir, watcher.Config{
		DebounceMs: b.cfg.Uploads.DebounceMs,
		MaxBytes:   b.cfg.Uploads.MaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}
	b.inbox = inbox
	return nil
}

func (b *Builder) initOrchestrator() error {
	if b.client == nil {
		return nil
	}

	ob := orchestrator.New(b.client).
		WithContext(b.ctx).
		WithSystemPrompt(b.cfg.Chat.SystemPrompt).
		WithUserName(b.cfg.Chat.UserName).
		WithAssistantName(b.cfg.Chat.AssistantName).
		WithMessageList(b.tuiModel.MessageList()).
		WithInput(b.tuiModel).
		WithFileReceiver(b.tuiModel.Uploader()).
		WithAttachmentClickListener(b.openAttachment).
		WithCompletionListener(b.reportCompletion)
	if b.inbox != nil {
		ob.WithFileReceiver(b.inbox)
	}
	applyErrorPolicy(ob, b.cfg.Chat)

	o, err := ob.Build()
	if err != nil {
		return err
	}
	b.orchestrator = o
	b.tuiModel.SetBusyFunc(o.Busy)
	b.tuiModel.SetStagedFunc(o.Staged)
	return nil
}

func (b *Builder) modelLabel() string {
	provider := b.cfg.API.GetActiveProvider()
	if provider == config.ProviderEcho || b.cfg.Model.Name == "" {
		return provider
	}
	return provider + "/" + b.cfg.Model.Name
}

// openAttachment and reportCompletion run on the TUI goroutine.
func (b *Builder) openAttachment(ev orchestrator.AttachmentClickEvent) {
	path, err := writeTempAttachment(ev.Attachment)
	if err != nil {
		logging.Warn("failed to export attachment", "name", ev.Attachment.Name, "error", err)
		b.tuiModel.SetStatus(fmt.Sprintf("open %s: %v", ev.Attachment.Name, err))
		return
	}
	b.tuiModel.SetStatus(fmt.Sprintf("%s saved to %s", ev.Attachment.Name, path))
}

func (b *Builder) reportCompletion(ev orchestrator.CompletionEvent) {
	recordCycle(b.auditLog, b.client.Model(), ev)
	if ev.Err != nil {
		logging.Warn("reply failed", "message_id", ev.MessageID, "error", ev.Err)
		return
	}
	if ev.Response != nil && (ev.Response.InputTokens > 0 || ev.Response.OutputTokens > 0) {
		b.tuiModel.SetStatus(fmt.Sprintf("%d in / %d out tokens",
			ev.Response.InputTokens, ev.Response.OutputTokens))
	}
}

func (b *Builder) assembleApp() *App {
	return &App{
		config:       b.cfg,
		ctx:          b.ctx,
		cancel:       b.cancel,
		client:       b.client,
		tui:          b.tuiModel,
		inbox:        b.inbox,
		orchestrator: b.orchestrator,
	}
}

// addError records a non-fatal error during build.
func (b *Builder) addError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buildErrors = append(b.buildErrors, err)
}

// finalizeError combines all build errors into a single error.
func (b *Builder) finalizeError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buildErrors) == 0 {
		return nil
	}
	msg := fmt.Sprintf("app build failed with %d error(s)", len(b.buildErrors))
	for i, err := range b.buildErrors {
		msg += fmt.Sprintf("\n  %d. %s", i+1, err.Error())
	}
	return fmt.Errorf("%s", msg)
}
