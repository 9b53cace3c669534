package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"streamchat/internal/attachment"
	"streamchat/internal/client"
	"streamchat/internal/config"
	"streamchat/internal/logging"
	"streamchat/internal/orchestrator"
	"streamchat/internal/transcript"
	"streamchat/internal/uiqueue"
)

// ErrEmptyPrompt is returned by Ask for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// AskOptions configures a single headless prompt.
type AskOptions struct {
	Prompt string

	// Attach is a glob of files to send with the prompt. Empty sends none.
	Attach string

	// Save writes the exchange to the transcript store.
	Save bool

	// Client overrides the provider selected by the config.
	Client client.Client
}

// AskResult describes a finished headless prompt.
type AskResult struct {
	Reply          string
	TranscriptPath string
	Response       *client.Response
}

// Ask sends one prompt without the TUI and streams the reply to out.
func Ask(ctx context.Context, cfg *config.Config, opts AskOptions, out io.Writer) (*AskResult, error) {
	if strings.TrimSpace(opts.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	c := opts.Client
	if c == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		var err error
		c, err = client.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		defer c.Close()
	}

	files := &staticReceiver{}
	if opts.Attach != "" {
		atts, err := attachment.Glob(opts.Attach, cfg.Uploads.MaxBytes)
		if err != nil {
			return nil, err
		}
		files.files = atts
	}

	auditLog, err := openAuditLog(cfg)
	if err != nil {
		return nil, err
	}

	tr := transcript.New(out)
	done := make(chan orchestrator.CompletionEvent, 1)

	ob := orchestrator.New(c).
		WithContext(ctx).
		WithSystemPrompt(cfg.Chat.SystemPrompt).
		WithUserName(cfg.Chat.UserName).
		WithAssistantName(cfg.Chat.AssistantName).
		WithMessageList(tr).
		WithFileReceiver(files).
		WithCompletionListener(func(ev orchestrator.CompletionEvent) { done <- ev })
	applyErrorPolicy(ob, cfg.Chat)

	o, err := ob.Build()
	if err != nil {
		return nil, err
	}
	defer o.Close()

	queue := uiqueue.New(uiqueue.Inline)
	defer queue.Close()

	files.stage()
	if err := o.Prompt(queue, opts.Prompt); err != nil {
		return nil, err
	}

	// Every accepted prompt completes exactly once, including on ctx cancel.
	ev := <-done
	fmt.Fprintln(out)
	recordCycle(auditLog, c.Model(), ev)

	result := &AskResult{Response: ev.Response}
	if last, ok := tr.Last(); ok && ev.Err == nil {
		result.Reply = last.Text
	}

	if opts.Save {
		store, err := transcript.NewStore(cfg.Transcript.Dir)
		if err != nil {
			return result, err
		}
		path, err := store.Save(tr, c.Model())
		if err != nil {
			return result, fmt.Errorf("failed to save transcript: %w", err)
		}
		result.TranscriptPath = path
		logging.Debug("transcript saved", "path", path)
	}

	return result, ev.Err
}

// staticReceiver hands a fixed set of files to the orchestrator.
type staticReceiver struct {
	files    []attachment.Attachment
	onUpload func(attachment.Attachment)
}

func (r *staticReceiver) Subscribe(onUpload func(attachment.Attachment), _ func(string) bool) {
	r.onUpload = onUpload
}

func (r *staticReceiver) Clear() { r.files = nil }

func (r *staticReceiver) stage() {
	for _, f := range r.files {
		r.onUpload(f)
	}
}
