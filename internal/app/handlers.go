package app

import (
	"os"
	"path/filepath"
	"strings"

	"streamchat/internal/attachment"
	"streamchat/internal/audit"
	"streamchat/internal/config"
	"streamchat/internal/logging"
	"streamchat/internal/orchestrator"
	"streamchat/internal/security"
)

// ErrorPlaceholder is replaced by the error text in chat.error_template.
const ErrorPlaceholder = "{error}"

// templateFormatter renders tmpl with the failure substituted. Credentials
// echoed back by a provider are masked.
func templateFormatter(tmpl string) orchestrator.ErrorFormatter {
	return func(err error) string {
		return strings.ReplaceAll(tmpl, ErrorPlaceholder, security.Redact(err.Error()))
	}
}

// applyErrorPolicy installs the configured error texts on ob.
func applyErrorPolicy(ob *orchestrator.Builder, chat config.ChatConfig) {
	if strings.TrimSpace(chat.ErrorTemplate) == "" {
		return
	}
	ob.WithErrorFormatter(templateFormatter(chat.ErrorTemplate)).
		WithTimeoutMessagePreserved(chat.KeepTimeoutMessage)
}

// writeTempAttachment copies a to a new file in the temp directory and
// returns its path.
func writeTempAttachment(a attachment.Attachment) (string, error) {
	dir, err := os.MkdirTemp("", "streamchat-")
	if err != nil {
		return "", err
	}
	name := filepath.Base(a.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "attachment"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, a.Data, 0600); err != nil {
		return "", err
	}
	return path, nil
}

// openAuditLog returns the configured audit logger. A disabled logger drops
// every entry.
func openAuditLog(cfg *config.Config) (*audit.Logger, error) {
	return audit.NewLogger(filepath.Join(config.Dir(), "audit"), cfg.Logging.Audit)
}

// recordCycle appends ev to log.
func recordCycle(log *audit.Logger, model string, ev orchestrator.CompletionEvent) {
	entry := &audit.Entry{
		ID:          ev.MessageID,
		Model:       model,
		Attachments: ev.Attachments,
		Success:     ev.Err == nil,
		Duration:    ev.Duration,
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	if ev.Response != nil {
		entry.FinishReason = ev.Response.FinishReason
		entry.InputTokens = ev.Response.InputTokens
		entry.OutputTokens = ev.Response.OutputTokens
	}
	if err := log.Log(entry); err != nil {
		logging.Warn("failed to write audit entry", "error", err)
	}
}
