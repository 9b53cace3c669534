package orchestrator

import (
	"context"

	"streamchat/internal/client"
	"streamchat/internal/logging"
)

// stream consumes the provider response for c on its own goroutine. Each
// token becomes one session task, so tokens reach the placeholder in
// arrival order and never interleave.
func (o *Orchestrator) stream(sess Session, c *cycle) {
	ctx, cancel := context.WithCancelCause(o.ctx)
	defer cancel(nil)

	sr, err := o.client.Stream(ctx, c.req)
	if err != nil {
		o.fail(sess, c, err)
		return
	}

	var refused error
	resp, err := client.ProcessStream(ctx, sr, &client.StreamHandler{
		OnText: func(token string) {
			if refused != nil {
				return
			}
			if aerr := sess.Access(func() { c.placeholder.AppendText(token) }); aerr != nil {
				refused = aerr
				cancel(aerr)
			}
		},
	})

	if refused != nil {
		logging.Warn("session refused stream update, abandoning cycle",
			"message_id", c.id, "error", refused)
		o.release(c, nil, refused)
		return
	}
	if err != nil {
		o.fail(sess, c, err)
		return
	}

	logging.Debug("stream completed",
		"message_id", c.id,
		"finish_reason", resp.FinishReason,
		"output_tokens", resp.OutputTokens)

	if aerr := sess.Access(func() { o.release(c, resp, nil) }); aerr != nil {
		logging.Warn("session refused completion", "message_id", c.id, "error", aerr)
		o.release(c, resp, nil)
	}
}

// fail replaces the placeholder text with the error message, then ends the
// cycle.
func (o *Orchestrator) fail(sess Session, c *cycle, err error) {
	msg := o.errorMessage(err)
	logging.Warn("stream failed",
		"message_id", c.id,
		"timeout", client.IsTimeoutError(err),
		"error", err)

	aerr := sess.Access(func() {
		c.placeholder.SetText(msg)
		o.release(c, nil, err)
	})
	if aerr != nil {
		logging.Warn("session refused error message", "message_id", c.id, "error", aerr)
		o.release(c, nil, err)
	}
}
