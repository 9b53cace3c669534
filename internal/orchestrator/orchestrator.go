// Package orchestrator coordinates one streaming prompt/response cycle at a
// time between chat UI collaborators and a provider client.
//
// A cycle moves Idle -> Dispatched -> Streaming -> Completed|Errored -> Idle.
// Prompt enters Dispatched synchronously; everything that touches UI state
// afterwards runs as a task on the caller's Session.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"streamchat/internal/attachment"
	"streamchat/internal/client"
	"streamchat/internal/logging"
)

// Orchestrator wires input, staged attachments and a provider stream into a
// MessageList. It is safe for concurrent use.
type Orchestrator struct {
	client       client.Client
	systemPrompt string
	tools        []any

	processing atomic.Bool
	buffer     *attachment.Buffer

	list      MessageList
	receivers []FileReceiver

	userName      string
	assistantName string
	formatter     ErrorFormatter
	keepTimeout   bool

	onSubmit   func(AttachmentSubmitEvent)
	onComplete func(CompletionEvent)
	bridge     *bridge

	ctx context.Context
}

// cycle is the state of one prompt/response exchange.
type cycle struct {
	id          string
	text        string
	req         client.Request
	placeholder Message
	started     time.Time
}

// Prompt sends text to the provider and streams the reply into the message
// list through sess.
//
// Blank text and calls made while another cycle is in flight are dropped
// without error. A nil session, or one that refuses the dispatch task,
// yields ErrNoSession and leaves the orchestrator idle with its staged
// attachments intact.
func (o *Orchestrator) Prompt(sess Session, text string) error {
	if sess == nil {
		return ErrNoSession
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !o.processing.CompareAndSwap(false, true) {
		logging.Debug("prompt dropped: cycle in flight")
		return nil
	}

	atts := o.buffer.Drain()
	c := &cycle{
		id:      uuid.NewString(),
		text:    text,
		req:     o.buildRequest(text, atts),
		started: time.Now(),
	}

	if err := sess.Access(func() { o.dispatch(sess, c) }); err != nil {
		o.buffer.Restore(atts)
		o.processing.Store(false)
		return fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	return nil
}

// Busy reports whether a cycle is in flight.
func (o *Orchestrator) Busy() bool {
	return o.processing.Load()
}

// Staged returns the attachments that the next prompt will carry.
func (o *Orchestrator) Staged() []attachment.Attachment {
	return o.buffer.Snapshot()
}

// Close releases the click-correlation cache.
func (o *Orchestrator) Close() {
	o.bridge.close()
}

func (o *Orchestrator) buildRequest(text string, atts []attachment.Attachment) client.Request {
	return client.Request{
		Message:      text,
		SystemPrompt: o.systemPrompt,
		Tools:        o.tools,
		Attachments:  atts,
	}
}

// dispatch runs on the session. It writes both turns before the provider
// is contacted so the list always reads user, assistant, tokens.
func (o *Orchestrator) dispatch(sess Session, c *cycle) {
	for _, r := range o.receivers {
		r.Clear()
	}

	atts := c.req.Attachments
	user := o.list.AddMessage(c.text, o.userName, atts)
	c.placeholder = o.list.AddMessage("", o.assistantName, []attachment.Attachment{})

	if len(atts) > 0 {
		o.bridge.record(user, c.id, atts)
		if o.onSubmit != nil {
			o.onSubmit(AttachmentSubmitEvent{MessageID: c.id, Attachments: atts})
		}
	}

	logging.Debug("prompt dispatched",
		"message_id", c.id,
		"attachments", len(atts),
		"model", o.client.Model())

	go o.stream(sess, c)
}

// release ends the cycle. It must run exactly once per accepted prompt.
func (o *Orchestrator) release(c *cycle, resp *client.Response, err error) {
	if o.onComplete != nil {
		o.onComplete(CompletionEvent{
			MessageID:   c.id,
			Response:    resp,
			Err:         err,
			Attachments: len(c.req.Attachments),
			Duration:    time.Since(c.started),
		})
	}
	o.processing.Store(false)
}
