package orchestrator

import (
	"context"
	"strings"
	"time"

	"streamchat/internal/attachment"
	"streamchat/internal/client"
	"streamchat/internal/config"
	"streamchat/internal/logging"
)

// Builder configures an Orchestrator. Setters never fail on their own;
// invalid values are collected and reported together by Build.
type Builder struct {
	client       client.Client
	systemPrompt string
	list         MessageList
	input        Input
	receivers    []FileReceiver
	tools        []any

	userName      string
	assistantName string
	formatter     ErrorFormatter
	keepTimeout   bool

	onSubmit   func(AttachmentSubmitEvent)
	onClick    func(AttachmentClickEvent)
	onComplete func(CompletionEvent)

	ctx          context.Context
	corrCapacity int
	corrTTL      time.Duration
	buildErrors  []error
}

// New starts a builder for an orchestrator driving c.
func New(c client.Client) *Builder {
	b := &Builder{
		client:        c,
		tools:         []any{},
		userName:      config.DefaultUserName,
		assistantName: config.DefaultAssistantName,
		ctx:           context.Background(),
		corrCapacity:  config.DefaultCorrelationCapacity,
		corrTTL:       config.DefaultCorrelationTTL,
	}
	if c == nil {
		b.addError(invalid("client is required"))
	}
	return b
}

func (b *Builder) addError(err error) {
	b.buildErrors = append(b.buildErrors, err)
}

// WithSystemPrompt sets the system prompt. It is trimmed once; a blank
// prompt is left out of requests.
func (b *Builder) WithSystemPrompt(prompt string) *Builder {
	b.systemPrompt = strings.TrimSpace(prompt)
	return b
}

// WithMessageList sets where chat turns are written.
func (b *Builder) WithMessageList(list MessageList) *Builder {
	b.list = list
	return b
}

// WithInput routes the input's submissions through Prompt.
func (b *Builder) WithInput(in Input) *Builder {
	b.input = in
	return b
}

// WithFileReceiver adds a source of staged attachments. It may be called
// more than once; every receiver is cleared when a prompt takes its files.
func (b *Builder) WithFileReceiver(r FileReceiver) *Builder {
	if r != nil {
		b.receivers = append(b.receivers, r)
	}
	return b
}

// WithTools registers provider tool definitions, in order. nil entries are
// skipped. Tools are passed unchanged with every request.
func (b *Builder) WithTools(tools ...any) *Builder {
	for _, t := range tools {
		if t != nil {
			b.tools = append(b.tools, t)
		}
	}
	return b
}

// WithUserName sets the display name of user turns.
func (b *Builder) WithUserName(name string) *Builder {
	if strings.TrimSpace(name) == "" {
		b.addError(invalid("user name must not be blank"))
		return b
	}
	b.userName = name
	return b
}

// WithAssistantName sets the display name of assistant turns.
func (b *Builder) WithAssistantName(name string) *Builder {
	if strings.TrimSpace(name) == "" {
		b.addError(invalid("assistant name must not be blank"))
		return b
	}
	b.assistantName = name
	return b
}

// WithErrorFormatter replaces the built-in error texts.
func (b *Builder) WithErrorFormatter(fn ErrorFormatter) *Builder {
	if fn == nil {
		b.addError(invalid("error formatter must not be nil"))
		return b
	}
	b.formatter = fn
	return b
}

// WithTimeoutMessagePreserved keeps DefaultTimeoutMessage for timeouts even
// when an error formatter is set.
func (b *Builder) WithTimeoutMessagePreserved(keep bool) *Builder {
	b.keepTimeout = keep
	return b
}

// WithAttachmentSubmitListener is called once for every prompt sent with
// attachments.
func (b *Builder) WithAttachmentSubmitListener(fn func(AttachmentSubmitEvent)) *Builder {
	b.onSubmit = fn
	return b
}

// WithAttachmentClickListener is called when an attachment of a submitted
// message is clicked. It needs a MessageList that implements
// AttachmentClickSource.
func (b *Builder) WithAttachmentClickListener(fn func(AttachmentClickEvent)) *Builder {
	b.onClick = fn
	return b
}

// WithCompletionListener is called on the session when a cycle ends.
func (b *Builder) WithCompletionListener(fn func(CompletionEvent)) *Builder {
	b.onComplete = fn
	return b
}

// WithContext sets the parent context of every provider stream.
func (b *Builder) WithContext(ctx context.Context) *Builder {
	if ctx == nil {
		b.addError(invalid("context must not be nil"))
		return b
	}
	b.ctx = ctx
	return b
}

// WithCorrelationCapacity bounds how many submitted messages are remembered
// for click correlation.
func (b *Builder) WithCorrelationCapacity(n int) *Builder {
	if n < 1 {
		b.addError(invalid("correlation capacity must be positive, got %d", n))
		return b
	}
	b.corrCapacity = n
	return b
}

// Build validates the configuration and wires the collaborators.
func (b *Builder) Build() (*Orchestrator, error) {
	if len(b.buildErrors) > 0 {
		return nil, &BuildError{Errors: b.buildErrors}
	}

	o := &Orchestrator{
		client:        b.client,
		systemPrompt:  b.systemPrompt,
		tools:         append(make([]any, 0, len(b.tools)), b.tools...),
		buffer:        attachment.NewBuffer(),
		list:          b.list,
		receivers:     b.receivers,
		userName:      b.userName,
		assistantName: b.assistantName,
		formatter:     b.formatter,
		keepTimeout:   b.keepTimeout,
		onSubmit:      b.onSubmit,
		onComplete:    b.onComplete,
		ctx:           b.ctx,
		bridge:        newBridge(b.corrCapacity, b.corrTTL, b.onClick),
	}
	if o.list == nil {
		o.list = detachedList{}
	}

	for _, r := range b.receivers {
		r.Subscribe(o.buffer.Add, o.buffer.Remove)
	}

	if b.onClick != nil {
		if src, ok := b.list.(AttachmentClickSource); ok {
			src.OnAttachmentClick(o.bridge.click)
		} else {
			logging.Debug("message list does not report attachment clicks; click listener unused")
		}
	}

	if b.input != nil {
		b.input.OnSubmit(func(ev SubmitEvent) {
			if err := o.Prompt(ev.Session, ev.Text); err != nil {
				logging.Warn("submit rejected", "error", err)
			}
		})
	}

	logging.Debug("orchestrator built",
		"model", b.client.Model(),
		"tools", len(o.tools),
		"system_prompt", o.systemPrompt != "")
	return o, nil
}
