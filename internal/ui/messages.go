package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"streamchat/internal/attachment"
	"streamchat/internal/orchestrator"
)

// entry is one rendered chat turn.
type entry struct {
	list        *MessageList
	name        string
	text        string
	attachments []attachment.Attachment
	errored     bool

	rendered string
	dirty    bool
}

// AppendText implements orchestrator.Message.
func (e *entry) AppendText(delta string) {
	e.text += delta
	e.dirty = true
	e.list.changed()
}

// SetText implements orchestrator.Message. The orchestrator only replaces
// a placeholder's text to report a failure.
func (e *entry) SetText(text string) {
	e.text = text
	e.errored = true
	e.dirty = true
	e.list.changed()
}

// MessageList is the chat transcript shown in the viewport. It implements
// orchestrator.MessageList and orchestrator.AttachmentClickSource.
// It is not safe for concurrent use; all calls happen on the UI goroutine.
type MessageList struct {
	styles   *Styles
	renderer *glamour.TermRenderer
	width    int

	entries  []*entry
	clickFn  func(orchestrator.Message, int)
	onChange func()
}

// NewMessageList creates an empty list.
func NewMessageList(styles *Styles) *MessageList {
	l := &MessageList{styles: styles}
	l.SetWidth(80)
	return l
}

// SetWidth re-creates the markdown renderer for a new terminal width.
func (l *MessageList) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == l.width && l.renderer != nil {
		return
	}
	l.width = width
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		l.renderer = renderer
	}
	for _, e := range l.entries {
		e.dirty = true
	}
}

// AddMessage implements orchestrator.MessageList.
func (l *MessageList) AddMessage(text, name string, atts []attachment.Attachment) orchestrator.Message {
	e := &entry{list: l, name: name, text: text, attachments: atts, dirty: true}
	l.entries = append(l.entries, e)
	l.changed()
	return e
}

// OnAttachmentClick implements orchestrator.AttachmentClickSource.
func (l *MessageList) OnAttachmentClick(fn func(orchestrator.Message, int)) {
	l.clickFn = fn
}

// ClickLatest reports a click on attachment index (zero-based) of the most
// recent message that has attachments.
func (l *MessageList) ClickLatest(index int) error {
	e, err := l.latestWithAttachment(index)
	if err != nil {
		return err
	}
	if l.clickFn != nil {
		l.clickFn(e, index)
	}
	return nil
}

// LatestAttachment returns attachment index (zero-based) of the most recent
// message that has attachments.
func (l *MessageList) LatestAttachment(index int) (attachment.Attachment, error) {
	e, err := l.latestWithAttachment(index)
	if err != nil {
		return attachment.Attachment{}, err
	}
	return e.attachments[index], nil
}

func (l *MessageList) latestWithAttachment(index int) (*entry, error) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if len(e.attachments) == 0 {
			continue
		}
		if index < 0 || index >= len(e.attachments) {
			return nil, fmt.Errorf("message has %d attachment(s)", len(e.attachments))
		}
		return e, nil
	}
	return nil, fmt.Errorf("no message with attachments")
}

// LastReply returns the text of the most recent non-empty message from name.
func (l *MessageList) LastReply(name string) (string, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.name == name && e.text != "" && !e.errored {
			return e.text, true
		}
	}
	return "", false
}

// Len returns the number of messages.
func (l *MessageList) Len() int { return len(l.entries) }

// Reset removes every message.
func (l *MessageList) Reset() {
	l.entries = nil
	l.changed()
}

func (l *MessageList) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}

// Render returns the whole transcript.
func (l *MessageList) Render(userName string) string {
	var b strings.Builder
	for _, e := range l.entries {
		nameStyle := l.styles.AssistantName
		if e.name == userName {
			nameStyle = l.styles.UserName
		}
		b.WriteString(nameStyle.Render(e.name))
		b.WriteString("\n")
		b.WriteString(l.renderEntry(e))
		for i, a := range e.attachments {
			b.WriteString(l.styles.Attachment.Render(
				fmt.Sprintf("[%d] %s (%s, %d bytes)", i+1, a.Name, attachment.NormalizeMIME(a.Name, a.MIMEType), len(a.Data))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (l *MessageList) renderEntry(e *entry) string {
	if !e.dirty {
		return e.rendered
	}
	e.dirty = false

	switch {
	case e.errored:
		e.rendered = l.styles.Error.Render(e.text) + "\n"
	case e.text == "":
		e.rendered = ""
	case l.renderer != nil:
		out, err := l.renderer.Render(e.text)
		if err != nil {
			e.rendered = l.styles.Text.Render(e.text) + "\n"
		} else {
			e.rendered = strings.TrimLeft(out, "\n")
		}
	default:
		e.rendered = l.styles.Text.Render(e.text) + "\n"
	}
	return e.rendered
}
