package orchestrator

import (
	"time"

	"streamchat/internal/attachment"
	"streamchat/internal/client"
)

// Session is the UI's serialized access queue. Every mutation of UI-bound
// state made by the orchestrator runs inside a task passed to Access.
// Access returns an error when the session can no longer accept work.
type Session interface {
	Access(task func()) error
}

// Message is a mutable chat entry created by a MessageList.
// Implementations must be comparable (usually a pointer type) so clicks can
// be correlated back to the message that carried the attachments.
type Message interface {
	AppendText(delta string)
	SetText(text string)
}

// MessageList receives chat turns.
type MessageList interface {
	AddMessage(text, displayName string, attachments []attachment.Attachment) Message
}

// AttachmentClickSource is implemented by message lists that can report
// clicks on a message's attachments.
type AttachmentClickSource interface {
	OnAttachmentClick(fn func(msg Message, index int))
}

// SubmitEvent is emitted by an Input. It carries the session the submission
// happened in.
type SubmitEvent struct {
	Session Session
	Text    string
}

// Input emits submissions.
type Input interface {
	OnSubmit(fn func(SubmitEvent))
}

// FileReceiver pushes staged uploads and removals to the orchestrator.
// onRemove reports whether a staged attachment was dropped; the staging
// buffer, not the receiver, is the record of what the next prompt carries.
// Clear resets whatever the receiver displays after a prompt takes its files.
type FileReceiver interface {
	Subscribe(onUpload func(attachment.Attachment), onRemove func(name string) bool)
	Clear()
}

// AttachmentSubmitEvent is fired once per prompt that carried attachments.
type AttachmentSubmitEvent struct {
	MessageID   string
	Attachments []attachment.Attachment
}

// AttachmentClickEvent reports a click on attachment Index of the message
// submitted as MessageID.
type AttachmentClickEvent struct {
	MessageID  string
	Index      int
	Attachment attachment.Attachment
}

// CompletionEvent is fired when a cycle finishes, successfully or not.
type CompletionEvent struct {
	MessageID   string
	Response    *client.Response
	Err         error
	Attachments int
	Duration    time.Duration
}

// ErrorFormatter turns a stream failure into the text shown to the user.
type ErrorFormatter func(err error) string

// detachedList is used when no MessageList is configured.
type detachedList struct{}

func (detachedList) AddMessage(text, _ string, _ []attachment.Attachment) Message {
	m := &textMessage{}
	m.SetText(text)
	return m
}

type textMessage struct{ text string }

func (m *textMessage) AppendText(delta string) { m.text += delta }
func (m *textMessage) SetText(text string)     { m.text = text }
