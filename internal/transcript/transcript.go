// Package transcript is a headless message list. It records chat turns in
// memory, can mirror streamed text to a writer, and persists to JSON.
package transcript

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"streamchat/internal/attachment"
	"streamchat/internal/orchestrator"
)

// AttachmentRef describes an attachment without its bytes.
type AttachmentRef struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Entry is one chat turn.
type Entry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Text        string          `json:"text"`
	Attachments []AttachmentRef `json:"attachments,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Transcript implements orchestrator.MessageList.
type Transcript struct {
	mu        sync.Mutex
	id        string
	startTime time.Time
	entries   []*Entry
	out       io.Writer
}

// New creates an empty transcript. If out is non-nil, streamed assistant
// text and error messages are written to it as they arrive.
func New(out io.Writer) *Transcript {
	return &Transcript{
		id:        uuid.NewString(),
		startTime: time.Now(),
		out:       out,
	}
}

// ID returns the transcript's identifier.
func (t *Transcript) ID() string { return t.id }

// AddMessage implements orchestrator.MessageList.
func (t *Transcript) AddMessage(text, name string, atts []attachment.Attachment) orchestrator.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := &Entry{
		ID:        uuid.NewString(),
		Name:      name,
		Text:      text,
		Timestamp: time.Now(),
	}
	for _, a := range atts {
		e.Attachments = append(e.Attachments, AttachmentRef{
			Name:     a.Name,
			MIMEType: attachment.NormalizeMIME(a.Name, a.MIMEType),
			Size:     len(a.Data),
		})
	}
	t.entries = append(t.entries, e)
	return &message{t: t, e: e}
}

// Entries returns a copy of the recorded turns.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Last returns the most recent turn.
func (t *Transcript) Last() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return *t.entries[len(t.entries)-1], true
}

type message struct {
	t *Transcript
	e *Entry
}

func (m *message) AppendText(delta string) {
	m.t.mu.Lock()
	m.e.Text += delta
	out := m.t.out
	m.t.mu.Unlock()

	if out != nil {
		io.WriteString(out, delta)
	}
}

func (m *message) SetText(text string) {
	m.t.mu.Lock()
	m.e.Text = text
	out := m.t.out
	m.t.mu.Unlock()

	if out != nil {
		fmt.Fprintln(out, text)
	}
}
