package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamchat/internal/attachment"
	"streamchat/internal/client"
	"streamchat/internal/uiqueue"
)

// fakeClient streams a fixed token list, optionally ending in an error.
type fakeClient struct {
	mu        sync.Mutex
	requests  []client.Request
	tokens    []string
	openErr   error
	streamErr error
	gate      chan struct{}
}

func (f *fakeClient) Stream(ctx context.Context, req client.Request) (*client.StreamingResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}

	ch := make(chan client.ResponseChunk)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(ch)
		if f.gate != nil {
			select {
			case <-f.gate:
			case <-ctx.Done():
				return
			}
		}
		for _, tok := range f.tokens {
			select {
			case ch <- client.ResponseChunk{Text: tok}:
			case <-ctx.Done():
				return
			}
		}
		final := client.ResponseChunk{Done: true, FinishReason: "stop", OutputTokens: len(f.tokens)}
		if f.streamErr != nil {
			final = client.ResponseChunk{Done: true, Error: f.streamErr}
		}
		select {
		case ch <- final:
		case <-ctx.Done():
		}
	}()
	return &client.StreamingResponse{Chunks: ch, Done: done}, nil
}

func (f *fakeClient) Model() string { return "fake" }
func (f *fakeClient) Close() error  { return nil }

func (f *fakeClient) calls() []client.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.Request(nil), f.requests...)
}

// recordingList logs every call made on it or on its messages.
type recordingList struct {
	mu       sync.Mutex
	log      []string
	messages []*recordedMessage
	clickFn  func(Message, int)
}

type recordedMessage struct {
	list        *recordingList
	name        string
	attachments []attachment.Attachment
	text        string
}

func (l *recordingList) AddMessage(text, name string, atts []attachment.Attachment) Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := &recordedMessage{list: l, name: name, attachments: atts, text: text}
	l.messages = append(l.messages, m)
	l.log = append(l.log, fmt.Sprintf("add(%q,%q,%d)", text, name, len(atts)))
	return m
}

func (l *recordingList) OnAttachmentClick(fn func(Message, int)) { l.clickFn = fn }

func (l *recordingList) calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.log...)
}

func (l *recordingList) message(i int) *recordedMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.messages[i]
}

func (m *recordedMessage) AppendText(delta string) {
	m.list.mu.Lock()
	defer m.list.mu.Unlock()
	m.text += delta
	m.list.log = append(m.list.log, fmt.Sprintf("append(%q)", delta))
}

func (m *recordedMessage) SetText(text string) {
	m.list.mu.Lock()
	defer m.list.mu.Unlock()
	m.text = text
	m.list.log = append(m.list.log, fmt.Sprintf("set(%q)", text))
}

func (m *recordedMessage) Text() string {
	m.list.mu.Lock()
	defer m.list.mu.Unlock()
	return m.text
}

// plainList is a MessageList without click support.
type plainList struct{ inner *recordingList }

func (l plainList) AddMessage(text, name string, atts []attachment.Attachment) Message {
	return l.inner.AddMessage(text, name, atts)
}

type fakeInput struct{ fn func(SubmitEvent) }

func (in *fakeInput) OnSubmit(fn func(SubmitEvent)) { in.fn = fn }

type fakeReceiver struct {
	onUpload func(attachment.Attachment)
	onRemove func(string) bool
	cleared  atomic.Int32
}

func (r *fakeReceiver) Subscribe(onUpload func(attachment.Attachment), onRemove func(string) bool) {
	r.onUpload = onUpload
	r.onRemove = onRemove
}

func (r *fakeReceiver) Clear() { r.cleared.Add(1) }

// limitedSession accepts a fixed number of tasks, then refuses.
type limitedSession struct {
	inner Session
	left  atomic.Int32
}

func (s *limitedSession) Access(task func()) error {
	if s.left.Add(-1) < 0 {
		return fmt.Errorf("session detached")
	}
	return s.inner.Access(task)
}

type harness struct {
	o        *Orchestrator
	q        *uiqueue.Queue
	list     *recordingList
	client   *fakeClient
	receiver *fakeReceiver
	done     chan CompletionEvent
}

func newHarness(t *testing.T, fc *fakeClient, configure ...func(*Builder)) *harness {
	t.Helper()
	h := &harness{
		q:        uiqueue.New(uiqueue.Inline),
		list:     &recordingList{},
		client:   fc,
		receiver: &fakeReceiver{},
		done:     make(chan CompletionEvent, 16),
	}
	b := New(fc).
		WithMessageList(h.list).
		WithFileReceiver(h.receiver).
		WithCompletionListener(func(ev CompletionEvent) { h.done <- ev })
	for _, fn := range configure {
		fn(b)
	}
	o, err := b.Build()
	require.NoError(t, err)
	h.o = o
	t.Cleanup(func() {
		h.q.Close()
		o.Close()
	})
	return h
}

func (h *harness) wait(t *testing.T) CompletionEvent {
	t.Helper()
	select {
	case ev := <-h.done:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not finish")
		return CompletionEvent{}
	}
}

func (h *harness) upload(atts ...attachment.Attachment) {
	for _, a := range atts {
		h.receiver.onUpload(a)
	}
}
