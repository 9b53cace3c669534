package transcript

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamchat/internal/attachment"
	"streamchat/internal/client"
	"streamchat/internal/orchestrator"
	"streamchat/internal/uiqueue"
)

func TestTranscriptRecordsTurns(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out)

	tr.AddMessage("Hello", "You", []attachment.Attachment{{Name: "a.md", Data: []byte("# hi")}})
	reply := tr.AddMessage("", "Assistant", nil)
	reply.AppendText("Hi")
	reply.AppendText(" there")

	entries := tr.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "Hello", entries[0].Text)
	require.Equal(t, []AttachmentRef{{Name: "a.md", MIMEType: "text/markdown", Size: 4}}, entries[0].Attachments)
	require.Equal(t, "Hi there", entries[1].Text)
	require.Equal(t, "Hi there", out.String())

	reply.SetText("failed")
	last, ok := tr.Last()
	require.True(t, ok)
	require.Equal(t, "failed", last.Text)
	require.Equal(t, "Hi therefailed\n", out.String())
}

func TestTranscriptDrivenByOrchestrator(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out)
	done := make(chan orchestrator.CompletionEvent, 1)

	o, err := orchestrator.New(client.NewEchoClient("", 0)).
		WithMessageList(tr).
		WithContext(context.Background()).
		WithCompletionListener(func(ev orchestrator.CompletionEvent) { done <- ev }).
		Build()
	require.NoError(t, err)
	defer o.Close()

	q := uiqueue.New(uiqueue.Inline)
	defer q.Close()

	require.NoError(t, o.Prompt(q, "ping"))
	select {
	case ev := <-done:
		require.NoError(t, ev.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("no completion")
	}

	entries := tr.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "You", entries[0].Name)
	require.Equal(t, "Assistant", entries[1].Name)
	require.Equal(t, "Echo: ping", entries[1].Text)
	require.Equal(t, "Echo: ping", out.String())
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	tr := New(nil)
	tr.AddMessage("q", "You", nil)
	tr.AddMessage("a", "Assistant", nil)

	path, err := store.Save(tr, "echo")
	require.NoError(t, err)
	require.FileExists(t, path)

	ids, err := store.List()
	require.NoError(t, err)
	require.Equal(t, []string{tr.ID()}, ids)

	file, err := store.Load(tr.ID())
	require.NoError(t, err)
	require.Equal(t, "echo", file.Model)
	require.Len(t, file.Entries, 2)
	require.Equal(t, "a", file.Entries[1].Text)

	require.NoError(t, store.Delete(tr.ID()))
	ids, err = store.List()
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestDefaultDirUsesXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg/streamchat/transcripts", dir)
}
