package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamchat/internal/attachment"
)

// recorder stands in for the staging buffer: live holds what the next
// prompt would carry.
type recorder struct {
	mu      sync.Mutex
	uploads []attachment.Attachment
	removes []string
	events  []Event
	live    map[string]int
}

func (r *recorder) upload(a attachment.Attachment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = append(r.uploads, a)
	if r.live == nil {
		r.live = make(map[string]int)
	}
	r.live[a.Name]++
}

func (r *recorder) remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live[name] == 0 {
		return false
	}
	r.live[name]--
	r.removes = append(r.removes, name)
	return true
}

// drain empties live the way a prompt empties the buffer.
func (r *recorder) drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = nil
}

func (r *recorder) liveCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[name]
}

func (r *recorder) event(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ops() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Operation, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Operation
	}
	return out
}

func (r *recorder) uploadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.uploads)
}

func startInbox(t *testing.T, dir string, maxBytes int64) (*Inbox, *recorder) {
	t.Helper()
	inbox, err := NewInbox(dir, Config{DebounceMs: 20, MaxBytes: maxBytes})
	require.NoError(t, err)

	rec := &recorder{}
	inbox.Subscribe(rec.upload, rec.remove)
	inbox.SetOnEvent(rec.event)
	require.NoError(t, inbox.Start())
	t.Cleanup(func() { inbox.Stop() })
	return inbox, rec
}

func TestInboxStagesExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "early.txt"), []byte("early"), 0644))

	inbox, rec := startInbox(t, dir, 1024)
	require.Eventually(t, func() bool { return rec.uploadCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.md"), []byte("# late"), 0644))
	require.Eventually(t, func() bool { return rec.uploadCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	require.Equal(t, "early.txt", rec.uploads[0].Name)
	require.Equal(t, []byte("early"), rec.uploads[0].Data)
	require.Equal(t, "late.md", rec.uploads[1].Name)
	require.Equal(t, "text/markdown", rec.uploads[1].MIMEType)
	rec.mu.Unlock()

	require.Equal(t, []string{"early.txt", "late.md"}, inbox.Staged())
}

func TestInboxUnstagesRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	inbox, rec := startInbox(t, dir, 1024)
	require.Eventually(t, func() bool { return rec.uploadCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.removes) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Empty(t, inbox.Staged())
	require.Equal(t, []Operation{OpStage, OpUnstage}, rec.ops())
}

func TestInboxRejectsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	_, rec := startInbox(t, dir, 4)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.bin"), []byte("too many bytes"), 0644))
	require.Eventually(t, func() bool { return len(rec.ops()) == 1 }, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, OpReject, rec.events[0].Operation)
	require.True(t, errors.Is(rec.events[0].Err, attachment.ErrTooLarge))
	require.Empty(t, rec.uploads)
}

func TestInboxClearForgetsStagedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	inbox, rec := startInbox(t, dir, 1024)
	require.Eventually(t, func() bool { return rec.uploadCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec.drain()
	inbox.Clear()
	require.Empty(t, inbox.Staged())

	// A sent file that changes is staged fresh, with no removal first.
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	require.Eventually(t, func() bool { return rec.uploadCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Empty(t, rec.removes)
	require.Equal(t, []byte("v2"), rec.uploads[1].Data)
}

func TestInboxTracksFilesClearedBeforeSending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	inbox, rec := startInbox(t, dir, 1024)
	require.Eventually(t, func() bool { return rec.uploadCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Cleared by a prompt that drained the buffer before this file arrived.
	inbox.Clear()
	require.Equal(t, 1, rec.liveCount("late.txt"))

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	require.Eventually(t, func() bool { return rec.uploadCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, rec.liveCount("late.txt"))

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		ops := rec.ops()
		return len(ops) > 0 && ops[len(ops)-1] == OpUnstage
	}, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, rec.liveCount("late.txt"))
	require.Empty(t, inbox.Staged())

	ops := rec.ops()
	require.Equal(t, OpStage, ops[0])
	require.Contains(t, ops, OpRestage)
}

func TestIsTempName(t *testing.T) {
	for _, name := range []string{"", ".hidden", "#auto#", "file~", "x.part", "y.swp"} {
		require.True(t, isTempName(name), name)
	}
	require.False(t, isTempName("report.pdf"))
}

func TestOperationString(t *testing.T) {
	require.Equal(t, "stage", OpStage.String())
	require.Equal(t, "unstage", OpUnstage.String())
	require.Equal(t, "unknown", Operation(42).String())
}
