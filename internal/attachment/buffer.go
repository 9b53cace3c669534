package attachment

import "sync"

// Buffer stages attachments until the next prompt drains them.
// Uploads may arrive on any goroutine.
type Buffer struct {
	mu    sync.Mutex
	items []Attachment
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Add appends an attachment.
func (b *Buffer) Add(a Attachment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, a)
}

// Remove drops the first staged attachment with the given name.
// Returns false if no attachment matched.
func (b *Buffer) Remove(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, a := range b.items {
		if a.Name == name {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of staged attachments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Snapshot returns a copy of the staged attachments without clearing them.
func (b *Buffer) Snapshot() []Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Attachment, len(b.items))
	copy(out, b.items)
	return out
}

// Drain returns the staged attachments in upload order and empties the
// buffer in the same critical section. The result is never nil.
func (b *Buffer) Drain() []Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	if out == nil {
		out = []Attachment{}
	}
	return out
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}

// Restore puts previously drained attachments back in front of anything
// staged since, keeping their original order.
func (b *Buffer) Restore(items []Attachment) {
	if len(items) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(append([]Attachment{}, items...), b.items...)
}
