package ui

import (
	"fmt"

	"streamchat/internal/attachment"
)

// Uploader stages files picked with /attach. It implements
// orchestrator.FileReceiver.
type Uploader struct {
	maxBytes int64
	onUpload func(attachment.Attachment)
	onRemove func(string) bool
	onClear  func()
	staged   []string
}

// NewUploader creates an uploader that rejects files above maxBytes.
func NewUploader(maxBytes int64) *Uploader {
	return &Uploader{maxBytes: maxBytes}
}

// Subscribe implements orchestrator.FileReceiver.
func (u *Uploader) Subscribe(onUpload func(attachment.Attachment), onRemove func(string) bool) {
	u.onUpload = onUpload
	u.onRemove = onRemove
}

// Clear implements orchestrator.FileReceiver.
func (u *Uploader) Clear() {
	u.staged = nil
	if u.onClear != nil {
		u.onClear()
	}
}

// Staged returns the names of files waiting for the next prompt.
func (u *Uploader) Staged() []string {
	return append([]string(nil), u.staged...)
}

// Attach stages every file matching pattern and returns the staged names.
func (u *Uploader) Attach(pattern string) ([]string, error) {
	atts, err := attachment.Glob(pattern, u.maxBytes)
	if err != nil {
		return nil, err
	}
	if len(atts) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}

	names := make([]string, 0, len(atts))
	for _, a := range atts {
		u.Stage(a)
		names = append(names, a.Name)
	}
	return names, nil
}

// Stage pushes one attachment.
func (u *Uploader) Stage(a attachment.Attachment) {
	u.staged = append(u.staged, a.Name)
	if u.onUpload != nil {
		u.onUpload(a)
	}
}

// Detach unstages the file called name. A file attached after the last
// prompt was sent, but before it cleared this list, is still found.
func (u *Uploader) Detach(name string) bool {
	listed := false
	for i, n := range u.staged {
		if n == name {
			u.staged = append(u.staged[:i], u.staged[i+1:]...)
			listed = true
			break
		}
	}
	if u.onRemove == nil {
		return listed
	}
	return u.onRemove(name) || listed
}
