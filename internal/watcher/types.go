package watcher

import (
	"time"

	"streamchat/internal/config"
)

// Operation represents the type of file system operation.
type Operation int

const (
	OpStage Operation = iota
	OpRestage
	OpUnstage
	OpReject
)

// String returns the string representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpStage:
		return "stage"
	case OpRestage:
		return "restage"
	case OpUnstage:
		return "unstage"
	case OpReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Event reports what the inbox did with a file.
type Event struct {
	Name      string
	Operation Operation
	Err       error
	Time      time.Time
}

// FileChangeMsg is a Bubble Tea message for inbox events.
type FileChangeMsg Event

// NewFileChangeMsg wraps ev for delivery to a Bubble Tea program.
func NewFileChangeMsg(ev Event) FileChangeMsg {
	return FileChangeMsg(ev)
}

// Config holds inbox configuration.
type Config struct {
	DebounceMs int
	MaxBytes   int64
}

// DefaultConfig returns the default inbox configuration.
func DefaultConfig() Config {
	return Config{
		DebounceMs: config.DefaultDebounceMs,
		MaxBytes:   config.DefaultMaxAttachmentBytes,
	}
}
