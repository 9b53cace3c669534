package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"streamchat/internal/security"
)

// FileName is the audit log inside the audit directory.
const FileName = "audit.jsonl"

// Logger appends cycle entries to a JSON Lines file. A nil or disabled
// Logger accepts and drops every entry.
type Logger struct {
	mu        sync.Mutex
	path      string
	sessionID string
	enabled   bool
}

// NewLogger creates a logger writing to dir/audit.jsonl. Each logger gets
// its own session ID.
func NewLogger(dir string, enabled bool) (*Logger, error) {
	if !enabled {
		return &Logger{}, nil
	}
	// 0700: entries carry provider error text
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &Logger{
		path:      filepath.Join(dir, FileName),
		sessionID: uuid.NewString(),
		enabled:   true,
	}, nil
}

// SessionID returns the ID stamped on entries from this logger.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Path returns the log file path, or "" when disabled.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Log appends entry. Missing ID, timestamp and session are filled in and
// the error text is redacted.
func (l *Logger) Log(entry *Entry) error {
	if l == nil || !l.enabled || entry == nil {
		return nil
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.SessionID == "" {
		entry.SessionID = l.sessionID
	}
	entry.Error = security.Redact(entry.Error)

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

// Query reads entries matching filter, oldest first. Malformed lines are
// skipped.
func (l *Logger) Query(filter QueryFilter) ([]*Entry, error) {
	if l == nil || !l.enabled {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var results []*Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if e.Matches(filter) {
			results = append(results, &e)
		}
	}
	if err := scanner.Err(); err != nil {
		return results, err
	}

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[len(results)-filter.Limit:]
	}
	return results, nil
}
