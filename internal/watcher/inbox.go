// Package watcher turns a directory into a push-style upload source: files
// dropped into it are staged as attachments, files removed from it are
// unstaged.
package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"streamchat/internal/attachment"
	"streamchat/internal/logging"
)

// Inbox watches one directory (not recursively) and implements
// orchestrator.FileReceiver.
type Inbox struct {
	fsWatcher  *fsnotify.Watcher
	dir        string
	debounceMs int
	maxBytes   int64

	onUpload func(attachment.Attachment)
	onRemove func(name string) bool
	onEvent  func(Event)

	pending  map[string]time.Time
	staged   map[string]bool
	mu       sync.Mutex
	done     chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewInbox creates an inbox for dir, creating the directory if needed.
func NewInbox(dir string, cfg Config) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceMs := cfg.DebounceMs
	if debounceMs <= 0 {
		debounceMs = DefaultConfig().DebounceMs
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultConfig().MaxBytes
	}

	return &Inbox{
		fsWatcher:  fsWatcher,
		dir:        dir,
		debounceMs: debounceMs,
		maxBytes:   maxBytes,
		pending:    make(map[string]time.Time),
		staged:     make(map[string]bool),
		done:       make(chan struct{}),
	}, nil
}

// Subscribe implements orchestrator.FileReceiver.
func (w *Inbox) Subscribe(onUpload func(attachment.Attachment), onRemove func(name string) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onUpload = onUpload
	w.onRemove = onRemove
}

// SetOnEvent sets a callback for every staging decision.
func (w *Inbox) SetOnEvent(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onEvent = fn
}

// Clear implements orchestrator.FileReceiver. Files already in the
// directory stay there but are not staged again unless they change.
// Removals are still forwarded for cleared names, since a file staged
// just before Clear may not have been sent yet.
func (w *Inbox) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staged = make(map[string]bool)
}

// Staged returns the names currently staged from the inbox.
func (w *Inbox) Staged() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.staged))
	for name := range w.staged {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dir returns the watched directory.
func (w *Inbox) Dir() string { return w.dir }

// Start stages files already present and begins watching.
func (w *Inbox) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	now := time.Now()
	w.mu.Lock()
	for _, e := range entries {
		if !e.IsDir() && !isTempName(e.Name()) {
			w.pending[filepath.Join(w.dir, e.Name())] = now
		}
	}
	w.mu.Unlock()

	go w.processEvents()
	go w.processDebounce()

	logging.Debug("inbox watching", "dir", w.dir)
	return nil
}

// Stop stops watching and releases the underlying watcher. It is safe to
// call on an inbox that was never started.
func (w *Inbox) Stop() error {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Inbox) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("inbox watch error", "dir", w.dir, "error", err)
		}
	}
}

// isTempName matches editor swap files and partial downloads.
func isTempName(base string) bool {
	if base == "" {
		return true
	}
	if base[0] == '.' || base[0] == '#' || base[len(base)-1] == '~' {
		return true
	}
	switch filepath.Ext(base) {
	case ".part", ".crdownload", ".swp", ".tmp":
		return true
	}
	return false
}

func (w *Inbox) handleEvent(event fsnotify.Event) {
	if filepath.Dir(event.Name) != filepath.Clean(w.dir) || isTempName(filepath.Base(event.Name)) {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Inbox) processDebounce() {
	ticker := time.NewTicker(time.Duration(w.debounceMs/2) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.flushPending()
		}
	}
}

// flushPending acts on paths that have been quiet for the debounce window.
func (w *Inbox) flushPending() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	now := time.Now()
	debounce := time.Duration(w.debounceMs) * time.Millisecond
	var ready []string
	for path, eventTime := range w.pending {
		if now.Sub(eventTime) >= debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		w.apply(path)
	}
}

func (w *Inbox) apply(path string) {
	name := filepath.Base(path)

	info, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		w.mu.Lock()
		wasStaged := w.staged[name]
		delete(w.staged, name)
		onRemove := w.onRemove
		w.mu.Unlock()

		removed := onRemove != nil && onRemove(name)
		if wasStaged || removed {
			w.emit(Event{Name: name, Operation: OpUnstage})
		}
		return
	}
	if statErr == nil && info.IsDir() {
		return
	}

	att, err := attachment.LoadFile(path, w.maxBytes)
	if err != nil {
		logging.Warn("inbox file rejected", "file", name, "error", err)
		w.emit(Event{Name: name, Operation: OpReject, Err: err})
		return
	}

	w.mu.Lock()
	restage := w.staged[name]
	w.staged[name] = true
	onUpload, onRemove := w.onUpload, w.onRemove
	w.mu.Unlock()

	// Drop any copy still buffered so a changed file is never sent twice.
	op := OpStage
	if removed := onRemove != nil && onRemove(name); restage || removed {
		op = OpRestage
	}
	if onUpload != nil {
		onUpload(att)
	}
	w.emit(Event{Name: name, Operation: op})
}

func (w *Inbox) emit(ev Event) {
	ev.Time = time.Now()
	w.mu.Lock()
	fn := w.onEvent
	w.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}
