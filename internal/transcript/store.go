package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"streamchat/internal/fileutil"
)

// File is the on-disk form of a transcript.
type File struct {
	ID        string    `json:"id"`
	Model     string    `json:"model,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Entries   []Entry   `json:"entries"`
}

// Store saves transcripts as JSON files in one directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. An empty dir means DefaultDir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Save writes t and returns the file path.
func (s *Store) Save(t *Transcript, model string) (string, error) {
	file := File{
		ID:        t.ID(),
		Model:     model,
		StartTime: t.startTime,
		EndTime:   time.Now(),
		Entries:   t.Entries(),
	}

	path := filepath.Join(s.dir, file.ID+".json")
	if err := fileutil.WriteJSON(path, file, 0644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// Load reads the transcript with the given ID.
func (s *Store) Load(id string) (*File, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", id, err)
	}
	return &file, nil
}

// List returns saved transcript IDs in lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a saved transcript.
func (s *Store) Delete(id string) error {
	return os.Remove(filepath.Join(s.dir, id+".json"))
}

// DefaultDir is $XDG_DATA_HOME/streamchat/transcripts, falling back to
// ~/.local/share/streamchat/transcripts.
func DefaultDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "streamchat", "transcripts"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "share", "streamchat", "transcripts"), nil
}
