package attachment

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrTooLarge is returned when a file exceeds the configured size cap.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// LoadFile reads path into an Attachment. maxBytes <= 0 disables the cap.
func LoadFile(path string, maxBytes int64) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, err
	}
	if info.IsDir() {
		return Attachment{}, fmt.Errorf("%s is a directory", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Attachment{}, fmt.Errorf("%s: %w (%d > %d bytes)", path, ErrTooLarge, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, err
	}

	name := filepath.Base(path)
	mt := TypeByName(name)
	if mt == "" {
		mt = stripParams(http.DetectContentType(data))
	}

	return Attachment{Name: name, MIMEType: mt, Data: data}, nil
}

// Glob loads every regular file matching pattern ("**" is supported),
// in lexical path order. Wildcard matches listed in the base directory's
// .gitignore are skipped; a file named literally is always loaded.
func Glob(pattern string, maxBytes int64) ([]Attachment, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	if hasMeta(pattern) {
		if matches, err = dropIgnored(pattern, matches); err != nil {
			return nil, err
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(matches)

	out := make([]Attachment, 0, len(matches))
	for _, path := range matches {
		a, err := LoadFile(path, maxBytes)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func dropIgnored(pattern string, matches []string) ([]string, error) {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)
	rules, err := LoadIgnoreRules(base)
	if err != nil {
		return nil, err
	}

	kept := matches[:0]
	for _, path := range matches {
		rel, err := filepath.Rel(base, path)
		if err != nil || !rules.Ignored(rel) {
			kept = append(kept, path)
		}
	}
	return kept, nil
}
