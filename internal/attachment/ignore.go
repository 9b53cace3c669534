package attachment

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// rule is one line of a .gitignore file.
type rule struct {
	pattern  string
	negate   bool // starts with !
	dirOnly  bool // ends with /
	anchored bool // contains / before the end
}

// IgnoreRules skips files a glob would otherwise attach: the .git directory
// and whatever the .gitignore in the glob's base directory lists.
type IgnoreRules struct {
	rules []rule
}

// LoadIgnoreRules reads dir/.gitignore. A missing file yields rules that
// only skip .git.
func LoadIgnoreRules(dir string) (*IgnoreRules, error) {
	ig := &IgnoreRules{}
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if f != nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			ig.Add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	ig.Add(".git/")
	return ig, nil
}

// Add appends one gitignore line. Blank lines and comments are ignored.
func (ig *IgnoreRules) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	var r rule
	if strings.HasPrefix(line, "!") {
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.Contains(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	r.pattern = line
	ig.rules = append(ig.rules, r)
}

// Ignored reports whether rel, a slash-separated path relative to the rules'
// directory, is excluded. The last matching rule wins.
func (ig *IgnoreRules) Ignored(rel string) bool {
	if ig == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	ignored := false
	for _, r := range ig.rules {
		if r.matches(rel) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(rel string) bool {
	// Directory rules match files beneath the directory, never the file itself.
	if r.dirOnly {
		if r.anchored {
			return match(r.pattern+"/**", rel)
		}
		return match("**/"+r.pattern+"/**", rel)
	}
	if r.anchored {
		return match(r.pattern, rel) || match(r.pattern+"/**", rel)
	}
	return match("**/"+r.pattern, rel) || match("**/"+r.pattern+"/**", rel)
}

func match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
