// Package highlight renders text attachments with syntax highlighting.
package highlight

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"streamchat/internal/attachment"
)

// Highlighter provides syntax highlighting for attachment previews.
type Highlighter struct {
	style     string
	formatter chroma.Formatter
}

// New creates a new Highlighter with the specified chroma style.
// An empty style means "monokai".
func New(style string) *Highlighter {
	if style == "" {
		style = "monokai"
	}

	return &Highlighter{
		style:     style,
		formatter: formatters.Get("terminal256"),
	}
}

// Highlight applies syntax highlighting to code based on language.
func (h *Highlighter) Highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(h.style)
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return buf.String()
}

// HighlightWithLineNumbers highlights code with line numbers.
func (h *Highlighter) HighlightWithLineNumbers(code, lang string, startLine int) string {
	lines := strings.Split(h.Highlight(code, lang), "\n")
	lineNumStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lineNumStyle.Render(fmt.Sprintf("%4d", startLine+i)))
		result.WriteString(" │ ")
		result.WriteString(line)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// Preview renders the first maxLines lines of a text attachment. It reports
// false for binary attachments. maxLines <= 0 shows everything.
func (h *Highlighter) Preview(a attachment.Attachment, maxLines int) (string, bool) {
	if !a.IsText() {
		return "", false
	}

	text := strings.TrimRight(string(a.Data), "\n")
	lines := strings.Split(text, "\n")
	more := 0
	if maxLines > 0 && len(lines) > maxLines {
		more = len(lines) - maxLines
		lines = lines[:maxLines]
	}

	out := h.HighlightWithLineNumbers(strings.Join(lines, "\n"), DetectLanguage(a.Name), 1)
	if more > 0 {
		out += fmt.Sprintf("\n     … %d more line(s)", more)
	}
	return out, true
}

// langMap covers extensions chroma's filename matching gets wrong or misses.
var langMap = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".rs":   "rust",
	".sh":   "bash",
	".zsh":  "bash",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".md":   "markdown",
	".sql":  "sql",
	".log":  "text",
	".txt":  "text",
}

// DetectLanguage detects the lexer name from a filename.
func DetectLanguage(filename string) string {
	if lang, ok := langMap[strings.ToLower(filepath.Ext(filename))]; ok {
		return lang
	}

	switch strings.ToLower(filepath.Base(filename)) {
	case "dockerfile":
		return "docker"
	case "makefile":
		return "makefile"
	case "go.mod":
		return "gomod"
	}

	if lexer := lexers.Match(filename); lexer != nil {
		return lexer.Config().Name
	}
	return "text"
}
