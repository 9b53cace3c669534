// Package attachment holds uploaded files between their arrival and the
// prompt that carries them to a provider.
package attachment

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Attachment is an uploaded file. Values are passed through to providers
// unchanged; normalisation happens only where a provider needs it.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// String implements fmt.Stringer.
func (a Attachment) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", a.Name, a.MIMEType, len(a.Data))
}

var (
	extTypes = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".bmp":  "image/bmp",
		".svg":  "image/svg+xml",
		".heic": "image/heic",
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".webm": "video/webm",
		".txt":  "text/plain",
		".log":  "text/plain",
		".md":   "text/markdown",
		".go":   "text/x-go",
		".json": "application/json",
		".yaml": "application/x-yaml",
		".yml":  "application/x-yaml",
		".xml":  "application/xml",
		".pdf":  "application/pdf",
	}

	aliases = map[string]string{
		"image/jpg":   "image/jpeg",
		"image/pjpeg": "image/jpeg",
		"image/x-png": "image/png",
		"video/mov":   "video/quicktime",
	}
)

// TypeByName guesses a MIME type from a file extension.
func TypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mt, ok := extTypes[ext]; ok {
		return mt
	}
	return stripParams(mime.TypeByExtension(ext))
}

// NormalizeMIME cleans up a declared MIME type: parameters are dropped,
// aliases resolved, and a malformed value falls back to the file extension.
func NormalizeMIME(name, declared string) string {
	raw := stripParams(strings.ToLower(declared))
	if raw == "" {
		return TypeByName(name)
	}
	for strings.HasPrefix(raw, "image/image/") {
		raw = strings.TrimPrefix(raw, "image/")
	}
	for strings.HasPrefix(raw, "video/video/") {
		raw = strings.TrimPrefix(raw, "video/")
	}
	if alias, ok := aliases[raw]; ok {
		return alias
	}
	if !strings.Contains(raw, "/") || strings.HasSuffix(raw, "/") {
		if byExt := TypeByName(name); byExt != "" {
			return byExt
		}
	}
	return raw
}

func stripParams(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(NormalizeMIME(a.Name, a.MIMEType), "image/")
}

// IsText reports whether the attachment can be inlined as text.
func (a Attachment) IsText() bool {
	mt := NormalizeMIME(a.Name, a.MIMEType)
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	switch mt {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml":
		return true
	}
	return false
}

// InlineText appends text attachments to prompt and lists the rest by name.
// Providers that cannot take binary parts use it to keep the content visible.
func InlineText(prompt string, atts []Attachment, includeBinary bool) string {
	if len(atts) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n---\nAttachments:\n")

	for i, a := range atts {
		title := strings.TrimSpace(a.Name)
		if title == "" {
			title = fmt.Sprintf("file_%d", i+1)
		}
		mt := NormalizeMIME(a.Name, a.MIMEType)

		switch {
		case a.IsText() && len(a.Data) > 0:
			fmt.Fprintf(&b, "\n<<<FILE %s [%s]>>>\n", title, mt)
			b.Write(a.Data)
			fmt.Fprintf(&b, "\n<<<END FILE %s>>>\n", title)
		case includeBinary:
			fmt.Fprintf(&b, "\n[binary attachment] %s (%s)\n", title, mt)
		}
	}

	b.WriteString("---\n")
	return b.String()
}
