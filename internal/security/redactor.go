// Package security masks provider credentials before text leaves the
// process in logs or error messages.
package security

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// SecretRedactor masks sensitive information in strings using common patterns.
type SecretRedactor struct {
	// keyed patterns keep the label and separator and mask the value
	keyed []*regexp.Regexp
	bare  []*regexp.Regexp
}

// NewSecretRedactor creates a redactor for the credentials streamchat handles.
func NewSecretRedactor() *SecretRedactor {
	return &SecretRedactor{
		keyed: []*regexp.Regexp{
			// api_key=..., "x-api-key": "...", token: ...
			regexp.MustCompile(`(?i)((?:x-)?api[_-]?key|access[_-]?token|auth[_-]?token|secret|password)(["']?\s*[:=]\s*["']?)([A-Za-z0-9_\-\.]{8,})`),
			// ?key=... in Gemini REST URLs
			regexp.MustCompile(`([?&]key)(=)([A-Za-z0-9_\-]{8,})`),
			regexp.MustCompile(`(?i)(Bearer)(\s+)([A-Za-z0-9_\-\.]{10,256})`),
		},
		bare: []*regexp.Regexp{
			regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),           // Google
			regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]{20,}`),       // Anthropic
			regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_\-]{20,}`), // OpenAI
			regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]+?-----END [A-Z ]*PRIVATE KEY-----`),
		},
	}
}

// Redact masks all detected secrets in text.
func (r *SecretRedactor) Redact(text string) string {
	if text == "" {
		return ""
	}

	result := text
	for _, p := range r.keyed {
		result = p.ReplaceAllString(result, "${1}${2}"+redacted)
	}
	for _, p := range r.bare {
		result = p.ReplaceAllString(result, redacted)
	}
	return result
}

// AddLiteral masks every occurrence of s. Short values are ignored so
// common words are never masked.
func (r *SecretRedactor) AddLiteral(s string) {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return
	}
	r.bare = append(r.bare, regexp.MustCompile(regexp.QuoteMeta(s)))
}

var defaultRedactor = NewSecretRedactor()

// Redact masks secrets in text using the default patterns.
func Redact(text string) string {
	return defaultRedactor.Redact(text)
}

// MaskKey shows only the first and last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
