package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "connection refused", "connection refused"},
		{"key value", "api_key=abcdef1234567890", "api_key=[REDACTED]"},
		{"json header", `"x-api-key": "abcdef1234567890"`, `"x-api-key": "[REDACTED]"`},
		{"bearer", "Authorization: Bearer abcdefghijklmnop", "Authorization: Bearer [REDACTED]"},
		{"query", "GET /v1/models?key=abcdefghij12345 failed", "GET /v1/models?key=[REDACTED] failed"},
		{"google", "bad key AIza" + "abcdefghijklmnopqrstuvwxyz012345678", "bad key [REDACTED]"},
		{"anthropic", "key sk-ant-REDACTED", "key [REDACTED]"},
		{"openai", "key sk-proj-abcdefghijklmnopqrstuvwx", "key [REDACTED]"},
		{"short value", "password=abc", "password=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.in))
		})
	}
}

func TestAddLiteral(t *testing.T) {
	r := NewSecretRedactor()
	r.AddLiteral("short")
	r.AddLiteral("my-ollama-token-1")

	assert.Equal(t, "short [REDACTED]", r.Redact("short my-ollama-token-1"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "*****", MaskKey("abcde"))
	assert.Equal(t, "abcd******mnop", MaskKey("abcdefghijmnop"))
}
