package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		" error ": LevelError,
		"info":    LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestConfigureWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(LevelDebug, &buf)
	t.Cleanup(DisableLogging)

	Debug("cycle started", "message_id", "m1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "cycle started", rec["msg"])
	require.Equal(t, "m1", rec["message_id"])
}

func TestConfigureFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(LevelWarn, &buf)
	t.Cleanup(DisableLogging)

	Info("ignored")
	require.Zero(t, buf.Len())

	Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestEnableFileLogging(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnableFileLogging(dir, LevelInfo))
	t.Cleanup(Close)

	Info("to file")
	require.FileExists(t, dir+"/streamchat.log")
}

func TestLogsMaskCredentials(t *testing.T) {
	var buf bytes.Buffer
	Configure(LevelInfo, &buf)
	t.Cleanup(DisableLogging)

	Warn("stream failed",
		"url", "https://example.com/v1?key=abcdefghij12345",
		"error", errors.New("401: Bearer abcdefghijklmnop rejected"))

	require.NotContains(t, buf.String(), "abcdefghij12345")
	require.NotContains(t, buf.String(), "abcdefghijklmnop")
	require.Contains(t, buf.String(), "[REDACTED]")
}
