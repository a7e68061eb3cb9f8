package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"text":  FormatText,
		"tint":  FormatText,
		"human": FormatText,
		"auto":  FormatAuto,
		"":      FormatAuto,
		"xml":   FormatAuto,
	}
	for in, want := range tests {
		require.Equal(t, want, ParseFormat(in), in)
	}
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewHandler_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.False(t, IsTTY(&buf))

	log := slog.New(NewHandler(&buf, FormatAuto, slog.LevelInfo))
	log.Debug("hidden")
	log.Info("shown", "k", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "shown", rec["msg"])
	require.EqualValues(t, 1, rec["k"])
}

func TestNewHandler_TextForced(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, FormatText, slog.LevelInfo)).Info("hello")
	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(buf.Bytes()))
}

func TestSetupFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "nested", "popup.log")
	c, err := SetupFile(path, FormatJSON, slog.LevelInfo)
	require.NoError(t, err)
	slog.Info("to file")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"to file"`)
}
