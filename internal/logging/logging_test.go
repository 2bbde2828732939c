package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gran-playground/internal/config"
	"github.com/sakif/gran-playground/internal/logging"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("whatever"))
}

func TestNewWithWriter(t *testing.T) {
	t.Run("json format and level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer := logging.NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)
		defer closer.Close()

		logger.Info("dropped")
		logger.Warn("kept", slog.String("artifact", "abc"))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "abc", line["artifact"])
	})

	t.Run("text format by default", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer := logging.NewWithWriter(config.LogConfig{Level: "info"}, &buf)
		defer closer.Close()

		logger.Info("hello")

		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("file output", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "server.log")
		logger, closer := logging.NewWithWriter(config.LogConfig{Level: "info", File: path}, &buf)

		logger.Info("to both")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to both")
		assert.Contains(t, buf.String(), "to both")
	})
}
