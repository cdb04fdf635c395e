package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
)

func TestMavenHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMavenHandler(&buf, nil)).With("system", "pipeline")

	logger.Info("Order classified", "order_id", "o1", "customer", "Jane Doe", "elapsed", 1500*time.Millisecond)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[INFO] [pipeline] ["), line)
	assert.Contains(t, line, "Order classified order_id=o1 customer=\"Jane Doe\" elapsed=1.5s\n")
	assert.NotContains(t, line, "system=")
	assert.NotContains(t, line, "\033[", "no colors for non-terminal writers")
}

func TestMavenHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMavenHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("hidden")
	logger.Warn("shown", "error", errors.New("boom"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `[WARN]`)
	assert.Contains(t, buf.String(), `error="boom"`)
}

func TestMavenHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMavenHandler(&buf, nil))

	logger.WithGroup("catalog").With("hits", 3).Info("Stats", slog.Group("fetch", "count", 2))

	assert.Contains(t, buf.String(), "catalog.hits=3")
	assert.Contains(t, buf.String(), "catalog.fetch.count=2")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	var stdout bytes.Buffer

	logger, closer := newLogger(config.LoggingConfig{Level: "debug", File: path}, &stdout)
	logger.With("system", "square").Debug("Square request", "status", 200)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [square]")
	assert.Contains(t, string(data), "status=200")
	assert.Contains(t, stdout.String(), "Square request")
}

func TestNewLogger_JSON(t *testing.T) {
	var stdout bytes.Buffer
	logger, closer := newLogger(config.LoggingConfig{Format: "json"}, &stdout)
	defer closer.Close()

	logger.Info("hello", "n", 1)
	assert.Contains(t, stdout.String(), `"msg":"hello"`)
}
