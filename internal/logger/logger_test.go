package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/boardgame-console/internal/config"
)

func TestSetup_Development(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&config.Config{Environment: "development", LogLevel: slog.LevelInfo}, &buf)

	log.Debug("hidden")
	log.Info("Round completed", "round", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `msg="Round completed"`)
	assert.Contains(t, out, "round=3")
}

func TestSetup_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&config.Config{Environment: "production", LogLevel: slog.LevelDebug}, &buf)

	WithRequestID(log, "req-1").Debug("Gameplay started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Gameplay started", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "DEBUG", entry["level"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&config.Config{Environment: "development"}, &buf)

	WithError(log, errors.New("rules engine down")).Error("Failed to start gameplay")
	assert.Contains(t, buf.String(), `error="rules engine down"`)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	f, err := OpenFile(path)
	require.NoError(t, err)
	log := Setup(&config.Config{Environment: "development"}, f)
	log.Info("first")
	require.NoError(t, f.Close())

	f, err = OpenFile(path)
	require.NoError(t, err)
	Setup(&config.Config{Environment: "development"}, f).Info("second")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestOpenFile_Error(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing", "console.log"))
	assert.Error(t, err)
}
