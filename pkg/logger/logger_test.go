package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-triage/pkg/config"
)

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage.log")

	log, err := New(config.LoggerConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	require.NoError(t, err)

	log.Info("knowledge base loaded", zap.Int("records", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "knowledge base loaded", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 3, entry["records"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewFallsBackToInfoOnUnknownLevel(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "chatty"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}
