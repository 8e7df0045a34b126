package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("USE_MOCK_LLM", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("TRIAGE_TOP_K", "")
	t.Setenv("TRIAGE_KNOWN_ISSUE_THRESHOLD", "")
	t.Setenv("LLM_MAX_RETRIES", "")
	t.Setenv("LLM_RETRY_DELAY_MS", "")
	t.Setenv("EMBEDDING_STRATEGY", "")
	t.Setenv("OLLAMA_MODEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.LLM.UseMock)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama2", cfg.Ollama.Model)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, time.Second, cfg.LLM.RetryDelay)
	assert.Equal(t, 3, cfg.Triage.TopK)
	assert.Equal(t, 0.30, cfg.Triage.KnownIssueThreshold)
	assert.Equal(t, "auto", cfg.Embedding.Strategy)
	assert.False(t, cfg.Journal.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("TRIAGE_TOP_K", "5")
	t.Setenv("TRIAGE_KNOWN_ISSUE_THRESHOLD", "0.5")
	t.Setenv("LLM_RETRY_DELAY_MS", "250")
	t.Setenv("EMBEDDING_STRATEGY", "SPARSE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.LLM.UseMock)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, 5, cfg.Triage.TopK)
	assert.Equal(t, 0.5, cfg.Triage.KnownIssueThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.LLM.RetryDelay)
	assert.Equal(t, "sparse", cfg.Embedding.Strategy)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric top k", "TRIAGE_TOP_K", "three"},
		{"zero top k", "TRIAGE_TOP_K", "0"},
		{"threshold out of range", "TRIAGE_KNOWN_ISSUE_THRESHOLD", "1.5"},
		{"negative retries", "LLM_MAX_RETRIES", "-1"},
		{"unknown provider", "LLM_PROVIDER", "watson"},
		{"unknown strategy", "EMBEDDING_STRATEGY", "bm25"},
		{"bad bool", "USE_MOCK_LLM", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateRequiresGigaChatKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gigachat")
	t.Setenv("GIGACHAT_API_KEY", "")
	t.Setenv("USE_MOCK_LLM", "false")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GIGACHAT_API_KEY")

	t.Setenv("USE_MOCK_LLM", "true")
	_, err = Load()
	assert.NoError(t, err)
}
