package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadKnowledgeRepositoryJSON(t *testing.T) {
	path := writeFile(t, "kb.json", `[
		{"title": "Login failure after password reset",
		 "symptoms": ["Cannot log into account after password reset", "Invalid credentials"],
		 "recommended_action": "Send password reset link"},
		{"title": "Duplicate charge", "symptoms": ["Charged twice"], "recommended_action": "Refund the duplicate charge"}
	]`)

	repo, err := LoadKnowledgeRepository(path, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, 2, repo.Count())
	assert.Equal(t, path, repo.Source())

	first := repo.List()[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "Send password reset link", first.RecommendedAction)
	assert.Equal(t,
		"Login failure after password reset Cannot log into account after password reset Invalid credentials",
		first.SearchableText())
	assert.Equal(t, 1, repo.List()[1].Index)

	texts := repo.SearchableTexts()
	assert.Equal(t, []string{first.SearchableText(), "Duplicate charge Charged twice"}, texts)
}

func TestLoadKnowledgeRepositoryJSONC(t *testing.T) {
	path := writeFile(t, "kb.jsonc", `[
		// login issues
		{"title": "Login failure", "symptoms": ["Cannot log in",], "recommended_action": "Reset password"},
	]`)

	repo, err := LoadKnowledgeRepository(path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, repo.Count())
	assert.Equal(t, []string{"Cannot log in"}, repo.List()[0].Symptoms)
}

func TestLoadKnowledgeRepositoryYAML(t *testing.T) {
	path := writeFile(t, "kb.yaml", `
- title: Slow dashboard
  symptoms:
    - Dashboard takes a minute to load
  recommended_action: Clear cache and retry
`)

	repo, err := LoadKnowledgeRepository(path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, repo.Count())
	assert.Equal(t, "Clear cache and retry", repo.List()[0].RecommendedAction)
}

func TestLoadKnowledgeRepositoryEmpty(t *testing.T) {
	repo, err := LoadKnowledgeRepository(writeFile(t, "kb.json", `[]`), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, repo.Count())
	assert.Empty(t, repo.SearchableTexts())
}

func TestLoadKnowledgeRepositoryFailsWholeFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"not json", "kb.json", `{title`},
		{"object instead of list", "kb.json", `{"title": "x"}`},
		{"symptoms not a list", "kb.json", `[{"title": "x", "symptoms": "y", "recommended_action": "z"}]`},
		{"empty title", "kb.json", `[{"title": "ok", "symptoms": [], "recommended_action": "a"}, {"title": " ", "symptoms": [], "recommended_action": "b"}]`},
		{"null entry", "kb.json", `[null]`},
		{"bad yaml", "kb.yml", "- title: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadKnowledgeRepository(writeFile(t, tt.file, tt.content), zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestLoadKnowledgeRepositoryMissingFile(t *testing.T) {
	_, err := LoadKnowledgeRepository(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
