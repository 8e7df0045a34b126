package models

import "strings"

// KnowledgeBase is one known issue loaded from the knowledge-base file.
// Records are immutable once loaded.
type KnowledgeBase struct {
	Title             string   `json:"title" yaml:"title"`
	Symptoms          []string `json:"symptoms" yaml:"symptoms"`
	RecommendedAction string   `json:"recommended_action" yaml:"recommended_action"`

	// Index is the record's position in the source file.
	Index int `json:"-" yaml:"-"`

	searchableText string
}

// SearchableText is the text embedded for this record: the title followed by
// every symptom, space separated.
func (kb *KnowledgeBase) SearchableText() string {
	if kb.searchableText != "" {
		return kb.searchableText
	}
	return BuildSearchableText(kb.Title, kb.Symptoms)
}

// Freeze precomputes derived fields. The repository calls it once per record
// at load time so concurrent readers never write.
func (kb *KnowledgeBase) Freeze(index int) {
	kb.Index = index
	kb.searchableText = BuildSearchableText(kb.Title, kb.Symptoms)
}

func BuildSearchableText(title string, symptoms []string) string {
	if len(symptoms) == 0 {
		return title
	}
	return title + " " + strings.Join(symptoms, " ")
}

// SearchResult is a knowledge-base record scored against a query.
type SearchResult struct {
	Title             string   `json:"title"`
	Symptoms          []string `json:"symptoms"`
	RecommendedAction string   `json:"recommended_action"`
	Score             float64  `json:"score"`
}

// NewSearchResult copies the record fields so callers cannot mutate the
// knowledge base through a result.
func NewSearchResult(kb *KnowledgeBase, score float64) SearchResult {
	symptoms := make([]string, len(kb.Symptoms))
	copy(symptoms, kb.Symptoms)
	return SearchResult{
		Title:             kb.Title,
		Symptoms:          symptoms,
		RecommendedAction: kb.RecommendedAction,
		Score:             score,
	}
}
