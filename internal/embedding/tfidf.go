package embedding

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Tokens are runs of at least two letters, digits or underscores.
var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// SparseProvider is a TF-IDF vectorizer fit once on the knowledge-base
// corpus. Its vocabulary never changes after construction, so terms absent
// from the corpus contribute nothing to a query vector.
type SparseProvider struct {
	vocabulary map[string]int
	idf        []float64
}

// NewSparse fits the vectorizer on corpus. Term weights are raw counts
// multiplied by a smoothed idf, ln((1+n)/(1+df))+1, and each vector is
// L2-normalized.
func NewSparse(corpus []string) *SparseProvider {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, term := range terms(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	sorted := make([]string, 0, len(df))
	for term := range df {
		sorted = append(sorted, term)
	}
	sort.Strings(sorted)

	n := float64(len(corpus))
	vocabulary := make(map[string]int, len(sorted))
	idf := make([]float64, len(sorted))
	for i, term := range sorted {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return &SparseProvider{vocabulary: vocabulary, idf: idf}
}

func terms(text string) []string {
	return termPattern.FindAllString(strings.ToLower(text), -1)
}

func (p *SparseProvider) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sparse embedding: %w", err)
	}

	out := make([]Vector, len(texts))
	for i, text := range texts {
		out[i] = p.transform(text)
	}
	return out, nil
}

func (p *SparseProvider) transform(text string) Vector {
	v := make(Vector, len(p.idf))
	for _, term := range terms(text) {
		if idx, ok := p.vocabulary[term]; ok {
			v[idx]++
		}
	}
	for i, count := range v {
		if count != 0 {
			v[i] = float32(float64(count) * p.idf[i])
		}
	}
	normalize(v)
	return v
}

func (p *SparseProvider) Strategy() Strategy { return StrategySparse }

// Dimension is the vocabulary size.
func (p *SparseProvider) Dimension() int { return len(p.idf) }

func (p *SparseProvider) Model() string {
	return fmt.Sprintf("tfidf-%d", len(p.idf))
}

func (p *SparseProvider) Close() error { return nil }
