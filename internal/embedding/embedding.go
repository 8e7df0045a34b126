// Package embedding turns text into vectors for knowledge-base search.
//
// Two strategies implement Provider: Dense runs a sentence-embedding model
// through ONNX Runtime, Sparse is a TF-IDF vectorizer fit on the knowledge
// base. Select picks one at startup and the choice is fixed for the life of
// the process.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Vector is a fixed-length embedding. Sparse vectors are stored densely over
// the fitted vocabulary.
type Vector []float32

// Strategy tags the variant a Provider implements.
type Strategy string

const (
	StrategyDense  Strategy = "dense"
	StrategySparse Strategy = "sparse"
)

// ErrDimensionMismatch is returned when vectors from different providers
// (or different model versions) are compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Provider produces vectors from text. Implementations are safe for
// concurrent use once constructed.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([]Vector, error)
	Strategy() Strategy
	Dimension() int
	// Model identifies the model or vocabulary behind the vectors.
	Model() string
	Close() error
}

// Cosine returns the cosine similarity of a and b. A zero vector has
// similarity 0 with everything.
func Cosine(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// normalize scales v to unit L2 length in place. Zero vectors are left alone.
func normalize(v Vector) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
