package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-triage/internal/embedding"
	"ticket-triage/internal/models"
	"ticket-triage/internal/repository"
)

func sampleKnowledgeBase() []*models.KnowledgeBase {
	return []*models.KnowledgeBase{
		{
			Title:             "Login failure after password reset",
			Symptoms:          []string{"cannot log in", "password reset link expired"},
			RecommendedAction: "Send password reset link",
		},
		{
			Title:             "Invoice shows wrong amount",
			Symptoms:          []string{"billing total incorrect", "double charge"},
			RecommendedAction: "Refund the difference",
		},
		{
			Title:             "Dashboard loads slowly",
			Symptoms:          []string{"page takes long", "timeout on reports"},
			RecommendedAction: "Clear report cache",
		},
	}
}

func newKnowledgeRepo(t *testing.T, records []*models.KnowledgeBase) *repository.KnowledgeRepository {
	t.Helper()
	repo, err := repository.NewKnowledgeRepository(records, zap.NewNop())
	require.NoError(t, err)
	return repo
}

// fixedProvider maps known texts to fixed vectors and counts Embed calls.
type fixedProvider struct {
	vectors map[string]embedding.Vector
	dim     int
	calls   atomic.Int32
	err     error
}

func (p *fixedProvider) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	out := make([]embedding.Vector, len(texts))
	for i, text := range texts {
		v, ok := p.vectors[text]
		if !ok {
			v = make(embedding.Vector, p.dim)
		}
		out[i] = v
	}
	return out, nil
}

func (p *fixedProvider) Strategy() embedding.Strategy { return embedding.StrategyDense }
func (p *fixedProvider) Dimension() int               { return p.dim }
func (p *fixedProvider) Model() string                { return "fixed" }
func (p *fixedProvider) Close() error                 { return nil }

// scriptedModel replays replies in order; a nil entry is an error.
type scriptedModel struct {
	replies []*string
	calls   atomic.Int32
}

var errModelDown = errors.New("connection refused")

func (m *scriptedModel) Complete(ctx context.Context, _ string) (string, error) {
	i := int(m.calls.Add(1)) - 1
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	if m.replies[i] == nil {
		return "", errModelDown
	}
	return *m.replies[i], nil
}

func (m *scriptedModel) Name() string { return "scripted" }
func (m *scriptedModel) Close() error { return nil }

func reply(s string) *string { return &s }
