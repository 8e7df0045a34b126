package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"ticket-triage/internal/embedding"
	"ticket-triage/internal/metrics"
	"ticket-triage/internal/models"
	"ticket-triage/internal/repository"
)

// SearchService ranks knowledge-base records by cosine similarity to a
// query. Record vectors are computed once at construction; the service is
// read-only afterwards and safe for concurrent use.
type SearchService struct {
	provider embedding.Provider
	records  []*models.KnowledgeBase
	vectors  []embedding.Vector
	logger   *zap.Logger
}

func NewSearchService(
	ctx context.Context,
	knowledgeRepo *repository.KnowledgeRepository,
	provider embedding.Provider,
	logger *zap.Logger,
) (*SearchService, error) {
	records := knowledgeRepo.List()

	var vectors []embedding.Vector
	if len(records) > 0 {
		var err error
		vectors, err = provider.Embed(ctx, knowledgeRepo.SearchableTexts())
		if err != nil {
			return nil, fmt.Errorf("failed to embed knowledge base: %w", err)
		}
		if len(vectors) != len(records) {
			return nil, fmt.Errorf("embedded %d of %d knowledge base records", len(vectors), len(records))
		}
	}

	metrics.KnowledgeBaseRecords.Set(float64(len(records)))
	logger.Info("Knowledge base indexed",
		zap.Int("records", len(records)),
		zap.String("strategy", string(provider.Strategy())),
		zap.String("model", provider.Model()),
		zap.Int("dimension", provider.Dimension()),
	)

	return &SearchService{
		provider: provider,
		records:  records,
		vectors:  vectors,
		logger:   logger,
	}, nil
}

// Search returns at most topK records ordered by descending score. Equal
// scores keep knowledge-base order. A blank query or an empty knowledge base
// yields an empty slice without embedding anything.
func (s *SearchService) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" || len(s.records) == 0 {
		return []models.SearchResult{}, nil
	}
	if topK < 1 {
		topK = 1
	}

	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(string(s.provider.Strategy())).Observe(time.Since(start).Seconds())
	}()

	queryVectors, err := s.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(queryVectors))
	}

	type scored struct {
		record *models.KnowledgeBase
		score  float64
	}
	ranked := make([]scored, len(s.records))
	for i, rec := range s.records {
		score, err := embedding.Cosine(queryVectors[0], s.vectors[i])
		if err != nil {
			return nil, fmt.Errorf("failed to score %q: %w", rec.Title, err)
		}
		ranked[i] = scored{record: rec, score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	limit := min(topK, len(ranked))
	results := make([]models.SearchResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = models.NewSearchResult(ranked[i].record, ranked[i].score)
	}

	s.logger.Debug("Knowledge search completed",
		zap.Int("results", len(results)),
		zap.Float64("best_score", results[0].Score),
	)

	return results, nil
}

// Strategy reports which embedding variant backs the search.
func (s *SearchService) Strategy() embedding.Strategy {
	return s.provider.Strategy()
}
