package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ticket-triage/internal/metrics"
	"ticket-triage/internal/models"
)

var (
	// ErrEmptyDescription is returned with EmptyDescriptionResult for blank tickets.
	ErrEmptyDescription = errors.New(MessageEmptyDescription)
	ErrJournalDisabled  = errors.New("triage journal is disabled")
)

const journalTimeout = 3 * time.Second

// Extractor produces ticket fields from a description.
type Extractor interface {
	Extract(ctx context.Context, description string) (Extraction, error)
}

// Searcher finds knowledge-base records similar to a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error)
}

// Journal stores triage outcomes.
type Journal interface {
	Create(ctx context.Context, record *models.TriageRecord) error
	List(ctx context.Context, limit, offset int) ([]*models.TriageRecord, error)
}

type TriageService struct {
	extractor Extractor
	searcher  Searcher
	policy    Policy
	logger    *zap.Logger

	journal   Journal
	modelName string
	strategy  string
}

func NewTriageService(extractor Extractor, searcher Searcher, policy Policy, logger *zap.Logger) *TriageService {
	return &TriageService{
		extractor: extractor,
		searcher:  searcher,
		policy:    policy,
		logger:    logger,
	}
}

// UseJournal records every completed triage. Call before serving requests.
func (s *TriageService) UseJournal(journal Journal, modelName, strategy string) {
	s.journal = journal
	s.modelName = modelName
	s.strategy = strategy
}

// Triage classifies a ticket and recommends the next action.
//
// A blank description returns EmptyDescriptionResult and ErrEmptyDescription
// without calling the extractor or the search. Extraction failures are
// returned; search failures are logged and the ticket is treated as a new
// issue.
func (s *TriageService) Triage(ctx context.Context, description string) (*models.TriageResult, error) {
	start := time.Now()
	defer func() {
		metrics.TriageDuration.Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(description) == "" {
		metrics.TriageRequestsTotal.WithLabelValues("empty_description").Inc()
		return EmptyDescriptionResult(), ErrEmptyDescription
	}

	var (
		extraction Extraction
		matches    []models.SearchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		extraction, err = s.extractor.Extract(gctx, description)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.searcher.Search(gctx, description, s.policy.TopK)
		if err != nil {
			s.logger.Warn("Knowledge search failed, treating ticket as a new issue", zap.Error(err))
			matches = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		metrics.TriageRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Triage failed", zap.Error(err))
		return nil, err
	}

	result := s.policy.Decide(extraction.Fields, matches)

	outcome := "new_issue"
	if result.KnownIssue {
		outcome = "known_issue"
	}
	metrics.TriageRequestsTotal.WithLabelValues(outcome).Inc()

	fields := []zap.Field{
		zap.Bool("known_issue", result.KnownIssue),
		zap.String("severity", string(extraction.Fields.Severity)),
		zap.Bool("fields_degraded", extraction.Degraded),
		zap.Int("matches", len(result.KBMatches)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if result.BestKBMatch != nil {
		fields = append(fields, zap.Float64("best_score", result.BestKBMatch.Score))
	}
	s.logger.Info("Ticket triaged", fields...)

	s.record(ctx, description, result)

	return result, nil
}

func (s *TriageService) record(ctx context.Context, description string, result *models.TriageResult) {
	if s.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	rec := &models.TriageRecord{
		ID:                uuid.New(),
		Description:       sanitizeUTF8(description),
		Result:            result,
		Model:             s.modelName,
		EmbeddingStrategy: s.strategy,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.journal.Create(ctx, rec); err != nil {
		s.logger.Warn("Failed to journal triage result", zap.String("id", rec.ID.String()), zap.Error(err))
	}
}

// History lists journaled triages, newest first.
func (s *TriageService) History(ctx context.Context, limit, offset int) ([]*models.TriageRecord, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	records, err := s.journal.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list triage history: %w", err)
	}
	return records, nil
}
