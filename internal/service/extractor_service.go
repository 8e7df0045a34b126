package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ticket-triage/internal/llm"
	"ticket-triage/internal/metrics"
	"ticket-triage/internal/models"
	"ticket-triage/pkg/config"
	"ticket-triage/pkg/retry"
)

const extractionPrompt = `Extract structured metadata from the following support ticket.
Return ONLY a valid JSON object with keys:
- summary (1-2 sentence summary)
- category (Billing, Login, Performance, Bug, Question)
- severity (Low, Medium, High, Critical)

Ticket:
"""%s"""`

// Extraction is the outcome of field extraction. Degraded is set when the
// model reply could not be parsed and default fields were substituted.
type Extraction struct {
	Fields   models.TicketFields
	Degraded bool
}

// ExtractorService asks a chat model for ticket metadata.
type ExtractorService struct {
	model  llm.ChatModel
	policy retry.Policy
	logger *zap.Logger
}

func NewExtractorService(model llm.ChatModel, cfg *config.LLMConfig, logger *zap.Logger) *ExtractorService {
	policy := retry.Fixed(cfg.MaxRetries, cfg.RetryDelay)
	policy.Retryable = func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.LLMRequestsTotal.WithLabelValues(model.Name(), "retry").Inc()
		logger.Warn("LLM call failed, retrying",
			zap.String("model", model.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	return &ExtractorService{
		model:  model,
		policy: policy,
		logger: logger,
	}
}

// Extract returns the ticket fields for description. A model that keeps
// failing after every retry is an error; a reply that is not JSON is not,
// it yields DefaultTicketFields with Degraded set.
func (s *ExtractorService) Extract(ctx context.Context, description string) (Extraction, error) {
	prompt := fmt.Sprintf(extractionPrompt, description)

	reply, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		start := time.Now()
		reply, err := s.model.Complete(ctx, prompt)
		metrics.LLMRequestDuration.WithLabelValues(s.model.Name()).Observe(time.Since(start).Seconds())
		return reply, err
	})
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(s.model.Name(), "failure").Inc()
		return Extraction{}, fmt.Errorf("LLM failed after retries: %w", err)
	}
	metrics.LLMRequestsTotal.WithLabelValues(s.model.Name(), "success").Inc()

	fields, err := ParseTicketFields(reply)
	if err != nil {
		metrics.ExtractionFallbacksTotal.WithLabelValues(s.model.Name()).Inc()
		s.logger.Warn("LLM output is not valid JSON, using default ticket fields",
			zap.String("model", s.model.Name()),
			zap.Int("reply_length", len(reply)),
			zap.Error(err),
		)
		return Extraction{Fields: models.DefaultTicketFields(), Degraded: true}, nil
	}

	return Extraction{Fields: fields}, nil
}

// ParseTicketFields decodes a model reply. Surrounding whitespace and a
// markdown code fence are tolerated; anything else must be a JSON object.
// Keys that are missing or empty take their default value.
func ParseTicketFields(reply string) (models.TicketFields, error) {
	body := strings.TrimSpace(reply)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(body, "```")
		body = strings.TrimSpace(body)
	}
	if !strings.HasPrefix(body, "{") {
		return models.TicketFields{}, fmt.Errorf("reply is not a JSON object")
	}

	var fields models.TicketFields
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return models.TicketFields{}, err
	}

	defaults := models.DefaultTicketFields()
	if strings.TrimSpace(fields.Summary) == "" {
		fields.Summary = defaults.Summary
	}
	if strings.TrimSpace(fields.Category) == "" {
		fields.Category = defaults.Category
	}
	if strings.TrimSpace(string(fields.Severity)) == "" {
		fields.Severity = defaults.Severity
	}
	return fields, nil
}
