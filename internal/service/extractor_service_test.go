package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-triage/internal/llm"
	"ticket-triage/internal/metrics"
	"ticket-triage/internal/models"
	"ticket-triage/pkg/config"
	"ticket-triage/pkg/retry"
)

func noDelay(retries int) *config.LLMConfig {
	return &config.LLMConfig{MaxRetries: retries}
}

func TestParseTicketFields(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  models.TicketFields
	}{
		{
			name:  "plain object",
			reply: `{"summary": "Cannot log in.", "category": "Login", "severity": "Medium"}`,
			want:  models.TicketFields{Summary: "Cannot log in.", Category: "Login", Severity: models.SeverityMedium},
		},
		{
			name:  "surrounding whitespace",
			reply: "\n  {\"summary\": \"s\", \"category\": \"Bug\", \"severity\": \"High\"}  \n",
			want:  models.TicketFields{Summary: "s", Category: "Bug", Severity: models.SeverityHigh},
		},
		{
			name:  "json code fence",
			reply: "```json\n{\"summary\": \"s\", \"category\": \"Billing\", \"severity\": \"Low\"}\n```",
			want:  models.TicketFields{Summary: "s", Category: "Billing", Severity: models.SeverityLow},
		},
		{
			name:  "bare code fence",
			reply: "```\n{\"summary\": \"s\", \"category\": \"Question\", \"severity\": \"Low\"}\n```",
			want:  models.TicketFields{Summary: "s", Category: "Question", Severity: models.SeverityLow},
		},
		{
			name:  "missing keys take defaults",
			reply: `{"category": "Performance"}`,
			want:  models.TicketFields{Summary: "N/A", Category: "Performance", Severity: models.SeverityLow},
		},
		{
			name:  "unlisted values pass through",
			reply: `{"summary": "s", "category": "Security", "severity": "Urgent"}`,
			want:  models.TicketFields{Summary: "s", Category: "Security", Severity: "Urgent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTicketFields(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTicketFieldsRejectsNonObjects(t *testing.T) {
	for _, reply := range []string{
		"",
		"Sure! Here is the JSON you asked for.",
		`Here: {"summary": "s"}`,
		`{"summary": "s",`,
		`["summary"]`,
	} {
		_, err := ParseTicketFields(reply)
		assert.Error(t, err, reply)
	}
}

func TestExtractWithMockModel(t *testing.T) {
	svc := NewExtractorService(llm.NewMock(), noDelay(2), zap.NewNop())

	got, err := svc.Extract(context.Background(), "The app crashes on save.")
	require.NoError(t, err)

	assert.False(t, got.Degraded)
	assert.Equal(t, "Mock summary of the ticket.", got.Fields.Summary)
	assert.Equal(t, models.CategoryBug, got.Fields.Category)
	assert.Equal(t, models.SeverityHigh, got.Fields.Severity)
}

func TestExtractFallsBackOnMalformedReply(t *testing.T) {
	model := &llm.Mock{Reply: "I think this is a login problem."}
	svc := NewExtractorService(model, noDelay(2), zap.NewNop())
	before := testutil.ToFloat64(metrics.ExtractionFallbacksTotal.WithLabelValues(model.Name()))

	got, err := svc.Extract(context.Background(), "help")
	require.NoError(t, err)

	assert.True(t, got.Degraded)
	assert.Equal(t, models.DefaultTicketFields(), got.Fields)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ExtractionFallbacksTotal.WithLabelValues(model.Name())))
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	model := &scriptedModel{replies: []*string{nil, nil, reply(`{"summary": "s", "category": "Login", "severity": "Critical"}`)}}
	svc := NewExtractorService(model, noDelay(2), zap.NewNop())

	got, err := svc.Extract(context.Background(), "cannot log in")
	require.NoError(t, err)

	assert.EqualValues(t, 3, model.calls.Load())
	assert.Equal(t, models.SeverityCritical, got.Fields.Severity)
}

func TestExtractFailsAfterRetries(t *testing.T) {
	model := &scriptedModel{replies: []*string{nil}}
	svc := NewExtractorService(model, noDelay(2), zap.NewNop())

	_, err := svc.Extract(context.Background(), "cannot log in")
	require.Error(t, err)

	assert.EqualValues(t, 3, model.calls.Load())
	assert.ErrorIs(t, err, errModelDown)
	assert.Contains(t, err.Error(), "LLM failed after retries")

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestExtractDoesNotRetryCancelledContext(t *testing.T) {
	model := &llm.Mock{Reply: llm.MockResponse}
	svc := NewExtractorService(model, noDelay(5), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Extract(ctx, "cannot log in")
	assert.ErrorIs(t, err, context.Canceled)
}
