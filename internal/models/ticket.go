package models

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Categories the extraction prompt asks for. The model is free to answer
// something else; values are not enforced.
const (
	CategoryBilling     = "Billing"
	CategoryLogin       = "Login"
	CategoryPerformance = "Performance"
	CategoryBug         = "Bug"
	CategoryQuestion    = "Question"
	CategoryUnknown     = "Unknown"
)

// TicketFields is the structured metadata extracted from a ticket.
type TicketFields struct {
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
}

// DefaultTicketFields is used when the model output cannot be parsed.
func DefaultTicketFields() TicketFields {
	return TicketFields{
		Summary:  "N/A",
		Category: CategoryUnknown,
		Severity: SeverityLow,
	}
}

// TriageResult is the response for one ticket.
type TriageResult struct {
	Summary     *string        `json:"summary"`
	Category    *string        `json:"category"`
	Severity    *Severity      `json:"severity"`
	KnownIssue  bool           `json:"known_issue"`
	BestKBMatch *SearchResult  `json:"best_kb_match"`
	KBMatches   []SearchResult `json:"kb_matches"`
	NextAction  string         `json:"next_action"`
	Error       string         `json:"error,omitempty"`
}

// TriageRecord is a journaled triage outcome.
type TriageRecord struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	Description       string        `db:"description" json:"description"`
	Result            *TriageResult `db:"result" json:"result"`
	Model             string        `db:"model" json:"model"`
	EmbeddingStrategy string        `db:"embedding_strategy" json:"embedding_strategy"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
}
