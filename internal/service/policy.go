package service

import (
	"ticket-triage/internal/models"
	"ticket-triage/pkg/config"
)

const (
	ActionAttachKB          = "Attach KB article and respond to user."
	ActionEscalate          = "Escalate to engineering team."
	ActionRequestInfo       = "Request more information from the user."
	ActionAskForDescription = "Ask user to provide a proper issue description."
	MessageEmptyDescription = "Ticket description is empty."
	DefaultTopK             = 3
)

// Policy turns extracted fields and search results into a decision.
type Policy struct {
	// KnownIssueThreshold is exclusive: a best score equal to it is a new issue.
	KnownIssueThreshold float64
	TopK                int
}

func NewPolicy(cfg *config.TriageConfig) Policy {
	p := Policy{KnownIssueThreshold: cfg.KnownIssueThreshold, TopK: cfg.TopK}
	if p.TopK < 1 {
		p.TopK = DefaultTopK
	}
	return p
}

// Decide builds the triage result. matches must be ordered best first.
func (p Policy) Decide(fields models.TicketFields, matches []models.SearchResult) *models.TriageResult {
	if matches == nil {
		matches = []models.SearchResult{}
	}

	var best *models.SearchResult
	bestScore := 0.0
	if len(matches) > 0 {
		top := matches[0]
		best = &top
		bestScore = top.Score
	}

	knownIssue := bestScore > p.KnownIssueThreshold

	var nextAction string
	switch {
	case knownIssue && best.RecommendedAction != "":
		nextAction = best.RecommendedAction
	case knownIssue:
		nextAction = ActionAttachKB
	case fields.Severity == models.SeverityHigh || fields.Severity == models.SeverityCritical:
		nextAction = ActionEscalate
	default:
		nextAction = ActionRequestInfo
	}

	summary, category, severity := fields.Summary, fields.Category, fields.Severity
	return &models.TriageResult{
		Summary:     &summary,
		Category:    &category,
		Severity:    &severity,
		KnownIssue:  knownIssue,
		BestKBMatch: best,
		KBMatches:   matches,
		NextAction:  nextAction,
	}
}

// EmptyDescriptionResult is returned for blank tickets. No fields are set.
func EmptyDescriptionResult() *models.TriageResult {
	return &models.TriageResult{
		KnownIssue: false,
		KBMatches:  []models.SearchResult{},
		NextAction: ActionAskForDescription,
		Error:      MessageEmptyDescription,
	}
}
