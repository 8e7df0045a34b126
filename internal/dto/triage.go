package dto

import "ticket-triage/internal/models"

// TriageRequest is the body of POST /api/v1/triage. Description is a
// pointer so a missing key can be told apart from an empty string.
type TriageRequest struct {
	Description *string `json:"description" example:"I can't log in after resetting my password"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"LLM failed after retries: connection refused"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

type HistoryResponse struct {
	Records []*models.TriageRecord `json:"records"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}
