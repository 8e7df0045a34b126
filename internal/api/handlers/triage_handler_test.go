package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-triage/internal/dto"
	"ticket-triage/internal/models"
	"ticket-triage/internal/service"
)

type fakeTriager struct {
	result  *models.TriageResult
	err     error
	history []*models.TriageRecord
	histErr error

	gotDescription string
	gotLimit       int
	gotOffset      int
}

func (f *fakeTriager) Triage(_ context.Context, description string) (*models.TriageResult, error) {
	f.gotDescription = description
	if strings.TrimSpace(description) == "" {
		return service.EmptyDescriptionResult(), service.ErrEmptyDescription
	}
	return f.result, f.err
}

func (f *fakeTriager) History(_ context.Context, limit, offset int) ([]*models.TriageRecord, error) {
	f.gotLimit, f.gotOffset = limit, offset
	return f.history, f.histErr
}

func newTestApp(triager Triager) *fiber.App {
	h := NewTriageHandler(triager, zap.NewNop())
	app := fiber.New()
	app.Post("/api/v1/triage", h.Triage)
	app.Get("/api/v1/triage/history", h.History)
	app.Get("/health", Health)
	return app
}

func post(t *testing.T, app *fiber.App, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/triage", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestTriageHandlerSuccess(t *testing.T) {
	summary, category, severity := "Cannot log in.", "Login", models.SeverityMedium
	best := models.SearchResult{Title: "Login failure after password reset", RecommendedAction: "Send password reset link", Score: 0.7}
	triager := &fakeTriager{result: &models.TriageResult{
		Summary: &summary, Category: &category, Severity: &severity,
		KnownIssue: true, BestKBMatch: &best, KBMatches: []models.SearchResult{best},
		NextAction: "Send password reset link",
	}}

	status, body := post(t, newTestApp(triager), `{"description": "I can't log in after resetting my password"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "I can't log in after resetting my password", triager.gotDescription)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, true, got["known_issue"])
	assert.Equal(t, "Medium", got["severity"])
	assert.Equal(t, "Send password reset link", got["next_action"])
	assert.NotContains(t, got, "error")
	assert.Contains(t, got, "kb_matches")
}

func TestTriageHandlerEmptyDescription(t *testing.T) {
	status, body := post(t, newTestApp(&fakeTriager{}), `{"description": "   "}`)
	require.Equal(t, fiber.StatusBadRequest, status)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Ticket description is empty.", got["error"])
	assert.Equal(t, "Ask user to provide a proper issue description.", got["next_action"])
	assert.Nil(t, got["summary"])
	assert.Equal(t, false, got["known_issue"])
}

func TestTriageHandlerRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "description=hello"},
		{"missing description", `{"summary": "x"}`},
		{"wrong type", `{"description": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triager := &fakeTriager{}
			status, _ := post(t, newTestApp(triager), tt.body)
			assert.Equal(t, fiber.StatusUnprocessableEntity, status)
			assert.Empty(t, triager.gotDescription)
		})
	}
}

func TestTriageHandlerModelFailure(t *testing.T) {
	triager := &fakeTriager{err: fmt.Errorf("LLM failed after retries: %w", errors.New("connection refused"))}

	status, body := post(t, newTestApp(triager), `{"description": "crash"}`)
	require.Equal(t, fiber.StatusInternalServerError, status)

	var got dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Contains(t, got.Error, "connection refused")
}

func TestHistoryHandler(t *testing.T) {
	triager := &fakeTriager{history: []*models.TriageRecord{{Description: "first"}}}
	app := newTestApp(triager)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/triage/history?limit=5&offset=2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, triager.gotLimit)
	assert.Equal(t, 2, triager.gotOffset)

	var got dto.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Records, 1)
	assert.Equal(t, "first", got.Records[0].Description)

	_, err = app.Test(httptest.NewRequest("GET", "/api/v1/triage/history?limit=1000&offset=-1", nil))
	require.NoError(t, err)
	assert.Equal(t, 20, triager.gotLimit)
	assert.Equal(t, 0, triager.gotOffset)
}

func TestHistoryHandlerJournalDisabled(t *testing.T) {
	app := newTestApp(&fakeTriager{histErr: service.ErrJournalDisabled})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/triage/history", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	resp, err := newTestApp(&fakeTriager{}).Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
