package handlers

import (
	"context"
	"errors"

	"ticket-triage/internal/dto"
	"ticket-triage/internal/models"
	"ticket-triage/internal/service"
	"ticket-triage/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const maxHistoryLimit = 100

// Triager is the part of service.TriageService the handlers use.
type Triager interface {
	Triage(ctx context.Context, description string) (*models.TriageResult, error)
	History(ctx context.Context, limit, offset int) ([]*models.TriageRecord, error)
}

type TriageHandler struct {
	triageService Triager
	logger        *zap.Logger
}

func NewTriageHandler(triageService Triager, logger *zap.Logger) *TriageHandler {
	return &TriageHandler{
		triageService: triageService,
		logger:        logger,
	}
}

// Triage godoc
// @Summary Triage a support ticket
// @Description Extract summary, category and severity, search the knowledge base and recommend the next action
// @Tags triage
// @Accept json
// @Produce json
// @Param request body dto.TriageRequest true "Ticket"
// @Success 200 {object} models.TriageResult
// @Failure 400 {object} models.TriageResult
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/triage [post]
func (h *TriageHandler) Triage(c *fiber.Ctx) error {
	var req dto.TriageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: "Invalid request body",
		})
	}
	if req.Description == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: "Field 'description' is required",
		})
	}

	result, err := h.triageService.Triage(c.UserContext(), *req.Description)
	if err != nil {
		if errors.Is(err, service.ErrEmptyDescription) {
			return c.Status(fiber.StatusBadRequest).JSON(result)
		}
		h.logger.Error("Triage failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(result)
}

// History godoc
// @Summary List journaled triages
// @Description Newest first. Only available when the journal is enabled.
// @Tags triage
// @Produce json
// @Param limit query int false "Page size (1-100)" default(20)
// @Param offset query int false "Records to skip" default(0)
// @Success 200 {object} dto.HistoryResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/triage/history [get]
func (h *TriageHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > maxHistoryLimit {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.triageService.History(c.UserContext(), limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrJournalDisabled) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "Triage journal is disabled",
			})
		}
		h.logger.Error("Failed to list triage history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Failed to list triage history",
		})
	}

	return c.JSON(dto.HistoryResponse{
		Records: records,
		Limit:   limit,
		Offset:  offset,
	})
}
