package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
	"github.com/noah-isme/gymkhana-api/pkg/response"
)

type amendmentService interface {
	Create(ctx context.Context, req dto.CreateAmendmentRequest, actor models.Actor) (*models.Amendment, error)
	Review(ctx context.Context, id string, req dto.ReviewAmendmentRequest, actor models.Actor) (*models.Amendment, error)
	Get(ctx context.Context, id string) (*models.Amendment, error)
	ListPending(ctx context.Context) ([]models.Amendment, error)
	ListByCalendar(ctx context.Context, calendarID string) ([]models.Amendment, error)
}

// AmendmentHandler exposes REST endpoints for calendar amendments.
type AmendmentHandler struct {
	service amendmentService
}

// NewAmendmentHandler constructs the handler.
func NewAmendmentHandler(service amendmentService) *AmendmentHandler {
	return &AmendmentHandler{service: service}
}

// Create godoc
// @Summary File an amendment against the current calendar
// @Tags Amendments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAmendmentRequest true "Amendment payload"
// @Success 201 {object} response.Envelope
// @Router /amendments [post]
func (h *AmendmentHandler) Create(c *gin.Context) {
	var req dto.CreateAmendmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid amendment payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	amendment, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, amendment)
}

// Approve godoc
// @Summary Approve an amendment and apply its change
// @Tags Amendments
// @Accept json
// @Produce json
// @Param id path string true "Amendment ID"
// @Param payload body dto.ReviewAmendmentRequest false "Review comments"
// @Success 200 {object} response.Envelope
// @Router /amendments/{id}/approve [post]
func (h *AmendmentHandler) Approve(c *gin.Context) {
	h.review(c, models.AmendmentStatusApproved)
}

// Reject godoc
// @Summary Reject an amendment
// @Tags Amendments
// @Accept json
// @Produce json
// @Param id path string true "Amendment ID"
// @Param payload body dto.ReviewAmendmentRequest false "Review comments"
// @Success 200 {object} response.Envelope
// @Router /amendments/{id}/reject [post]
func (h *AmendmentHandler) Reject(c *gin.Context) {
	h.review(c, models.AmendmentStatusRejected)
}

func (h *AmendmentHandler) review(c *gin.Context, status models.AmendmentStatus) {
	var body struct {
		Comments string `json:"comments"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
			return
		}
	}
	req := dto.ReviewAmendmentRequest{Status: status, Comments: body.Comments}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	amendment, err := h.service.Review(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, amendment, nil)
}

// Get godoc
// @Summary Get an amendment by ID
// @Tags Amendments
// @Produce json
// @Param id path string true "Amendment ID"
// @Success 200 {object} response.Envelope
// @Router /amendments/{id} [get]
func (h *AmendmentHandler) Get(c *gin.Context) {
	amendment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, amendment, nil)
}

// ListPending godoc
// @Summary List amendments awaiting review
// @Tags Amendments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /amendments/pending [get]
func (h *AmendmentHandler) ListPending(c *gin.Context) {
	amendments, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, amendments, nil)
}

// ListByCalendar godoc
// @Summary List amendments filed against a calendar
// @Tags Amendments
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Success 200 {object} response.Envelope
// @Router /amendments/calendar/{calendarId} [get]
func (h *AmendmentHandler) ListByCalendar(c *gin.Context) {
	amendments, err := h.service.ListByCalendar(c.Request.Context(), c.Param("calendarId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, amendments, nil)
}
