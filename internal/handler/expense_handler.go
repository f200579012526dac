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

type expenseService interface {
	Submit(ctx context.Context, req dto.CreateExpenseRequest, actor models.Actor) (*models.Expense, error)
	Update(ctx context.Context, id string, req dto.UpdateExpenseRequest, actor models.Actor) (*models.Expense, error)
	Approve(ctx context.Context, id string, req dto.ApproveExpenseRequest, actor models.Actor) (*models.Expense, error)
	Get(ctx context.Context, id string) (*models.Expense, error)
	GetByEvent(ctx context.Context, eventID string) (*models.Expense, error)
	ListPending(ctx context.Context) ([]models.Expense, error)
}

// ExpenseHandler exposes REST endpoints for post-event expense reporting.
type ExpenseHandler struct {
	service expenseService
}

// NewExpenseHandler constructs the handler.
func NewExpenseHandler(service expenseService) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// Submit godoc
// @Summary File the expense report for an event
// @Tags Expenses
// @Accept json
// @Produce json
// @Param payload body dto.CreateExpenseRequest true "Expense payload"
// @Success 201 {object} response.Envelope
// @Router /expenses [post]
func (h *ExpenseHandler) Submit(c *gin.Context) {
	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid expense payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	expense, err := h.service.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// Update godoc
// @Summary Replace the bill list of a pending expense report
// @Tags Expenses
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param payload body dto.UpdateExpenseRequest true "Bills payload"
// @Success 200 {object} response.Envelope
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	var req dto.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid expense payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	expense, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// Approve godoc
// @Summary Approve an expense report and complete its event
// @Tags Expenses
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param payload body dto.ApproveExpenseRequest false "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /expenses/{id}/approve [post]
func (h *ExpenseHandler) Approve(c *gin.Context) {
	var req dto.ApproveExpenseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	expense, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// Get godoc
// @Summary Get an expense report by ID
// @Tags Expenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	expense, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// GetByEvent godoc
// @Summary Get the expense report attached to an event
// @Tags Expenses
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /expenses/event/{eventId} [get]
func (h *ExpenseHandler) GetByEvent(c *gin.Context) {
	expense, err := h.service.GetByEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// ListPending godoc
// @Summary List expense reports awaiting approval
// @Tags Expenses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /expenses/pending [get]
func (h *ExpenseHandler) ListPending(c *gin.Context) {
	expenses, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expenses, nil)
}
