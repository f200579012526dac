package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
	"github.com/noah-isme/gymkhana-api/pkg/response"
)

type proposalService interface {
	Create(ctx context.Context, req dto.CreateProposalRequest, actor models.Actor) (*models.Proposal, error)
	Update(ctx context.Context, id string, req dto.UpdateProposalRequest, actor models.Actor) (*models.Proposal, error)
	Approve(ctx context.Context, id string, req dto.ApproveProposalRequest, actor models.Actor) (*models.Proposal, error)
	Reject(ctx context.Context, id string, req dto.RejectProposalRequest, actor models.Actor) (*models.Proposal, error)
	RequestRevision(ctx context.Context, id string, req dto.RequestRevisionRequest, actor models.Actor) (*models.Proposal, error)
	Pending(ctx context.Context, daysUntilDue int) ([]models.PendingProposalEvent, error)
	ForApproval(ctx context.Context, actor models.Actor) ([]models.Proposal, error)
	Get(ctx context.Context, id string) (*models.Proposal, error)
	GetByEvent(ctx context.Context, eventID string) (*models.Proposal, error)
	History(ctx context.Context, id string) ([]models.ApprovalLog, error)
}

// ProposalHandler exposes REST endpoints for the per-event proposal workflow.
type ProposalHandler struct {
	service proposalService
}

// NewProposalHandler constructs the handler.
func NewProposalHandler(service proposalService) *ProposalHandler {
	return &ProposalHandler{service: service}
}

// Create godoc
// @Summary Submit a proposal for an event
// @Tags Proposals
// @Accept json
// @Produce json
// @Param payload body dto.CreateProposalRequest true "Proposal payload"
// @Success 201 {object} response.Envelope
// @Router /proposals [post]
func (h *ProposalHandler) Create(c *gin.Context) {
	var req dto.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid proposal payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	proposal, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, proposal)
}

// Update godoc
// @Summary Edit or resubmit a proposal
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.UpdateProposalRequest true "Proposal payload"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id} [put]
func (h *ProposalHandler) Update(c *gin.Context) {
	var req dto.UpdateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid proposal payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	proposal, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// Approve godoc
// @Summary Approve a proposal at its current stage
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.ApproveProposalRequest false "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/approve [post]
func (h *ProposalHandler) Approve(c *gin.Context) {
	var req dto.ApproveProposalRequest
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
	proposal, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// Reject godoc
// @Summary Reject a proposal at its current stage
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.RejectProposalRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/reject [post]
func (h *ProposalHandler) Reject(c *gin.Context) {
	var req dto.RejectProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	proposal, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// RequestRevision godoc
// @Summary Send a proposal back to its submitter for rework
// @Tags Proposals
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.RequestRevisionRequest true "Revision payload"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/request-revision [post]
func (h *ProposalHandler) RequestRevision(c *gin.Context) {
	var req dto.RequestRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "revision comments are required"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	proposal, err := h.service.RequestRevision(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// Pending godoc
// @Summary List events whose proposal submissions are due
// @Tags Proposals
// @Produce json
// @Param days query int false "Look-ahead window in days"
// @Success 200 {object} response.Envelope
// @Router /proposals/pending [get]
func (h *ProposalHandler) Pending(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			days = parsed
		}
	}
	pending, err := h.service.Pending(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PendingProposalsResponse{Events: pending, Count: len(pending)}, nil)
}

// ForApproval godoc
// @Summary List proposals awaiting the caller's approval stage
// @Tags Proposals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proposals/for-approval [get]
func (h *ProposalHandler) ForApproval(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	proposals, err := h.service.ForApproval(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposals, nil)
}

// Get godoc
// @Summary Get a proposal by ID
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id} [get]
func (h *ProposalHandler) Get(c *gin.Context) {
	proposal, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// GetByEvent godoc
// @Summary Get the proposal attached to an event
// @Tags Proposals
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /proposals/event/{eventId} [get]
func (h *ProposalHandler) GetByEvent(c *gin.Context) {
	proposal, err := h.service.GetByEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// History godoc
// @Summary Get the approval history of a proposal
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/history [get]
func (h *ProposalHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
