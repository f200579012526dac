package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
	"github.com/noah-isme/gymkhana-api/pkg/response"
)

type calendarService interface {
	Create(ctx context.Context, req dto.CreateCalendarRequest, actor models.Actor) (*models.Calendar, error)
	Update(ctx context.Context, id string, req dto.UpdateCalendarRequest, actor models.Actor) (*models.Calendar, error)
	Submit(ctx context.Context, id string, req dto.SubmitCalendarRequest, actor models.Actor) (*models.Calendar, []models.DateConflict, error)
	Approve(ctx context.Context, id string, req dto.ApproveCalendarRequest, actor models.Actor) (*models.Calendar, error)
	Reject(ctx context.Context, id string, req dto.RejectCalendarRequest, actor models.Actor) (*models.Calendar, error)
	SetLocked(ctx context.Context, id string, locked bool, actor models.Actor) error
	Get(ctx context.Context, id string) (*models.Calendar, error)
	GetByYear(ctx context.Context, academicYear string) (*models.Calendar, error)
	Current(ctx context.Context) (*models.Calendar, error)
	List(ctx context.Context, query dto.CalendarQuery) ([]models.Calendar, error)
	History(ctx context.Context, id string) ([]models.ApprovalLog, error)
}

// CalendarHandler exposes REST endpoints for the annual calendar workflow.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Create godoc
// @Summary Draft a new annual calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param payload body dto.CreateCalendarRequest true "Calendar payload"
// @Success 201 {object} response.Envelope
// @Router /calendars [post]
func (h *CalendarHandler) Create(c *gin.Context) {
	var req dto.CreateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid calendar payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	calendar, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, calendar)
}

// Update godoc
// @Summary Replace the embedded event list of a calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path string true "Calendar ID"
// @Param payload body dto.UpdateCalendarRequest true "Events payload"
// @Success 200 {object} response.Envelope
// @Router /calendars/{id} [put]
func (h *CalendarHandler) Update(c *gin.Context) {
	var req dto.UpdateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid calendar payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	calendar, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// Submit godoc
// @Summary Submit a calendar for approval
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path string true "Calendar ID"
// @Param payload body dto.SubmitCalendarRequest false "Submit options"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Overlapping event dates"
// @Router /calendars/{id}/submit [post]
func (h *CalendarHandler) Submit(c *gin.Context) {
	var req dto.SubmitCalendarRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submit payload"))
			return
		}
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	calendar, conflicts, err := h.service.Submit(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(conflicts) > 0 {
		c.JSON(http.StatusConflict, response.Envelope{Data: dto.DateConflictResponse{
			Message:   "calendar has overlapping event dates; resubmit with allowOverlappingDates to proceed",
			Conflicts: conflicts,
		}})
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// Approve godoc
// @Summary Approve a calendar at its current stage
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path string true "Calendar ID"
// @Param payload body dto.ApproveCalendarRequest false "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /calendars/{id}/approve [post]
func (h *CalendarHandler) Approve(c *gin.Context) {
	var req dto.ApproveCalendarRequest
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
	calendar, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// Reject godoc
// @Summary Reject a calendar at its current stage
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path string true "Calendar ID"
// @Param payload body dto.RejectCalendarRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /calendars/{id}/reject [post]
func (h *CalendarHandler) Reject(c *gin.Context) {
	var req dto.RejectCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	calendar, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// Lock godoc
// @Summary Lock a calendar against edits
// @Tags Calendars
// @Produce json
// @Param id path string true "Calendar ID"
// @Success 204
// @Router /calendars/{id}/lock [post]
func (h *CalendarHandler) Lock(c *gin.Context) {
	h.setLocked(c, true)
}

// Unlock godoc
// @Summary Unlock a calendar for edits
// @Tags Calendars
// @Produce json
// @Param id path string true "Calendar ID"
// @Success 204
// @Router /calendars/{id}/unlock [post]
func (h *CalendarHandler) Unlock(c *gin.Context) {
	h.setLocked(c, false)
}

func (h *CalendarHandler) setLocked(c *gin.Context, locked bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.SetLocked(c.Request.Context(), c.Param("id"), locked, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get a calendar by ID
// @Tags Calendars
// @Produce json
// @Param id path string true "Calendar ID"
// @Success 200 {object} response.Envelope
// @Router /calendars/{id} [get]
func (h *CalendarHandler) Get(c *gin.Context) {
	calendar, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// GetByYear godoc
// @Summary Get the calendar for an academic year
// @Tags Calendars
// @Produce json
// @Param year path string true "Academic year, e.g. 2025-26"
// @Success 200 {object} response.Envelope
// @Router /calendars/year/{year} [get]
func (h *CalendarHandler) GetByYear(c *gin.Context) {
	calendar, err := h.service.GetByYear(c.Request.Context(), c.Param("year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// Current godoc
// @Summary Get the most recently approved calendar
// @Tags Calendars
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendars/current [get]
func (h *CalendarHandler) Current(c *gin.Context) {
	calendar, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// List godoc
// @Summary List calendars
// @Tags Calendars
// @Produce json
// @Param status query string false "Comma separated workflow statuses"
// @Param academicYear query string false "Academic year"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /calendars [get]
func (h *CalendarHandler) List(c *gin.Context) {
	query := dto.CalendarQuery{
		AcademicYear: strings.TrimSpace(c.Query("academicYear")),
	}
	if raw := c.Query("status"); raw != "" {
		parts := strings.Split(raw, ",")
		statuses := make([]models.WorkflowStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.WorkflowStatus(part))
		}
		query.Status = statuses
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			query.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			query.Offset = offset
		}
	}
	calendars, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendars, nil)
}

// History godoc
// @Summary Get the approval history of a calendar
// @Tags Calendars
// @Produce json
// @Param id path string true "Calendar ID"
// @Success 200 {object} response.Envelope
// @Router /calendars/{id}/history [get]
func (h *CalendarHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
