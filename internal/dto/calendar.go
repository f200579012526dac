package dto

import "github.com/noah-isme/gymkhana-api/internal/models"

// CalendarEventInput is one embedded event in a create or update payload.
type CalendarEventInput struct {
	Title           string  `json:"title" binding:"required"`
	Category        string  `json:"category" binding:"required"`
	StartDate       string  `json:"startDate" binding:"required"`
	EndDate         string  `json:"endDate" binding:"required"`
	EstimatedBudget float64 `json:"estimatedBudget"`
	Description     string  `json:"description"`
}

// CreateCalendarRequest payload for drafting a new annual calendar.
type CreateCalendarRequest struct {
	AcademicYear string               `json:"academicYear" binding:"required"`
	Events       []CalendarEventInput `json:"events"`
}

// UpdateCalendarRequest replaces the embedded event list of a draft.
type UpdateCalendarRequest struct {
	Events []CalendarEventInput `json:"events" binding:"required"`
}

// SubmitCalendarRequest starts the approval workflow. Overlapping dates
// block submission unless the caller explicitly acknowledges them.
type SubmitCalendarRequest struct {
	AllowOverlappingDates bool `json:"allowOverlappingDates"`
}

// ApproveCalendarRequest carries an approval decision. NextApprovalStages
// is required from the Student Affairs approver and rejected elsewhere.
type ApproveCalendarRequest struct {
	Comments           string   `json:"comments"`
	NextApprovalStages []string `json:"nextApprovalStages"`
}

// RejectCalendarRequest carries a rejection with its mandatory reason.
type RejectCalendarRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CalendarQuery mirrors supported listing filters.
type CalendarQuery struct {
	Status       []models.WorkflowStatus
	AcademicYear string
	Limit        int
	Offset       int
}

// DateConflictResponse is returned when submission is blocked by
// overlapping embedded events.
type DateConflictResponse struct {
	Message   string                `json:"message"`
	Conflicts []models.DateConflict `json:"conflicts"`
}
