package models

import "time"

// EventStatus tracks a materialized event through its proposal and expense
// lifecycle.
type EventStatus string

const (
	EventStatusUpcoming          EventStatus = "UPCOMING"
	EventStatusProposalSubmitted EventStatus = "PROPOSAL_SUBMITTED"
	EventStatusProposalApproved  EventStatus = "PROPOSAL_APPROVED"
	EventStatusCompleted         EventStatus = "COMPLETED"
	EventStatusCancelled         EventStatus = "CANCELLED"
)

// Event is materialized from an approved calendar (or a mega-event series)
// and is immutable afterwards except for status and workflow links.
type Event struct {
	ID                 string      `db:"id" json:"id"`
	CalendarID         *string     `db:"calendar_id" json:"calendarId,omitempty"`
	Title              string      `db:"title" json:"title"`
	Category           string      `db:"category" json:"category"`
	ScheduledStartDate time.Time   `db:"scheduled_start_date" json:"scheduledStartDate"`
	ScheduledEndDate   time.Time   `db:"scheduled_end_date" json:"scheduledEndDate"`
	EstimatedBudget    float64     `db:"estimated_budget" json:"estimatedBudget"`
	Description        string      `db:"description" json:"description,omitempty"`
	Status             EventStatus `db:"status" json:"status"`
	ProposalDueDate    *time.Time  `db:"proposal_due_date" json:"proposalDueDate,omitempty"`
	ProposalSubmitted  bool        `db:"proposal_submitted" json:"proposalSubmitted"`
	ProposalID         *string     `db:"proposal_id" json:"proposalId,omitempty"`
	ExpenseID          *string     `db:"expense_id" json:"expenseId,omitempty"`
	IsMegaEvent        bool        `db:"is_mega_event" json:"isMegaEvent"`
	MegaEventSeriesID  *string     `db:"mega_event_series_id" json:"megaEventSeriesId,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updatedAt"`
}

// ProposalDueLeadDays is the gap between an event's scheduled start and the
// opening of its proposal submission window.
const ProposalDueLeadDays = 21

// EventPatch carries the mutable event fields an approved amendment may set.
type EventPatch struct {
	Title           *string    `json:"title,omitempty"`
	Category        *string    `json:"category,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	EstimatedBudget *float64   `json:"estimatedBudget,omitempty"`
	Description     *string    `json:"description,omitempty"`
}

// EventFilter constrains event listing queries.
type EventFilter struct {
	CalendarID string
	Status     []EventStatus
	Limit      int
	Offset     int
}
