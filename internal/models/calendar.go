package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CalendarEventDraft is an event embedded in an annual calendar before the
// calendar is approved and the event is materialized.
type CalendarEventDraft struct {
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	EstimatedBudget float64   `json:"estimatedBudget"`
	Description     string    `json:"description,omitempty"`
}

// CalendarEvents stores embedded event drafts as JSONB.
type CalendarEvents []CalendarEventDraft

// Value marshals the drafts to JSON for persistence.
func (e CalendarEvents) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal calendar events: %w", err)
	}
	return string(payload), nil
}

// Scan unmarshals the JSONB column into the slice.
func (e *CalendarEvents) Scan(src interface{}) error {
	if src == nil {
		*e = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported calendar events source %T", src)
	}
	if len(raw) == 0 {
		*e = nil
		return nil
	}
	return json.Unmarshal(raw, e)
}

// Calendar is the annual Gymkhana activity calendar. One draft exists per
// academic year; IsLocked is a business edit lock, not a concurrency lock.
type Calendar struct {
	ID                   string         `db:"id" json:"id"`
	AcademicYear         string         `db:"academic_year" json:"academicYear"`
	Status               WorkflowStatus `db:"status" json:"status"`
	IsLocked             bool           `db:"is_locked" json:"isLocked"`
	Events               CalendarEvents `db:"events" json:"events"`
	CurrentApprovalStage *string        `db:"current_approval_stage" json:"currentApprovalStage,omitempty"`
	CustomApprovalChain  pq.StringArray `db:"custom_approval_chain" json:"customApprovalChain,omitempty"`
	CurrentChainIndex    *int           `db:"current_chain_index" json:"currentChainIndex,omitempty"`
	SubmittedBy          *string        `db:"submitted_by" json:"submittedBy,omitempty"`
	SubmittedAt          *time.Time     `db:"submitted_at" json:"submittedAt,omitempty"`
	ApprovedAt           *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedBy           *string        `db:"rejected_by" json:"rejectedBy,omitempty"`
	RejectedAt           *time.Time     `db:"rejected_at" json:"rejectedAt,omitempty"`
	RejectionReason      *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedBy            string         `db:"created_by" json:"createdBy"`
	CreatedAt            time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updatedAt"`
}

// CalendarFilter constrains calendar listing queries.
type CalendarFilter struct {
	Status       []WorkflowStatus
	AcademicYear string
	Limit        int
	Offset       int
}

// DateConflict describes a pair of embedded events with overlapping ranges.
type DateConflict struct {
	First  CalendarEventDraft `json:"first"`
	Second CalendarEventDraft `json:"second"`
}
