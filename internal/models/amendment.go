package models

import (
	"encoding/json"
	"time"
)

// AmendmentType distinguishes edits to existing events from new insertions.
type AmendmentType string

const (
	AmendmentTypeEdit     AmendmentType = "EDIT"
	AmendmentTypeNewEvent AmendmentType = "NEW_EVENT"
)

// AmendmentStatus captures the review state of an amendment.
type AmendmentStatus string

const (
	AmendmentStatusPending  AmendmentStatus = "PENDING"
	AmendmentStatusApproved AmendmentStatus = "APPROVED"
	AmendmentStatusRejected AmendmentStatus = "REJECTED"
)

// Amendment is the only sanctioned bypass of a locked calendar: an
// out-of-band change request reviewed by an admin.
type Amendment struct {
	ID              string          `db:"id" json:"id"`
	CalendarID      string          `db:"calendar_id" json:"calendarId"`
	Type            AmendmentType   `db:"type" json:"type"`
	EventID         *string         `db:"event_id" json:"eventId,omitempty"`
	ProposedChanges json.RawMessage `db:"proposed_changes" json:"proposedChanges"`
	Reason          string          `db:"reason" json:"reason"`
	Status          AmendmentStatus `db:"status" json:"status"`
	RequestedBy     string          `db:"requested_by" json:"requestedBy"`
	RequestedAt     time.Time       `db:"requested_at" json:"requestedAt"`
	ReviewedBy      *string         `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time      `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewComments  *string         `db:"review_comments" json:"reviewComments,omitempty"`
}
