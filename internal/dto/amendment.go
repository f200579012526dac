package dto

import (
	"encoding/json"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

// CreateAmendmentRequest files a change request against a locked calendar.
// EventID is required for EDIT amendments and absent for NEW_EVENT ones;
// the target calendar is resolved server-side (the edited event's calendar,
// or the latest approved calendar for insertions).
type CreateAmendmentRequest struct {
	Type            models.AmendmentType `json:"type" binding:"required"`
	EventID         *string              `json:"eventId"`
	ProposedChanges json.RawMessage      `json:"proposedChanges" binding:"required"`
	Reason          string               `json:"reason" binding:"required"`
}

// ReviewAmendmentRequest captures the admin decision on an amendment.
type ReviewAmendmentRequest struct {
	Status   models.AmendmentStatus `json:"status" binding:"required"`
	Comments string                 `json:"comments"`
}
