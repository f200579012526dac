package models

import "time"

// ApprovalLog is one append-only audit entry per workflow transition. Rows
// are never updated or deleted; entity status fields only reflect the latest
// state, the log is the historical record.
type ApprovalLog struct {
	ID          string         `db:"id" json:"id"`
	EntityKind  EntityKind     `db:"entity_kind" json:"entityKind"`
	EntityID    string         `db:"entity_id" json:"entityId"`
	Stage       string         `db:"stage" json:"stage"`
	Action      ApprovalAction `db:"action" json:"action"`
	PerformedBy string         `db:"performed_by" json:"performedBy"`
	Comments    *string        `db:"comments" json:"comments,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// ApprovalLogFilter constrains history queries.
type ApprovalLogFilter struct {
	EntityKind EntityKind
	EntityID   string
	Limit      int
	Offset     int
}
