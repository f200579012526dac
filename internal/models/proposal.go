package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// BudgetItem is a single line of a proposal's planned expenditure.
type BudgetItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// BudgetItems stores proposal budget lines as JSONB.
type BudgetItems []BudgetItem

// Value marshals the items to JSON for persistence.
func (b BudgetItems) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal budget items: %w", err)
	}
	return string(payload), nil
}

// Scan unmarshals the JSONB column into the slice.
func (b *BudgetItems) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported budget items source %T", src)
	}
	if len(raw) == 0 {
		*b = nil
		return nil
	}
	return json.Unmarshal(raw, b)
}

// Total sums the item amounts.
func (b BudgetItems) Total() float64 {
	var total float64
	for _, item := range b {
		total += item.Amount
	}
	return total
}

// Proposal is the per-event submission that climbs its own approval chain.
// The financial fields are derived at submit/update time and never taken
// from the caller.
type Proposal struct {
	ID                      string         `db:"id" json:"id"`
	EventID                 string         `db:"event_id" json:"eventId"`
	Status                  WorkflowStatus `db:"status" json:"status"`
	CurrentApprovalStage    *string        `db:"current_approval_stage" json:"currentApprovalStage,omitempty"`
	CustomApprovalChain     pq.StringArray `db:"custom_approval_chain" json:"customApprovalChain,omitempty"`
	CurrentChainIndex       *int           `db:"current_chain_index" json:"currentChainIndex,omitempty"`
	Description             string         `db:"description" json:"description,omitempty"`
	BudgetItems             BudgetItems    `db:"budget_items" json:"budgetItems"`
	TotalExpenditure        float64        `db:"total_expenditure" json:"totalExpenditure"`
	EventBudgetAtSubmission float64        `db:"event_budget_at_submission" json:"eventBudgetAtSubmission"`
	BudgetDeflection        float64        `db:"budget_deflection" json:"budgetDeflection"`
	RevisionCount           int            `db:"revision_count" json:"revisionCount"`
	SubmittedBy             string         `db:"submitted_by" json:"submittedBy"`
	RejectedBy              *string        `db:"rejected_by" json:"rejectedBy,omitempty"`
	RejectedAt              *time.Time     `db:"rejected_at" json:"rejectedAt,omitempty"`
	RejectionReason         *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedAt               time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time      `db:"updated_at" json:"updatedAt"`
}

// PendingProposalEvent annotates an event awaiting a proposal submission.
type PendingProposalEvent struct {
	Event                Event `json:"event"`
	DaysUntilEventStart  int   `json:"daysUntilEventStart"`
	DaysUntilProposalDue int   `json:"daysUntilProposalDue"`
	IsProposalWindowOpen bool  `json:"isProposalWindowOpen"`
}
