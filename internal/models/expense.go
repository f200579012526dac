package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExpenseStatus is the binary admin approval state for an expense.
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "PENDING"
	ExpenseStatusApproved ExpenseStatus = "APPROVED"
)

// Bill is a single billed item attached to an expense.
type Bill struct {
	Description string            `json:"description"`
	Amount      float64           `json:"amount"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Bills stores billed items as JSONB.
type Bills []Bill

// Value marshals the bills to JSON for persistence.
func (b Bills) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal bills: %w", err)
	}
	return string(payload), nil
}

// Scan unmarshals the JSONB column into the slice.
func (b *Bills) Scan(src interface{}) error {
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
		return fmt.Errorf("unsupported bills source %T", src)
	}
	if len(raw) == 0 {
		*b = nil
		return nil
	}
	return json.Unmarshal(raw, b)
}

// Total sums the bill amounts.
func (b Bills) Total() float64 {
	var total float64
	for _, bill := range b {
		total += bill.Amount
	}
	return total
}

// Expense is the post-event billing record. Exactly one exists per event;
// TotalExpenditure is always recomputed as the sum of bills.
type Expense struct {
	ID               string        `db:"id" json:"id"`
	EventID          string        `db:"event_id" json:"eventId"`
	Bills            Bills         `db:"bills" json:"bills"`
	EstimatedBudget  float64       `db:"estimated_budget" json:"estimatedBudget"`
	TotalExpenditure float64       `db:"total_expenditure" json:"totalExpenditure"`
	BudgetVariance   float64       `db:"budget_variance" json:"budgetVariance"`
	ApprovalStatus   ExpenseStatus `db:"approval_status" json:"approvalStatus"`
	SubmittedBy      string        `db:"submitted_by" json:"submittedBy"`
	ApprovedBy       *string       `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time    `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovalComments *string       `db:"approval_comments" json:"approvalComments,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updatedAt"`
}
