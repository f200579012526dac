package dto

import "github.com/noah-isme/gymkhana-api/internal/models"

// BudgetItemInput is one planned expenditure line.
type BudgetItemInput struct {
	Description string  `json:"description" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
}

// CreateProposalRequest submits a proposal for an event. Financial totals
// are derived server-side from the budget items.
type CreateProposalRequest struct {
	EventID     string            `json:"eventId" binding:"required"`
	Description string            `json:"description" binding:"required"`
	BudgetItems []BudgetItemInput `json:"budgetItems" binding:"required"`
}

// UpdateProposalRequest edits a proposal body. Which statuses accept an
// edit depends on who is asking.
type UpdateProposalRequest struct {
	Description string            `json:"description" binding:"required"`
	BudgetItems []BudgetItemInput `json:"budgetItems" binding:"required"`
}

// ApproveProposalRequest carries an approval decision. NextApprovalStages
// is only consulted at the Student Affairs stage.
type ApproveProposalRequest struct {
	Comments           string   `json:"comments"`
	NextApprovalStages []string `json:"nextApprovalStages"`
}

// RejectProposalRequest carries a rejection with its mandatory reason.
type RejectProposalRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestRevisionRequest sends a proposal back for rework.
type RequestRevisionRequest struct {
	Comments string `json:"comments" binding:"required"`
}

// PendingProposalsResponse lists events whose proposals are due.
type PendingProposalsResponse struct {
	Events []models.PendingProposalEvent `json:"events"`
	Count  int                           `json:"count"`
}
