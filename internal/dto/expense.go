package dto

// BillInput is one billed item in an expense payload.
type BillInput struct {
	Description string            `json:"description" binding:"required" validate:"required"`
	Amount      float64           `json:"amount" binding:"required" validate:"money"`
	Metadata    map[string]string `json:"metadata"`
}

// CreateExpenseRequest files the post-event expense report.
type CreateExpenseRequest struct {
	EventID string      `json:"eventId" binding:"required" validate:"required"`
	Bills   []BillInput `json:"bills" binding:"required" validate:"required,min=1,dive"`
}

// UpdateExpenseRequest replaces the bill list of a pending report.
type UpdateExpenseRequest struct {
	Bills []BillInput `json:"bills" binding:"required" validate:"required,min=1,dive"`
}

// ApproveExpenseRequest closes out a report with optional comments.
type ApproveExpenseRequest struct {
	Comments string `json:"comments"`
}
