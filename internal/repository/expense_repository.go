package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

const expenseColumns = `id, event_id, bills, estimated_budget, total_expenditure, budget_variance,
	approval_status, submitted_by, approved_by, approved_at, approval_comments, created_at, updated_at`

// ExpenseRepository persists post-event expense reports.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository constructs the repository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts a new expense report.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now

	const query = `INSERT INTO expenses
	(id, event_id, bills, estimated_budget, total_expenditure, budget_variance, approval_status,
	 submitted_by, created_at, updated_at)
	VALUES (:id, :event_id, :bills, :estimated_budget, :total_expenditure, :budget_variance,
	 :approval_status, :submitted_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// GetByID fetches an expense by identifier.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE id = $1`, expenseColumns)
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, id); err != nil {
		return nil, err
	}
	return &expense, nil
}

// GetByEvent fetches the expense report attached to an event.
func (r *ExpenseRepository) GetByEvent(ctx context.Context, eventID string) (*models.Expense, error) {
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE event_id = $1 ORDER BY created_at DESC LIMIT 1`, expenseColumns)
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, eventID); err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListPending returns expense reports awaiting approval, oldest first.
func (r *ExpenseRepository) ListPending(ctx context.Context) ([]models.Expense, error) {
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE approval_status = $1 ORDER BY created_at ASC`, expenseColumns)
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, models.ExpenseStatusPending); err != nil {
		return nil, fmt.Errorf("list pending expenses: %w", err)
	}
	return expenses, nil
}

// UpdateBills replaces the bill list and its derived totals while the
// report is still pending. An approved report is frozen.
func (r *ExpenseRepository) UpdateBills(ctx context.Context, id string, bills models.Bills, total, variance float64) error {
	const query = `UPDATE expenses
	SET bills = :bills, total_expenditure = :total, budget_variance = :variance, updated_at = :updated_at
	WHERE id = :id AND approval_status = :expect_status`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            id,
		"expect_status": models.ExpenseStatusPending,
		"bills":         bills,
		"total":         total,
		"variance":      variance,
		"updated_at":    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update expense bills: %w", err)
	}
	return requireRowsAffected(result)
}

// Approve marks the report approved. Guarded so only one approval lands.
func (r *ExpenseRepository) Approve(ctx context.Context, id, approvedBy string, comments *string, at time.Time) error {
	const query = `UPDATE expenses
	SET approval_status = :status, approved_by = :approved_by, approved_at = :approved_at,
	    approval_comments = :comments, updated_at = :updated_at
	WHERE id = :id AND approval_status = :expect_status`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            id,
		"expect_status": models.ExpenseStatusPending,
		"status":        models.ExpenseStatusApproved,
		"approved_by":   approvedBy,
		"approved_at":   at,
		"comments":      comments,
		"updated_at":    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("approve expense: %w", err)
	}
	return requireRowsAffected(result)
}
