package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

func newExpenseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestExpenseRepositoryCreateAndGetByEvent(t *testing.T) {
	db, mock, cleanup := newExpenseRepoMock(t)
	defer cleanup()

	repo := NewExpenseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO expenses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	expense := &models.Expense{
		EventID:          "event-1",
		Bills:            models.Bills{{Description: "catering", Amount: 8000}},
		EstimatedBudget:  50000,
		TotalExpenditure: 8000,
		BudgetVariance:   42000,
		ApprovalStatus:   models.ExpenseStatusPending,
		SubmittedBy:      "pres-1",
	}
	require.NoError(t, repo.Create(context.Background(), expense))
	require.NotEmpty(t, expense.ID)

	rows := sqlmock.NewRows([]string{
		"id", "event_id", "bills", "estimated_budget", "total_expenditure", "budget_variance",
		"approval_status", "submitted_by", "approved_by", "approved_at", "approval_comments",
		"created_at", "updated_at",
	}).AddRow(expense.ID, "event-1", `[{"description":"catering","amount":8000}]`, 50000.0, 8000.0,
		42000.0, "PENDING", "pres-1", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, event_id, bills")).
		WithArgs("event-1").
		WillReturnRows(rows)

	found, err := repo.GetByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Equal(t, 8000.0, found.Bills.Total())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseRepositoryApproveFreezesReport(t *testing.T) {
	db, mock, cleanup := newExpenseRepoMock(t)
	defer cleanup()

	repo := NewExpenseRepository(db)
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE expenses")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Approve(context.Background(), "exp-1", "admin-1", nil, now))

	// Edits after approval hit zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE expenses")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateBills(context.Background(), "exp-1", models.Bills{{Description: "late bill", Amount: 100}}, 100, 49900)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
