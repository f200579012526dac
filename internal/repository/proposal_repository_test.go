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

func newProposalRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func proposalRows(id, eventID string, status models.WorkflowStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "event_id", "status", "current_approval_stage", "custom_approval_chain",
		"current_chain_index", "description", "budget_items", "total_expenditure",
		"event_budget_at_submission", "budget_deflection", "revision_count", "submitted_by",
		"rejected_by", "rejected_at", "rejection_reason", "created_at", "updated_at",
	}).AddRow(id, eventID, status, nil, nil, nil, "plan", `[]`, 0.0, 50000.0, 0.0, 0, "pres-1",
		nil, nil, nil, time.Now(), time.Now())
}

func TestProposalRepositoryCreateAndGetByEvent(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO proposals")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	proposal := &models.Proposal{
		EventID:     "event-1",
		Status:      models.StatusPendingPresident,
		Description: "plan",
		BudgetItems: models.BudgetItems{{Description: "venue", Amount: 12000}},
		SubmittedBy: "gs-1",
	}
	require.NoError(t, repo.Create(context.Background(), proposal))
	require.NotEmpty(t, proposal.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, event_id, status")).
		WithArgs("event-1").
		WillReturnRows(proposalRows(proposal.ID, "event-1", models.StatusPendingPresident))

	found, err := repo.GetByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Equal(t, proposal.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM proposals WHERE id = $1")).
		WithArgs("prop-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "prop-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryListByStatuses(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, event_id, status")).
		WithArgs("PENDING_STUDENT_AFFAIRS", "PENDING_DEAN").
		WillReturnRows(proposalRows("prop-1", "event-1", models.StatusPendingStudentAffairs))

	list, err := repo.ListByStatuses(context.Background(), []models.WorkflowStatus{
		models.StatusPendingStudentAffairs,
		models.StatusPendingDean,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.ListByStatuses(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestProposalRepositoryUpdateWorkflowGuard(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE proposals SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateWorkflow(context.Background(), ProposalWorkflowUpdate{
		ID:           "prop-1",
		ExpectStatus: models.StatusPendingStudentAffairs,
		Status:       models.StatusPendingDean,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE proposals SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateWorkflow(context.Background(), ProposalWorkflowUpdate{
		ID:           "prop-1",
		ExpectStatus: models.StatusPendingStudentAffairs,
		Status:       models.StatusPendingDean,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryUpdateContentBumpsRevision(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE proposals SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateContent(context.Background(), ProposalContentUpdate{
		ID:               "prop-1",
		ExpectStatus:     models.StatusRevisionRequested,
		Status:           models.StatusPendingStudentAffairs,
		Description:      "revised plan",
		BudgetItems:      models.BudgetItems{{Description: "venue", Amount: 15000}},
		TotalExpenditure: 15000,
		BudgetDeflection: -35000,
		BumpRevision:     true,
		ClearRejection:   true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
