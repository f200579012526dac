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

func newAmendmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAmendmentRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newAmendmentRepoMock(t)
	defer cleanup()

	repo := NewAmendmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO amendments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	eventID := "event-1"
	amendment := &models.Amendment{
		CalendarID:      "cal-1",
		Type:            models.AmendmentTypeEdit,
		EventID:         &eventID,
		ProposedChanges: []byte(`{"title":"New Title"}`),
		Reason:          "venue unavailable",
		RequestedBy:     "gs-1",
	}
	require.NoError(t, repo.Create(context.Background(), amendment))
	require.Equal(t, models.AmendmentStatusPending, amendment.Status)

	rows := sqlmock.NewRows([]string{
		"id", "calendar_id", "type", "event_id", "proposed_changes", "reason", "status",
		"requested_by", "requested_at", "reviewed_by", "reviewed_at", "review_comments",
	}).AddRow(amendment.ID, "cal-1", "EDIT", eventID, []byte(`{"title":"New Title"}`), "venue unavailable",
		"PENDING", "gs-1", time.Now(), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, calendar_id, type")).
		WithArgs(amendment.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), amendment.ID)
	require.NoError(t, err)
	require.Equal(t, models.AmendmentTypeEdit, found.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAmendmentRepositoryReviewGuard(t *testing.T) {
	db, mock, cleanup := newAmendmentRepoMock(t)
	defer cleanup()

	repo := NewAmendmentRepository(db)
	now := time.Now()
	comments := "approved with notes"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE amendments")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.Review(context.Background(), "amend-1", models.AmendmentStatusApproved, "admin-1", &comments, now)
	require.NoError(t, err)

	// A second reviewer loses the race.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE amendments")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Review(context.Background(), "amend-1", models.AmendmentStatusRejected, "admin-2", nil, now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
