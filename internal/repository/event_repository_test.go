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

func newEventRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func eventRows(id string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "calendar_id", "title", "category", "scheduled_start_date", "scheduled_end_date",
		"estimated_budget", "description", "status", "proposal_due_date", "proposal_submitted",
		"proposal_id", "expense_id", "is_mega_event", "mega_event_series_id", "created_at", "updated_at",
	}).AddRow(id, "cal-1", "Tech Fest", "CULTURAL", time.Now(), time.Now(), 50000.0, "", "UPCOMING",
		nil, false, nil, nil, false, nil, time.Now(), time.Now())
}

func TestEventRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	calID := "cal-1"
	events := []*models.Event{
		{CalendarID: &calID, Title: "Tech Fest", Category: "CULTURAL"},
		{CalendarID: &calID, Title: "Sports Meet", Category: "SPORTS"},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), events))
	require.NotEmpty(t, events[0].ID)
	require.Equal(t, models.EventStatusUpcoming, events[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListAwaitingProposal(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 21)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, calendar_id, title")).
		WithArgs("UPCOMING", from, to).
		WillReturnRows(eventRows("event-1"))

	events, err := repo.ListAwaitingProposal(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryLinkProposalRace(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.LinkProposal(context.Background(), "event-1", "prop-1"))

	// Duplicate submission: proposal_submitted already TRUE.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.LinkProposal(context.Background(), "event-1", "prop-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryApplyPatch(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	title := "Tech Fest 2.0"
	budget := 75000.0
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET title")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.ApplyPatch(context.Background(), "event-1", models.EventPatch{
		Title:           &title,
		EstimatedBudget: &budget,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
