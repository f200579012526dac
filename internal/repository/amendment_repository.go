package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

const amendmentColumns = `id, calendar_id, type, event_id, proposed_changes, reason, status,
	requested_by, requested_at, reviewed_by, reviewed_at, review_comments`

// AmendmentRepository persists change requests against locked calendars.
type AmendmentRepository struct {
	db *sqlx.DB
}

// NewAmendmentRepository constructs the repository.
func NewAmendmentRepository(db *sqlx.DB) *AmendmentRepository {
	return &AmendmentRepository{db: db}
}

// Create inserts a pending amendment.
func (r *AmendmentRepository) Create(ctx context.Context, amendment *models.Amendment) error {
	if amendment.ID == "" {
		amendment.ID = uuid.NewString()
	}
	if amendment.Status == "" {
		amendment.Status = models.AmendmentStatusPending
	}
	if amendment.RequestedAt.IsZero() {
		amendment.RequestedAt = time.Now().UTC()
	}

	const query = `INSERT INTO amendments
	(id, calendar_id, type, event_id, proposed_changes, reason, status, requested_by, requested_at)
	VALUES (:id, :calendar_id, :type, :event_id, :proposed_changes, :reason, :status,
	 :requested_by, :requested_at)`
	if _, err := r.db.NamedExecContext(ctx, query, amendment); err != nil {
		return fmt.Errorf("create amendment: %w", err)
	}
	return nil
}

// GetByID fetches an amendment by identifier.
func (r *AmendmentRepository) GetByID(ctx context.Context, id string) (*models.Amendment, error) {
	query := fmt.Sprintf(`SELECT %s FROM amendments WHERE id = $1`, amendmentColumns)
	var amendment models.Amendment
	if err := r.db.GetContext(ctx, &amendment, query, id); err != nil {
		return nil, err
	}
	return &amendment, nil
}

// ListPending returns unreviewed amendments, oldest request first.
func (r *AmendmentRepository) ListPending(ctx context.Context) ([]models.Amendment, error) {
	query := fmt.Sprintf(`SELECT %s FROM amendments WHERE status = $1 ORDER BY requested_at ASC`, amendmentColumns)
	var amendments []models.Amendment
	if err := r.db.SelectContext(ctx, &amendments, query, models.AmendmentStatusPending); err != nil {
		return nil, fmt.Errorf("list pending amendments: %w", err)
	}
	return amendments, nil
}

// ListByCalendar returns every amendment filed against a calendar.
func (r *AmendmentRepository) ListByCalendar(ctx context.Context, calendarID string) ([]models.Amendment, error) {
	query := fmt.Sprintf(`SELECT %s FROM amendments WHERE calendar_id = $1 ORDER BY requested_at DESC`, amendmentColumns)
	var amendments []models.Amendment
	if err := r.db.SelectContext(ctx, &amendments, query, calendarID); err != nil {
		return nil, fmt.Errorf("list calendar amendments: %w", err)
	}
	return amendments, nil
}

// Review resolves a pending amendment. Guarded on the pending status so
// two reviewers cannot both resolve it.
func (r *AmendmentRepository) Review(ctx context.Context, id string, status models.AmendmentStatus, reviewedBy string, comments *string, at time.Time) error {
	const query = `UPDATE amendments
	SET status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at,
	    review_comments = :comments
	WHERE id = :id AND status = :expect_status`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            id,
		"expect_status": models.AmendmentStatusPending,
		"status":        status,
		"reviewed_by":   reviewedBy,
		"reviewed_at":   at,
		"comments":      comments,
	})
	if err != nil {
		return fmt.Errorf("review amendment: %w", err)
	}
	return requireRowsAffected(result)
}
