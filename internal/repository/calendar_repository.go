package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

const calendarColumns = `id, academic_year, status, is_locked, events, current_approval_stage,
	custom_approval_chain, current_chain_index, submitted_by, submitted_at, approved_at,
	rejected_by, rejected_at, rejection_reason, created_by, created_at, updated_at`

// CalendarRepository persists annual activity calendars.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs the repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Create inserts a new calendar row.
func (r *CalendarRepository) Create(ctx context.Context, calendar *models.Calendar) error {
	if calendar.ID == "" {
		calendar.ID = uuid.NewString()
	}
	if calendar.Status == "" {
		calendar.Status = models.StatusDraft
	}
	now := time.Now().UTC()
	if calendar.CreatedAt.IsZero() {
		calendar.CreatedAt = now
	}
	calendar.UpdatedAt = now
	const query = `INSERT INTO calendars
	(id, academic_year, status, is_locked, events, current_approval_stage, custom_approval_chain,
	 current_chain_index, submitted_by, submitted_at, approved_at, rejected_by, rejected_at,
	 rejection_reason, created_by, created_at, updated_at)
	VALUES (:id, :academic_year, :status, :is_locked, :events, :current_approval_stage,
	 :custom_approval_chain, :current_chain_index, :submitted_by, :submitted_at, :approved_at,
	 :rejected_by, :rejected_at, :rejection_reason, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, calendar); err != nil {
		return fmt.Errorf("create calendar: %w", err)
	}
	return nil
}

// GetByID fetches a calendar by identifier.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*models.Calendar, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendars WHERE id = $1`, calendarColumns)
	var calendar models.Calendar
	if err := r.db.GetContext(ctx, &calendar, query, id); err != nil {
		return nil, err
	}
	return &calendar, nil
}

// GetByYear fetches the calendar for an academic year.
func (r *CalendarRepository) GetByYear(ctx context.Context, academicYear string) (*models.Calendar, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendars WHERE academic_year = $1`, calendarColumns)
	var calendar models.Calendar
	if err := r.db.GetContext(ctx, &calendar, query, academicYear); err != nil {
		return nil, err
	}
	return &calendar, nil
}

// LatestApproved returns the most recently approved calendar.
func (r *CalendarRepository) LatestApproved(ctx context.Context) (*models.Calendar, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendars WHERE status = $1 ORDER BY approved_at DESC LIMIT 1`, calendarColumns)
	var calendar models.Calendar
	if err := r.db.GetContext(ctx, &calendar, query, models.StatusApproved); err != nil {
		return nil, err
	}
	return &calendar, nil
}

// List returns calendars matching the filter, newest first.
func (r *CalendarRepository) List(ctx context.Context, filter models.CalendarFilter) ([]models.Calendar, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM calendars`, calendarColumns))

	conditions := make([]string, 0, 2)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY academic_year DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var calendars []models.Calendar
	if err := r.db.SelectContext(ctx, &calendars, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return calendars, nil
}

// UpdateCalendarDraftParams carries an event edit on an unlocked calendar.
type UpdateCalendarDraftParams struct {
	ID             string
	ExpectStatus   models.WorkflowStatus
	Events         models.CalendarEvents
	Status         models.WorkflowStatus
	ClearRejection bool
}

// UpdateDraft replaces the embedded events, guarded by the status the
// caller read. Zero rows means a concurrent transition won.
func (r *CalendarRepository) UpdateDraft(ctx context.Context, params UpdateCalendarDraftParams) error {
	setParts := []string{
		"events = :events",
		"status = :status",
		"updated_at = :updated_at",
	}
	if params.ClearRejection {
		setParts = append(setParts, "rejected_by = NULL", "rejected_at = NULL", "rejection_reason = NULL")
	}
	query := fmt.Sprintf("UPDATE calendars SET %s WHERE id = :id AND status = :expect_status AND is_locked = FALSE",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            params.ID,
		"expect_status": params.ExpectStatus,
		"events":        params.Events,
		"status":        params.Status,
		"updated_at":    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update calendar events: %w", err)
	}
	return requireRowsAffected(result)
}

// SetLocked toggles the business edit lock, guarded against no-op toggles.
func (r *CalendarRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	const query = `UPDATE calendars SET is_locked = $1, updated_at = $2 WHERE id = $3 AND is_locked = $4`
	result, err := r.db.ExecContext(ctx, query, locked, time.Now().UTC(), id, !locked)
	if err != nil {
		return fmt.Errorf("set calendar lock: %w", err)
	}
	return requireRowsAffected(result)
}

// CalendarWorkflowUpdate carries one status transition for a calendar. The
// expected status acts as a compare-and-swap guard so two concurrent
// approvals cannot both advance the chain.
type CalendarWorkflowUpdate struct {
	ID              string
	ExpectStatus    models.WorkflowStatus
	Status          models.WorkflowStatus
	Stage           *string
	Index           *int
	Chain           []string
	ChainChanged    bool
	SubmittedBy     *string
	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	ClearRejection  bool
}

// UpdateWorkflow persists a guarded status transition.
func (r *CalendarRepository) UpdateWorkflow(ctx context.Context, params CalendarWorkflowUpdate) error {
	setParts := []string{
		"status = :status",
		"current_approval_stage = :stage",
		"current_chain_index = :chain_index",
		"updated_at = :updated_at",
	}
	values := map[string]interface{}{
		"id":            params.ID,
		"expect_status": params.ExpectStatus,
		"status":        params.Status,
		"stage":         params.Stage,
		"chain_index":   params.Index,
		"updated_at":    time.Now().UTC(),
	}
	if params.ChainChanged {
		setParts = append(setParts, "custom_approval_chain = :chain")
		values["chain"] = pq.StringArray(params.Chain)
	}
	if params.SubmittedBy != nil {
		setParts = append(setParts, "submitted_by = :submitted_by", "submitted_at = :submitted_at")
		values["submitted_by"] = params.SubmittedBy
		values["submitted_at"] = params.SubmittedAt
	}
	if params.ApprovedAt != nil {
		setParts = append(setParts, "approved_at = :approved_at")
		values["approved_at"] = params.ApprovedAt
	}
	if params.RejectedBy != nil {
		setParts = append(setParts, "rejected_by = :rejected_by", "rejected_at = :rejected_at", "rejection_reason = :rejection_reason")
		values["rejected_by"] = params.RejectedBy
		values["rejected_at"] = params.RejectedAt
		values["rejection_reason"] = params.RejectionReason
	}
	if params.ClearRejection {
		setParts = append(setParts, "rejected_by = NULL", "rejected_at = NULL", "rejection_reason = NULL")
	}
	query := fmt.Sprintf("UPDATE calendars SET %s WHERE id = :id AND status = :expect_status",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, values)
	if err != nil {
		return fmt.Errorf("update calendar workflow: %w", err)
	}
	return requireRowsAffected(result)
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
