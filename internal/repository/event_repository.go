package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

const eventColumns = `id, calendar_id, title, category, scheduled_start_date, scheduled_end_date,
	estimated_budget, description, status, proposal_due_date, proposal_submitted, proposal_id,
	expense_id, is_mega_event, mega_event_series_id, created_at, updated_at`

const insertEventQuery = `INSERT INTO events
	(id, calendar_id, title, category, scheduled_start_date, scheduled_end_date, estimated_budget,
	 description, status, proposal_due_date, proposal_submitted, proposal_id, expense_id,
	 is_mega_event, mega_event_series_id, created_at, updated_at)
	VALUES (:id, :calendar_id, :title, :category, :scheduled_start_date, :scheduled_end_date,
	 :estimated_budget, :description, :status, :proposal_due_date, :proposal_submitted,
	 :proposal_id, :expense_id, :is_mega_event, :mega_event_series_id, :created_at, :updated_at)`

// EventRepository persists materialized events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a single event row.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	applyEventDefaults(event)
	if _, err := r.db.NamedExecContext(ctx, insertEventQuery, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// CreateBatch inserts the events materialized from an approved calendar in
// one transaction so a crash cannot leave a partial materialization.
func (r *EventRepository) CreateBatch(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event batch: %w", err)
	}
	for _, event := range events {
		applyEventDefaults(event)
		if _, err := tx.NamedExecContext(ctx, insertEventQuery, event); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert event %s: %w", event.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event batch: %w", err)
	}
	return nil
}

// GetByID fetches an event by identifier.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events matching the filter ordered by start date.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM events`, eventColumns))

	conditions := make([]string, 0, 2)
	if filter.CalendarID != "" {
		args = append(args, filter.CalendarID)
		conditions = append(conditions, fmt.Sprintf("calendar_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY scheduled_start_date ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListAwaitingProposal returns standard events with no submitted proposal
// starting inside [from, to].
func (r *EventRepository) ListAwaitingProposal(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events
	WHERE proposal_submitted = FALSE
	  AND is_mega_event = FALSE
	  AND status = $1
	  AND scheduled_start_date >= $2
	  AND scheduled_start_date <= $3
	ORDER BY scheduled_start_date ASC`, eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, models.EventStatusUpcoming, from, to); err != nil {
		return nil, fmt.Errorf("list events awaiting proposal: %w", err)
	}
	return events, nil
}

// SetProposalDueDate backfills the cached due date when it was absent.
func (r *EventRepository) SetProposalDueDate(ctx context.Context, id string, due time.Time) error {
	const query = `UPDATE events SET proposal_due_date = $1, updated_at = $2 WHERE id = $3 AND proposal_due_date IS NULL`
	if _, err := r.db.ExecContext(ctx, query, due, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set proposal due date: %w", err)
	}
	return nil
}

// LinkProposal marks the event as having an active proposal submission.
// Guarded on proposal_submitted so a duplicate submission loses the race.
func (r *EventRepository) LinkProposal(ctx context.Context, id, proposalID string) error {
	const query = `UPDATE events
	SET proposal_submitted = TRUE, proposal_id = $1, status = $2, updated_at = $3
	WHERE id = $4 AND proposal_submitted = FALSE`
	result, err := r.db.ExecContext(ctx, query, proposalID, models.EventStatusProposalSubmitted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("link proposal: %w", err)
	}
	return requireRowsAffected(result)
}

// SetStatus updates the lifecycle status.
func (r *EventRepository) SetStatus(ctx context.Context, id string, status models.EventStatus) error {
	const query = `UPDATE events SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	return requireRowsAffected(result)
}

// LinkExpense records the expense back-link and completion status.
func (r *EventRepository) LinkExpense(ctx context.Context, id, expenseID string, status models.EventStatus) error {
	const query = `UPDATE events SET expense_id = $1, status = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, expenseID, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("link expense: %w", err)
	}
	return requireRowsAffected(result)
}

// ApplyPatch updates the mutable event fields set in the patch. Used only
// by the amendment workflow; events are otherwise immutable after
// materialization.
func (r *EventRepository) ApplyPatch(ctx context.Context, id string, patch models.EventPatch) error {
	setParts := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	add := func(column string, value interface{}) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.StartDate != nil {
		add("scheduled_start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		add("scheduled_end_date", *patch.EndDate)
	}
	if patch.EstimatedBudget != nil {
		add("estimated_budget", *patch.EstimatedBudget)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if len(setParts) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)
	query := fmt.Sprintf("UPDATE events SET %s WHERE id = $%d", strings.Join(setParts, ", "), len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply event patch: %w", err)
	}
	return requireRowsAffected(result)
}

func applyEventDefaults(event *models.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Status == "" {
		event.Status = models.EventStatusUpcoming
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
}
