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

// ApprovalLogRepository persists the append-only audit trail. Rows are only
// ever inserted; there is no update or delete path.
type ApprovalLogRepository struct {
	db *sqlx.DB
}

// NewApprovalLogRepository constructs the repository.
func NewApprovalLogRepository(db *sqlx.DB) *ApprovalLogRepository {
	return &ApprovalLogRepository{db: db}
}

// Create appends one audit entry.
func (r *ApprovalLogRepository) Create(ctx context.Context, entry *models.ApprovalLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_logs
	(id, entity_kind, entity_id, stage, action, performed_by, comments, created_at)
	VALUES (:id, :entity_kind, :entity_id, :stage, :action, :performed_by, :comments, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create approval log: %w", err)
	}
	return nil
}

// List returns audit entries matching the filter, oldest first so histories
// read chronologically.
func (r *ApprovalLogRepository) List(ctx context.Context, filter models.ApprovalLogFilter) ([]models.ApprovalLog, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString(`SELECT id, entity_kind, entity_id, stage, action, performed_by, comments, created_at
	FROM approval_logs`)

	conditions := make([]string, 0, 2)
	if filter.EntityKind != "" {
		args = append(args, filter.EntityKind)
		conditions = append(conditions, fmt.Sprintf("entity_kind = $%d", len(args)))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var entries []models.ApprovalLog
	if err := r.db.SelectContext(ctx, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list approval logs: %w", err)
	}
	return entries, nil
}
