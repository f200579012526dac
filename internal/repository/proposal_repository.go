package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

const proposalColumns = `id, event_id, status, current_approval_stage, custom_approval_chain,
	current_chain_index, description, budget_items, total_expenditure, event_budget_at_submission,
	budget_deflection, revision_count, submitted_by, rejected_by, rejected_at, rejection_reason,
	created_at, updated_at`

// ProposalRepository persists per-event proposals.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository constructs the repository.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create inserts a new proposal.
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ID == "" {
		proposal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = now
	}
	proposal.UpdatedAt = now

	const query = `INSERT INTO proposals
	(id, event_id, status, current_approval_stage, custom_approval_chain, current_chain_index,
	 description, budget_items, total_expenditure, event_budget_at_submission, budget_deflection,
	 revision_count, submitted_by, created_at, updated_at)
	VALUES (:id, :event_id, :status, :current_approval_stage, :custom_approval_chain,
	 :current_chain_index, :description, :budget_items, :total_expenditure,
	 :event_budget_at_submission, :budget_deflection, :revision_count, :submitted_by,
	 :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, proposal); err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	return nil
}

// GetByID fetches a proposal by identifier.
func (r *ProposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = $1`, proposalColumns)
	var proposal models.Proposal
	if err := r.db.GetContext(ctx, &proposal, query, id); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// GetByEvent fetches the proposal attached to an event.
func (r *ProposalRepository) GetByEvent(ctx context.Context, eventID string) (*models.Proposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE event_id = $1 ORDER BY created_at DESC LIMIT 1`, proposalColumns)
	var proposal models.Proposal
	if err := r.db.GetContext(ctx, &proposal, query, eventID); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// Delete removes a proposal row. Used to back out an insert that lost the
// one-proposal-per-event race before anything references it.
func (r *ProposalRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	return nil
}

// ListByStatuses returns proposals sitting in any of the given statuses,
// oldest submission first so approvers see their backlog in order.
func (r *ProposalRepository) ListByStatuses(ctx context.Context, statuses []models.WorkflowStatus) ([]models.Proposal, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, status := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = status
	}
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE status IN (%s) ORDER BY created_at ASC`,
		proposalColumns, strings.Join(placeholders, ","))
	var proposals []models.Proposal
	if err := r.db.SelectContext(ctx, &proposals, query, args...); err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return proposals, nil
}

// ProposalContentUpdate carries an edit to a proposal's body. Financial
// fields are recomputed by the service, never taken from the caller.
type ProposalContentUpdate struct {
	ID               string
	ExpectStatus     models.WorkflowStatus
	Status           models.WorkflowStatus
	Stage            *string
	Index            *int
	Description      string
	BudgetItems      models.BudgetItems
	TotalExpenditure float64
	EventBudget      float64
	BudgetDeflection float64
	BumpRevision     bool
	ClearChain       bool
	ClearRejection   bool
}

// UpdateContent replaces the editable body, guarded by the status the
// caller read.
func (r *ProposalRepository) UpdateContent(ctx context.Context, params ProposalContentUpdate) error {
	setParts := []string{
		"status = :status",
		"current_approval_stage = :stage",
		"current_chain_index = :chain_index",
		"description = :description",
		"budget_items = :budget_items",
		"total_expenditure = :total_expenditure",
		"event_budget_at_submission = :event_budget",
		"budget_deflection = :budget_deflection",
		"updated_at = :updated_at",
	}
	if params.BumpRevision {
		setParts = append(setParts, "revision_count = revision_count + 1")
	}
	if params.ClearChain {
		setParts = append(setParts, "custom_approval_chain = NULL")
	}
	if params.ClearRejection {
		setParts = append(setParts, "rejected_by = NULL", "rejected_at = NULL", "rejection_reason = NULL")
	}
	query := fmt.Sprintf("UPDATE proposals SET %s WHERE id = :id AND status = :expect_status",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                params.ID,
		"expect_status":     params.ExpectStatus,
		"status":            params.Status,
		"stage":             params.Stage,
		"chain_index":       params.Index,
		"description":       params.Description,
		"budget_items":      params.BudgetItems,
		"total_expenditure": params.TotalExpenditure,
		"event_budget":      params.EventBudget,
		"budget_deflection": params.BudgetDeflection,
		"updated_at":        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update proposal content: %w", err)
	}
	return requireRowsAffected(result)
}

// ProposalWorkflowUpdate carries one guarded status transition.
type ProposalWorkflowUpdate struct {
	ID              string
	ExpectStatus    models.WorkflowStatus
	Status          models.WorkflowStatus
	Stage           *string
	Index           *int
	Chain           []string
	ChainChanged    bool
	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	ClearRejection  bool
}

// UpdateWorkflow persists a guarded status transition. Zero rows means a
// concurrent approver already moved the proposal.
func (r *ProposalRepository) UpdateWorkflow(ctx context.Context, params ProposalWorkflowUpdate) error {
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
	if params.RejectedBy != nil {
		setParts = append(setParts, "rejected_by = :rejected_by", "rejected_at = :rejected_at", "rejection_reason = :rejection_reason")
		values["rejected_by"] = params.RejectedBy
		values["rejected_at"] = params.RejectedAt
		values["rejection_reason"] = params.RejectionReason
	}
	if params.ClearRejection {
		setParts = append(setParts, "rejected_by = NULL", "rejected_at = NULL", "rejection_reason = NULL")
	}
	query := fmt.Sprintf("UPDATE proposals SET %s WHERE id = :id AND status = :expect_status",
		strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, values)
	if err != nil {
		return fmt.Errorf("update proposal workflow: %w", err)
	}
	return requireRowsAffected(result)
}
