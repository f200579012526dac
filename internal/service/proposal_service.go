package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	"github.com/noah-isme/gymkhana-api/internal/repository"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
)

type proposalStore interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	GetByEvent(ctx context.Context, eventID string) (*models.Proposal, error)
	Delete(ctx context.Context, id string) error
	ListByStatuses(ctx context.Context, statuses []models.WorkflowStatus) ([]models.Proposal, error)
	UpdateContent(ctx context.Context, params repository.ProposalContentUpdate) error
	UpdateWorkflow(ctx context.Context, params repository.ProposalWorkflowUpdate) error
}

type proposalEventStore interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListAwaitingProposal(ctx context.Context, from, to time.Time) ([]models.Event, error)
	SetProposalDueDate(ctx context.Context, id string, due time.Time) error
	LinkProposal(ctx context.Context, id, proposalID string) error
	SetStatus(ctx context.Context, id string, status models.EventStatus) error
}

// ProposalService runs the per-event proposal workflow: submission inside
// the due-date window, the dynamic approval chain and revision loops.
type ProposalService struct {
	repo       proposalStore
	events     proposalEventStore
	log        approvalLogStore
	clock      Clock
	logger     *zap.Logger
	metrics    *MetricsService
	windowDays int
}

// ProposalServiceOption configures the service.
type ProposalServiceOption func(*ProposalService)

// WithProposalClock overrides the wall clock.
func WithProposalClock(clock Clock) ProposalServiceOption {
	return func(s *ProposalService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithProposalMetrics attaches workflow transition counters.
func WithProposalMetrics(metrics *MetricsService) ProposalServiceOption {
	return func(s *ProposalService) { s.metrics = metrics }
}

// WithPendingWindowDays sets the default look-ahead for the pending
// proposals report.
func WithPendingWindowDays(days int) ProposalServiceOption {
	return func(s *ProposalService) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// NewProposalService constructs the service with defaults.
func NewProposalService(repo proposalStore, events proposalEventStore, log approvalLogStore, logger *zap.Logger, opts ...ProposalServiceOption) *ProposalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ProposalService{
		repo:       repo,
		events:     events,
		log:        log,
		clock:      SystemClock(),
		logger:     logger,
		windowDays: 30,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create submits a proposal for an event. Standard events accept the
// General Secretary only; mega events the President only. Submission is
// permitted once today reaches the proposal due date.
func (s *ProposalService) Create(ctx context.Context, req dto.CreateProposalRequest, actor models.Actor) (*models.Proposal, error) {
	event, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.IsMegaEvent {
		if !actor.IsPresident() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the Gymkhana President may submit a mega event proposal")
		}
	} else if !actor.IsGS() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the General Secretary may submit an event proposal")
	}
	if event.Status == models.EventStatusCancelled || event.Status == models.EventStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("event is %s and no longer accepts proposals", strings.ToLower(string(event.Status))))
	}
	if event.ProposalSubmitted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a proposal was already submitted for this event")
	}

	now := s.clock.Now()
	due := s.proposalDue(ctx, event)
	if startOfDay(now).Before(due) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("proposal window opens on %s", due.Format("2006-01-02")))
	}

	items, total, err := parseBudgetItems(req.BudgetItems)
	if err != nil {
		return nil, err
	}

	// Mega event proposals come from the President and skip the President
	// stage.
	entry := models.StatusPendingPresident
	if event.IsMegaEvent {
		entry = models.StatusPendingStudentAffairs
	}
	proposal := &models.Proposal{
		EventID:                 event.ID,
		Status:                  entry,
		CurrentApprovalStage:    approvalStageToken(entry),
		Description:             strings.TrimSpace(req.Description),
		BudgetItems:             items,
		TotalExpenditure:        total,
		EventBudgetAtSubmission: event.EstimatedBudget,
		BudgetDeflection:        total - event.EstimatedBudget,
		SubmittedBy:             actor.ID,
	}
	if err := s.repo.Create(ctx, proposal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create proposal")
	}
	if err := s.events.LinkProposal(ctx, event.ID, proposal.ID); err != nil {
		// Back out the insert so the loser never shadows the proposal
		// that won the event link.
		if delErr := s.repo.Delete(ctx, proposal.ID); delErr != nil {
			s.logger.Warn("failed to remove unlinked proposal",
				zap.String("proposal_id", proposal.ID), zap.Error(delErr))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a proposal was submitted for this event concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link proposal to event")
	}
	s.emitLog(ctx, proposal.ID, string(actor.Role), models.ActionSubmitted, actor.ID, nil)
	s.countTransition(models.ActionSubmitted)
	return proposal, nil
}

// Update edits a proposal body. The General Secretary resubmits standard
// proposals sent back for revision or rejected, which restarts the route
// at the President stage. The President edits a standard proposal in
// place while it awaits the President, and resubmits mega event proposals
// directly to Student Affairs. Financial snapshots are re-captured on
// every edit.
func (s *ProposalService) Update(ctx context.Context, id string, req dto.UpdateProposalRequest, actor models.Actor) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.getEvent(ctx, proposal.EventID)
	if err != nil {
		return nil, err
	}
	items, total, err := parseBudgetItems(req.BudgetItems)
	if err != nil {
		return nil, err
	}

	params := repository.ProposalContentUpdate{
		ID:               proposal.ID,
		ExpectStatus:     proposal.Status,
		Description:      strings.TrimSpace(req.Description),
		BudgetItems:      items,
		TotalExpenditure: total,
		EventBudget:      event.EstimatedBudget,
		BudgetDeflection: total - event.EstimatedBudget,
	}

	switch {
	case actor.IsGS() && !event.IsMegaEvent &&
		(proposal.Status == models.StatusRevisionRequested || proposal.Status == models.StatusRejected):
		// Resubmission restarts the approval route from the top.
		params.Status = models.StatusPendingPresident
		params.Stage = approvalStageToken(models.StatusPendingPresident)
		params.BumpRevision = true
		params.ClearChain = true
		params.ClearRejection = true
	case actor.IsPresident() && !event.IsMegaEvent && proposal.Status == models.StatusPendingPresident:
		// In-place edit while the proposal awaits the President.
		params.Status = proposal.Status
		params.Stage = proposal.CurrentApprovalStage
		params.Index = proposal.CurrentChainIndex
	case actor.IsPresident() && event.IsMegaEvent &&
		(proposal.Status == models.StatusPendingPresident ||
			proposal.Status == models.StatusRevisionRequested ||
			proposal.Status == models.StatusRejected):
		params.Status = models.StatusPendingStudentAffairs
		params.Stage = approvalStageToken(models.StatusPendingStudentAffairs)
		params.BumpRevision = true
		params.ClearChain = true
		params.ClearRejection = true
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("proposal in status %s cannot be edited by this actor", proposal.Status))
	}

	if err := s.repo.UpdateContent(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "proposal changed concurrently, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update proposal")
	}
	if params.BumpRevision {
		s.emitLog(ctx, proposal.ID, string(actor.Role), models.ActionSubmitted, actor.ID, nil)
		s.countTransition(models.ActionSubmitted)
		proposal.RevisionCount++
		proposal.CustomApprovalChain = nil
		proposal.RejectedBy = nil
		proposal.RejectedAt = nil
		proposal.RejectionReason = nil
	}
	proposal.Status = params.Status
	proposal.CurrentApprovalStage = params.Stage
	proposal.CurrentChainIndex = params.Index
	proposal.Description = params.Description
	proposal.BudgetItems = items
	proposal.TotalExpenditure = total
	proposal.EventBudgetAtSubmission = event.EstimatedBudget
	proposal.BudgetDeflection = params.BudgetDeflection
	return proposal, nil
}

// Approve advances the proposal one stage with the same dynamic chain
// semantics as the calendar. Final approval flips the event to
// proposal-approved.
func (s *ProposalService) Approve(ctx context.Context, id string, req dto.ApproveProposalRequest, actor models.Actor) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	approver, pending := RequiredApprover(proposal.Status)
	if !pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal is not pending approval")
	}
	if !approver.Matches(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("proposal at status %s awaits a different approver", proposal.Status))
	}

	var advance ChainAdvance
	if proposal.Status == models.StatusPendingStudentAffairs {
		stages, err := ParseStages(req.NextApprovalStages)
		if err != nil {
			return nil, err
		}
		advance = StartChain(stages)
	} else {
		if len(req.NextApprovalStages) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				"nextApprovalStages may only be set by the Student Affairs approver")
		}
		advance, err = AdvanceChain(ChainState{
			Status: proposal.Status,
			Chain:  stagesFromStrings(proposal.CustomApprovalChain),
			Index:  proposal.CurrentChainIndex,
		})
		if err != nil {
			return nil, err
		}
	}

	params := repository.ProposalWorkflowUpdate{
		ID:           proposal.ID,
		ExpectStatus: proposal.Status,
		Status:       advance.Status,
		Stage:        advance.Stage,
		Index:        advance.Index,
		Chain:        stagesToStrings(advance.Chain),
		ChainChanged: advance.ChainChanged,
	}
	if err := s.repo.UpdateWorkflow(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "proposal was approved or rejected concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record approval")
	}
	s.emitLog(ctx, proposal.ID, string(actor.Role), models.ActionApproved, actor.ID, optionalComment(req.Comments))
	s.countTransition(models.ActionApproved)

	proposal.Status = advance.Status
	proposal.CurrentApprovalStage = advance.Stage
	proposal.CurrentChainIndex = advance.Index
	if advance.ChainChanged {
		proposal.CustomApprovalChain = stagesToStrings(advance.Chain)
	}
	if advance.Final {
		if err := s.events.SetStatus(ctx, proposal.EventID, models.EventStatusProposalApproved); err != nil {
			s.logger.Error("failed to flip event status after final proposal approval",
				zap.String("event_id", proposal.EventID), zap.Error(err))
		}
	}
	return proposal, nil
}

// Reject terminates the route at the current stage. The submitter may
// edit and resubmit afterwards.
func (s *ProposalService) Reject(ctx context.Context, id string, req dto.RejectProposalRequest, actor models.Actor) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	approver, pending := RequiredApprover(proposal.Status)
	if !pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal is not pending approval")
	}
	if !approver.Matches(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("proposal at status %s awaits a different approver", proposal.Status))
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}

	now := s.clock.Now()
	params := repository.ProposalWorkflowUpdate{
		ID:              proposal.ID,
		ExpectStatus:    proposal.Status,
		Status:          models.StatusRejected,
		RejectedBy:      &actor.ID,
		RejectedAt:      &now,
		RejectionReason: &reason,
	}
	if err := s.repo.UpdateWorkflow(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "proposal was approved or rejected concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record rejection")
	}
	s.emitLog(ctx, proposal.ID, string(actor.Role), models.ActionRejected, actor.ID, &reason)
	s.countTransition(models.ActionRejected)

	proposal.Status = models.StatusRejected
	proposal.CurrentApprovalStage = nil
	proposal.CurrentChainIndex = nil
	proposal.RejectedBy = &actor.ID
	proposal.RejectedAt = &now
	proposal.RejectionReason = &reason
	return proposal, nil
}

// RequestRevision sends the proposal back to its submitter for rework.
// Distinguished from rejection only by the logged action and who is
// expected to act next.
func (s *ProposalService) RequestRevision(ctx context.Context, id string, req dto.RequestRevisionRequest, actor models.Actor) (*models.Proposal, error) {
	proposal, err := s.getProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	approver, pending := RequiredApprover(proposal.Status)
	if !pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal is not pending approval")
	}
	if !approver.Matches(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("proposal at status %s awaits a different approver", proposal.Status))
	}
	comments := strings.TrimSpace(req.Comments)
	if comments == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "revision comments are required")
	}

	params := repository.ProposalWorkflowUpdate{
		ID:           proposal.ID,
		ExpectStatus: proposal.Status,
		Status:       models.StatusRevisionRequested,
	}
	if err := s.repo.UpdateWorkflow(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "proposal was moved concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request revision")
	}
	s.emitLog(ctx, proposal.ID, string(actor.Role), models.ActionRevisionRequested, actor.ID, &comments)
	s.countTransition(models.ActionRevisionRequested)

	proposal.Status = models.StatusRevisionRequested
	proposal.CurrentApprovalStage = nil
	proposal.CurrentChainIndex = nil
	return proposal, nil
}

// Pending lists standard events with no submitted proposal starting within
// the look-ahead window, annotated with due-date countdowns.
func (s *ProposalService) Pending(ctx context.Context, daysUntilDue int) ([]models.PendingProposalEvent, error) {
	if daysUntilDue <= 0 {
		daysUntilDue = s.windowDays
	}
	today := startOfDay(s.clock.Now())
	to := today.AddDate(0, 0, daysUntilDue)
	events, err := s.events.ListAwaitingProposal(ctx, today, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events awaiting proposals")
	}
	pending := make([]models.PendingProposalEvent, 0, len(events))
	for _, event := range events {
		due := s.proposalDue(ctx, &event)
		pending = append(pending, models.PendingProposalEvent{
			Event:                event,
			DaysUntilEventStart:  daysBetween(today, startOfDay(event.ScheduledStartDate)),
			DaysUntilProposalDue: daysBetween(today, due),
			IsProposalWindowOpen: !today.Before(due),
		})
	}
	return pending, nil
}

// ForApproval returns the proposals parked at the stages the actor may
// act on.
func (s *ProposalService) ForApproval(ctx context.Context, actor models.Actor) ([]models.Proposal, error) {
	var statuses []models.WorkflowStatus
	for status, approver := range statusApprovers {
		if approver.Matches(actor) {
			statuses = append(statuses, status)
		}
	}
	if len(statuses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "actor holds no approval stage")
	}
	proposals, err := s.repo.ListByStatuses(ctx, statuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list proposals for approval")
	}
	return proposals, nil
}

// Get returns a proposal by identifier.
func (s *ProposalService) Get(ctx context.Context, id string) (*models.Proposal, error) {
	return s.getProposal(ctx, id)
}

// GetByEvent returns the proposal attached to an event.
func (s *ProposalService) GetByEvent(ctx context.Context, eventID string) (*models.Proposal, error) {
	proposal, err := s.repo.GetByEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	return proposal, nil
}

// History returns the chronological approval trail of a proposal.
func (s *ProposalService) History(ctx context.Context, id string) ([]models.ApprovalLog, error) {
	entries, err := s.log.List(ctx, models.ApprovalLogFilter{
		EntityKind: models.EntityKindProposal,
		EntityID:   id,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval history")
	}
	return entries, nil
}

// proposalDue returns the cached due date, lazily computing and caching it
// for events materialized before the column existed.
func (s *ProposalService) proposalDue(ctx context.Context, event *models.Event) time.Time {
	if event.ProposalDueDate != nil {
		return startOfDay(*event.ProposalDueDate)
	}
	due := startOfDay(event.ScheduledStartDate).AddDate(0, 0, -models.ProposalDueLeadDays)
	if err := s.events.SetProposalDueDate(ctx, event.ID, due); err != nil {
		s.logger.Warn("failed to cache proposal due date",
			zap.String("event_id", event.ID), zap.Error(err))
	}
	event.ProposalDueDate = &due
	return due
}

func (s *ProposalService) getProposal(ctx context.Context, id string) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	return proposal, nil
}

func (s *ProposalService) getEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *ProposalService) emitLog(ctx context.Context, proposalID, stage string, action models.ApprovalAction, performedBy string, comments *string) {
	if s.log == nil {
		return
	}
	entry := &models.ApprovalLog{
		EntityKind:  models.EntityKindProposal,
		EntityID:    proposalID,
		Stage:       stage,
		Action:      action,
		PerformedBy: performedBy,
		Comments:    comments,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.log.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to persist approval log entry",
			zap.String("entity_id", proposalID), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *ProposalService) countTransition(action models.ApprovalAction) {
	if s.metrics != nil {
		s.metrics.CountWorkflowTransition(models.EntityKindProposal, action)
	}
}

// parseBudgetItems validates budget lines and returns their total. Totals
// are always derived here, never accepted from the caller.
func parseBudgetItems(inputs []dto.BudgetItemInput) (models.BudgetItems, float64, error) {
	if len(inputs) == 0 {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "at least one budget item is required")
	}
	items := make(models.BudgetItems, 0, len(inputs))
	for i, input := range inputs {
		description := strings.TrimSpace(input.Description)
		if description == "" {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("budget item %d: description is required", i+1))
		}
		if input.Amount < 0 {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("budget item %d: amount cannot be negative", i+1))
		}
		items = append(items, models.BudgetItem{Description: description, Amount: input.Amount})
	}
	return items, items.Total(), nil
}

// daysBetween counts whole days from a to b, negative when b is past.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
