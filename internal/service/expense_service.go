package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
)

type expenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	GetByEvent(ctx context.Context, eventID string) (*models.Expense, error)
	ListPending(ctx context.Context) ([]models.Expense, error)
	UpdateBills(ctx context.Context, id string, bills models.Bills, total, variance float64) error
	Approve(ctx context.Context, id, approvedBy string, comments *string, at time.Time) error
}

type expenseEventStore interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	LinkExpense(ctx context.Context, id, expenseID string, status models.EventStatus) error
}

type proposalReader interface {
	GetByEvent(ctx context.Context, eventID string) (*models.Proposal, error)
}

// ExpenseService runs the two-state post-event expense workflow. Exactly
// one report exists per event and its total is always the sum of bills.
type ExpenseService struct {
	repo      expenseStore
	events    expenseEventStore
	proposals proposalReader
	clock     Clock
	logger    *zap.Logger
	validator *validator.Validate
}

// ExpenseServiceOption configures the service.
type ExpenseServiceOption func(*ExpenseService)

// WithExpenseClock overrides the wall clock.
func WithExpenseClock(clock Clock) ExpenseServiceOption {
	return func(s *ExpenseService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewExpenseService constructs the service with defaults.
func NewExpenseService(repo expenseStore, events expenseEventStore, proposals proposalReader, logger *zap.Logger, opts ...ExpenseServiceOption) *ExpenseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ExpenseService{
		repo:      repo,
		events:    events,
		proposals: proposals,
		clock:     SystemClock(),
		logger:    logger,
		validator: validator.New(),
	}
	// Bills settle in whole rupees or paise, never fractions below that.
	_ = svc.validator.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		amount := fl.Field().Float()
		return amount >= 0 && amount == math.Round(amount*100)/100
	})
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit files the expense report for an event with an approved proposal.
// The estimated budget snapshot comes from the proposal's planned total,
// falling back to the event budget.
func (s *ExpenseService) Submit(ctx context.Context, req dto.CreateExpenseRequest, actor models.Actor) (*models.Expense, error) {
	if !actor.IsGS() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the General Secretary may file expenses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid expense payload: "+err.Error())
	}
	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status != models.EventStatusProposalApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("event in status %s does not accept expense reports", event.Status))
	}
	if existing, err := s.repo.GetByEvent(ctx, event.ID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an expense report already exists for this event")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing expense")
	}

	bills, total, err := parseBills(req.Bills)
	if err != nil {
		return nil, err
	}
	estimated := event.EstimatedBudget
	if proposal, err := s.proposals.GetByEvent(ctx, event.ID); err == nil && proposal != nil {
		estimated = proposal.TotalExpenditure
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal snapshot")
	}

	expense := &models.Expense{
		EventID:          event.ID,
		Bills:            bills,
		EstimatedBudget:  estimated,
		TotalExpenditure: total,
		BudgetVariance:   estimated - total,
		ApprovalStatus:   models.ExpenseStatusPending,
		SubmittedBy:      actor.ID,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense")
	}
	return expense, nil
}

// Update replaces the bill list of a pending report. Approved bills are
// immutable.
func (s *ExpenseService) Update(ctx context.Context, id string, req dto.UpdateExpenseRequest, actor models.Actor) (*models.Expense, error) {
	if !actor.IsGS() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the General Secretary may edit expenses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid expense payload: "+err.Error())
	}
	expense, err := s.getExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.ApprovalStatus == models.ExpenseStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "approved expense reports are immutable")
	}
	bills, total, err := parseBills(req.Bills)
	if err != nil {
		return nil, err
	}
	variance := expense.EstimatedBudget - total
	if err := s.repo.UpdateBills(ctx, id, bills, total, variance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "expense was approved concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update expense")
	}
	expense.Bills = bills
	expense.TotalExpenditure = total
	expense.BudgetVariance = variance
	expense.ApprovalStatus = models.ExpenseStatusPending
	expense.ApprovedBy = nil
	expense.ApprovedAt = nil
	expense.ApprovalComments = nil
	return expense, nil
}

// Approve closes out a pending report and completes its event.
func (s *ExpenseService) Approve(ctx context.Context, id string, req dto.ApproveExpenseRequest, actor models.Actor) (*models.Expense, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may approve expenses")
	}
	expense, err := s.getExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.ApprovalStatus == models.ExpenseStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expense report is already approved")
	}
	now := s.clock.Now()
	comments := optionalComment(req.Comments)
	if err := s.repo.Approve(ctx, id, actor.ID, comments, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "expense was approved concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve expense")
	}
	if err := s.events.LinkExpense(ctx, expense.EventID, expense.ID, models.EventStatusCompleted); err != nil {
		s.logger.Error("failed to complete event after expense approval",
			zap.String("event_id", expense.EventID), zap.Error(err))
	}
	expense.ApprovalStatus = models.ExpenseStatusApproved
	expense.ApprovedBy = &actor.ID
	expense.ApprovedAt = &now
	expense.ApprovalComments = comments
	return expense, nil
}

// Get returns an expense by identifier.
func (s *ExpenseService) Get(ctx context.Context, id string) (*models.Expense, error) {
	return s.getExpense(ctx, id)
}

// GetByEvent returns the expense report attached to an event.
func (s *ExpenseService) GetByEvent(ctx context.Context, eventID string) (*models.Expense, error) {
	expense, err := s.repo.GetByEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}
	return expense, nil
}

// ListPending returns reports awaiting admin approval.
func (s *ExpenseService) ListPending(ctx context.Context) ([]models.Expense, error) {
	expenses, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending expenses")
	}
	return expenses, nil
}

func (s *ExpenseService) getExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}
	return expense, nil
}

// parseBills validates bill lines and returns their total.
func parseBills(inputs []dto.BillInput) (models.Bills, float64, error) {
	if len(inputs) == 0 {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "at least one bill is required")
	}
	bills := make(models.Bills, 0, len(inputs))
	for i, input := range inputs {
		description := strings.TrimSpace(input.Description)
		if description == "" {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bill %d: description is required", i+1))
		}
		if input.Amount < 0 {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bill %d: amount cannot be negative", i+1))
		}
		bills = append(bills, models.Bill{
			Description: description,
			Amount:      input.Amount,
			Metadata:    input.Metadata,
		})
	}
	return bills, bills.Total(), nil
}
