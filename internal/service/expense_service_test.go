package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
)

type expenseStoreStub struct {
	expenses map[string]*models.Expense
	seq      int
}

func newExpenseStoreStub() *expenseStoreStub {
	return &expenseStoreStub{expenses: make(map[string]*models.Expense)}
}

func (s *expenseStoreStub) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		s.seq++
		expense.ID = fmt.Sprintf("exp-%d", s.seq)
	}
	copy := *expense
	s.expenses[expense.ID] = &copy
	return nil
}

func (s *expenseStoreStub) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	if exp, ok := s.expenses[id]; ok {
		copy := *exp
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *expenseStoreStub) GetByEvent(ctx context.Context, eventID string) (*models.Expense, error) {
	for _, exp := range s.expenses {
		if exp.EventID == eventID {
			copy := *exp
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *expenseStoreStub) ListPending(ctx context.Context) ([]models.Expense, error) {
	var result []models.Expense
	for _, exp := range s.expenses {
		if exp.ApprovalStatus == models.ExpenseStatusPending {
			result = append(result, *exp)
		}
	}
	return result, nil
}

func (s *expenseStoreStub) UpdateBills(ctx context.Context, id string, bills models.Bills, total, variance float64) error {
	exp, ok := s.expenses[id]
	if !ok || exp.ApprovalStatus != models.ExpenseStatusPending {
		return sql.ErrNoRows
	}
	exp.Bills = bills
	exp.TotalExpenditure = total
	exp.BudgetVariance = variance
	return nil
}

func (s *expenseStoreStub) Approve(ctx context.Context, id, approvedBy string, comments *string, at time.Time) error {
	exp, ok := s.expenses[id]
	if !ok || exp.ApprovalStatus != models.ExpenseStatusPending {
		return sql.ErrNoRows
	}
	exp.ApprovalStatus = models.ExpenseStatusApproved
	exp.ApprovedBy = &approvedBy
	exp.ApprovedAt = &at
	exp.ApprovalComments = comments
	return nil
}

type expenseEventStoreStub struct {
	events map[string]*models.Event
}

func (s *expenseEventStoreStub) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if event, ok := s.events[id]; ok {
		copy := *event
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *expenseEventStoreStub) LinkExpense(ctx context.Context, id, expenseID string, status models.EventStatus) error {
	event, ok := s.events[id]
	if !ok {
		return sql.ErrNoRows
	}
	event.ExpenseID = &expenseID
	event.Status = status
	return nil
}

type proposalReaderStub struct {
	proposals map[string]*models.Proposal
}

func (s *proposalReaderStub) GetByEvent(ctx context.Context, eventID string) (*models.Proposal, error) {
	if prop, ok := s.proposals[eventID]; ok {
		copy := *prop
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func newExpenseFixture(t *testing.T) (*ExpenseService, *expenseStoreStub, *expenseEventStoreStub, *proposalReaderStub) {
	t.Helper()
	store := newExpenseStoreStub()
	events := &expenseEventStoreStub{events: make(map[string]*models.Event)}
	proposals := &proposalReaderStub{proposals: make(map[string]*models.Proposal)}
	svc := NewExpenseService(store, events, proposals, nil,
		WithExpenseClock(fixedClock{now: day("2025-10-10")}))
	return svc, store, events, proposals
}

func TestExpenseSubmitSnapshotsProposalBudget(t *testing.T) {
	svc, _, events, proposals := newExpenseFixture(t)
	events.events["ev-1"] = &models.Event{ID: "ev-1", Status: models.EventStatusProposalApproved, EstimatedBudget: 50000}
	proposals.proposals["ev-1"] = &models.Proposal{ID: "prop-1", EventID: "ev-1", TotalExpenditure: 55000}

	expense, err := svc.Submit(context.Background(), dto.CreateExpenseRequest{
		EventID: "ev-1",
		Bills: []dto.BillInput{
			{Description: "sound system", Amount: 30000},
			{Description: "catering", Amount: 18000},
		},
	}, gsActor)
	require.NoError(t, err)
	require.Equal(t, 55000.0, expense.EstimatedBudget)
	require.Equal(t, 48000.0, expense.TotalExpenditure)
	require.Equal(t, 7000.0, expense.BudgetVariance)
	require.Equal(t, models.ExpenseStatusPending, expense.ApprovalStatus)
}

func TestExpenseSubmitFallsBackToEventBudget(t *testing.T) {
	svc, _, events, _ := newExpenseFixture(t)
	events.events["ev-1"] = &models.Event{ID: "ev-1", Status: models.EventStatusProposalApproved, EstimatedBudget: 40000}

	expense, err := svc.Submit(context.Background(), dto.CreateExpenseRequest{
		EventID: "ev-1",
		Bills:   []dto.BillInput{{Description: "decor", Amount: 42000}},
	}, gsActor)
	require.NoError(t, err)
	require.Equal(t, 40000.0, expense.EstimatedBudget)
	require.Equal(t, -2000.0, expense.BudgetVariance)
}

func TestExpenseSubmitGuards(t *testing.T) {
	svc, _, events, _ := newExpenseFixture(t)
	events.events["ev-1"] = &models.Event{ID: "ev-1", Status: models.EventStatusUpcoming}
	req := dto.CreateExpenseRequest{EventID: "ev-1", Bills: []dto.BillInput{{Description: "x", Amount: 1}}}

	_, err := svc.Submit(context.Background(), req, adminActor)
	require.Error(t, err) // GS only

	_, err = svc.Submit(context.Background(), req, gsActor)
	require.Error(t, err) // proposal not approved yet

	events.events["ev-1"].Status = models.EventStatusProposalApproved
	_, err = svc.Submit(context.Background(), req, gsActor)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), req, gsActor)
	require.ErrorContains(t, err, "already exists")
}

func TestExpenseSubmitRejectsSubPaiseAmounts(t *testing.T) {
	svc, _, events, _ := newExpenseFixture(t)
	events.events["ev-1"] = &models.Event{ID: "ev-1", Status: models.EventStatusProposalApproved, EstimatedBudget: 1000}

	_, err := svc.Submit(context.Background(), dto.CreateExpenseRequest{
		EventID: "ev-1",
		Bills:   []dto.BillInput{{Description: "printing", Amount: 10.001}},
	}, gsActor)
	require.ErrorContains(t, err, "invalid expense payload")

	_, err = svc.Submit(context.Background(), dto.CreateExpenseRequest{
		EventID: "ev-1",
		Bills:   []dto.BillInput{{Description: "printing", Amount: 10.25}},
	}, gsActor)
	require.NoError(t, err)
}

func TestExpenseUpdateRecomputesTotal(t *testing.T) {
	svc, store, _, _ := newExpenseFixture(t)
	store.expenses["exp-1"] = &models.Expense{
		ID: "exp-1", EventID: "ev-1",
		EstimatedBudget: 50000, TotalExpenditure: 48000, BudgetVariance: 2000,
		ApprovalStatus: models.ExpenseStatusPending,
	}

	expense, err := svc.Update(context.Background(), "exp-1", dto.UpdateExpenseRequest{
		Bills: []dto.BillInput{
			{Description: "sound system", Amount: 30000},
			{Description: "catering", Amount: 25000},
		},
	}, gsActor)
	require.NoError(t, err)
	require.Equal(t, 55000.0, expense.TotalExpenditure)
	require.Equal(t, -5000.0, expense.BudgetVariance)
}

func TestExpenseApproveCompletesEvent(t *testing.T) {
	svc, store, events, _ := newExpenseFixture(t)
	events.events["ev-1"] = &models.Event{ID: "ev-1", Status: models.EventStatusProposalApproved}
	store.expenses["exp-1"] = &models.Expense{
		ID: "exp-1", EventID: "ev-1", ApprovalStatus: models.ExpenseStatusPending,
	}

	_, err := svc.Approve(context.Background(), "exp-1", dto.ApproveExpenseRequest{}, gsActor)
	require.Error(t, err) // admin only

	expense, err := svc.Approve(context.Background(), "exp-1", dto.ApproveExpenseRequest{Comments: "ok"}, adminActor)
	require.NoError(t, err)
	require.Equal(t, models.ExpenseStatusApproved, expense.ApprovalStatus)
	require.Equal(t, models.EventStatusCompleted, events.events["ev-1"].Status)
	require.Equal(t, "exp-1", *events.events["ev-1"].ExpenseID)

	// Approved reports are frozen.
	_, err = svc.Update(context.Background(), "exp-1", dto.UpdateExpenseRequest{
		Bills: []dto.BillInput{{Description: "late bill", Amount: 1}},
	}, gsActor)
	require.ErrorContains(t, err, "immutable")

	_, err = svc.Approve(context.Background(), "exp-1", dto.ApproveExpenseRequest{}, adminActor)
	require.ErrorContains(t, err, "already approved")
}
