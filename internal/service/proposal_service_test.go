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
	"github.com/noah-isme/gymkhana-api/internal/repository"
)

type proposalStoreStub struct {
	proposals map[string]*models.Proposal
	seq       int
}

func newProposalStoreStub() *proposalStoreStub {
	return &proposalStoreStub{proposals: make(map[string]*models.Proposal)}
}

func (s *proposalStoreStub) Create(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ID == "" {
		s.seq++
		proposal.ID = fmt.Sprintf("prop-%d", s.seq)
	}
	copy := *proposal
	s.proposals[proposal.ID] = &copy
	return nil
}

func (s *proposalStoreStub) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	if prop, ok := s.proposals[id]; ok {
		copy := *prop
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *proposalStoreStub) GetByEvent(ctx context.Context, eventID string) (*models.Proposal, error) {
	for _, prop := range s.proposals {
		if prop.EventID == eventID {
			copy := *prop
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *proposalStoreStub) Delete(ctx context.Context, id string) error {
	delete(s.proposals, id)
	return nil
}

func (s *proposalStoreStub) ListByStatuses(ctx context.Context, statuses []models.WorkflowStatus) ([]models.Proposal, error) {
	var result []models.Proposal
	for _, prop := range s.proposals {
		for _, status := range statuses {
			if prop.Status == status {
				result = append(result, *prop)
				break
			}
		}
	}
	return result, nil
}

func (s *proposalStoreStub) UpdateContent(ctx context.Context, params repository.ProposalContentUpdate) error {
	prop, ok := s.proposals[params.ID]
	if !ok || prop.Status != params.ExpectStatus {
		return sql.ErrNoRows
	}
	prop.Status = params.Status
	prop.CurrentApprovalStage = params.Stage
	prop.CurrentChainIndex = params.Index
	prop.Description = params.Description
	prop.BudgetItems = params.BudgetItems
	prop.TotalExpenditure = params.TotalExpenditure
	prop.EventBudgetAtSubmission = params.EventBudget
	prop.BudgetDeflection = params.BudgetDeflection
	if params.BumpRevision {
		prop.RevisionCount++
	}
	if params.ClearChain {
		prop.CustomApprovalChain = nil
	}
	if params.ClearRejection {
		prop.RejectedBy = nil
		prop.RejectedAt = nil
		prop.RejectionReason = nil
	}
	return nil
}

func (s *proposalStoreStub) UpdateWorkflow(ctx context.Context, params repository.ProposalWorkflowUpdate) error {
	prop, ok := s.proposals[params.ID]
	if !ok || prop.Status != params.ExpectStatus {
		return sql.ErrNoRows
	}
	prop.Status = params.Status
	prop.CurrentApprovalStage = params.Stage
	prop.CurrentChainIndex = params.Index
	if params.ChainChanged {
		prop.CustomApprovalChain = params.Chain
	}
	if params.RejectedBy != nil {
		prop.RejectedBy = params.RejectedBy
		prop.RejectedAt = params.RejectedAt
		prop.RejectionReason = params.RejectionReason
	}
	if params.ClearRejection {
		prop.RejectedBy = nil
		prop.RejectedAt = nil
		prop.RejectionReason = nil
	}
	return nil
}

type proposalEventStoreStub struct {
	events map[string]*models.Event
}

func newProposalEventStoreStub() *proposalEventStoreStub {
	return &proposalEventStoreStub{events: make(map[string]*models.Event)}
}

func (s *proposalEventStoreStub) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if event, ok := s.events[id]; ok {
		copy := *event
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *proposalEventStoreStub) ListAwaitingProposal(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	var result []models.Event
	for _, event := range s.events {
		if event.ProposalSubmitted || event.IsMegaEvent || event.Status != models.EventStatusUpcoming {
			continue
		}
		start := startOfDay(event.ScheduledStartDate)
		if !start.Before(from) && !start.After(to) {
			result = append(result, *event)
		}
	}
	return result, nil
}

func (s *proposalEventStoreStub) SetProposalDueDate(ctx context.Context, id string, due time.Time) error {
	if event, ok := s.events[id]; ok && event.ProposalDueDate == nil {
		event.ProposalDueDate = &due
	}
	return nil
}

func (s *proposalEventStoreStub) LinkProposal(ctx context.Context, id, proposalID string) error {
	event, ok := s.events[id]
	if !ok || event.ProposalSubmitted {
		return sql.ErrNoRows
	}
	event.ProposalSubmitted = true
	event.ProposalID = &proposalID
	event.Status = models.EventStatusProposalSubmitted
	return nil
}

func (s *proposalEventStoreStub) SetStatus(ctx context.Context, id string, status models.EventStatus) error {
	event, ok := s.events[id]
	if !ok {
		return sql.ErrNoRows
	}
	event.Status = status
	return nil
}

func newProposalFixture(t *testing.T, today string) (*ProposalService, *proposalStoreStub, *proposalEventStoreStub, *approvalLogStub) {
	t.Helper()
	store := newProposalStoreStub()
	events := newProposalEventStoreStub()
	logs := &approvalLogStub{}
	svc := NewProposalService(store, events, logs, nil,
		WithProposalClock(fixedClock{now: day(today)}))
	return svc, store, events, logs
}

func upcomingEvent(id string, start string, budget float64) *models.Event {
	due := day(start).AddDate(0, 0, -models.ProposalDueLeadDays)
	return &models.Event{
		ID:                 id,
		Title:              "Event " + id,
		Category:           "CULTURAL",
		ScheduledStartDate: day(start),
		ScheduledEndDate:   day(start).AddDate(0, 0, 1),
		EstimatedBudget:    budget,
		Status:             models.EventStatusUpcoming,
		ProposalDueDate:    &due,
	}
}

func TestProposalCreateBeforeWindowOpens(t *testing.T) {
	// 21 days before a 2025-10-01 event is 2025-09-10; a week earlier the
	// window is still closed.
	svc, _, events, _ := newProposalFixture(t, "2025-09-03")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)

	_, err := svc.Create(context.Background(), dto.CreateProposalRequest{
		EventID:     "ev-1",
		Description: "plan",
		BudgetItems: []dto.BudgetItemInput{{Description: "sound", Amount: 1000}},
	}, gsActor)
	require.ErrorContains(t, err, "proposal window opens on 2025-09-10")
}

func TestProposalCreateStandardFlow(t *testing.T) {
	svc, _, events, logs := newProposalFixture(t, "2025-09-10")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)

	req := dto.CreateProposalRequest{
		EventID:     "ev-1",
		Description: "plan",
		BudgetItems: []dto.BudgetItemInput{
			{Description: "sound", Amount: 30000},
			{Description: "decor", Amount: 25000},
		},
	}
	_, err := svc.Create(context.Background(), req, presidentActor)
	require.Error(t, err) // standard events accept the GS only

	proposal, err := svc.Create(context.Background(), req, gsActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingPresident, proposal.Status)
	require.Equal(t, 55000.0, proposal.TotalExpenditure)
	require.Equal(t, 50000.0, proposal.EventBudgetAtSubmission)
	require.Equal(t, 5000.0, proposal.BudgetDeflection)
	require.Equal(t, models.EventStatusProposalSubmitted, events.events["ev-1"].Status)
	require.Len(t, logs.entries, 1)

	_, err = svc.Create(context.Background(), req, gsActor)
	require.ErrorContains(t, err, "already submitted")
}

// staleReadEventStore hides an already-linked proposal from reads, so a
// second Create passes the pre-checks and loses the link race instead.
type staleReadEventStore struct {
	*proposalEventStoreStub
}

func (s *staleReadEventStore) GetByID(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.proposalEventStoreStub.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event.ProposalSubmitted = false
	event.ProposalID = nil
	return event, nil
}

func TestProposalCreateLostRaceLeavesNoOrphan(t *testing.T) {
	store := newProposalStoreStub()
	events := newProposalEventStoreStub()
	event := upcomingEvent("ev-1", "2025-10-01", 50000)
	event.ProposalSubmitted = true
	winner := "prop-winner"
	event.ProposalID = &winner
	events.events["ev-1"] = event
	svc := NewProposalService(store, &staleReadEventStore{events}, &approvalLogStub{}, nil,
		WithProposalClock(fixedClock{now: day("2025-09-15")}))

	_, err := svc.Create(context.Background(), dto.CreateProposalRequest{
		EventID:     "ev-1",
		Description: "duplicate",
		BudgetItems: []dto.BudgetItemInput{{Description: "sound", Amount: 1000}},
	}, gsActor)
	require.ErrorContains(t, err, "concurrently")

	// The loser's row must be backed out, and the event still points at
	// the winning proposal.
	require.Empty(t, store.proposals)
	require.Equal(t, "prop-winner", *events.events["ev-1"].ProposalID)
}

func TestProposalCreateMegaEvent(t *testing.T) {
	svc, _, events, _ := newProposalFixture(t, "2025-09-15")
	event := upcomingEvent("ev-1", "2025-10-01", 200000)
	event.IsMegaEvent = true
	events.events["ev-1"] = event

	req := dto.CreateProposalRequest{
		EventID:     "ev-1",
		Description: "mega plan",
		BudgetItems: []dto.BudgetItemInput{{Description: "venue", Amount: 150000}},
	}
	_, err := svc.Create(context.Background(), req, gsActor)
	require.Error(t, err)

	proposal, err := svc.Create(context.Background(), req, presidentActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingStudentAffairs, proposal.Status)
}

func TestProposalResubmitAfterRevision(t *testing.T) {
	svc, store, events, _ := newProposalFixture(t, "2025-09-20")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)
	store.proposals["prop-1"] = &models.Proposal{
		ID:                  "prop-1",
		EventID:             "ev-1",
		Status:              models.StatusRevisionRequested,
		CustomApprovalChain: []string{"DEAN_SA"},
		RevisionCount:       0,
	}

	proposal, err := svc.Update(context.Background(), "prop-1", dto.UpdateProposalRequest{
		Description: "revised",
		BudgetItems: []dto.BudgetItemInput{{Description: "sound", Amount: 20000}},
	}, gsActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingPresident, proposal.Status)
	require.Equal(t, 1, proposal.RevisionCount)
	require.Empty(t, proposal.CustomApprovalChain)
	require.Equal(t, -30000.0, proposal.BudgetDeflection)
}

func TestProposalUpdateForbiddenMidChain(t *testing.T) {
	svc, store, events, _ := newProposalFixture(t, "2025-09-20")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)
	store.proposals["prop-1"] = &models.Proposal{
		ID:      "prop-1",
		EventID: "ev-1",
		Status:  models.StatusPendingDean,
	}
	_, err := svc.Update(context.Background(), "prop-1", dto.UpdateProposalRequest{
		Description: "sneaky edit",
		BudgetItems: []dto.BudgetItemInput{{Description: "x", Amount: 1}},
	}, gsActor)
	require.Error(t, err)
}

func TestProposalApprovalChainFlipsEvent(t *testing.T) {
	svc, store, events, _ := newProposalFixture(t, "2025-09-20")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)
	events.events["ev-1"].Status = models.EventStatusProposalSubmitted
	store.proposals["prop-1"] = &models.Proposal{
		ID:      "prop-1",
		EventID: "ev-1",
		Status:  models.StatusPendingPresident,
	}

	proposal, err := svc.Approve(context.Background(), "prop-1", dto.ApproveProposalRequest{}, presidentActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingStudentAffairs, proposal.Status)

	proposal, err = svc.Approve(context.Background(), "prop-1",
		dto.ApproveProposalRequest{NextApprovalStages: []string{"DEAN_SA"}}, saActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingDean, proposal.Status)

	proposal, err = svc.Approve(context.Background(), "prop-1", dto.ApproveProposalRequest{}, deanActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, proposal.Status)
	require.Equal(t, models.EventStatusProposalApproved, events.events["ev-1"].Status)
}

func TestProposalRejectTwiceConflicts(t *testing.T) {
	svc, store, events, _ := newProposalFixture(t, "2025-09-20")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)
	store.proposals["prop-1"] = &models.Proposal{
		ID:      "prop-1",
		EventID: "ev-1",
		Status:  models.StatusPendingStudentAffairs,
	}

	_, err := svc.Reject(context.Background(), "prop-1", dto.RejectProposalRequest{Reason: "incomplete"}, saActor)
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), "prop-1", dto.RejectProposalRequest{Reason: "again"}, saActor)
	require.ErrorContains(t, err, "not pending approval")
}

func TestProposalRequestRevisionRequiresComments(t *testing.T) {
	svc, store, events, _ := newProposalFixture(t, "2025-09-20")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)
	store.proposals["prop-1"] = &models.Proposal{
		ID:      "prop-1",
		EventID: "ev-1",
		Status:  models.StatusPendingStudentAffairs,
	}

	_, err := svc.RequestRevision(context.Background(), "prop-1", dto.RequestRevisionRequest{}, saActor)
	require.Error(t, err)

	proposal, err := svc.RequestRevision(context.Background(), "prop-1",
		dto.RequestRevisionRequest{Comments: "add a safety plan"}, saActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusRevisionRequested, proposal.Status)
}

func TestProposalPendingAnnotations(t *testing.T) {
	svc, _, events, _ := newProposalFixture(t, "2025-09-15")
	events.events["ev-1"] = upcomingEvent("ev-1", "2025-10-01", 50000)
	mega := upcomingEvent("ev-2", "2025-10-05", 200000)
	mega.IsMegaEvent = true
	events.events["ev-2"] = mega

	pending, err := svc.Pending(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "ev-1", pending[0].Event.ID)
	require.Equal(t, 16, pending[0].DaysUntilEventStart)
	require.Equal(t, -5, pending[0].DaysUntilProposalDue)
	require.True(t, pending[0].IsProposalWindowOpen)
}

func TestProposalForApproval(t *testing.T) {
	svc, store, _, _ := newProposalFixture(t, "2025-09-20")
	store.proposals["prop-1"] = &models.Proposal{ID: "prop-1", EventID: "ev-1", Status: models.StatusPendingDean}
	store.proposals["prop-2"] = &models.Proposal{ID: "prop-2", EventID: "ev-2", Status: models.StatusPendingPresident}

	proposals, err := svc.ForApproval(context.Background(), deanActor)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	require.Equal(t, "prop-1", proposals[0].ID)

	_, err = svc.ForApproval(context.Background(), adminActor)
	require.Error(t, err)
}
