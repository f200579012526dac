package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
)

type amendmentStoreStub struct {
	amendments map[string]*models.Amendment
	seq        int
}

func newAmendmentStoreStub() *amendmentStoreStub {
	return &amendmentStoreStub{amendments: make(map[string]*models.Amendment)}
}

func (s *amendmentStoreStub) Create(ctx context.Context, amendment *models.Amendment) error {
	if amendment.ID == "" {
		s.seq++
		amendment.ID = fmt.Sprintf("amd-%d", s.seq)
	}
	if amendment.Status == "" {
		amendment.Status = models.AmendmentStatusPending
	}
	copy := *amendment
	s.amendments[amendment.ID] = &copy
	return nil
}

func (s *amendmentStoreStub) GetByID(ctx context.Context, id string) (*models.Amendment, error) {
	if amd, ok := s.amendments[id]; ok {
		copy := *amd
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *amendmentStoreStub) ListPending(ctx context.Context) ([]models.Amendment, error) {
	var result []models.Amendment
	for _, amd := range s.amendments {
		if amd.Status == models.AmendmentStatusPending {
			result = append(result, *amd)
		}
	}
	return result, nil
}

func (s *amendmentStoreStub) ListByCalendar(ctx context.Context, calendarID string) ([]models.Amendment, error) {
	var result []models.Amendment
	for _, amd := range s.amendments {
		if amd.CalendarID == calendarID {
			result = append(result, *amd)
		}
	}
	return result, nil
}

func (s *amendmentStoreStub) Review(ctx context.Context, id string, status models.AmendmentStatus, reviewedBy string, comments *string, at time.Time) error {
	amd, ok := s.amendments[id]
	if !ok || amd.Status != models.AmendmentStatusPending {
		return sql.ErrNoRows
	}
	amd.Status = status
	amd.ReviewedBy = &reviewedBy
	amd.ReviewedAt = &at
	amd.ReviewComments = comments
	return nil
}

type amendmentEventStoreStub struct {
	events  map[string]*models.Event
	patched map[string]models.EventPatch
	created []*models.Event
}

func newAmendmentEventStoreStub() *amendmentEventStoreStub {
	return &amendmentEventStoreStub{
		events:  make(map[string]*models.Event),
		patched: make(map[string]models.EventPatch),
	}
}

func (s *amendmentEventStoreStub) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if event, ok := s.events[id]; ok {
		copy := *event
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *amendmentEventStoreStub) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = fmt.Sprintf("ev-new-%d", len(s.created)+1)
	}
	s.created = append(s.created, event)
	s.events[event.ID] = event
	return nil
}

func (s *amendmentEventStoreStub) ApplyPatch(ctx context.Context, id string, patch models.EventPatch) error {
	if _, ok := s.events[id]; !ok {
		return sql.ErrNoRows
	}
	s.patched[id] = patch
	return nil
}

type calendarReaderStub struct {
	calendars map[string]*models.Calendar
	latest    *models.Calendar
}

func (s *calendarReaderStub) GetByID(ctx context.Context, id string) (*models.Calendar, error) {
	if cal, ok := s.calendars[id]; ok {
		copy := *cal
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *calendarReaderStub) LatestApproved(ctx context.Context) (*models.Calendar, error) {
	if s.latest == nil {
		return nil, sql.ErrNoRows
	}
	copy := *s.latest
	return &copy, nil
}

func newAmendmentFixture(t *testing.T) (*AmendmentService, *amendmentStoreStub, *amendmentEventStoreStub, *calendarReaderStub) {
	t.Helper()
	store := newAmendmentStoreStub()
	events := newAmendmentEventStoreStub()
	calendars := &calendarReaderStub{calendars: make(map[string]*models.Calendar)}
	svc := NewAmendmentService(store, events, calendars, &approvalLogStub{}, nil,
		WithAmendmentClock(fixedClock{now: day("2025-10-01")}))
	return svc, store, events, calendars
}

func TestAmendmentCreateEditInheritsCalendar(t *testing.T) {
	svc, _, events, _ := newAmendmentFixture(t)
	calID := "cal-1"
	eventID := "ev-1"
	events.events[eventID] = &models.Event{ID: eventID, CalendarID: &calID}

	amendment, err := svc.Create(context.Background(), dto.CreateAmendmentRequest{
		Type:            models.AmendmentTypeEdit,
		EventID:         &eventID,
		ProposedChanges: json.RawMessage(`{"estimatedBudget":60000}`),
		Reason:          "budget revision",
	}, gsActor)
	require.NoError(t, err)
	require.Equal(t, "cal-1", amendment.CalendarID)
	require.Equal(t, models.AmendmentStatusPending, amendment.Status)
}

func TestAmendmentCreateGuards(t *testing.T) {
	svc, _, _, _ := newAmendmentFixture(t)
	eventID := "ev-1"

	_, err := svc.Create(context.Background(), dto.CreateAmendmentRequest{
		Type:            models.AmendmentTypeEdit,
		EventID:         &eventID,
		ProposedChanges: json.RawMessage(`{}`),
		Reason:          "x",
	}, adminActor)
	require.Error(t, err) // GS only

	_, err = svc.Create(context.Background(), dto.CreateAmendmentRequest{
		Type:            models.AmendmentTypeEdit,
		EventID:         &eventID,
		ProposedChanges: json.RawMessage(`{`),
		Reason:          "x",
	}, gsActor)
	require.Error(t, err) // malformed payload

	_, err = svc.Create(context.Background(), dto.CreateAmendmentRequest{
		Type:            models.AmendmentTypeNewEvent,
		EventID:         &eventID,
		ProposedChanges: json.RawMessage(`{}`),
		Reason:          "x",
	}, gsActor)
	require.Error(t, err) // eventId forbidden for insertions
}

func TestAmendmentCreateNewEventUsesLatestApproved(t *testing.T) {
	svc, _, _, calendars := newAmendmentFixture(t)
	req := dto.CreateAmendmentRequest{
		Type:            models.AmendmentTypeNewEvent,
		ProposedChanges: json.RawMessage(`{"title":"Winter Carnival","category":"CULTURAL","startDate":"2026-01-10","endDate":"2026-01-12","estimatedBudget":30000}`),
		Reason:          "late addition",
	}

	_, err := svc.Create(context.Background(), req, gsActor)
	require.Error(t, err) // no approved calendar yet

	calendars.latest = &models.Calendar{ID: "cal-1", Status: models.StatusApproved}
	amendment, err := svc.Create(context.Background(), req, gsActor)
	require.NoError(t, err)
	require.Equal(t, "cal-1", amendment.CalendarID)
}

func TestAmendmentReviewAppliesEditImmediately(t *testing.T) {
	svc, store, events, _ := newAmendmentFixture(t)
	calID := "cal-1"
	eventID := "ev-1"
	events.events[eventID] = &models.Event{ID: eventID, CalendarID: &calID}
	store.amendments["amd-1"] = &models.Amendment{
		ID:              "amd-1",
		CalendarID:      calID,
		Type:            models.AmendmentTypeEdit,
		EventID:         &eventID,
		ProposedChanges: json.RawMessage(`{"estimatedBudget":60000}`),
		Status:          models.AmendmentStatusPending,
	}

	amendment, err := svc.Review(context.Background(), "amd-1",
		dto.ReviewAmendmentRequest{Status: models.AmendmentStatusApproved, Comments: "fine"}, adminActor)
	require.NoError(t, err)
	require.Equal(t, models.AmendmentStatusApproved, amendment.Status)
	require.Contains(t, events.patched, eventID)
	require.Equal(t, 60000.0, *events.patched[eventID].EstimatedBudget)

	_, err = svc.Review(context.Background(), "amd-1",
		dto.ReviewAmendmentRequest{Status: models.AmendmentStatusRejected}, adminActor)
	require.ErrorContains(t, err, "already reviewed")
}

func TestAmendmentReviewNewEventCreatesEvent(t *testing.T) {
	svc, store, events, _ := newAmendmentFixture(t)
	store.amendments["amd-1"] = &models.Amendment{
		ID:              "amd-1",
		CalendarID:      "cal-1",
		Type:            models.AmendmentTypeNewEvent,
		ProposedChanges: json.RawMessage(`{"title":"Winter Carnival","category":"CULTURAL","startDate":"2026-01-10","endDate":"2026-01-12","estimatedBudget":30000}`),
		Status:          models.AmendmentStatusPending,
	}

	_, err := svc.Review(context.Background(), "amd-1",
		dto.ReviewAmendmentRequest{Status: models.AmendmentStatusApproved}, adminActor)
	require.NoError(t, err)
	require.Len(t, events.created, 1)
	created := events.created[0]
	require.Equal(t, "Winter Carnival", created.Title)
	require.Equal(t, models.EventStatusUpcoming, created.Status)
	require.Equal(t, day("2026-01-10").AddDate(0, 0, -21), *created.ProposalDueDate)
}

func TestAmendmentReviewRejectLeavesEventsUntouched(t *testing.T) {
	svc, store, events, _ := newAmendmentFixture(t)
	calID := "cal-1"
	eventID := "ev-1"
	events.events[eventID] = &models.Event{ID: eventID, CalendarID: &calID}
	store.amendments["amd-1"] = &models.Amendment{
		ID:              "amd-1",
		CalendarID:      calID,
		Type:            models.AmendmentTypeEdit,
		EventID:         &eventID,
		ProposedChanges: json.RawMessage(`{"estimatedBudget":60000}`),
		Status:          models.AmendmentStatusPending,
	}

	amendment, err := svc.Review(context.Background(), "amd-1",
		dto.ReviewAmendmentRequest{Status: models.AmendmentStatusRejected, Comments: "not justified"}, adminActor)
	require.NoError(t, err)
	require.Equal(t, models.AmendmentStatusRejected, amendment.Status)
	require.Empty(t, events.patched)
}
