package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
)

type amendmentStore interface {
	Create(ctx context.Context, amendment *models.Amendment) error
	GetByID(ctx context.Context, id string) (*models.Amendment, error)
	ListPending(ctx context.Context) ([]models.Amendment, error)
	ListByCalendar(ctx context.Context, calendarID string) ([]models.Amendment, error)
	Review(ctx context.Context, id string, status models.AmendmentStatus, reviewedBy string, comments *string, at time.Time) error
}

type amendmentEventStore interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	ApplyPatch(ctx context.Context, id string, patch models.EventPatch) error
}

type calendarReader interface {
	GetByID(ctx context.Context, id string) (*models.Calendar, error)
	LatestApproved(ctx context.Context) (*models.Calendar, error)
}

// AmendmentService runs the out-of-band change workflow, the only
// sanctioned bypass of a locked calendar.
type AmendmentService struct {
	repo      amendmentStore
	events    amendmentEventStore
	calendars calendarReader
	log       approvalLogStore
	clock     Clock
	logger    *zap.Logger
	metrics   *MetricsService
}

// AmendmentServiceOption configures the service.
type AmendmentServiceOption func(*AmendmentService)

// WithAmendmentClock overrides the wall clock.
func WithAmendmentClock(clock Clock) AmendmentServiceOption {
	return func(s *AmendmentService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAmendmentMetrics attaches workflow transition counters.
func WithAmendmentMetrics(metrics *MetricsService) AmendmentServiceOption {
	return func(s *AmendmentService) { s.metrics = metrics }
}

// NewAmendmentService constructs the service with defaults.
func NewAmendmentService(repo amendmentStore, events amendmentEventStore, calendars calendarReader, log approvalLogStore, logger *zap.Logger, opts ...AmendmentServiceOption) *AmendmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AmendmentService{
		repo:      repo,
		events:    events,
		calendars: calendars,
		log:       log,
		clock:     SystemClock(),
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create files an amendment. An edit targets an existing event and
// inherits its calendar; a new-event insertion attaches to the most
// recently approved calendar. The payload is validated now so review never
// trips over a malformed change set.
func (s *AmendmentService) Create(ctx context.Context, req dto.CreateAmendmentRequest, actor models.Actor) (*models.Amendment, error) {
	if !actor.IsGS() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the General Secretary may file amendments")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an amendment reason is required")
	}
	if len(req.ProposedChanges) == 0 || !json.Valid(req.ProposedChanges) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposedChanges must be valid JSON")
	}

	amendment := &models.Amendment{
		Type:            req.Type,
		ProposedChanges: append(json.RawMessage(nil), req.ProposedChanges...),
		Reason:          reason,
		RequestedBy:     actor.ID,
	}

	switch req.Type {
	case models.AmendmentTypeEdit:
		if req.EventID == nil || strings.TrimSpace(*req.EventID) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "eventId is required for edit amendments")
		}
		event, err := s.events.GetByID(ctx, *req.EventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
		}
		if event.CalendarID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "event does not belong to a calendar")
		}
		var patch models.EventPatch
		if err := json.Unmarshal(req.ProposedChanges, &patch); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "proposedChanges does not describe an event edit")
		}
		amendment.EventID = &event.ID
		amendment.CalendarID = *event.CalendarID
	case models.AmendmentTypeNewEvent:
		if req.EventID != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "eventId must be absent for new-event amendments")
		}
		var draft dto.CalendarEventInput
		if err := json.Unmarshal(req.ProposedChanges, &draft); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "proposedChanges does not describe a new event")
		}
		if _, err := parseEventInputs([]dto.CalendarEventInput{draft}); err != nil {
			return nil, err
		}
		calendar, err := s.calendars.LatestApproved(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "no approved calendar exists to amend")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current calendar")
		}
		amendment.CalendarID = calendar.ID
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unsupported amendment type %q; valid types: EDIT, NEW_EVENT", req.Type))
	}

	amendment.RequestedAt = s.clock.Now()
	if err := s.repo.Create(ctx, amendment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create amendment")
	}
	s.emitLog(ctx, amendment.ID, string(actor.Role), models.ActionSubmitted, actor.ID, nil)
	s.countTransition(models.ActionSubmitted)
	return amendment, nil
}

// Review resolves a pending amendment. Approval applies the change
// immediately: an edit patches the target event, an insertion adds a fresh
// upcoming event under the resolved calendar. Rejection records only the
// decision.
func (s *AmendmentService) Review(ctx context.Context, id string, req dto.ReviewAmendmentRequest, actor models.Actor) (*models.Amendment, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may review amendments")
	}
	amendment, err := s.getAmendment(ctx, id)
	if err != nil {
		return nil, err
	}
	if amendment.Status != models.AmendmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "amendment already reviewed")
	}
	if req.Status != models.AmendmentStatusApproved && req.Status != models.AmendmentStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}

	if req.Status == models.AmendmentStatusApproved {
		if err := s.apply(ctx, amendment); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	comments := optionalComment(req.Comments)
	if err := s.repo.Review(ctx, id, req.Status, actor.ID, comments, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "amendment was reviewed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record review")
	}

	action := models.ActionApproved
	if req.Status == models.AmendmentStatusRejected {
		action = models.ActionRejected
	}
	s.emitLog(ctx, amendment.ID, string(actor.Role), action, actor.ID, comments)
	s.countTransition(action)

	amendment.Status = req.Status
	amendment.ReviewedBy = &actor.ID
	amendment.ReviewedAt = &now
	amendment.ReviewComments = comments
	return amendment, nil
}

// Get returns an amendment by identifier.
func (s *AmendmentService) Get(ctx context.Context, id string) (*models.Amendment, error) {
	return s.getAmendment(ctx, id)
}

// ListPending returns unreviewed amendments.
func (s *AmendmentService) ListPending(ctx context.Context) ([]models.Amendment, error) {
	amendments, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending amendments")
	}
	return amendments, nil
}

// ListByCalendar returns every amendment filed against a calendar.
func (s *AmendmentService) ListByCalendar(ctx context.Context, calendarID string) ([]models.Amendment, error) {
	amendments, err := s.repo.ListByCalendar(ctx, calendarID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar amendments")
	}
	return amendments, nil
}

func (s *AmendmentService) apply(ctx context.Context, amendment *models.Amendment) error {
	switch amendment.Type {
	case models.AmendmentTypeEdit:
		var patch models.EventPatch
		if err := json.Unmarshal(amendment.ProposedChanges, &patch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored amendment payload is corrupt")
		}
		if amendment.EventID == nil {
			return appErrors.Clone(appErrors.ErrInternal, "edit amendment has no target event")
		}
		if err := s.events.ApplyPatch(ctx, *amendment.EventID, patch); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "target event no longer exists")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to patch event")
		}
		return nil
	case models.AmendmentTypeNewEvent:
		var draft dto.CalendarEventInput
		if err := json.Unmarshal(amendment.ProposedChanges, &draft); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored amendment payload is corrupt")
		}
		drafts, err := parseEventInputs([]dto.CalendarEventInput{draft})
		if err != nil {
			return err
		}
		d := drafts[0]
		due := startOfDay(d.StartDate).AddDate(0, 0, -models.ProposalDueLeadDays)
		calID := amendment.CalendarID
		event := &models.Event{
			CalendarID:         &calID,
			Title:              d.Title,
			Category:           d.Category,
			ScheduledStartDate: d.StartDate,
			ScheduledEndDate:   d.EndDate,
			EstimatedBudget:    d.EstimatedBudget,
			Description:        d.Description,
			Status:             models.EventStatusUpcoming,
			ProposalDueDate:    &due,
		}
		if err := s.events.Create(ctx, event); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert amended event")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unsupported amendment type %q", amendment.Type))
	}
}

func (s *AmendmentService) getAmendment(ctx context.Context, id string) (*models.Amendment, error) {
	amendment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load amendment")
	}
	return amendment, nil
}

func (s *AmendmentService) emitLog(ctx context.Context, amendmentID, stage string, action models.ApprovalAction, performedBy string, comments *string) {
	if s.log == nil {
		return
	}
	entry := &models.ApprovalLog{
		EntityKind:  models.EntityKindAmendment,
		EntityID:    amendmentID,
		Stage:       stage,
		Action:      action,
		PerformedBy: performedBy,
		Comments:    comments,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.log.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to persist approval log entry",
			zap.String("entity_id", amendmentID), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *AmendmentService) countTransition(action models.ApprovalAction) {
	if s.metrics != nil {
		s.metrics.CountWorkflowTransition(models.EntityKindAmendment, action)
	}
}
