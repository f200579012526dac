package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	"github.com/noah-isme/gymkhana-api/internal/repository"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
)

type calendarStore interface {
	Create(ctx context.Context, calendar *models.Calendar) error
	GetByID(ctx context.Context, id string) (*models.Calendar, error)
	GetByYear(ctx context.Context, academicYear string) (*models.Calendar, error)
	LatestApproved(ctx context.Context) (*models.Calendar, error)
	List(ctx context.Context, filter models.CalendarFilter) ([]models.Calendar, error)
	UpdateDraft(ctx context.Context, params repository.UpdateCalendarDraftParams) error
	SetLocked(ctx context.Context, id string, locked bool) error
	UpdateWorkflow(ctx context.Context, params repository.CalendarWorkflowUpdate) error
}

type eventWriter interface {
	CreateBatch(ctx context.Context, events []*models.Event) error
}

type approvalLogStore interface {
	Create(ctx context.Context, entry *models.ApprovalLog) error
	List(ctx context.Context, filter models.ApprovalLogFilter) ([]models.ApprovalLog, error)
}

// CalendarService orchestrates the annual calendar workflow: drafting,
// submission, the multi-stage approval chain and event materialization.
type CalendarService struct {
	repo    calendarStore
	events  eventWriter
	log     approvalLogStore
	clock   Clock
	logger  *zap.Logger
	metrics *MetricsService
	cache   *CacheService
}

// CalendarServiceOption configures the service.
type CalendarServiceOption func(*CalendarService)

// WithCalendarClock overrides the wall clock.
func WithCalendarClock(clock Clock) CalendarServiceOption {
	return func(s *CalendarService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCalendarMetrics attaches workflow transition counters.
func WithCalendarMetrics(metrics *MetricsService) CalendarServiceOption {
	return func(s *CalendarService) { s.metrics = metrics }
}

// WithCalendarCache enables read-side caching of calendar lookups. Every
// successful write invalidates the whole calendar keyspace.
func WithCalendarCache(cache *CacheService) CalendarServiceOption {
	return func(s *CalendarService) { s.cache = cache }
}

// NewCalendarService constructs the service with defaults.
func NewCalendarService(repo calendarStore, events eventWriter, log approvalLogStore, logger *zap.Logger, opts ...CalendarServiceOption) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CalendarService{
		repo:   repo,
		events: events,
		log:    log,
		clock:  SystemClock(),
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create drafts a new annual calendar. One calendar exists per academic
// year; a duplicate year is a validation failure.
func (s *CalendarService) Create(ctx context.Context, req dto.CreateCalendarRequest, actor models.Actor) (*models.Calendar, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may create a calendar")
	}
	year := strings.TrimSpace(req.AcademicYear)
	if !validAcademicYear(year) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			"academicYear must be consecutive years in YYYY-YY form, e.g. 2025-26")
	}
	if existing, err := s.repo.GetByYear(ctx, year); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("a calendar for academic year %s already exists", year))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing calendar")
	}
	events, err := parseEventInputs(req.Events)
	if err != nil {
		return nil, err
	}
	calendar := &models.Calendar{
		AcademicYear: year,
		Status:       models.StatusDraft,
		Events:       events,
		CreatedBy:    actor.ID,
	}
	if err := s.repo.Create(ctx, calendar); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar")
	}
	s.invalidateCache(ctx)
	return calendar, nil
}

// Update replaces the embedded event list. The General Secretary edits
// drafts and rejected calendars; the President additionally retains a
// legacy edit window while the calendar sits at the President stage.
// Editing a rejected calendar resets it to draft and clears the rejection
// record.
func (s *CalendarService) Update(ctx context.Context, id string, req dto.UpdateCalendarRequest, actor models.Actor) (*models.Calendar, error) {
	calendar, err := s.getCalendar(ctx, id)
	if err != nil {
		return nil, err
	}
	if calendar.IsLocked {
		return nil, appErrors.ErrCalendarLocked
	}
	if !calendarEditAllowed(calendar.Status, actor) {
		if actor.IsGS() || actor.IsPresident() || actor.IsAdmin() {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("calendar in status %s cannot be edited", calendar.Status))
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only Gymkhana office bearers may edit a calendar")
	}
	events, err := parseEventInputs(req.Events)
	if err != nil {
		return nil, err
	}
	// A President edit at the pending stage is in place; rejected drafts
	// reset to draft.
	next := calendar.Status
	if calendar.Status == models.StatusRejected {
		next = models.StatusDraft
	}
	params := repository.UpdateCalendarDraftParams{
		ID:             calendar.ID,
		ExpectStatus:   calendar.Status,
		Events:         events,
		Status:         next,
		ClearRejection: calendar.Status == models.StatusRejected,
	}
	if err := s.repo.UpdateDraft(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "calendar changed concurrently, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update calendar")
	}
	s.invalidateCache(ctx)
	calendar.Events = events
	calendar.Status = next
	calendar.RejectedBy = nil
	calendar.RejectedAt = nil
	calendar.RejectionReason = nil
	return calendar, nil
}

// calendarEditAllowed encodes the edit matrix: the General Secretary (and
// administrators) may edit drafts and rejected calendars, the President
// additionally while the calendar sits at the President stage.
func calendarEditAllowed(status models.WorkflowStatus, actor models.Actor) bool {
	switch {
	case actor.IsPresident():
		return status == models.StatusDraft || status == models.StatusRejected || status == models.StatusPendingPresident
	case actor.IsGS() || actor.IsAdmin():
		return status == models.StatusDraft || status == models.StatusRejected
	default:
		return false
	}
}

// Submit starts the approval workflow. Overlapping embedded events block
// submission unless the caller explicitly waives the check; the waiver
// never mutates state on the blocked path.
func (s *CalendarService) Submit(ctx context.Context, id string, req dto.SubmitCalendarRequest, actor models.Actor) (*models.Calendar, []models.DateConflict, error) {
	calendar, err := s.getCalendar(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	// An empty calendar is invalid regardless of who asks, so this check
	// precedes the role gate.
	if len(calendar.Events) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "cannot submit a calendar with no events")
	}
	if !actor.IsPresident() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only the Gymkhana President may submit a calendar")
	}
	if calendar.Status != models.StatusDraft {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("calendar in status %s cannot be submitted", calendar.Status))
	}
	if conflicts := FindDateConflicts(calendar.Events); len(conflicts) > 0 && !req.AllowOverlappingDates {
		return nil, conflicts, nil
	}

	// The President stage is submit-only for calendars; submission parks
	// the calendar directly with Student Affairs.
	now := s.clock.Now()
	next := models.StatusPendingStudentAffairs
	params := repository.CalendarWorkflowUpdate{
		ID:             calendar.ID,
		ExpectStatus:   models.StatusDraft,
		Status:         next,
		Stage:          approvalStageToken(next),
		SubmittedBy:    &actor.ID,
		SubmittedAt:    &now,
		ClearRejection: true,
	}
	if err := s.repo.UpdateWorkflow(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "calendar changed concurrently, reload and retry")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit calendar")
	}
	s.invalidateCache(ctx)
	calendar.Status = next
	calendar.CurrentApprovalStage = params.Stage
	calendar.SubmittedBy = &actor.ID
	calendar.SubmittedAt = &now
	s.emitLog(ctx, models.EntityKindCalendar, calendar.ID, string(models.RoleGymkhana), models.ActionSubmitted, actor.ID, nil)
	s.countTransition(models.EntityKindCalendar, models.ActionSubmitted)
	return calendar, nil, nil
}

// Approve advances the calendar one stage. The Student Affairs approver
// must select the onward chain; every other approver advances the existing
// route. Final approval materializes the embedded events.
func (s *CalendarService) Approve(ctx context.Context, id string, req dto.ApproveCalendarRequest, actor models.Actor) (*models.Calendar, error) {
	calendar, err := s.getCalendar(ctx, id)
	if err != nil {
		return nil, err
	}
	approver, pending := RequiredApprover(calendar.Status)
	if !pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "calendar is not pending approval")
	}
	if !approver.Matches(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("calendar at status %s awaits a different approver", calendar.Status))
	}

	var advance ChainAdvance
	if calendar.Status == models.StatusPendingStudentAffairs {
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
			Status: calendar.Status,
			Chain:  stagesFromStrings(calendar.CustomApprovalChain),
			Index:  calendar.CurrentChainIndex,
		})
		if err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	params := repository.CalendarWorkflowUpdate{
		ID:           calendar.ID,
		ExpectStatus: calendar.Status,
		Status:       advance.Status,
		Stage:        advance.Stage,
		Index:        advance.Index,
		Chain:        stagesToStrings(advance.Chain),
		ChainChanged: advance.ChainChanged,
	}
	if advance.Final {
		params.ApprovedAt = &now
	}
	if err := s.repo.UpdateWorkflow(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "calendar was approved or rejected concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record approval")
	}

	s.invalidateCache(ctx)
	stageLabel := string(actor.Role)
	s.emitLog(ctx, models.EntityKindCalendar, calendar.ID, stageLabel, models.ActionApproved, actor.ID, optionalComment(req.Comments))
	s.countTransition(models.EntityKindCalendar, models.ActionApproved)

	prev := calendar.Status
	calendar.Status = advance.Status
	calendar.CurrentApprovalStage = advance.Stage
	calendar.CurrentChainIndex = advance.Index
	if advance.ChainChanged {
		calendar.CustomApprovalChain = stagesToStrings(advance.Chain)
	}
	if advance.Final {
		calendar.ApprovedAt = &now
		if err := s.materialize(ctx, calendar); err != nil {
			s.logger.Error("event materialization failed after final approval",
				zap.String("calendar_id", calendar.ID), zap.String("from_status", string(prev)), zap.Error(err))
			return nil, err
		}
	}
	return calendar, nil
}

// Reject terminates the workflow at the current stage. The calendar drops
// back to an editable rejected state; a second rejection is a conflict.
func (s *CalendarService) Reject(ctx context.Context, id string, req dto.RejectCalendarRequest, actor models.Actor) (*models.Calendar, error) {
	calendar, err := s.getCalendar(ctx, id)
	if err != nil {
		return nil, err
	}
	approver, pending := RequiredApprover(calendar.Status)
	if !pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "calendar is not pending approval")
	}
	if !approver.Matches(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("calendar at status %s awaits a different approver", calendar.Status))
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}

	now := s.clock.Now()
	params := repository.CalendarWorkflowUpdate{
		ID:              calendar.ID,
		ExpectStatus:    calendar.Status,
		Status:          models.StatusRejected,
		RejectedBy:      &actor.ID,
		RejectedAt:      &now,
		RejectionReason: &reason,
	}
	if err := s.repo.UpdateWorkflow(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "calendar was approved or rejected concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record rejection")
	}
	s.invalidateCache(ctx)
	s.emitLog(ctx, models.EntityKindCalendar, calendar.ID, string(actor.Role), models.ActionRejected, actor.ID, &reason)
	s.countTransition(models.EntityKindCalendar, models.ActionRejected)

	calendar.Status = models.StatusRejected
	calendar.CurrentApprovalStage = nil
	calendar.CurrentChainIndex = nil
	calendar.RejectedBy = &actor.ID
	calendar.RejectedAt = &now
	calendar.RejectionReason = &reason
	return calendar, nil
}

// SetLocked toggles the business edit lock. Admin-only; a no-op toggle is
// reported as a conflict.
func (s *CalendarService) SetLocked(ctx context.Context, id string, locked bool, actor models.Actor) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may lock or unlock a calendar")
	}
	if err := s.repo.SetLocked(ctx, id, locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "calendar lock state unchanged")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change calendar lock")
	}
	s.invalidateCache(ctx)
	return nil
}

// Get returns a calendar by identifier.
func (s *CalendarService) Get(ctx context.Context, id string) (*models.Calendar, error) {
	return s.cachedCalendar(ctx, CalendarCacheKey(id), func() (*models.Calendar, error) {
		return s.getCalendar(ctx, id)
	})
}

// GetByYear returns the calendar for an academic year.
func (s *CalendarService) GetByYear(ctx context.Context, academicYear string) (*models.Calendar, error) {
	year := strings.TrimSpace(academicYear)
	return s.cachedCalendar(ctx, CalendarYearCacheKey(year), func() (*models.Calendar, error) {
		calendar, err := s.repo.GetByYear(ctx, year)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
		}
		return calendar, nil
	})
}

// Current returns the most recently approved calendar.
func (s *CalendarService) Current(ctx context.Context) (*models.Calendar, error) {
	return s.cachedCalendar(ctx, CalendarCurrentCacheKey, func() (*models.Calendar, error) {
		calendar, err := s.repo.LatestApproved(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no approved calendar exists yet")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current calendar")
		}
		return calendar, nil
	})
}

// cachedCalendar serves a lookup through the cache when one is attached.
func (s *CalendarService) cachedCalendar(ctx context.Context, key string, load func() (*models.Calendar, error)) (*models.Calendar, error) {
	if !s.cache.Enabled() {
		return load()
	}
	var cached models.Calendar
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	calendar, err := load()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, calendar, 0); err != nil {
		s.logger.Debug("calendar cache write skipped", zap.String("key", key), zap.Error(err))
	}
	return calendar, nil
}

// invalidateCache drops every cached calendar entry after a write.
func (s *CalendarService) invalidateCache(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, CalendarKeyspace); err != nil {
		s.logger.Warn("calendar cache invalidation failed", zap.Error(err))
	}
}

// List returns calendars matching the query.
func (s *CalendarService) List(ctx context.Context, query dto.CalendarQuery) ([]models.Calendar, error) {
	calendars, err := s.repo.List(ctx, models.CalendarFilter{
		Status:       query.Status,
		AcademicYear: query.AcademicYear,
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendars")
	}
	return calendars, nil
}

// History returns the chronological approval trail of a calendar.
func (s *CalendarService) History(ctx context.Context, id string) ([]models.ApprovalLog, error) {
	entries, err := s.log.List(ctx, models.ApprovalLogFilter{
		EntityKind: models.EntityKindCalendar,
		EntityID:   id,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval history")
	}
	return entries, nil
}

// materialize turns the embedded drafts into standalone event rows. The
// proposal due date is cached as the event start minus the lead window.
func (s *CalendarService) materialize(ctx context.Context, calendar *models.Calendar) error {
	events := make([]*models.Event, 0, len(calendar.Events))
	for _, draft := range calendar.Events {
		due := startOfDay(draft.StartDate).AddDate(0, 0, -models.ProposalDueLeadDays)
		calID := calendar.ID
		events = append(events, &models.Event{
			CalendarID:         &calID,
			Title:              draft.Title,
			Category:           draft.Category,
			ScheduledStartDate: startOfDay(draft.StartDate),
			ScheduledEndDate:   startOfDay(draft.EndDate),
			EstimatedBudget:    draft.EstimatedBudget,
			Description:        draft.Description,
			Status:             models.EventStatusUpcoming,
			ProposalDueDate:    &due,
		})
	}
	if err := s.events.CreateBatch(ctx, events); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to materialize calendar events")
	}
	return nil
}

// emitLog appends an audit entry. Log failures are reported but never fail
// the workflow transition they describe.
func (s *CalendarService) emitLog(ctx context.Context, kind models.EntityKind, entityID, stage string, action models.ApprovalAction, performedBy string, comments *string) {
	if s.log == nil {
		return
	}
	entry := &models.ApprovalLog{
		EntityKind:  kind,
		EntityID:    entityID,
		Stage:       stage,
		Action:      action,
		PerformedBy: performedBy,
		Comments:    comments,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.log.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to persist approval log entry",
			zap.String("entity_id", entityID), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *CalendarService) countTransition(kind models.EntityKind, action models.ApprovalAction) {
	if s.metrics != nil {
		s.metrics.CountWorkflowTransition(kind, action)
	}
}

// parseEventInputs validates and converts the embedded event payloads.
// Dates arrive as YYYY-MM-DD strings and are normalized to midnight UTC.
func parseEventInputs(inputs []dto.CalendarEventInput) (models.CalendarEvents, error) {
	events := make(models.CalendarEvents, 0, len(inputs))
	for i, input := range inputs {
		title := strings.TrimSpace(input.Title)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event %d: title is required", i+1))
		}
		start, err := parseDay(input.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event %d: invalid startDate %q", i+1, input.StartDate))
		}
		end, err := parseDay(input.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event %d: invalid endDate %q", i+1, input.EndDate))
		}
		if end.Before(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event %d: endDate precedes startDate", i+1))
		}
		if input.EstimatedBudget < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event %d: estimatedBudget cannot be negative", i+1))
		}
		events = append(events, models.CalendarEventDraft{
			Title:           title,
			Category:        strings.TrimSpace(input.Category),
			StartDate:       start,
			EndDate:         end,
			EstimatedBudget: input.EstimatedBudget,
			Description:     strings.TrimSpace(input.Description),
		})
	}
	return events, nil
}

func parseDay(value string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}

var academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// validAcademicYear accepts years like "2025-26": a four digit start year
// followed by the last two digits of the year after it.
func validAcademicYear(year string) bool {
	match := academicYearPattern.FindStringSubmatch(year)
	if match == nil {
		return false
	}
	start, err := strconv.Atoi(match[1])
	if err != nil {
		return false
	}
	suffix, err := strconv.Atoi(match[2])
	if err != nil {
		return false
	}
	return (start+1)%100 == suffix
}

func optionalComment(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *CalendarService) getCalendar(ctx context.Context, id string) (*models.Calendar, error) {
	calendar, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	return calendar, nil
}
