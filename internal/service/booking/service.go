package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwalitptl/booking-engine/internal/config"
	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/conflict"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/telemetry"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

const (
	// maxAttempts is the first try plus one re-resolution after a lost race.
	maxAttempts     = 2
	defaultSlotStep = 15
)

type CandidateFinder interface {
	FindCandidates(ctx context.Context, serviceID uuid.UUID, date time.Time, startMinute, durationMinutes int) ([]uuid.UUID, error)
	Eligible(ctx context.Context, workerID, serviceID uuid.UUID, date time.Time, startMinute, durationMinutes int) (bool, error)
}

type Selector interface {
	SelectBest(ctx context.Context, candidates []uuid.UUID, serviceID uuid.UUID) (uuid.UUID, bool, error)
}

type Schedule interface {
	IsWithinSchedule(ctx context.Context, workerID uuid.UUID, date time.Time, startMinute, durationMinutes int) (bool, error)
	DaySchedule(ctx context.Context, workerID uuid.UUID, date time.Time) ([]interval.Interval, error)
}

type Config struct {
	AssignmentMode config.AssignmentMode
	// SlotStep is the spacing in minutes between offered start times.
	SlotStep int
}

type Service struct {
	repo       repository.BookingRepository
	catalog    repository.ServiceCatalog
	directory  repository.WorkerDirectory
	candidates CandidateFinder
	selector   Selector
	schedule   Schedule
	validator  validator.Validator
	cfg        Config
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
}

func NewService(
	repo repository.BookingRepository,
	catalog repository.ServiceCatalog,
	directory repository.WorkerDirectory,
	candidates CandidateFinder,
	selector Selector,
	schedule Schedule,
	v validator.Validator,
	cfg Config,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if cfg.AssignmentMode == "" {
		cfg.AssignmentMode = config.AssignmentAutomatic
	}
	if cfg.SlotStep <= 0 {
		cfg.SlotStep = defaultSlotStep
	}
	return &Service{
		repo:       repo,
		catalog:    catalog,
		directory:  directory,
		candidates: candidates,
		selector:   selector,
		schedule:   schedule,
		validator:  v,
		cfg:        cfg,
		metrics:    m,
		log:        log.With("booking"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CommitBooking re-checks the draft's interval against the worker's
// occupying bookings while the worker is locked, and stores it as pending
// together with a booking.created event. A booking that appeared since the
// caller's checks yields SlotNoLongerAvailable and nothing is written.
func (s *Service) CommitBooking(ctx context.Context, draft *model.BookingDraft) (uuid.UUID, error) {
	b, err := s.commit(ctx, draft)
	if err != nil {
		return uuid.Nil, err
	}
	return b.ID, nil
}

func (s *Service) commit(ctx context.Context, draft *model.BookingDraft) (b *model.Booking, err error) {
	span, err := interval.New(draft.Date, draft.StartMinute, draft.DurationMinutes)
	if err != nil {
		s.recordCommit(metrics.OutcomeRejected)
		return nil, err
	}
	if err := s.validator.Validate(draft); err != nil {
		s.recordCommit(metrics.OutcomeRejected)
		return nil, err
	}

	ctx, tspan := telemetry.StartSpan(ctx, "booking.CommitBooking")
	tspan.SetAttributes(
		attribute.String("worker_id", draft.WorkerID.String()),
		attribute.String("interval", span.String()),
	)
	started := time.Now()
	defer func() {
		telemetry.RecordError(tspan, err)
		tspan.End()
		if s.metrics != nil {
			s.metrics.CommitLatency.Observe(time.Since(started).Seconds())
		}
	}()

	service, err := s.catalog.GetService(ctx, draft.ServiceID)
	if err != nil {
		s.recordCommit(outcomeFor(err))
		return nil, fmt.Errorf("failed to load service: %w", err)
	}

	now := s.now()
	workerID := draft.WorkerID
	b = &model.Booking{
		WorkerID:        &workerID,
		ServiceID:       service.ID,
		Date:            span.Date,
		StartMinute:     span.Start,
		DurationMinutes: span.Duration(),
		EndMinute:       span.End,
		Status:          model.BookingStatusPending,
		ClientContact:   draft.Client,
		ServiceSnapshot: model.ServiceSnapshot{
			ServiceName:     service.Name,
			ServiceDuration: service.Duration,
			ServicePrice:    service.Price,
		},
		Cost:    service.Price,
		Notes:   draft.Notes,
		Version: 1,
	}
	b.Touch(now)

	event, err := model.NewOutboxEvent(model.EventBookingCreated, model.NewBookingEvent(b, now), now)
	if err != nil {
		s.recordCommit(metrics.OutcomeError)
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.Commit(ctx, b, event, conflict.Guard(workerID, span, nil)); err != nil {
		s.recordCommit(outcomeFor(err))
		if apperrors.HasCode(err, apperrors.ErrSlotNoLongerAvailable) {
			s.log.Info("commit lost race", "worker_id", workerID.String(), "interval", span.String())
		}
		return nil, err
	}

	s.recordCommit(metrics.OutcomeCommitted)
	s.log.Info("booking committed",
		"booking_id", b.ID.String(),
		"worker_id", workerID.String(),
		"interval", span.String())
	return b, nil
}

// Book resolves, ranks and commits a worker for req. A commit that loses a
// race is re-resolved once; a second loss surfaces SlotNoLongerAvailable.
// A request naming its worker skips ranking and is not retried.
// In manual assignment mode the eligible workers are returned unassigned.
func (s *Service) Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	if _, err := interval.New(req.Date, req.StartMinute, req.DurationMinutes); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result := &model.BookingResult{Attempts: attempt}

		var workerID uuid.UUID
		if req.WorkerID != nil {
			ok, err := s.candidates.Eligible(ctx, *req.WorkerID, req.ServiceID, req.Date, req.StartMinute, req.DurationMinutes)
			if err != nil {
				return nil, err
			}
			if !ok {
				result.Outcome = model.OutcomeNoEligibleWorker
				result.Candidates = []uuid.UUID{}
				return result, nil
			}
			workerID = *req.WorkerID
			result.Candidates = []uuid.UUID{workerID}
		} else {
			ids, err := s.candidates.FindCandidates(ctx, req.ServiceID, req.Date, req.StartMinute, req.DurationMinutes)
			if err != nil {
				return nil, err
			}
			result.Candidates = ids
			if len(ids) == 0 {
				result.Outcome = model.OutcomeNoEligibleWorker
				return result, nil
			}
			if s.cfg.AssignmentMode == config.AssignmentManual {
				result.Outcome = model.OutcomeManualAssignment
				return result, nil
			}
			best, found, err := s.selector.SelectBest(ctx, ids, req.ServiceID)
			if err != nil {
				return nil, err
			}
			if !found {
				result.Outcome = model.OutcomeNoEligibleWorker
				return result, nil
			}
			workerID = best
		}

		b, err := s.commit(ctx, req.Draft(workerID))
		if err == nil {
			result.Outcome = model.OutcomeBooked
			result.Booking = b
			return result, nil
		}
		// A pinned worker has nobody to fall back to.
		if !apperrors.HasCode(err, apperrors.ErrSlotNoLongerAvailable) || req.WorkerID != nil {
			return nil, err
		}
		lastErr = err
		if attempt < maxAttempts && s.metrics != nil {
			s.metrics.BookingRetries.Inc()
		}
	}
	return nil, lastErr
}

// Reschedule moves an occupying booking to a new date and start, keeping its
// duration. The new interval must fit the worker's schedule and may overlap
// only the booking itself.
func (s *Service) Reschedule(ctx context.Context, bookingID uuid.UUID, date time.Time, startMinute, expectedVersion int) (*model.Booking, error) {
	b, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Version != expectedVersion {
		return nil, apperrors.VersionConflict("booking", bookingID)
	}
	if !b.Status.IsOccupying() {
		return nil, apperrors.InvalidTransition(string(b.Status), "rescheduled")
	}
	if b.WorkerID == nil {
		return nil, apperrors.BadRequest("booking has no worker to reschedule", nil)
	}

	span, err := interval.New(date, startMinute, b.DurationMinutes)
	if err != nil {
		return nil, err
	}
	ok, err := s.schedule.IsWithinSchedule(ctx, *b.WorkerID, date, startMinute, b.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("%s is outside the worker's schedule", span), nil)
	}

	now := s.now()
	b.Date = span.Date
	b.StartMinute = span.Start
	b.EndMinute = span.End
	b.Version = expectedVersion + 1
	b.UpdatedAt = now

	event, err := model.NewOutboxEvent(model.EventBookingRescheduled, model.NewBookingEvent(b, now), now)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.Reschedule(ctx, b, expectedVersion, event, conflict.Guard(*b.WorkerID, span, &b.ID)); err != nil {
		return nil, err
	}

	s.log.Info("booking rescheduled", "booking_id", b.ID.String(), "interval", span.String())
	return b, nil
}

// Transition moves a booking along its lifecycle. reason is kept only for
// cancellations.
func (s *Service) Transition(ctx context.Context, bookingID uuid.UUID, to model.BookingStatus, expectedVersion int, reason string) (*model.Booking, error) {
	if !to.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown booking status %q", to), nil)
	}
	b, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Version != expectedVersion {
		return nil, apperrors.VersionConflict("booking", bookingID)
	}
	if !b.Status.CanTransitionTo(to) {
		return nil, apperrors.InvalidTransition(string(b.Status), string(to))
	}

	from := b.Status
	now := s.now()
	b.Status = to
	b.Version = expectedVersion + 1
	b.UpdatedAt = now
	if to == model.BookingStatusCancelled && reason != "" {
		b.CancelReason = &reason
	}

	event, err := model.NewOutboxEvent(model.StatusEventType(to), model.NewBookingEvent(b, now), now)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.UpdateStatus(ctx, b, from, expectedVersion, event); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	}
	s.log.Info("booking transitioned",
		"booking_id", b.ID.String(),
		"from", string(from),
		"to", string(to))
	return b, nil
}

func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	return s.repo.Get(ctx, bookingID)
}

func (s *Service) ListForWorker(ctx context.Context, workerID uuid.UUID, date time.Time) ([]*model.Booking, error) {
	filters := &model.BookingFilters{WorkerID: &workerID}
	if !date.IsZero() {
		filters.Date = interval.FormatDate(date)
	}
	return s.repo.List(ctx, filters)
}

// AvailableStarts lists the starts on date, SlotStep minutes apart from the
// opening of each window, at which the worker could take serviceID without
// leaving the schedule or overlapping an occupying booking. The list is empty
// when the service is inactive or the worker is unavailable or does not offer
// it.
func (s *Service) AvailableStarts(ctx context.Context, workerID, serviceID uuid.UUID, date time.Time) ([]model.OpenSlot, error) {
	open := []model.OpenSlot{}

	service, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	profile, err := s.directory.GetWorkerProfile(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load worker: %w", err)
	}
	if !service.Active || !profile.IsAvailable || !profile.OffersService(serviceID) {
		return open, nil
	}
	windows, err := s.schedule.DaySchedule(ctx, workerID, date)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListOccupying(ctx, workerID, interval.FormatDate(date))
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	for _, w := range windows {
		for start := w.Start; start+service.Duration <= w.End; start += s.cfg.SlotStep {
			if _, dup := seen[start]; dup {
				continue
			}
			candidate := interval.Interval{Date: w.Date, Start: start, End: start + service.Duration}
			if len(conflict.Detect(existing, candidate, nil)) > 0 {
				continue
			}
			seen[start] = struct{}{}
			open = append(open, model.OpenSlot{
				Start:       interval.FormatClock(candidate.Start),
				End:         interval.FormatClock(candidate.End),
				StartMinute: candidate.Start,
				EndMinute:   candidate.End,
			})
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].StartMinute < open[j].StartMinute })
	return open, nil
}

func (s *Service) recordCommit(outcome string) {
	if s.metrics != nil {
		s.metrics.CommitOutcomes.WithLabelValues(outcome).Inc()
	}
}

func outcomeFor(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrSlotNoLongerAvailable:
		return metrics.OutcomeLostRace
	case apperrors.ErrNotFound, apperrors.ErrBadRequest, apperrors.ErrInvalidInterval:
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
