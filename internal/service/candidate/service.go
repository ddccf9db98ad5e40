package candidate

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/telemetry"
)

const defaultFanOut = 8

// ScheduleChecker answers whether an interval fits a worker's schedule.
type ScheduleChecker interface {
	IsWithinSchedule(ctx context.Context, workerID uuid.UUID, date time.Time, startMinute, durationMinutes int) (bool, error)
}

// ConflictChecker answers whether an interval collides with a worker's bookings.
type ConflictChecker interface {
	HasConflict(ctx context.Context, workerID uuid.UUID, date time.Time, startMinute, durationMinutes int, exclude *uuid.UUID) (bool, error)
}

type Service struct {
	catalog   repository.ServiceCatalog
	directory repository.WorkerDirectory
	schedule  ScheduleChecker
	conflicts ConflictChecker
	fanOut    int
	metrics   *metrics.Metrics
	log       *logger.Logger
}

type Config struct {
	// FanOut bounds how many workers are checked concurrently.
	FanOut int
}

func NewService(
	catalog repository.ServiceCatalog,
	directory repository.WorkerDirectory,
	schedule ScheduleChecker,
	conflicts ConflictChecker,
	cfg Config,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if cfg.FanOut <= 0 {
		cfg.FanOut = defaultFanOut
	}
	return &Service{
		catalog:   catalog,
		directory: directory,
		schedule:  schedule,
		conflicts: conflicts,
		fanOut:    cfg.FanOut,
		metrics:   m,
		log:       log.With("candidate"),
	}
}

// FindCandidates returns the ids, in ascending order, of every worker who
// offers serviceID, is marked available, has the interval inside their
// schedule and has no overlapping booking. An empty result is not an error.
func (s *Service) FindCandidates(ctx context.Context, serviceID uuid.UUID, date time.Time, startMinute, durationMinutes int) (_ []uuid.UUID, err error) {
	span, err := interval.New(date, startMinute, durationMinutes)
	if err != nil {
		return nil, err
	}

	ctx, tspan := telemetry.StartSpan(ctx, "candidate.FindCandidates")
	tspan.SetAttributes(
		attribute.String("service_id", serviceID.String()),
		attribute.String("interval", span.String()),
	)
	defer func() {
		telemetry.RecordError(tspan, err)
		tspan.End()
	}()
	started := time.Now()

	service, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if !service.Active {
		s.log.Debug("service inactive, no candidates", "service_id", serviceID.String())
		return []uuid.UUID{}, nil
	}

	workers, err := s.directory.ListByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	var (
		mu       sync.Mutex
		eligible = make([]uuid.UUID, 0, len(workers))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for _, w := range workers {
		if !w.IsAvailable || !w.OffersService(serviceID) {
			continue
		}
		w := w
		g.Go(func() error {
			ok, err := s.fits(gctx, w, date, startMinute, durationMinutes)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			eligible = append(eligible, w.ID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortIDs(eligible)
	if s.metrics != nil {
		s.metrics.CandidateLatency.Observe(time.Since(started).Seconds())
		s.metrics.CandidatesFound.Observe(float64(len(eligible)))
	}
	s.log.Debug("candidates resolved",
		"service_id", serviceID.String(),
		"interval", span.String(),
		"considered", len(workers),
		"eligible", len(eligible))
	return eligible, nil
}

// Eligible runs the same checks as FindCandidates for a single worker.
func (s *Service) Eligible(ctx context.Context, workerID, serviceID uuid.UUID, date time.Time, startMinute, durationMinutes int) (bool, error) {
	if _, err := interval.New(date, startMinute, durationMinutes); err != nil {
		return false, err
	}
	service, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return false, fmt.Errorf("failed to load service: %w", err)
	}
	if !service.Active {
		return false, nil
	}
	w, err := s.directory.GetWorkerProfile(ctx, workerID)
	if err != nil {
		return false, fmt.Errorf("failed to load worker: %w", err)
	}
	if !w.IsAvailable || !w.OffersService(serviceID) {
		return false, nil
	}
	return s.fits(ctx, w, date, startMinute, durationMinutes)
}

func (s *Service) fits(ctx context.Context, w *model.WorkerProfile, date time.Time, startMinute, durationMinutes int) (bool, error) {
	ok, err := s.schedule.IsWithinSchedule(ctx, w.ID, date, startMinute, durationMinutes)
	if err != nil {
		return false, fmt.Errorf("schedule check for worker %s: %w", w.ID, err)
	}
	if !ok {
		return false, nil
	}
	busy, err := s.conflicts.HasConflict(ctx, w.ID, date, startMinute, durationMinutes, nil)
	if err != nil {
		return false, fmt.Errorf("conflict check for worker %s: %w", w.ID, err)
	}
	return !busy, nil
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}
