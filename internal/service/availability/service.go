package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

type Service struct {
	repo      repository.AvailabilityRepository
	validator validator.Validator
	log       *logger.Logger
}

func NewService(repo repository.AvailabilityRepository, v validator.Validator, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: v,
		log:       log.With("availability"),
	}
}

// IsWithinSchedule reports whether [start, start+duration) on date fits
// entirely inside one of the worker's effective windows for that date.
func (s *Service) IsWithinSchedule(ctx context.Context, workerID uuid.UUID, date time.Time, startMinute, durationMinutes int) (bool, error) {
	span, err := interval.New(date, startMinute, durationMinutes)
	if err != nil {
		return false, err
	}

	windows, err := s.DaySchedule(ctx, workerID, date)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.Contains(span) {
			return true, nil
		}
	}
	return false, nil
}

// DaySchedule returns the worker's effective windows for date, ordered by
// start: the active weekly slots for the weekday with the date's overrides
// applied. Windows are not merged.
func (s *Service) DaySchedule(ctx context.Context, workerID uuid.UUID, date time.Time) ([]interval.Interval, error) {
	day := interval.FormatDate(date)

	slots, err := s.repo.ListSlots(ctx, workerID, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly slots: %w", err)
	}
	overrides, err := s.repo.ListOverrides(ctx, workerID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}

	windows := make([]interval.Interval, 0, len(slots))
	for _, slot := range slots {
		windows = append(windows, interval.Interval{Date: day, Start: slot.StartMinute, End: slot.EndMinute})
	}

	for _, o := range overrides {
		if o.Available && o.HasBounds() {
			windows = append(windows, interval.Interval{Date: day, Start: *o.StartMinute, End: *o.EndMinute})
		}
	}
	for _, o := range overrides {
		if o.Available {
			continue
		}
		if !o.HasBounds() {
			return []interval.Interval{}, nil
		}
		blocked := interval.Interval{Date: day, Start: *o.StartMinute, End: *o.EndMinute}
		var remaining []interval.Interval
		for _, w := range windows {
			remaining = append(remaining, w.Subtract(blocked)...)
		}
		windows = remaining
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Start != windows[j].Start {
			return windows[i].Start < windows[j].Start
		}
		return windows[i].End < windows[j].End
	})
	if windows == nil {
		windows = []interval.Interval{}
	}
	return windows, nil
}

func (s *Service) WeeklySlots(ctx context.Context, workerID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	return s.repo.ListAllSlots(ctx, workerID)
}

// ReplaceWeeklySlots validates and stores the worker's full weekly schedule.
func (s *Service) ReplaceWeeklySlots(ctx context.Context, workerID uuid.UUID, slots []*model.AvailabilitySlot) error {
	for _, slot := range slots {
		if err := s.validator.Validate(slot); err != nil {
			return err
		}
		if _, err := interval.FromBounds("", slot.StartMinute, slot.EndMinute); err != nil {
			return err
		}
	}
	if err := checkOverlaps(slots); err != nil {
		return err
	}

	if err := s.repo.ReplaceSlots(ctx, workerID, slots); err != nil {
		return fmt.Errorf("failed to replace slots: %w", err)
	}
	s.log.Info("weekly schedule replaced", "worker_id", workerID.String(), "slots", len(slots))
	return nil
}

func checkOverlaps(slots []*model.AvailabilitySlot) error {
	byDay := make(map[int][]*model.AvailabilitySlot)
	for _, slot := range slots {
		if slot.Active {
			byDay[slot.DayOfWeek] = append(byDay[slot.DayOfWeek], slot)
		}
	}
	for day, daySlots := range byDay {
		sort.Slice(daySlots, func(i, j int) bool { return daySlots[i].StartMinute < daySlots[j].StartMinute })
		for i := 1; i < len(daySlots); i++ {
			prev, cur := daySlots[i-1], daySlots[i]
			if interval.Overlap(prev.StartMinute, prev.EndMinute, cur.StartMinute, cur.EndMinute) {
				return apperrors.OverlappingSlots("%s %s-%s and %s-%s",
					time.Weekday(day),
					interval.FormatClock(prev.StartMinute), interval.FormatClock(prev.EndMinute),
					interval.FormatClock(cur.StartMinute), interval.FormatClock(cur.EndMinute))
			}
		}
	}
	return nil
}

// AddOverride records a one-off change to a worker's schedule for a date.
func (s *Service) AddOverride(ctx context.Context, override *model.AvailabilityOverride) error {
	if err := s.validator.Validate(override); err != nil {
		return err
	}
	if (override.StartMinute == nil) != (override.EndMinute == nil) {
		return apperrors.BadRequest("override needs both start and end, or neither", nil)
	}
	if override.Available && !override.HasBounds() {
		return apperrors.BadRequest("an available override needs start and end", nil)
	}
	if override.HasBounds() {
		if _, err := interval.FromBounds(override.Date, *override.StartMinute, *override.EndMinute); err != nil {
			return err
		}
	}

	if err := s.repo.CreateOverride(ctx, override); err != nil {
		return fmt.Errorf("failed to create override: %w", err)
	}
	s.log.Info("availability override added",
		"worker_id", override.WorkerID.String(),
		"date", override.Date,
		"available", override.Available)
	return nil
}
