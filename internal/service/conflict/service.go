package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

// BookingReader is the slice of the booking store the checker reads.
type BookingReader interface {
	ListOccupying(ctx context.Context, workerID uuid.UUID, date string) ([]*model.Booking, error)
}

type Service struct {
	bookings BookingReader
	metrics  *metrics.Metrics
}

func NewService(bookings BookingReader, m *metrics.Metrics) *Service {
	return &Service{bookings: bookings, metrics: m}
}

// HasConflict reports whether any occupying booking of the worker overlaps
// [start, start+duration) on date. The booking named by exclude is ignored.
func (s *Service) HasConflict(ctx context.Context, workerID uuid.UUID, date time.Time, startMinute, durationMinutes int, exclude *uuid.UUID) (bool, error) {
	conflicts, err := s.Conflicts(ctx, workerID, date, startMinute, durationMinutes, exclude)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// Conflicts returns the occupying bookings that overlap the interval.
func (s *Service) Conflicts(ctx context.Context, workerID uuid.UUID, date time.Time, startMinute, durationMinutes int, exclude *uuid.UUID) ([]*model.Booking, error) {
	candidate, err := interval.New(date, startMinute, durationMinutes)
	if err != nil {
		return nil, err
	}

	existing, err := s.bookings.ListOccupying(ctx, workerID, candidate.Date)
	if err != nil {
		s.record("error")
		if apperrors.HasCode(err, apperrors.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, apperrors.StoreUnavailable("list occupying bookings", err)
	}

	conflicts := Detect(existing, candidate, exclude)
	if len(conflicts) > 0 {
		s.record("conflict")
	} else {
		s.record("clear")
	}
	return conflicts, nil
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.ConflictChecks.WithLabelValues(result).Inc()
	}
}

// Detect returns the bookings that hold the worker's time and overlap
// candidate, skipping exclude.
func Detect(bookings []*model.Booking, candidate interval.Interval, exclude *uuid.UUID) []*model.Booking {
	var out []*model.Booking
	for _, b := range bookings {
		if !b.Status.IsOccupying() {
			continue
		}
		if exclude != nil && b.ID == *exclude {
			continue
		}
		if b.Span().Overlaps(candidate) {
			out = append(out, b)
		}
	}
	return out
}

// Guard builds the check a booking commit runs while the worker is locked.
func Guard(workerID uuid.UUID, candidate interval.Interval, exclude *uuid.UUID) repository.ConflictGuard {
	return func(existing []*model.Booking) error {
		if clash := Detect(existing, candidate, exclude); len(clash) > 0 {
			err := apperrors.SlotNoLongerAvailable(workerID)
			err.Err = fmt.Errorf("overlaps booking %s at %s", clash[0].ID, clash[0].Span())
			return err
		}
		return nil
	}
}
