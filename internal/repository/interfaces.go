package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// ConflictGuard inspects a worker's occupying bookings for a date while the
// worker's booking set is locked. A non-nil error aborts the transaction.
type ConflictGuard func(existing []*model.Booking) error

// All repository interfaces in one file
type (
	// ServiceCatalog is the read side the engine consumes.
	ServiceCatalog interface {
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
	}

	ServiceRepository interface {
		ServiceCatalog
		CreateService(ctx context.Context, service *model.Service) error
		ListServices(ctx context.Context) ([]*model.Service, error)
	}

	// WorkerDirectory is the read side the engine consumes.
	WorkerDirectory interface {
		GetWorkerProfile(ctx context.Context, id uuid.UUID) (*model.WorkerProfile, error)
		// ListByService returns every worker whose assigned set contains
		// serviceID, available or not.
		ListByService(ctx context.Context, serviceID uuid.UUID) ([]*model.WorkerProfile, error)
	}

	WorkerRepository interface {
		WorkerDirectory
		CreateWorker(ctx context.Context, worker *model.WorkerProfile) error
		SetServices(ctx context.Context, workerID uuid.UUID, serviceIDs []uuid.UUID) error
		SetAvailable(ctx context.Context, workerID uuid.UUID, available bool) error
	}

	AvailabilityRepository interface {
		// ListSlots returns the worker's active slots for a weekday.
		ListSlots(ctx context.Context, workerID uuid.UUID, dayOfWeek int) ([]*model.AvailabilitySlot, error)
		ListAllSlots(ctx context.Context, workerID uuid.UUID) ([]*model.AvailabilitySlot, error)
		ListOverrides(ctx context.Context, workerID uuid.UUID, date string) ([]*model.AvailabilityOverride, error)
		// ReplaceSlots swaps the worker's weekly schedule atomically.
		ReplaceSlots(ctx context.Context, workerID uuid.UUID, slots []*model.AvailabilitySlot) error
		CreateOverride(ctx context.Context, override *model.AvailabilityOverride) error
	}

	BookingRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		// ListOccupying returns bookings in pending, confirmed or in_progress
		// for the worker on date.
		ListOccupying(ctx context.Context, workerID uuid.UUID, date string) ([]*model.Booking, error)
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error)
		// Commit locks the worker's booking set, runs guard against the
		// occupying bookings on the booking's date and inserts booking and
		// event in one transaction.
		Commit(ctx context.Context, booking *model.Booking, event *model.OutboxEvent, guard ConflictGuard) error
		// Reschedule moves booking under the same lock, requiring the stored
		// version to equal expectedVersion.
		Reschedule(ctx context.Context, booking *model.Booking, expectedVersion int, event *model.OutboxEvent, guard ConflictGuard) error
		// UpdateStatus moves a booking from one status to another with
		// optimistic versioning.
		UpdateStatus(ctx context.Context, booking *model.Booking, from model.BookingStatus, expectedVersion int, event *model.OutboxEvent) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		ClaimPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
