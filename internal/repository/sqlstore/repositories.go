package sqlstore

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-engine/internal/repository"
)

// Repositories bundles every store the engine needs over one connection.
type Repositories struct {
	Services     repository.ServiceRepository
	Workers      repository.WorkerRepository
	Availability repository.AvailabilityRepository
	Bookings     repository.BookingRepository
	Outbox       repository.OutboxRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	base := NewBaseRepository(db)
	return &Repositories{
		Services:     NewServiceRepository(base),
		Workers:      NewWorkerRepository(base),
		Availability: NewAvailabilityRepository(base),
		Bookings:     NewBookingRepository(base),
		Outbox:       NewOutboxRepository(base),
	}
}
