// Package testutil opens throwaway sqlite stores and seeds them for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/config"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository/sqlstore"
)

// NewDB returns a migrated sqlite database in a temp dir. A file is used
// rather than :memory: so the data survives connection recycling.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlstore.NewDB(config.DatabaseConfig{
		Driver: sqlstore.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "booking.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, sqlstore.Migrate(context.Background(), db))
	return db
}

// Store bundles a migrated database with its repositories.
type Store struct {
	DB *sqlx.DB
	*sqlstore.Repositories
}

func NewStore(t testing.TB) *Store {
	db := NewDB(t)
	return &Store{DB: db, Repositories: sqlstore.NewRepositories(db)}
}

// Monday is 2024-01-15, used as the reference weekday in fixtures.
var Monday = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func (s *Store) AddService(t testing.TB, name string, duration int, price float64) *model.Service {
	t.Helper()
	svc := &model.Service{Name: name, Duration: duration, Price: price, Active: true}
	svc.Touch(time.Now().UTC())
	require.NoError(t, s.Services.CreateService(context.Background(), svc))
	return svc
}

// WorkerFixture describes a fixture worker.
type WorkerFixture struct {
	ID                uuid.UUID
	Name              string
	Services          []uuid.UUID
	HourlyRate        float64
	Rating            float64
	CompletedBookings int
	Unavailable       bool
}

func (s *Store) AddWorker(t testing.TB, f WorkerFixture) *model.WorkerProfile {
	t.Helper()
	w := &model.WorkerProfile{
		Name:              f.Name,
		ServiceIDs:        f.Services,
		HourlyRate:        f.HourlyRate,
		Rating:            f.Rating,
		CompletedBookings: f.CompletedBookings,
		IsAvailable:       !f.Unavailable,
	}
	w.ID = f.ID
	if w.Name == "" {
		w.Name = "worker"
	}
	w.Touch(time.Now().UTC())
	require.NoError(t, s.Workers.CreateWorker(context.Background(), w))
	return w
}

// AddWindow adds an active weekly window on weekday.
func (s *Store) AddWindow(t testing.TB, workerID uuid.UUID, weekday time.Weekday, start, end int) {
	t.Helper()
	ctx := context.Background()
	slots, err := s.Availability.ListAllSlots(ctx, workerID)
	require.NoError(t, err)
	slots = append(slots, &model.AvailabilitySlot{
		WorkerID:    workerID,
		DayOfWeek:   int(weekday),
		StartMinute: start,
		EndMinute:   end,
		Active:      true,
	})
	require.NoError(t, s.Availability.ReplaceSlots(ctx, workerID, slots))
}

// AddBooking commits a booking directly, bypassing conflict checks.
func (s *Store) AddBooking(t testing.TB, workerID, serviceID uuid.UUID, date time.Time, start, duration int, status model.BookingStatus) *model.Booking {
	t.Helper()
	wid := workerID
	b := &model.Booking{
		WorkerID:        &wid,
		ServiceID:       serviceID,
		Date:            date.Format("2006-01-02"),
		StartMinute:     start,
		DurationMinutes: duration,
		EndMinute:       start + duration,
		Status:          status,
		ClientContact:   model.ClientContact{Name: "fixture"},
		ServiceSnapshot: model.ServiceSnapshot{ServiceName: "fixture", ServiceDuration: duration},
		Version:         1,
	}
	b.Touch(time.Now().UTC())
	require.NoError(t, s.Bookings.Commit(context.Background(), b, nil, nil))
	return b
}
