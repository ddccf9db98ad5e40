package candidate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/availability"
	"github.com/jwalitptl/booking-engine/internal/service/conflict"
	"github.com/jwalitptl/booking-engine/internal/testutil"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

func newResolver(store *testutil.Store) *Service {
	return NewService(
		store.Services,
		store.Workers,
		availability.NewService(store.Availability, validator.New(), logger.Nop()),
		conflict.NewService(store.Bookings, nil),
		Config{FanOut: 2},
		nil,
		logger.Nop(),
	)
}

// Worker X works Monday 09:00-17:00 with no bookings; a Monday 10:00 hour is theirs.
func TestFindCandidates_SingleEligibleWorker(t *testing.T) {
	store := testutil.NewStore(t)
	s := store.AddService(t, "S", 60, 40)
	x := store.AddWorker(t, testutil.WorkerFixture{Name: "X", Services: []uuid.UUID{s.ID}})
	store.AddWindow(t, x.ID, time.Monday, 540, 1020)

	got, err := newResolver(store).FindCandidates(context.Background(), s.ID, testutil.Monday, 600, 60)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{x.ID}, got)
}

func TestFindCandidates_Filters(t *testing.T) {
	store := testutil.NewStore(t)
	s := store.AddService(t, "S", 60, 40)
	other := store.AddService(t, "Other", 60, 40)

	eligible := store.AddWorker(t, testutil.WorkerFixture{Name: "eligible", Services: []uuid.UUID{s.ID}})
	busy := store.AddWorker(t, testutil.WorkerFixture{Name: "busy", Services: []uuid.UUID{s.ID}})
	off := store.AddWorker(t, testutil.WorkerFixture{Name: "off", Services: []uuid.UUID{s.ID}, Unavailable: true})
	wrongService := store.AddWorker(t, testutil.WorkerFixture{Name: "wrong service", Services: []uuid.UUID{other.ID}})
	noSchedule := store.AddWorker(t, testutil.WorkerFixture{Name: "no schedule", Services: []uuid.UUID{s.ID}})
	pastBooking := store.AddWorker(t, testutil.WorkerFixture{Name: "cancelled booking", Services: []uuid.UUID{s.ID}})

	for _, w := range []uuid.UUID{eligible.ID, busy.ID, off.ID, wrongService.ID, pastBooking.ID} {
		store.AddWindow(t, w, time.Monday, 540, 1020)
	}
	store.AddWindow(t, noSchedule.ID, time.Tuesday, 540, 1020)
	store.AddBooking(t, busy.ID, s.ID, testutil.Monday, 600, 60, model.BookingStatusConfirmed)
	store.AddBooking(t, pastBooking.ID, s.ID, testutil.Monday, 630, 60, model.BookingStatusCancelled)

	got, err := newResolver(store).FindCandidates(context.Background(), s.ID, testutil.Monday, 630, 30)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{eligible.ID, pastBooking.ID}, got)
}

func TestFindCandidates_BoundaryIsNotAConflict(t *testing.T) {
	store := testutil.NewStore(t)
	s := store.AddService(t, "S", 60, 40)
	w := store.AddWorker(t, testutil.WorkerFixture{Services: []uuid.UUID{s.ID}})
	store.AddWindow(t, w.ID, time.Monday, 540, 1020)
	store.AddBooking(t, w.ID, s.ID, testutil.Monday, 540, 60, model.BookingStatusConfirmed)

	got, err := newResolver(store).FindCandidates(context.Background(), s.ID, testutil.Monday, 600, 60)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{w.ID}, got)
}

func TestFindCandidates_IsIdempotentAndOrdered(t *testing.T) {
	store := testutil.NewStore(t)
	s := store.AddService(t, "S", 60, 40)
	for i := 0; i < 6; i++ {
		w := store.AddWorker(t, testutil.WorkerFixture{Services: []uuid.UUID{s.ID}})
		store.AddWindow(t, w.ID, time.Monday, 540, 1020)
	}
	resolver := newResolver(store)
	ctx := context.Background()

	first, err := resolver.FindCandidates(ctx, s.ID, testutil.Monday, 600, 60)
	require.NoError(t, err)
	require.Len(t, first, 6)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].String(), first[i].String())
	}

	second, err := resolver.FindCandidates(ctx, s.ID, testutil.Monday, 600, 60)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFindCandidates_Service(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	resolver := newResolver(store)

	_, err := resolver.FindCandidates(ctx, uuid.New(), testutil.Monday, 600, 60)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))

	inactive := &model.Service{Name: "retired", Duration: 60}
	inactive.Touch(time.Now().UTC())
	require.NoError(t, store.Services.CreateService(ctx, inactive))
	w := store.AddWorker(t, testutil.WorkerFixture{Services: []uuid.UUID{inactive.ID}})
	store.AddWindow(t, w.ID, time.Monday, 540, 1020)

	got, err := resolver.FindCandidates(ctx, inactive.ID, testutil.Monday, 600, 60)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) GetWorkerProfile(ctx context.Context, id uuid.UUID) (*model.WorkerProfile, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.WorkerProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) ListByService(ctx context.Context, serviceID uuid.UUID) ([]*model.WorkerProfile, error) {
	args := m.Called(ctx, serviceID)
	if v := args.Get(0); v != nil {
		return v.([]*model.WorkerProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubSchedule struct{ err error }

func (s stubSchedule) IsWithinSchedule(context.Context, uuid.UUID, time.Time, int, int) (bool, error) {
	return s.err == nil, s.err
}

type stubConflicts struct{}

func (stubConflicts) HasConflict(context.Context, uuid.UUID, time.Time, int, int, *uuid.UUID) (bool, error) {
	return false, nil
}

func TestFindCandidates_InvalidIntervalSkipsStore(t *testing.T) {
	catalog := new(mockCatalog)
	directory := new(mockDirectory)
	resolver := NewService(catalog, directory, stubSchedule{}, stubConflicts{}, Config{}, nil, logger.Nop())

	for _, d := range []int{0, -60} {
		_, err := resolver.FindCandidates(context.Background(), uuid.New(), testutil.Monday, 600, d)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidInterval))
	}
	catalog.AssertNotCalled(t, "GetService", mock.Anything, mock.Anything)
	directory.AssertNotCalled(t, "ListByService", mock.Anything, mock.Anything)
}

func TestFindCandidates_StoreErrorAborts(t *testing.T) {
	serviceID := uuid.New()
	catalog := new(mockCatalog)
	catalog.On("GetService", mock.Anything, serviceID).Return(&model.Service{Active: true, Duration: 60}, nil)

	w := &model.WorkerProfile{ServiceIDs: []uuid.UUID{serviceID}, IsAvailable: true}
	w.ID = uuid.New()
	directory := new(mockDirectory)
	directory.On("ListByService", mock.Anything, serviceID).Return([]*model.WorkerProfile{w}, nil)

	storeErr := apperrors.StoreUnavailable("list slots", errors.New("timeout"))
	resolver := NewService(catalog, directory, stubSchedule{err: storeErr}, stubConflicts{}, Config{}, nil, logger.Nop())

	got, err := resolver.FindCandidates(context.Background(), serviceID, testutil.Monday, 600, 60)
	assert.Nil(t, got)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrStoreUnavailable))
}

func TestEligible(t *testing.T) {
	store := testutil.NewStore(t)
	s := store.AddService(t, "S", 60, 40)
	w := store.AddWorker(t, testutil.WorkerFixture{Services: []uuid.UUID{s.ID}})
	store.AddWindow(t, w.ID, time.Monday, 540, 1020)
	resolver := newResolver(store)
	ctx := context.Background()

	ok, err := resolver.Eligible(ctx, w.ID, s.ID, testutil.Monday, 600, 60)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.Eligible(ctx, w.ID, s.ID, testutil.Monday, 1000, 60)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = resolver.Eligible(ctx, uuid.New(), s.ID, testutil.Monday, 600, 60)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}
