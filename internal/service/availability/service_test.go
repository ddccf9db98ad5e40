package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/testutil"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

func setup(t *testing.T) (*Service, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore(t)
	return NewService(store.Availability, validator.New(), logger.Nop()), store
}

func intPtr(v int) *int { return &v }

func TestIsWithinSchedule(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	w := store.AddWorker(t, testutil.WorkerFixture{})
	store.AddWindow(t, w.ID, time.Monday, 540, 1020)

	tests := []struct {
		name     string
		date     time.Time
		start    int
		duration int
		want     bool
	}{
		{"inside", testutil.Monday, 600, 60, true},
		{"exactly the window", testutil.Monday, 540, 480, true},
		{"ends at close", testutil.Monday, 960, 60, true},
		{"runs past close", testutil.Monday, 990, 60, false},
		{"starts before open", testutil.Monday, 510, 60, false},
		{"other weekday", testutil.Monday.AddDate(0, 0, 1), 600, 60, false},
		{"next monday", testutil.Monday.AddDate(0, 0, 7), 600, 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsWithinSchedule(ctx, w.ID, tt.date, tt.start, tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsWithinSchedule_DoesNotSpanAdjacentWindows(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	w := store.AddWorker(t, testutil.WorkerFixture{})
	store.AddWindow(t, w.ID, time.Monday, 540, 720)
	store.AddWindow(t, w.ID, time.Monday, 720, 900)

	ok, err := svc.IsWithinSchedule(ctx, w.ID, testutil.Monday, 690, 60)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsWithinSchedule_NoSlots(t *testing.T) {
	svc, store := setup(t)
	w := store.AddWorker(t, testutil.WorkerFixture{})

	ok, err := svc.IsWithinSchedule(context.Background(), w.ID, testutil.Monday, 600, 60)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsWithinSchedule_InvalidInterval(t *testing.T) {
	svc, _ := setup(t)
	for _, d := range []int{0, -30} {
		_, err := svc.IsWithinSchedule(context.Background(), uuid.New(), testutil.Monday, 600, d)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidInterval), "duration %d", d)
	}
}

func TestDaySchedule_Overrides(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	w := store.AddWorker(t, testutil.WorkerFixture{})
	store.AddWindow(t, w.ID, time.Monday, 540, 1020)

	// Lunch blocked on the reference Monday only.
	require.NoError(t, svc.AddOverride(ctx, &model.AvailabilityOverride{
		WorkerID:    w.ID,
		Date:        "2024-01-15",
		StartMinute: intPtr(720),
		EndMinute:   intPtr(780),
	}))
	// Extra evening window.
	require.NoError(t, svc.AddOverride(ctx, &model.AvailabilityOverride{
		WorkerID:    w.ID,
		Date:        "2024-01-15",
		StartMinute: intPtr(1080),
		EndMinute:   intPtr(1200),
		Available:   true,
	}))

	windows, err := svc.DaySchedule(ctx, w.ID, testutil.Monday)
	require.NoError(t, err)
	assert.Equal(t, []interval.Interval{
		{Date: "2024-01-15", Start: 540, End: 720},
		{Date: "2024-01-15", Start: 780, End: 1020},
		{Date: "2024-01-15", Start: 1080, End: 1200},
	}, windows)

	ok, err := svc.IsWithinSchedule(ctx, w.ID, testutil.Monday, 700, 60)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsWithinSchedule(ctx, w.ID, testutil.Monday, 1100, 60)
	require.NoError(t, err)
	assert.True(t, ok)

	nextMonday := testutil.Monday.AddDate(0, 0, 7)
	windows, err = svc.DaySchedule(ctx, w.ID, nextMonday)
	require.NoError(t, err)
	assert.Len(t, windows, 1)
}

func TestDaySchedule_DayOff(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	w := store.AddWorker(t, testutil.WorkerFixture{})
	store.AddWindow(t, w.ID, time.Monday, 540, 1020)

	require.NoError(t, svc.AddOverride(ctx, &model.AvailabilityOverride{
		WorkerID: w.ID,
		Date:     "2024-01-15",
		Reason:   "holiday",
	}))

	windows, err := svc.DaySchedule(ctx, w.ID, testutil.Monday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestAddOverride_Validation(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	w := store.AddWorker(t, testutil.WorkerFixture{})

	tests := []struct {
		name     string
		override model.AvailabilityOverride
	}{
		{"bad date", model.AvailabilityOverride{WorkerID: w.ID, Date: "15/01/2024"}},
		{"available without bounds", model.AvailabilityOverride{WorkerID: w.ID, Date: "2024-01-15", Available: true}},
		{"half bounds", model.AvailabilityOverride{WorkerID: w.ID, Date: "2024-01-15", StartMinute: intPtr(600)}},
		{"reversed bounds", model.AvailabilityOverride{WorkerID: w.ID, Date: "2024-01-15", StartMinute: intPtr(600), EndMinute: intPtr(540)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.override
			assert.Error(t, svc.AddOverride(ctx, &o))
		})
	}
}

func TestReplaceWeeklySlots(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	w := store.AddWorker(t, testutil.WorkerFixture{})

	t.Run("rejects overlap on the same day", func(t *testing.T) {
		err := svc.ReplaceWeeklySlots(ctx, w.ID, []*model.AvailabilitySlot{
			{DayOfWeek: 1, StartMinute: 540, EndMinute: 720, Active: true},
			{DayOfWeek: 1, StartMinute: 700, EndMinute: 900, Active: true},
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrOverlappingSlots))
		assert.Contains(t, err.Error(), "Monday 09:00-12:00 and 11:40-15:00")
	})

	t.Run("touching windows and inactive overlaps are fine", func(t *testing.T) {
		err := svc.ReplaceWeeklySlots(ctx, w.ID, []*model.AvailabilitySlot{
			{DayOfWeek: 1, StartMinute: 540, EndMinute: 720, Active: true},
			{DayOfWeek: 1, StartMinute: 720, EndMinute: 900, Active: true},
			{DayOfWeek: 1, StartMinute: 600, EndMinute: 660, Active: false},
			{DayOfWeek: 2, StartMinute: 600, EndMinute: 660, Active: true},
		})
		require.NoError(t, err)

		slots, err := svc.WeeklySlots(ctx, w.ID)
		require.NoError(t, err)
		assert.Len(t, slots, 4)
	})

	t.Run("rejects out of range", func(t *testing.T) {
		err := svc.ReplaceWeeklySlots(ctx, w.ID, []*model.AvailabilitySlot{
			{DayOfWeek: 7, StartMinute: 540, EndMinute: 720, Active: true},
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))

		err = svc.ReplaceWeeklySlots(ctx, w.ID, []*model.AvailabilitySlot{
			{DayOfWeek: 1, StartMinute: 540, EndMinute: 1500, Active: true},
		})
		assert.Error(t, err)
	})
}
