package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/service/availability"
	"github.com/jwalitptl/booking-engine/internal/testutil"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

const fixture = `
services:
  - key: clean
    name: Deep clean
    duration: 60
    price: 45
  - key: iron
    name: Ironing
    duration: 30
    price: 15
workers:
  - name: Ada
    hourly_rate: 20
    rating: 4.5
    completed_bookings: 12
    services: [clean, iron]
    skills: [eco]
    slots:
      - {day: monday, start: "09:00", end: "12:00"}
      - {day: Mon, start: "13:00", end: "17:00"}
  - name: Ben
    id: 6f1c2a9e-0d7b-4b3e-9a55-2f0c9b1e7d11
    services: [iron]
    unavailable: true
`

func newStores(t *testing.T) (*testutil.Store, Stores) {
	store := testutil.NewStore(t)
	v := validator.New()
	return store, Stores{
		Services: store.Services,
		Workers:  store.Workers,
		Schedule: availability.NewService(store.Availability, v, logger.Nop()),
	}
}

func TestApply(t *testing.T) {
	store, stores := newStores(t)
	f, err := Load(strings.NewReader(fixture))
	require.NoError(t, err)

	res, err := Apply(context.Background(), stores, validator.New(), f)
	require.NoError(t, err)
	require.Len(t, res.Services, 2)
	require.Len(t, res.Workers, 2)
	assert.Equal(t, "6f1c2a9e-0d7b-4b3e-9a55-2f0c9b1e7d11", res.Workers["Ben"].String())

	ctx := context.Background()
	ada, err := store.Workers.GetWorkerProfile(ctx, res.Workers["Ada"])
	require.NoError(t, err)
	assert.True(t, ada.OffersService(res.Services["clean"]))
	assert.Equal(t, []string{"eco"}, ada.Details.Skills)
	assert.True(t, ada.IsAvailable)

	slots, err := store.Availability.ListSlots(ctx, ada.ID, int(time.Monday))
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	ben, err := store.Workers.GetWorkerProfile(ctx, res.Workers["Ben"])
	require.NoError(t, err)
	assert.False(t, ben.IsAvailable)
}

func TestApply_UnknownServiceKey(t *testing.T) {
	_, stores := newStores(t)
	f, err := Load(strings.NewReader(`
workers:
  - name: Ada
    services: [missing]
`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), stores, validator.New(), f)
	assert.ErrorContains(t, err, `unknown service "missing"`)
}

func TestApply_RejectsOverlappingSlots(t *testing.T) {
	_, stores := newStores(t)
	f, err := Load(strings.NewReader(`
workers:
  - name: Ada
    slots:
      - {day: tue, start: "09:00", end: "12:00"}
      - {day: tue, start: "11:00", end: "13:00"}
`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), stores, validator.New(), f)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrOverlappingSlots))
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("services:\n  - key: a\n    minutes: 30\n"))
	assert.Error(t, err)
}

func TestParseWeekday(t *testing.T) {
	d, err := parseWeekday(" Sunday ")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = parseWeekday("someday")
	assert.Error(t, err)
}

func TestExampleSeedFileApplies(t *testing.T) {
	fh, err := os.Open(filepath.Join("..", "..", "config", "seed.example.yml"))
	require.NoError(t, err)
	defer fh.Close()

	f, err := Load(fh)
	require.NoError(t, err)
	_, stores := newStores(t)
	res, err := Apply(context.Background(), stores, validator.New(), f)
	require.NoError(t, err)
	assert.Len(t, res.Workers, 2)
}
