package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/app"
	"github.com/jwalitptl/booking-engine/internal/config"
	bookinghandler "github.com/jwalitptl/booking-engine/internal/handler/booking"
	"github.com/jwalitptl/booking-engine/internal/handler/health"
	"github.com/jwalitptl/booking-engine/internal/handler/schedule"
	"github.com/jwalitptl/booking-engine/internal/middleware"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/router"
	"github.com/jwalitptl/booking-engine/internal/testutil"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t      *testing.T
	store  *testutil.Store
	engine *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewStore(t)
	reg := prometheus.NewRegistry()
	m := metrics.New("booking", reg)
	e := app.NewEngine(store.Repositories, config.MatchingConfig{
		AssignmentMode:  config.AssignmentAutomatic,
		CandidateFanOut: 4,
		SlotStep:        60,
	}, m, logger.Nop())

	r := router.NewRouter(
		health.NewHandler(store.DB, nil, reg),
		[]router.Handler{
			bookinghandler.NewHandler(e.Bookings, e.Candidates, e.Scoring, e.Conflicts),
			schedule.NewHandler(e.Availability, e.Bookings),
		},
		router.RouterConfig{
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "booking_http",
			Registerer:    reg,
		},
	)
	r.Setup()
	return &server{t: t, store: store, engine: r.Engine()}
}

func (s *server) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "booking_http_requests_total")
}

func TestBookingLifecycle(t *testing.T) {
	s := newServer(t)
	svc := s.store.AddService(t, "Deep clean", 60, 45)
	x := s.store.AddWorker(t, testutil.WorkerFixture{Name: "X", Services: []uuid.UUID{svc.ID}, Rating: 4})
	s.store.AddWindow(t, x.ID, time.Monday, 540, 1020)

	query := "?service_id=" + svc.ID.String() + "&date=2024-01-15&start=10:00&duration=60"

	w, env := s.do(http.MethodGet, "/api/v1/candidates"+query+"&rank=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	var candidates bookinghandler.CandidatesResponse
	decode(t, env.Data, &candidates)
	assert.Equal(t, []uuid.UUID{x.ID}, candidates.Candidates)
	require.Len(t, candidates.Ranked, 1)
	assert.InDelta(t, 48.0, candidates.Ranked[0].Score.Total, 0.001)

	create := bookinghandler.CreateBookingRequest{
		ServiceID:       svc.ID,
		Date:            "2024-01-15",
		Start:           "10:00",
		DurationMinutes: 60,
		Client:          model.ClientContact{Name: "Grace", Email: "grace@example.com"},
	}
	w, env = s.do(http.MethodPost, "/api/v1/bookings", create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result model.BookingResult
	decode(t, env.Data, &result)
	assert.Equal(t, model.OutcomeBooked, result.Outcome)
	require.NotNil(t, result.Booking)
	b := result.Booking
	assert.Equal(t, x.ID, *b.WorkerID)
	assert.Equal(t, 1, b.Version)

	// X is now busy at 10:00.
	w, env = s.do(http.MethodPost, "/api/v1/bookings", create)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "no_eligible_worker", env.Code)

	conflicts := "/api/v1/conflicts?worker_id=" + x.ID.String() + "&date=2024-01-15&start=10:30&duration=60"
	w, env = s.do(http.MethodGet, conflicts, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Conflict bool `json:"conflict"`
	}
	decode(t, env.Data, &found)
	assert.True(t, found.Conflict)

	w, env = s.do(http.MethodGet, conflicts+"&exclude="+b.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, env.Data, &found)
	assert.False(t, found.Conflict)

	path := "/api/v1/bookings/" + b.ID.String()
	w, env = s.do(http.MethodPost, path+"/transition", bookinghandler.TransitionRequest{Status: model.BookingStatusConfirmed, Version: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed model.Booking
	decode(t, env.Data, &confirmed)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, 2, confirmed.Version)

	w, env = s.do(http.MethodPost, path+"/transition", bookinghandler.TransitionRequest{Status: model.BookingStatusCancelled, Version: 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "version_conflict", env.Code)

	w, env = s.do(http.MethodPost, path+"/transition", bookinghandler.TransitionRequest{Status: model.BookingStatusCompleted, Version: 2})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", env.Code)

	w, env = s.do(http.MethodPost, path+"/reschedule", bookinghandler.RescheduleRequest{Date: "2024-01-15", Start: "13:00", Version: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved model.Booking
	decode(t, env.Data, &moved)
	assert.Equal(t, 780, moved.StartMinute)
	assert.Equal(t, 840, moved.EndMinute)
	assert.Equal(t, 3, moved.Version)

	w, _ = s.do(http.MethodPost, path+"/reschedule", bookinghandler.RescheduleRequest{Date: "2024-01-15", Start: "18:00", Version: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored model.Booking
	decode(t, env.Data, &stored)
	assert.Equal(t, "Grace", stored.Name)
	assert.Equal(t, 780, stored.StartMinute)

	w, env = s.do(http.MethodGet, "/api/v1/bookings?worker_id="+x.ID.String()+"&date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []model.Booking
	decode(t, env.Data, &listed)
	assert.Len(t, listed, 1)
}

func TestBookingErrors(t *testing.T) {
	s := newServer(t)
	svc := s.store.AddService(t, "S", 60, 10)

	w, env := s.do(http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/bookings/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/candidates?service_id="+svc.ID.String()+"&date=2024-01-15&start=10:00&duration=0", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid_interval", env.Code)

	w, env = s.do(http.MethodGet, "/api/v1/candidates?service_id="+svc.ID.String()+"&date=15/01/2024&start=10:00&duration=60", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", env.Code)

	w, env = s.do(http.MethodGet, "/api/v1/candidates?service_id="+uuid.NewString()+"&date=2024-01-15&start=10:00&duration=60", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/bookings", map[string]string{"date": "2024-01-15"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleEndpoints(t *testing.T) {
	s := newServer(t)
	svc := s.store.AddService(t, "S", 60, 10)
	x := s.store.AddWorker(t, testutil.WorkerFixture{Name: "X", Services: []uuid.UUID{svc.ID}})
	base := "/api/v1/workers/" + x.ID.String()

	w, env := s.do(http.MethodPut, base+"/slots", map[string]interface{}{
		"slots": []map[string]interface{}{
			{"day_of_week": 1, "start": "09:00", "end": "12:00"},
			{"day_of_week": 1, "start": "11:00", "end": "13:00"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "overlapping_slots", env.Code)

	w, _ = s.do(http.MethodPut, base+"/slots", map[string]interface{}{
		"slots": []map[string]interface{}{
			{"day_of_week": 1, "start": "09:00", "end": "12:00"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(http.MethodGet, base+"/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []model.AvailabilitySlot
	decode(t, env.Data, &slots)
	require.Len(t, slots, 1)
	assert.Equal(t, 540, slots[0].StartMinute)

	s.store.AddBooking(t, x.ID, svc.ID, testutil.Monday, 600, 60, model.BookingStatusConfirmed)

	w, env = s.do(http.MethodGet, base+"/availability?service_id="+svc.ID.String()+"&date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var open struct {
		Slots []model.OpenSlot `json:"slots"`
	}
	decode(t, env.Data, &open)
	require.Len(t, open.Slots, 2)
	assert.Equal(t, "09:00", open.Slots[0].Start)
	assert.Equal(t, "11:00", open.Slots[1].Start)

	w, _ = s.do(http.MethodPost, base+"/overrides", map[string]interface{}{
		"date": "2024-01-15", "available": false, "reason": "holiday",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = s.do(http.MethodGet, base+"/schedule?date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var day struct {
		Windows []schedule.Window `json:"windows"`
	}
	decode(t, env.Data, &day)
	assert.Empty(t, day.Windows)

	w, env = s.do(http.MethodGet, "/api/v1/candidates?service_id="+svc.ID.String()+"&date=2024-01-15&start=09:00&duration=60", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var candidates bookinghandler.CandidatesResponse
	decode(t, env.Data, &candidates)
	assert.Empty(t, candidates.Candidates)

	w, _ = s.do(http.MethodPost, base+"/overrides", map[string]interface{}{
		"date": "2024-01-16", "start": "09:00", "available": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
