package booking

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/handler"
	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/scoring"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type BookingService interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error)
	Reschedule(ctx context.Context, bookingID uuid.UUID, date time.Time, startMinute, expectedVersion int) (*model.Booking, error)
	Transition(ctx context.Context, bookingID uuid.UUID, to model.BookingStatus, expectedVersion int, reason string) (*model.Booking, error)
	Get(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error)
	ListForWorker(ctx context.Context, workerID uuid.UUID, date time.Time) ([]*model.Booking, error)
}

type CandidateFinder interface {
	FindCandidates(ctx context.Context, serviceID uuid.UUID, date time.Time, startMinute, durationMinutes int) ([]uuid.UUID, error)
}

type Ranker interface {
	Rank(ctx context.Context, candidates []uuid.UUID, serviceID uuid.UUID) ([]scoring.Ranked, error)
}

type ConflictFinder interface {
	Conflicts(ctx context.Context, workerID uuid.UUID, date time.Time, startMinute, durationMinutes int, exclude *uuid.UUID) ([]*model.Booking, error)
}

type Handler struct {
	bookings   BookingService
	candidates CandidateFinder
	ranker     Ranker
	conflicts  ConflictFinder
}

func NewHandler(bookings BookingService, candidates CandidateFinder, ranker Ranker, conflicts ConflictFinder) *Handler {
	return &Handler{
		bookings:   bookings,
		candidates: candidates,
		ranker:     ranker,
		conflicts:  conflicts,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/candidates", h.FindCandidates)
	r.GET("/conflicts", h.FindConflicts)

	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/transition", h.TransitionBooking)
		bookings.POST("/:id/reschedule", h.RescheduleBooking)
	}
}

// FindCandidates handles GET /candidates?service_id&date&start&duration.
// Pass rank=true to include score breakdowns.
func (h *Handler) FindCandidates(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Query("service_id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid service ID", err)
		return
	}
	date, start, duration, err := parseInterval(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	ids, err := h.candidates.FindCandidates(c.Request.Context(), serviceID, date, start, duration)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	resp := CandidatesResponse{Candidates: ids}
	if c.Query("rank") == "true" && len(ids) > 0 {
		ranked, err := h.ranker.Rank(c.Request.Context(), ids, serviceID)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		resp.Ranked = ranked
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

// FindConflicts handles GET /conflicts?worker_id&date&start&duration[&exclude].
func (h *Handler) FindConflicts(c *gin.Context) {
	workerID, err := uuid.Parse(c.Query("worker_id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid worker ID", err)
		return
	}
	date, start, duration, err := parseInterval(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var exclude *uuid.UUID
	if raw := c.Query("exclude"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.RespondBadRequest(c, "invalid exclude ID", err)
			return
		}
		exclude = &id
	}

	found, err := h.conflicts.Conflicts(c.Request.Context(), workerID, date, start, duration, exclude)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"conflict":  len(found) > 0,
		"conflicts": found,
	}))
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error(), err)
		return
	}
	bookingReq, err := req.toModel()
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	result, err := h.bookings.Book(c.Request.Context(), bookingReq)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	switch result.Outcome {
	case model.OutcomeBooked:
		c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
	case model.OutcomeManualAssignment:
		c.JSON(http.StatusAccepted, handler.NewSuccessResponse(result))
	default:
		c.JSON(http.StatusUnprocessableEntity, &handler.Response{
			Status:  "error",
			Code:    apperrors.ErrNoEligibleWorker.String(),
			Message: apperrors.NoEligibleWorker(bookingReq.ServiceID).Message,
			Data:    result,
		})
	}
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(b))
}

// ListBookings handles GET /bookings?worker_id[&date].
func (h *Handler) ListBookings(c *gin.Context) {
	workerID, err := uuid.Parse(c.Query("worker_id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid worker ID", err)
		return
	}
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		if date, err = interval.ParseDate(raw); err != nil {
			handler.RespondError(c, err)
			return
		}
	}

	bookings, err := h.bookings.ListForWorker(c.Request.Context(), workerID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bookings))
}

func (h *Handler) TransitionBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error(), err)
		return
	}

	b, err := h.bookings.Transition(c.Request.Context(), id, req.Status, req.Version, req.Reason)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(b))
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error(), err)
		return
	}
	date, start, err := req.parse()
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	b, err := h.bookings.Reschedule(c.Request.Context(), id, date, start, req.Version)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(b))
}

func bookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid booking ID", err)
		return uuid.Nil, false
	}
	return id, true
}

// parseInterval reads date, start (HH:MM) and duration (minutes) from the
// query string.
func parseInterval(c *gin.Context) (time.Time, int, int, error) {
	date, err := interval.ParseDate(c.Query("date"))
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	start, err := interval.ParseClock(c.Query("start"))
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	duration, err := strconv.Atoi(c.Query("duration"))
	if err != nil {
		return time.Time{}, 0, 0, apperrors.BadRequest("duration must be a number of minutes", err)
	}
	return date, start, duration, nil
}
