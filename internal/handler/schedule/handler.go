package schedule

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/handler"
	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
)

type AvailabilityService interface {
	DaySchedule(ctx context.Context, workerID uuid.UUID, date time.Time) ([]interval.Interval, error)
	WeeklySlots(ctx context.Context, workerID uuid.UUID) ([]*model.AvailabilitySlot, error)
	ReplaceWeeklySlots(ctx context.Context, workerID uuid.UUID, slots []*model.AvailabilitySlot) error
	AddOverride(ctx context.Context, override *model.AvailabilityOverride) error
}

type OpenSlotFinder interface {
	AvailableStarts(ctx context.Context, workerID, serviceID uuid.UUID, date time.Time) ([]model.OpenSlot, error)
}

type Handler struct {
	availability AvailabilityService
	openSlots    OpenSlotFinder
}

func NewHandler(availability AvailabilityService, openSlots OpenSlotFinder) *Handler {
	return &Handler{availability: availability, openSlots: openSlots}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workers := r.Group("/workers/:id")
	{
		workers.GET("/availability", h.GetAvailability)
		workers.GET("/schedule", h.GetDaySchedule)
		workers.GET("/slots", h.ListSlots)
		workers.PUT("/slots", h.ReplaceSlots)
		workers.POST("/overrides", h.CreateOverride)
	}
}

// GetAvailability handles GET /workers/:id/availability?service_id&date and
// lists the open start times for the service.
func (h *Handler) GetAvailability(c *gin.Context) {
	workerID, ok := workerID(c)
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Query("service_id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid service ID", err)
		return
	}
	date, err := interval.ParseDate(c.Query("date"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	slots, err := h.openSlots.AvailableStarts(c.Request.Context(), workerID, serviceID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"worker_id": workerID,
		"date":      interval.FormatDate(date),
		"slots":     slots,
	}))
}

func (h *Handler) GetDaySchedule(c *gin.Context) {
	workerID, ok := workerID(c)
	if !ok {
		return
	}
	date, err := interval.ParseDate(c.Query("date"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	windows, err := h.availability.DaySchedule(c.Request.Context(), workerID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		out = append(out, Window{Start: interval.FormatClock(w.Start), End: interval.FormatClock(w.End)})
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"worker_id": workerID,
		"date":      interval.FormatDate(date),
		"windows":   out,
	}))
}

func (h *Handler) ListSlots(c *gin.Context) {
	workerID, ok := workerID(c)
	if !ok {
		return
	}
	slots, err := h.availability.WeeklySlots(c.Request.Context(), workerID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) ReplaceSlots(c *gin.Context) {
	workerID, ok := workerID(c)
	if !ok {
		return
	}
	var req ReplaceSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error(), err)
		return
	}
	slots, err := req.toModel(workerID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.availability.ReplaceWeeklySlots(c.Request.Context(), workerID, slots); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) CreateOverride(c *gin.Context) {
	workerID, ok := workerID(c)
	if !ok {
		return
	}
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error(), err)
		return
	}
	override, err := req.toModel(workerID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.availability.AddOverride(c.Request.Context(), override); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(override))
}

func workerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid worker ID", err)
		return uuid.Nil, false
	}
	return id, true
}
