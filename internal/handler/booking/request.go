package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/scoring"
)

// CreateBookingRequest is the wire form of a booking request. Dates are
// YYYY-MM-DD and times HH:MM.
type CreateBookingRequest struct {
	WorkerID        *uuid.UUID          `json:"worker_id"`
	ServiceID       uuid.UUID           `json:"service_id" binding:"required"`
	Date            string              `json:"date" binding:"required"`
	Start           string              `json:"start" binding:"required"`
	DurationMinutes int                 `json:"duration_minutes"`
	Client          model.ClientContact `json:"client"`
	Notes           string              `json:"notes"`
}

func (r *CreateBookingRequest) toModel() (*model.BookingRequest, error) {
	date, err := interval.ParseDate(r.Date)
	if err != nil {
		return nil, err
	}
	start, err := interval.ParseClock(r.Start)
	if err != nil {
		return nil, err
	}
	return &model.BookingRequest{
		WorkerID:        r.WorkerID,
		ServiceID:       r.ServiceID,
		Date:            date,
		StartMinute:     start,
		DurationMinutes: r.DurationMinutes,
		Client:          r.Client,
		Notes:           r.Notes,
	}, nil
}

type TransitionRequest struct {
	Status  model.BookingStatus `json:"status" binding:"required"`
	Version int                 `json:"version"`
	Reason  string              `json:"reason"`
}

type RescheduleRequest struct {
	Date    string `json:"date" binding:"required"`
	Start   string `json:"start" binding:"required"`
	Version int    `json:"version"`
}

func (r *RescheduleRequest) parse() (time.Time, int, error) {
	date, err := interval.ParseDate(r.Date)
	if err != nil {
		return time.Time{}, 0, err
	}
	start, err := interval.ParseClock(r.Start)
	if err != nil {
		return time.Time{}, 0, err
	}
	return date, start, nil
}

// CandidatesResponse lists eligible workers in id order alongside their
// ranking for the service.
type CandidatesResponse struct {
	Candidates []uuid.UUID      `json:"candidates"`
	Ranked     []scoring.Ranked `json:"ranked,omitempty"`
}
