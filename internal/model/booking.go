package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/interval"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

// OccupyingStatuses are the statuses that hold a worker's time.
func OccupyingStatuses() []BookingStatus {
	return []BookingStatus{BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress}
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsOccupying() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type ClientContact struct {
	Name  string `db:"client_name" json:"name" validate:"required,max=200"`
	Email string `db:"client_email" json:"email,omitempty" validate:"omitempty,email"`
	Phone string `db:"client_phone" json:"phone,omitempty" validate:"max=40"`
}

// ServiceSnapshot freezes the service as it was when the booking was made.
type ServiceSnapshot struct {
	ServiceName     string  `db:"service_name" json:"service_name"`
	ServiceDuration int     `db:"service_duration" json:"service_duration"`
	ServicePrice    float64 `db:"service_price" json:"service_price"`
}

type Booking struct {
	Base
	WorkerID        *uuid.UUID    `db:"worker_id" json:"worker_id,omitempty"`
	ServiceID       uuid.UUID     `db:"service_id" json:"service_id"`
	Date            string        `db:"booking_date" json:"date"`
	StartMinute     int           `db:"start_minute" json:"start_minute"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	EndMinute       int           `db:"end_minute" json:"end_minute"`
	Status          BookingStatus `db:"status" json:"status"`
	ClientContact
	ServiceSnapshot
	Cost         float64 `db:"cost" json:"cost"`
	Notes        string  `db:"notes" json:"notes,omitempty"`
	CancelReason *string `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version      int     `db:"version" json:"version"`
}

// Span is the booking's occupied interval.
func (b *Booking) Span() interval.Interval {
	return interval.Interval{Date: b.Date, Start: b.StartMinute, End: b.EndMinute}
}

// BookingDraft is a booking for an already chosen worker, ready to commit.
type BookingDraft struct {
	WorkerID        uuid.UUID     `json:"worker_id" validate:"required"`
	ServiceID       uuid.UUID     `json:"service_id" validate:"required"`
	Date            time.Time     `json:"date" validate:"required"`
	StartMinute     int           `json:"start_minute"`
	DurationMinutes int           `json:"duration_minutes"`
	Client          ClientContact `json:"client"`
	Notes           string        `json:"notes" validate:"max=1000"`
}

// BookingRequest asks the engine to find, rank and commit a worker. A set
// WorkerID pins the worker and skips ranking.
type BookingRequest struct {
	WorkerID        *uuid.UUID    `json:"worker_id,omitempty"`
	ServiceID       uuid.UUID     `json:"service_id" validate:"required"`
	Date            time.Time     `json:"date" validate:"required"`
	StartMinute     int           `json:"start_minute"`
	DurationMinutes int           `json:"duration_minutes"`
	Client          ClientContact `json:"client"`
	Notes           string        `json:"notes" validate:"max=1000"`
}

func (r *BookingRequest) Draft(workerID uuid.UUID) *BookingDraft {
	return &BookingDraft{
		WorkerID:        workerID,
		ServiceID:       r.ServiceID,
		Date:            r.Date,
		StartMinute:     r.StartMinute,
		DurationMinutes: r.DurationMinutes,
		Client:          r.Client,
		Notes:           r.Notes,
	}
}

type BookingOutcome string

const (
	OutcomeBooked           BookingOutcome = "booked"
	OutcomeNoEligibleWorker BookingOutcome = "no_eligible_worker"
	OutcomeManualAssignment BookingOutcome = "manual_assignment_required"
)

type BookingResult struct {
	Outcome    BookingOutcome `json:"outcome"`
	Booking    *Booking       `json:"booking,omitempty"`
	Candidates []uuid.UUID    `json:"candidates,omitempty"`
	Attempts   int            `json:"attempts"`
}

// BookingEvent is the outbox payload published for booking changes.
type BookingEvent struct {
	BookingID   uuid.UUID     `json:"booking_id"`
	WorkerID    *uuid.UUID    `json:"worker_id,omitempty"`
	ServiceID   uuid.UUID     `json:"service_id"`
	Date        string        `json:"date"`
	StartMinute int           `json:"start_minute"`
	EndMinute   int           `json:"end_minute"`
	Status      BookingStatus `json:"status"`
	Version     int           `json:"version"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

const (
	EventBookingCreated     = "booking.created"
	EventBookingRescheduled = "booking.rescheduled"
)

// StatusEventType names the event emitted when a booking enters status.
func StatusEventType(status BookingStatus) string {
	return "booking." + string(status)
}

func NewBookingEvent(b *Booking, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:   b.ID,
		WorkerID:    b.WorkerID,
		ServiceID:   b.ServiceID,
		Date:        b.Date,
		StartMinute: b.StartMinute,
		EndMinute:   b.EndMinute,
		Status:      b.Status,
		Version:     b.Version,
		OccurredAt:  at,
	}
}

type BookingFilters struct {
	WorkerID *uuid.UUID
	Date     string
	Status   BookingStatus
}
