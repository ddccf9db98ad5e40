package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is a recurring weekly window. DayOfWeek follows
// time.Weekday (0 = Sunday).
type AvailabilitySlot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	WorkerID    uuid.UUID `db:"worker_id" json:"worker_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week" validate:"gte=0,lte=6"`
	StartMinute int       `db:"start_minute" json:"start_minute" validate:"gte=0,lt=1440"`
	EndMinute   int       `db:"end_minute" json:"end_minute" validate:"gt=0,lte=1440,gtfield=StartMinute"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityOverride adjusts a single date. Available=false without bounds
// blocks the whole day; with bounds it blocks only that window.
// Available=true requires bounds and adds an extra window.
type AvailabilityOverride struct {
	ID          uuid.UUID `db:"id" json:"id"`
	WorkerID    uuid.UUID `db:"worker_id" json:"worker_id"`
	Date        string    `db:"override_date" json:"date" validate:"required,datetime=2006-01-02"`
	StartMinute *int      `db:"start_minute" json:"start_minute,omitempty"`
	EndMinute   *int      `db:"end_minute" json:"end_minute,omitempty"`
	Available   bool      `db:"available" json:"available"`
	Reason      string    `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HasBounds reports whether the override targets a window rather than the day.
func (o *AvailabilityOverride) HasBounds() bool {
	return o.StartMinute != nil && o.EndMinute != nil
}

// OpenSlot is a bookable start within a worker's day.
type OpenSlot struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}
