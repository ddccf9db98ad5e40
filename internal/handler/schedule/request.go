package schedule

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SlotRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	Start     string `json:"start" binding:"required"`
	End       string `json:"end" binding:"required"`
	// Active defaults to true.
	Active *bool `json:"active"`
}

type ReplaceSlotsRequest struct {
	Slots []SlotRequest `json:"slots"`
}

func (r *ReplaceSlotsRequest) toModel(workerID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	slots := make([]*model.AvailabilitySlot, 0, len(r.Slots))
	for _, s := range r.Slots {
		start, err := interval.ParseClock(s.Start)
		if err != nil {
			return nil, err
		}
		end, err := interval.ParseClock(s.End)
		if err != nil {
			return nil, err
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		slots = append(slots, &model.AvailabilitySlot{
			ID:          uuid.New(),
			WorkerID:    workerID,
			DayOfWeek:   s.DayOfWeek,
			StartMinute: start,
			EndMinute:   end,
			Active:      active,
		})
	}
	return slots, nil
}

// OverrideRequest changes one date of a worker's schedule. Start and end are
// optional for an unavailable override, which then blocks the whole day.
type OverrideRequest struct {
	Date      string `json:"date" binding:"required"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

func (r *OverrideRequest) toModel(workerID uuid.UUID) (*model.AvailabilityOverride, error) {
	date, err := interval.ParseDate(r.Date)
	if err != nil {
		return nil, err
	}
	o := &model.AvailabilityOverride{
		ID:        uuid.New(),
		WorkerID:  workerID,
		Date:      interval.FormatDate(date),
		Available: r.Available,
		Reason:    r.Reason,
	}
	if (r.Start == "") != (r.End == "") {
		return nil, apperrors.BadRequest("override needs both start and end, or neither", nil)
	}
	if r.Start != "" {
		start, err := interval.ParseClock(r.Start)
		if err != nil {
			return nil, err
		}
		end, err := interval.ParseClock(r.End)
		if err != nil {
			return nil, err
		}
		o.StartMinute, o.EndMinute = &start, &end
	}
	return o, nil
}
