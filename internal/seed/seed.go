// Package seed loads services, workers and weekly schedules from a YAML
// fixture into the store.
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwalitptl/booking-engine/internal/interval"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

type File struct {
	Services []Service `yaml:"services"`
	Workers  []Worker  `yaml:"workers"`
}

type Service struct {
	// Key names the service within the file; workers refer to it.
	Key         string  `yaml:"key"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Duration    int     `yaml:"duration"`
	Price       float64 `yaml:"price"`
	Inactive    bool    `yaml:"inactive"`
}

type Worker struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	HourlyRate        float64  `yaml:"hourly_rate"`
	Rating            float64  `yaml:"rating"`
	CompletedBookings int      `yaml:"completed_bookings"`
	Unavailable       bool     `yaml:"unavailable"`
	Services          []string `yaml:"services"`
	Skills            []string `yaml:"skills"`
	Slots             []Slot   `yaml:"slots"`
}

type Slot struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Result maps service keys and worker names to the ids they were stored
// under.
type Result struct {
	Services map[string]uuid.UUID
	Workers  map[string]uuid.UUID
}

// ScheduleWriter stores a worker's weekly schedule, rejecting overlaps.
type ScheduleWriter interface {
	ReplaceWeeklySlots(ctx context.Context, workerID uuid.UUID, slots []*model.AvailabilitySlot) error
}

type Stores struct {
	Services repository.ServiceRepository
	Workers  repository.WorkerRepository
	Schedule ScheduleWriter
}

func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &f, nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

// Apply stores everything in f. It stops at the first invalid entry;
// entries stored before it are kept.
func Apply(ctx context.Context, stores Stores, v validator.Validator, f *File) (*Result, error) {
	res := &Result{
		Services: make(map[string]uuid.UUID, len(f.Services)),
		Workers:  make(map[string]uuid.UUID, len(f.Workers)),
	}
	now := time.Now().UTC()

	for _, s := range f.Services {
		if s.Key == "" {
			return nil, fmt.Errorf("service %q has no key", s.Name)
		}
		if _, dup := res.Services[s.Key]; dup {
			return nil, fmt.Errorf("duplicate service key %q", s.Key)
		}
		svc := &model.Service{
			Name:        s.Name,
			Description: s.Description,
			Duration:    s.Duration,
			Price:       s.Price,
			Active:      !s.Inactive,
		}
		svc.Touch(now)
		if err := v.Validate(svc); err != nil {
			return nil, fmt.Errorf("service %q: %w", s.Key, err)
		}
		if err := stores.Services.CreateService(ctx, svc); err != nil {
			return nil, fmt.Errorf("service %q: %w", s.Key, err)
		}
		res.Services[s.Key] = svc.ID
	}

	for _, w := range f.Workers {
		profile, err := w.toProfile(res.Services)
		if err != nil {
			return nil, err
		}
		profile.Touch(now)
		if err := v.Validate(profile); err != nil {
			return nil, fmt.Errorf("worker %q: %w", w.Name, err)
		}
		slots, err := w.toSlots()
		if err != nil {
			return nil, err
		}
		if err := stores.Workers.CreateWorker(ctx, profile); err != nil {
			return nil, fmt.Errorf("worker %q: %w", w.Name, err)
		}
		if len(slots) > 0 {
			if err := stores.Schedule.ReplaceWeeklySlots(ctx, profile.ID, slots); err != nil {
				return nil, fmt.Errorf("worker %q slots: %w", w.Name, err)
			}
		}
		res.Workers[w.Name] = profile.ID
	}
	return res, nil
}

func (w *Worker) toProfile(services map[string]uuid.UUID) (*model.WorkerProfile, error) {
	p := &model.WorkerProfile{
		Name:              w.Name,
		HourlyRate:        w.HourlyRate,
		Rating:            w.Rating,
		CompletedBookings: w.CompletedBookings,
		IsAvailable:       !w.Unavailable,
		Details:           model.WorkerDetails{Skills: w.Skills},
	}
	if w.ID != "" {
		id, err := uuid.Parse(w.ID)
		if err != nil {
			return nil, fmt.Errorf("worker %q: invalid id: %w", w.Name, err)
		}
		p.ID = id
	}
	for _, key := range w.Services {
		id, ok := services[key]
		if !ok {
			return nil, fmt.Errorf("worker %q: unknown service %q", w.Name, key)
		}
		p.ServiceIDs = append(p.ServiceIDs, id)
	}
	return p, nil
}

func (w *Worker) toSlots() ([]*model.AvailabilitySlot, error) {
	slots := make([]*model.AvailabilitySlot, 0, len(w.Slots))
	for _, s := range w.Slots {
		day, err := parseWeekday(s.Day)
		if err != nil {
			return nil, fmt.Errorf("worker %q: %w", w.Name, err)
		}
		start, err := interval.ParseClock(s.Start)
		if err != nil {
			return nil, fmt.Errorf("worker %q: %w", w.Name, err)
		}
		end, err := interval.ParseClock(s.End)
		if err != nil {
			return nil, fmt.Errorf("worker %q: %w", w.Name, err)
		}
		slots = append(slots, &model.AvailabilitySlot{
			DayOfWeek:   int(day),
			StartMinute: start,
			EndMinute:   end,
			Active:      true,
		})
	}
	return slots, nil
}
