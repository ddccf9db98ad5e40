package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkerProfile is the typed view of a worker the engine ranks and filters.
// It is handed to the engine by a WorkerDirectory, never looked up ambiently.
type WorkerProfile struct {
	Base
	Name              string        `db:"name" json:"name" validate:"required,max=200"`
	ServiceIDs        []uuid.UUID   `db:"-" json:"service_ids"`
	HourlyRate        float64       `db:"hourly_rate" json:"hourly_rate" validate:"gte=0"`
	Rating            float64       `db:"rating" json:"rating" validate:"gte=0,lte=5"`
	CompletedBookings int           `db:"completed_bookings" json:"completed_bookings" validate:"gte=0"`
	IsAvailable       bool          `db:"is_available" json:"is_available"`
	Details           WorkerDetails `db:"details" json:"details"`
}

// OffersService reports whether serviceID is in the worker's assigned set.
func (w *WorkerProfile) OffersService(serviceID uuid.UUID) bool {
	for _, id := range w.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// WorkerDetails holds optional descriptive attributes. They do not take part
// in matching.
type WorkerDetails struct {
	Bio            *string         `json:"bio,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
}

type Certification struct {
	Name      string     `json:"name"`
	IssuedBy  string     `json:"issued_by,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (d WorkerDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *WorkerDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = WorkerDetails{}
		return nil
	case []byte:
		if len(v) == 0 {
			*d = WorkerDetails{}
			return nil
		}
		return json.Unmarshal(v, d)
	case string:
		if v == "" {
			*d = WorkerDetails{}
			return nil
		}
		return json.Unmarshal([]byte(v), d)
	}
	return fmt.Errorf("cannot scan %T into WorkerDetails", src)
}
