package model

// Service is an offering from the catalog. Bookings copy its name, duration
// and price at booking time.
type Service struct {
	Base
	Name        string  `db:"name" json:"name" validate:"required,max=200"`
	Description string  `db:"description" json:"description"`
	Duration    int     `db:"duration" json:"duration" validate:"gt=0"` // in minutes
	Price       float64 `db:"price" json:"price" validate:"gte=0"`
	Active      bool    `db:"active" json:"active"`
}
