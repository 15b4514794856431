package maintenance

import "time"

// Property is a home or unit that maintenance is recorded against.
type Property struct {
	ID        string
	OwnerID   string
	Name      string
	Address   *string
	CreatedAt time.Time
}

// Log records one completed maintenance event at a property.
type Log struct {
	ID              string
	OwnerID         string
	PropertyID      string
	Title           string
	ServiceDate     time.Time
	Vendor          *string
	Category        string
	Cost            float64
	Notes           *string
	NextDueDate     *time.Time
	ReminderEnabled bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PropertyInput carries the caller-supplied fields for a new property.
type PropertyInput struct {
	Name    string
	Address *string
}

// LogInput carries the caller-supplied fields for a new maintenance log.
type LogInput struct {
	PropertyID      string
	Title           string
	ServiceDate     time.Time
	Vendor          *string
	Category        string
	Cost            float64
	Notes           *string
	NextDueDate     *time.Time
	ReminderEnabled bool
}
