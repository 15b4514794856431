package maintenance

import "time"

// PropertyResponse is the outward-facing representation of a property.
type PropertyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// LogResponse is the outward-facing representation of a maintenance log.
type LogResponse struct {
	ID              string     `json:"id"`
	PropertyID      string     `json:"propertyId"`
	Title           string     `json:"title"`
	ServiceDate     time.Time  `json:"serviceDate"`
	Vendor          *string    `json:"vendor"`
	Category        string     `json:"category"`
	Cost            float64    `json:"cost"`
	Notes           *string    `json:"notes"`
	NextDueDate     *time.Time `json:"nextDueDate"`
	ReminderEnabled bool       `json:"reminderEnabled"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toPropertyResponse(p Property) PropertyResponse {
	return PropertyResponse{ID: p.ID, Name: p.Name, Address: p.Address, CreatedAt: p.CreatedAt}
}

// ToLogResponse converts a Log for JSON output.
func ToLogResponse(l Log) LogResponse {
	return LogResponse{
		ID:              l.ID,
		PropertyID:      l.PropertyID,
		Title:           l.Title,
		ServiceDate:     l.ServiceDate,
		Vendor:          l.Vendor,
		Category:        l.Category,
		Cost:            l.Cost,
		Notes:           l.Notes,
		NextDueDate:     l.NextDueDate,
		ReminderEnabled: l.ReminderEnabled,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}
