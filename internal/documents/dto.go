package documents

import (
	"math"
	"strconv"
	"strings"
	"time"

	"propertycare-backend/internal/maintenance"
	"propertycare-backend/internal/receipts"
	"propertycare-backend/internal/shared/util"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID               string           `json:"id"`
	OriginalName     string           `json:"originalName"`
	StoredName       string           `json:"storedName"`
	MimeType         string           `json:"mimeType"`
	SizeBytes        int64            `json:"sizeBytes"`
	Kind             string           `json:"kind"`
	Status           string           `json:"status"`
	PropertyID       *string          `json:"propertyId"`
	MaintenanceLogID *string          `json:"maintenanceLogId"`
	Extracted        *receipts.Fields `json:"extracted"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID,
		OriginalName:     doc.OriginalName,
		StoredName:       doc.StoredName,
		MimeType:         doc.MimeType,
		SizeBytes:        doc.SizeBytes,
		Kind:             doc.Kind,
		Status:           doc.Status,
		PropertyID:       doc.PropertyID,
		MaintenanceLogID: doc.MaintenanceLogID,
		Extracted:        doc.Extracted,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

type listResponse struct {
	Items []DocumentResponse `json:"items"`
	Total int                `json:"total"`
	Limit int                `json:"limit"`
	Skip  int                `json:"skip"`
}

type createLogResponse struct {
	Document DocumentResponse        `json:"document"`
	Log      maintenance.LogResponse `json:"log"`
}

// updateRequest accepts loosely typed amount and date values from forms.
type updateRequest struct {
	Vendor          Optional[string] `json:"vendor"`
	Amount          Optional[any]    `json:"amount"`
	Date            Optional[any]    `json:"date"`
	Category        Optional[string] `json:"category"`
	TitleSuggestion Optional[string] `json:"titleSuggestion"`
}

func (r updateRequest) toPatch() Patch {
	p := Patch{
		Vendor:          r.Vendor,
		Category:        r.Category,
		TitleSuggestion: r.TitleSuggestion,
	}
	if r.Amount.Set {
		p.Amount = Optional[float64]{Set: true, Value: looseAmount(r.Amount.Value)}
	}
	if r.Date.Set {
		p.Date = Optional[time.Time]{Set: true, Value: looseDate(r.Date.Value)}
	}
	return p
}

type attachRequest struct {
	PropertyID string `json:"propertyId"`
	LogID      string `json:"logId"`
}

type createLogRequest struct {
	PropertyID string `json:"propertyId"`
	Overrides  struct {
		Title           *string `json:"title"`
		ServiceDate     *string `json:"serviceDate"`
		Vendor          *string `json:"vendor"`
		Category        *string `json:"category"`
		Cost            any     `json:"cost"`
		Notes           *string `json:"notes"`
		NextDueDate     *string `json:"nextDueDate"`
		ReminderEnabled *bool   `json:"reminderEnabled"`
	} `json:"overrides"`
}

func (r createLogRequest) toOverrides() LogOverrides {
	o := LogOverrides{
		Title:           r.Overrides.Title,
		Vendor:          r.Overrides.Vendor,
		Category:        r.Overrides.Category,
		Cost:            looseAmount(&r.Overrides.Cost),
		Notes:           r.Overrides.Notes,
		ReminderEnabled: r.Overrides.ReminderEnabled,
	}
	if r.Overrides.ServiceDate != nil {
		o.ServiceDate = util.ParseDate(*r.Overrides.ServiceDate)
	}
	if r.Overrides.NextDueDate != nil {
		o.NextDueDate = util.ParseDate(*r.Overrides.NextDueDate)
	}
	return o
}

// looseAmount accepts a JSON number or numeric string. Blank, non-finite,
// negative or unparseable values become nil.
func looseAmount(v *any) *float64 {
	if v == nil || *v == nil {
		return nil
	}
	var f float64
	switch x := (*v).(type) {
	case float64:
		f = x
	case string:
		s := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(x))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

// looseDate accepts a date string; anything else becomes nil.
func looseDate(v *any) *time.Time {
	if v == nil {
		return nil
	}
	s, ok := (*v).(string)
	if !ok {
		return nil
	}
	return util.ParseDate(s)
}
