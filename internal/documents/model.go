package documents

import (
	"time"

	"propertycare-backend/internal/receipts"
)

const (
	KindReceipt    = "receipt"
	KindAttachment = "attachment"

	StatusUnattached = "unattached"
	StatusAttached   = "attached"
)

// Document is an uploaded file owned by a user. Receipts move from
// unattached to attached exactly once.
type Document struct {
	ID               string
	OwnerID          string
	OriginalName     string
	StoredName       string
	StorageKey       string
	MimeType         string
	SizeBytes        int64
	Kind             string
	Status           string
	PropertyID       *string
	MaintenanceLogID *string
	Extracted        *receipts.Fields
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ListFilter narrows a document listing. Empty strings match everything.
type ListFilter struct {
	OwnerID    string
	Kind       string
	Status     string
	PropertyID string
	LogID      string
	Limit      int
	Skip       int
}
