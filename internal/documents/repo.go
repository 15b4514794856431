package documents

import (
	"context"
	"time"

	"propertycare-backend/internal/receipts"
)

// Repo defines persistence operations for documents. Lookups are owner-scoped.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, ownerID, id string) (Document, error)
	List(ctx context.Context, f ListFilter) ([]Document, int, error)
	UpdateExtracted(ctx context.Context, ownerID, id string, fields receipts.Fields, updatedAt time.Time) error
	// Attach links the document only while it is still unattached at write
	// time; otherwise it returns ErrAlreadyAttached and changes nothing.
	Attach(ctx context.Context, ownerID, id, propertyID, logID string, updatedAt time.Time) error
	Delete(ctx context.Context, ownerID, id string) error
	// DeleteUnattachedBefore removes unattached receipts created strictly
	// before cutoff and returns the removed records.
	DeleteUnattachedBefore(ctx context.Context, ownerID string, cutoff time.Time) ([]Document, error)
}
