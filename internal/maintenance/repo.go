package maintenance

import "context"

// Repo defines persistence operations for properties and maintenance logs.
// Every lookup is scoped to the owner; a record owned by someone else is ErrNotFound.
type Repo interface {
	CreateProperty(ctx context.Context, p Property) error
	GetProperty(ctx context.Context, ownerID, id string) (Property, error)
	ListProperties(ctx context.Context, ownerID string) ([]Property, error)
	CreateLog(ctx context.Context, l Log) error
	GetLog(ctx context.Context, ownerID, id string) (Log, error)
	ListLogs(ctx context.Context, ownerID, propertyID string) ([]Log, error)
	DeleteLog(ctx context.Context, ownerID, id string) error
}
