package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"propertycare-backend/internal/receipts"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // id -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok || doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

// List returns matching documents newest first, with the total before paging.
func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	matched := make([]Document, 0)
	for _, doc := range r.data {
		if matches(doc, f) {
			matched = append(matched, clone(doc))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Skip >= total {
		return []Document{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Skip+f.Limit < end {
		end = f.Skip + f.Limit
	}
	return matched[f.Skip:end], total, nil
}

func (r *MemoryRepo) UpdateExtracted(ctx context.Context, ownerID, id string, fields receipts.Fields, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.OwnerID != ownerID {
		return ErrNotFound
	}
	doc.Extracted = &fields
	doc.UpdatedAt = updatedAt
	r.data[id] = clone(doc)
	return nil
}

func (r *MemoryRepo) Attach(ctx context.Context, ownerID, id, propertyID, logID string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.OwnerID != ownerID {
		return ErrNotFound
	}
	if doc.Status != StatusUnattached {
		return ErrAlreadyAttached
	}
	doc.Status = StatusAttached
	doc.PropertyID = &propertyID
	doc.MaintenanceLogID = &logID
	doc.UpdatedAt = updatedAt
	r.data[id] = doc
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) DeleteUnattachedBefore(ctx context.Context, ownerID string, cutoff time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := make([]Document, 0)
	for id, doc := range r.data {
		if doc.OwnerID != ownerID || doc.Kind != KindReceipt || doc.Status != StatusUnattached {
			continue
		}
		if !doc.CreatedAt.Before(cutoff) {
			continue
		}
		removed = append(removed, doc)
		delete(r.data, id)
	}
	return removed, nil
}

func matches(doc Document, f ListFilter) bool {
	if doc.OwnerID != f.OwnerID {
		return false
	}
	if f.Kind != "" && doc.Kind != f.Kind {
		return false
	}
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.PropertyID != "" && (doc.PropertyID == nil || *doc.PropertyID != f.PropertyID) {
		return false
	}
	if f.LogID != "" && (doc.MaintenanceLogID == nil || *doc.MaintenanceLogID != f.LogID) {
		return false
	}
	return true
}

// clone detaches pointer fields so callers cannot mutate stored state.
func clone(doc Document) Document {
	if doc.Extracted != nil {
		fields := *doc.Extracted
		doc.Extracted = &fields
	}
	if doc.PropertyID != nil {
		v := *doc.PropertyID
		doc.PropertyID = &v
	}
	if doc.MaintenanceLogID != nil {
		v := *doc.MaintenanceLogID
		doc.MaintenanceLogID = &v
	}
	return doc
}

var _ Repo = (*MemoryRepo)(nil)
