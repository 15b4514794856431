package maintenance

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu         sync.RWMutex
	properties map[string]Property
	logs       map[string]Log
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		properties: make(map[string]Property),
		logs:       make(map[string]Log),
	}
}

func (r *MemoryRepo) CreateProperty(ctx context.Context, p Property) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[p.ID] = p
	return nil
}

func (r *MemoryRepo) GetProperty(ctx context.Context, ownerID, id string) (Property, error) {
	if err := ctx.Err(); err != nil {
		return Property{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.properties[id]
	if !ok || p.OwnerID != ownerID {
		return Property{}, ErrNotFound
	}
	return p, nil
}

// ListProperties returns the owner's properties, newest first.
func (r *MemoryRepo) ListProperties(ctx context.Context, ownerID string) ([]Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Property, 0)
	for _, p := range r.properties {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) CreateLog(ctx context.Context, l Log) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[l.ID] = l
	return nil
}

func (r *MemoryRepo) GetLog(ctx context.Context, ownerID, id string) (Log, error) {
	if err := ctx.Err(); err != nil {
		return Log{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[id]
	if !ok || l.OwnerID != ownerID {
		return Log{}, ErrNotFound
	}
	return l, nil
}

// ListLogs returns the property's logs, most recent service first.
func (r *MemoryRepo) ListLogs(ctx context.Context, ownerID, propertyID string) ([]Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Log, 0)
	for _, l := range r.logs {
		if l.OwnerID == ownerID && l.PropertyID == propertyID {
			out = append(out, l)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ServiceDate.Equal(out[j].ServiceDate) {
			return out[i].ServiceDate.After(out[j].ServiceDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) DeleteLog(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.logs, id)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
