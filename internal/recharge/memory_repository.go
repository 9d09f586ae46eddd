package recharge

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Request
}

// NewMemoryRepository constructs an in-memory repository for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Request)}
}

func (r *memoryRepository) Create(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[req.ID] = req
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.storage[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (r *memoryRepository) Transition(_ context.Context, id string, out Outcome) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.storage[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyDecided
	}
	req.Status = out.Status
	req.AdminNote = out.AdminNote
	req.DecidedBy = out.DecidedBy
	req.UpdatedAt = out.At
	r.storage[id] = req
	return req, nil
}

func (r *memoryRepository) List(_ context.Context, f Filter) ([]Request, int, error) {
	r.mu.RLock()
	matched := make([]Request, 0)
	for _, req := range r.storage {
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if f.AccountID != "" && req.AccountID != f.AccountID {
			continue
		}
		matched = append(matched, req)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := f.offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if f.Limit < total-start {
		end = start + f.Limit
	}
	return matched[start:end], total, nil
}
