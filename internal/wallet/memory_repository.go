package wallet

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Wallet
	owners  map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Wallet), owners: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.owners[wallet.OwnerID]; exists {
		return ErrAlreadyExists
	}
	if _, exists := r.storage[wallet.AccountID]; exists {
		return ErrAlreadyExists
	}
	r.storage[wallet.AccountID] = wallet
	r.owners[wallet.OwnerID] = wallet.AccountID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, accountID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[accountID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByOwner(_ context.Context, ownerID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.owners[ownerID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.storage[id], nil
}
