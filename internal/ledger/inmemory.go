package ledger

import (
	"context"
	"sort"
	"sync"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	balances map[string]int64
	entries  map[string][]Entry
	refs     map[string]Entry
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests and
// local development.
func NewInMemory() Store {
	return &inMemoryStore{
		balances: make(map[string]int64),
		entries:  make(map[string][]Entry),
		refs:     make(map[string]Entry),
	}
}

func (s *inMemoryStore) EnsureAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[accountID]; !exists {
		s.balances[accountID] = 0
	}
	return nil
}

func (s *inMemoryStore) Balance(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, exists := s.balances[accountID]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (s *inMemoryStore) Append(_ context.Context, entry Entry) (Entry, error) {
	if err := entry.validate(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[entry.AccountID]
	if !ok {
		return Entry{}, ErrAccountNotFound
	}

	key := referenceKey(entry.AccountID, entry.Kind, entry.ReferenceID)
	if existing, exists := s.refs[key]; exists {
		return existing, ErrDuplicateReference
	}

	if entry.Kind == KindDebit && balance < entry.Amount {
		return Entry{}, ErrInsufficientBalance
	}

	list := s.entries[entry.AccountID]
	idx := sort.Search(len(list), func(i int) bool { return entryLess(entry, list[i]) })
	list = append(list, Entry{})
	copy(list[idx+1:], list[idx:])
	list[idx] = entry

	s.entries[entry.AccountID] = list
	s.refs[key] = entry
	s.balances[entry.AccountID] = balance + entry.Signed()
	return entry, nil
}

func (s *inMemoryStore) Entries(_ context.Context, accountID, cursor string, limit int) (Page, error) {
	after, err := ParseCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	limit = NormalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.balances[accountID]; !ok {
		return Page{}, ErrAccountNotFound
	}

	list := s.entries[accountID]
	start := 0
	if after != nil {
		start = sort.Search(len(list), func(i int) bool { return after.after(list[i]) })
	}

	end := start + limit + 1
	if end > len(list) {
		end = len(list)
	}
	out := make([]Entry, end-start)
	copy(out, list[start:end])
	return pageFrom(out, limit), nil
}

func (s *inMemoryStore) Lookup(_ context.Context, accountID string, kind Kind, referenceID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.refs[referenceKey(accountID, kind, referenceID)]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}
