package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidAmount is returned before any mutation when an amount is not a positive
	// number of minor units.
	ErrInvalidAmount = errors.New("amount must be a positive number of minor units")

	// ErrInvalidEntry indicates an entry is missing its account, reference or kind.
	ErrInvalidEntry = errors.New("invalid ledger entry")

	// ErrDuplicateReference indicates the (account, reference, kind) triple was already
	// applied. Callers that retried a request should treat it as success.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrInsufficientBalance occurs when a debit exceeds the account balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound occurs when the ledger has no account for the identifier.
	ErrAccountNotFound = errors.New("ledger account not found")

	// ErrEntryNotFound is returned by Lookup when no entry carries the reference.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrConflict is returned by stores when an optimistic write lost against a
	// concurrent writer. The guard retries it.
	ErrConflict = errors.New("ledger store write conflict")

	// ErrTransientConflict is surfaced once conflict retries are exhausted. It is safe
	// to retry the whole operation.
	ErrTransientConflict = errors.New("ledger store conflict, retry later")
)

// Kind distinguishes credits from debits.
type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

// Valid reports whether k is a known entry kind.
func (k Kind) Valid() bool {
	return k == KindCredit || k == KindDebit
}

// ParseKind converts a stored string into a Kind.
func ParseKind(v string) (Kind, error) {
	k := Kind(v)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, v)
	}
	return k, nil
}

// Entry is an immutable balance-affecting event. Amount is always positive; the
// Kind carries the sign.
type Entry struct {
	ID          string
	AccountID   string
	Kind        Kind
	Amount      int64
	ReferenceID string
	Description string
	CreatedAt   time.Time
}

// Signed returns the entry's effect on the balance.
func (e Entry) Signed() int64 {
	if e.Kind == KindDebit {
		return -e.Amount
	}
	return e.Amount
}

func (e Entry) validate() error {
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if e.AccountID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidEntry)
	}
	if e.ReferenceID == "" {
		return fmt.Errorf("%w: reference id is required", ErrInvalidEntry)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	return nil
}

// Page is one slice of an account's entries in (CreatedAt, ID) order. NextCursor is
// empty on the last page.
type Page struct {
	Entries    []Entry
	NextCursor string
}

// Store is the durable, append-only ledger. Implementations keep a cached balance per
// account that is updated in the same atomic unit as each Append.
type Store interface {
	EnsureAccount(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (int64, error)
	// Append records the entry or fails with ErrDuplicateReference (returning the
	// existing entry), ErrInsufficientBalance, ErrAccountNotFound or ErrConflict.
	Append(ctx context.Context, entry Entry) (Entry, error)
	Entries(ctx context.Context, accountID, cursor string, limit int) (Page, error)
	// Lookup returns the entry applied for (accountID, kind, referenceID) or
	// ErrEntryNotFound.
	Lookup(ctx context.Context, accountID string, kind Kind, referenceID string) (Entry, error)
}

func referenceKey(accountID string, kind Kind, referenceID string) string {
	return accountID + "|" + string(kind) + "|" + referenceID
}
