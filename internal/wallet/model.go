package wallet

import (
	"errors"
	"time"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
)

const (
	StatusActive = "active"
)

var (
	// ErrNotFound indicates no wallet exists for the identifier.
	ErrNotFound = errors.New("wallet not found")
	// ErrAlreadyExists indicates the owner already has a wallet.
	ErrAlreadyExists = errors.New("wallet already exists for owner")
	// ErrInvalidOwner indicates the owner identifier is empty.
	ErrInvalidOwner = errors.New("owner id is required")
)

// Wallet is the registry record of a ledger account owned by a platform user.
type Wallet struct {
	AccountID string
	OwnerID   string
	Currency  string
	Status    string
	CreatedAt time.Time
}

// Balance is the cached balance of a wallet at a point in time.
type Balance struct {
	AccountID string
	Amount    int64
	Currency  string
	AsOf      time.Time
}

// Statement is one page of wallet history together with the current balance.
type Statement struct {
	Balance    Balance
	Entries    []ledger.Entry
	NextCursor string
}
