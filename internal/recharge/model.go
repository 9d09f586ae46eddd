package recharge

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNotFound indicates no recharge request exists for the identifier.
	ErrNotFound = errors.New("recharge request not found")
	// ErrAlreadyDecided indicates the request already left the pending state.
	ErrAlreadyDecided = errors.New("recharge request already decided")
	// ErrCreditReversed indicates an earlier approval credited and then reversed the
	// request; it can no longer be approved.
	ErrCreditReversed = errors.New("recharge credit was reversed, reject and resubmit")
	// ErrInvalidInput wraps submission validation failures.
	ErrInvalidInput = errors.New("invalid recharge request")
)

// Status is the lifecycle state of a recharge request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status filter value.
func ParseStatus(v string) (Status, error) {
	switch s := Status(v); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, v)
}

// Decision is an administrator's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a decision value.
func ParseDecision(v string) (Decision, error) {
	switch d := Decision(v); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, v)
}

func (d Decision) status() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// PaymentMethodVodafoneCash is the only accepted transfer channel.
const PaymentMethodVodafoneCash = "vodafone_cash"

// Request is a user's claim that they sent money out of band and want it credited.
type Request struct {
	ID              string
	AccountID       string
	Amount          int64
	PaymentMethod   string
	FromPhoneNumber string
	ProofReference  string
	Status          Status
	AdminNote       string
	DecidedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Outcome is the terminal state written when a request is decided.
type Outcome struct {
	Status    Status
	AdminNote string
	DecidedBy string
	At        time.Time
}

// Filter selects requests for listing. Zero values mean "any".
type Filter struct {
	Status    Status
	AccountID string
	Page      int
	Limit     int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if maxPage := math.MaxInt/f.Limit + 1; f.Page > maxPage {
		f.Page = maxPage
	}
	return f
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.Limit
}

// ListResult is one page of requests, newest first.
type ListResult struct {
	Requests []Request
	Total    int
	Page     int
	Limit    int
	Pages    int
}

func newListResult(requests []Request, total int, f Filter) ListResult {
	pages := 0
	if total > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return ListResult{Requests: requests, Total: total, Page: f.Page, Limit: f.Limit, Pages: pages}
}
