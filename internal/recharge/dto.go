package recharge

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shifa-care/shifa_wallet/internal/money"
)

// SubmitRequest is the body of a recharge submission. Amount is in major units.
type SubmitRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method" validate:"omitempty,oneof=vodafone_cash"`
	FromPhoneNumber string          `json:"from_phone_number" validate:"required,min=8,max=20"`
	ProofReference  string          `json:"proof_reference" validate:"required,max=512"`
}

// DecideRequest is the body of an administrator decision.
type DecideRequest struct {
	Decision  string `json:"decision" validate:"required,oneof=approve reject"`
	AdminNote string `json:"admin_note" validate:"max=500"`
}

// RequestResponse is the wire form of a recharge request.
type RequestResponse struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Amount          string    `json:"amount"`
	AmountMinor     int64     `json:"amount_minor"`
	PaymentMethod   string    `json:"payment_method"`
	FromPhoneNumber string    `json:"from_phone_number"`
	ProofReference  string    `json:"proof_reference"`
	Status          string    `json:"status"`
	AdminNote       string    `json:"admin_note"`
	DecidedBy       string    `json:"decided_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ListResponse is the wire form of a listing.
type ListResponse struct {
	Recharges  []RequestResponse `json:"recharges"`
	Pagination Pagination        `json:"pagination"`
}

func toResponse(r Request) RequestResponse {
	return RequestResponse{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Amount:          money.ToMajor(r.Amount).StringFixed(money.MinorDigits),
		AmountMinor:     r.Amount,
		PaymentMethod:   r.PaymentMethod,
		FromPhoneNumber: r.FromPhoneNumber,
		ProofReference:  r.ProofReference,
		Status:          string(r.Status),
		AdminNote:       r.AdminNote,
		DecidedBy:       r.DecidedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toListResponse(res ListResult) ListResponse {
	out := make([]RequestResponse, 0, len(res.Requests))
	for _, r := range res.Requests {
		out = append(out, toResponse(r))
	}
	return ListResponse{
		Recharges:  out,
		Pagination: Pagination{Total: res.Total, Page: res.Page, Limit: res.Limit, Pages: res.Pages},
	}
}
