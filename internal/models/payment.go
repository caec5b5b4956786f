package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyDKK Currency = "DKK"
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

type FeeStatus string

const (
	FeeStatusUnpaid     FeeStatus = "unpaid"
	FeeStatusProcessing FeeStatus = "processing"
	FeeStatusPaid       FeeStatus = "paid"
	FeeStatusFailed     FeeStatus = "failed"
)

// feeTransitions is the forward-only lifecycle of a fee. failed may retry.
var feeTransitions = map[FeeStatus][]FeeStatus{
	FeeStatusUnpaid:     {FeeStatusProcessing},
	FeeStatusProcessing: {FeeStatusPaid, FeeStatusFailed},
	FeeStatusFailed:     {FeeStatusProcessing},
}

func (s FeeStatus) Valid() bool {
	switch s {
	case FeeStatusUnpaid, FeeStatusProcessing, FeeStatusPaid, FeeStatusFailed:
		return true
	}
	return false
}

func (s FeeStatus) CanTransitionTo(next FeeStatus) bool {
	for _, allowed := range feeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payable reports whether a checkout may be started for a fee in this status.
func (s FeeStatus) Payable() bool {
	return s.CanTransitionTo(FeeStatusProcessing)
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing},
	PaymentStatusProcessing: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:     {PaymentStatusProcessing},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func PaymentStatusesBefore(next PaymentStatus) []PaymentStatus {
	var out []PaymentStatus
	for from, tos := range paymentTransitions {
		for _, to := range tos {
			if to == next {
				out = append(out, from)
			}
		}
	}
	return out
}

// Sendable reports whether a payment link may be (re)sent for this status.
func (s PaymentStatus) Sendable() bool {
	return s.CanTransitionTo(PaymentStatusProcessing)
}

// Fee is a billable obligation of a club towards its members.
type Fee struct {
	ID          string     `json:"id"`
	ClubID      int64      `json:"club_id"`
	Title       string     `json:"title"`
	AmountCents int64      `json:"amount_cents"`
	Currency    Currency   `json:"currency"`
	DueAt       *time.Time `json:"due_at"`
	Status      FeeStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type FeePage struct {
	Items      []Fee   `json:"items"`
	NextCursor *string `json:"next_cursor"`
}

type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Payment is a fee charged to a specific member.
type Payment struct {
	ID          string        `json:"id"`
	ClubID      int64         `json:"club_id"`
	Member      Member        `json:"member"`
	Title       string        `json:"title"`
	AmountCents int64         `json:"amount_cents"`
	Currency    Currency      `json:"currency"`
	DueAt       *time.Time    `json:"due_at"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   *time.Time    `json:"updated_at"`
}

type PaymentPage struct {
	Items      []Payment `json:"items"`
	NextCursor *string   `json:"next_cursor"`
}

// PaymentFilter narrows GET /api/payments.
type PaymentFilter struct {
	ClubID   int64
	Status   PaymentStatus
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Matches applies the filter to a single payment. DateTo is inclusive of the whole day.
func (f PaymentFilter) Matches(p Payment) bool {
	if f.ClubID != 0 && p.ClubID != f.ClubID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(p.Member.Name), q) &&
			!strings.Contains(strings.ToLower(p.Member.Email), q) &&
			!strings.Contains(strings.ToLower(p.Title), q) {
			return false
		}
	}
	if f.DateFrom != nil || f.DateTo != nil {
		if p.DueAt == nil {
			return false
		}
		if f.DateFrom != nil && p.DueAt.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && !p.DueAt.Before(f.DateTo.AddDate(0, 0, 1)) {
			return false
		}
	}
	return true
}

type Provider string

const (
	ProviderStripe    Provider = "stripe"
	ProviderMobilePay Provider = "mobilepay"
)

func (p Provider) Valid() bool {
	return p == ProviderStripe || p == ProviderMobilePay
}

// PaymentIntent is a checkout session issued for a fee.
type PaymentIntent struct {
	IntentID    string   `json:"intent_id"`
	Provider    Provider `json:"provider"`
	CheckoutURL string   `json:"checkout_url"`
}

// IntentRecord is the server-side copy of an issued intent. A key may carry
// several attempts; only the latest one is live.
type IntentRecord struct {
	IdempotencyKey string
	Attempt        int
	IntentID       string
	ClubID         int64
	FeeID          string
	ClientID       string
	Provider       Provider
	CheckoutURL    string
	// Status follows the fee from processing to paid or failed.
	Status    FeeStatus
	CreatedAt time.Time
}

// Open reports whether the checkout of this attempt is still awaiting the provider.
func (r IntentRecord) Open() bool { return r.Status == FeeStatusProcessing }

func (r IntentRecord) Intent() PaymentIntent {
	return PaymentIntent{IntentID: r.IntentID, Provider: r.Provider, CheckoutURL: r.CheckoutURL}
}

// FormatAmount renders minor units as "150.00 DKK".
func FormatAmount(amountCents int64, currency Currency) string {
	return fmt.Sprintf("%s %s", decimal.New(amountCents, -2).StringFixed(2), currency)
}

// IntentRequest is the body of POST /api/clubs/{clubId}/fees/{feeId}/intent.
type IntentRequest struct {
	ClientID string `json:"client_id" validate:"required,max=128"`
}
