package apiclient

import (
	"encoding/json"
	"fmt"
	"time"

	"fanplatform.dk/internal/models"
)

// flexID accepts ids sent either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

func (f *flexID) ptr() *string {
	if f == nil || *f == "" {
		return nil
	}
	s := string(*f)
	return &s
}

type feeDTO struct {
	ID          flexID           `json:"id"`
	ClubID      int64            `json:"club_id"`
	Title       string           `json:"title"`
	AmountCents int64            `json:"amount_cents"`
	Currency    models.Currency  `json:"currency"`
	DueAt       *time.Time       `json:"due_at"`
	Status      models.FeeStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at"`
}

func (d feeDTO) model() models.Fee {
	return models.Fee{
		ID:          string(d.ID),
		ClubID:      d.ClubID,
		Title:       d.Title,
		AmountCents: d.AmountCents,
		Currency:    d.Currency,
		DueAt:       d.DueAt,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type feePageDTO struct {
	Items      []feeDTO `json:"items"`
	NextCursor *flexID  `json:"next_cursor"`
}

type memberDTO struct {
	ID     flexID `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type paymentDTO struct {
	ID          flexID               `json:"id"`
	ClubID      int64                `json:"club_id"`
	Member      memberDTO            `json:"member"`
	Title       string               `json:"title"`
	AmountCents int64                `json:"amount_cents"`
	Currency    models.Currency      `json:"currency"`
	DueAt       *time.Time           `json:"due_at"`
	Status      models.PaymentStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   *time.Time           `json:"updated_at"`
}

func (d paymentDTO) model() models.Payment {
	return models.Payment{
		ID:     string(d.ID),
		ClubID: d.ClubID,
		Member: models.Member{
			ID:     string(d.Member.ID),
			Name:   d.Member.Name,
			Email:  d.Member.Email,
			Phone:  d.Member.Phone,
			Avatar: d.Member.Avatar,
		},
		Title:       d.Title,
		AmountCents: d.AmountCents,
		Currency:    d.Currency,
		DueAt:       d.DueAt,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type paymentPageDTO struct {
	Items      []paymentDTO `json:"items"`
	NextCursor *flexID      `json:"next_cursor"`
}

type intentDTO struct {
	IntentID    string          `json:"intent_id"`
	Provider    models.Provider `json:"provider"`
	CheckoutURL string          `json:"checkout_url"`
}
