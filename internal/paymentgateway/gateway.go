// Package paymentgateway creates hosted checkout sessions for fees.
package paymentgateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"fanplatform.dk/internal/config"
	"fanplatform.dk/internal/models"
)

// CheckoutRequest describes the fee a checkout session is opened for.
type CheckoutRequest struct {
	IntentID    string
	ClubID      int64
	FeeID       string
	Title       string
	AmountCents int64
	Currency    models.Currency
	Customer    Customer
}

type Customer struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Checkout is a created session.
type Checkout struct {
	Provider       models.Provider
	CheckoutURL    string
	GatewayOrderID string
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// New picks the HTTP gateway when a base URL is configured, otherwise the mock.
func New(cfg config.PaymentsConfig) (Gateway, error) {
	provider := models.Provider(cfg.Provider)
	if !provider.Valid() {
		return nil, fmt.Errorf("paymentgateway: unknown provider %q", cfg.Provider)
	}
	if cfg.Gateway.BaseURL != "" {
		return NewHTTPGateway(provider, cfg.Gateway.BaseURL, cfg.Gateway.Login, cfg.Gateway.Password, cfg.Gateway.ReturnURL), nil
	}
	return NewMock(provider, cfg.CheckoutBaseURL), nil
}

// Mock issues deterministic checkout URLs of the form {base}/intent/{feeId}.
type Mock struct {
	provider models.Provider
	baseURL  string
}

func NewMock(provider models.Provider, baseURL string) *Mock {
	if baseURL == "" {
		baseURL = "https://checkout." + string(provider) + ".test"
	}
	return &Mock{provider: provider, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *Mock) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Checkout{
		Provider:       m.provider,
		CheckoutURL:    m.baseURL + "/intent/" + url.PathEscape(req.FeeID),
		GatewayOrderID: req.IntentID,
	}, nil
}
