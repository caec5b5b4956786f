package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fanplatform.dk/internal/models"
)

// createOrderRequest is the body of POST /orders/create.
type createOrderRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	MerchantOrderID string          `json:"merchant_order_id"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	Client          Customer        `json:"client"`
	Options         orderOptions    `json:"options"`
}

type orderOptions struct {
	ReturnURL string `json:"return_url"`
}

type orderResponse struct {
	Orders []struct {
		ID              string `json:"id"`
		Status          string `json:"status"`
		MerchantOrderID string `json:"merchant_order_id"`
	} `json:"orders"`
}

// HTTPGateway talks to a hosted checkout API: basic auth, 201 Created and
// the payment page in the Location header.
type HTTPGateway struct {
	httpClient *http.Client
	provider   models.Provider
	baseURL    string
	login      string
	password   string
	returnURL  string
}

func NewHTTPGateway(provider models.Provider, baseURL, login, password, returnURL string) *HTTPGateway {
	return &HTTPGateway{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		provider:   provider,
		baseURL:    baseURL,
		login:      login,
		password:   password,
		returnURL:  returnURL,
	}
}

func (g *HTTPGateway) CreateCheckout(ctx context.Context, in CheckoutRequest) (*Checkout, error) {
	bodyBytes, err := json.Marshal(createOrderRequest{
		Amount:          decimal.New(in.AmountCents, -2),
		MerchantOrderID: in.IntentID,
		Currency:        string(in.Currency),
		Description:     in.Title,
		Client:          in.Customer,
		Options:         orderOptions{ReturnURL: g.returnURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders/create", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create request: %w", err)
	}
	req.SetBasicAuth(g.login, g.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// the intent id doubles as the provider-side idempotency key
	req.Header.Set("Idempotency-Key", in.IntentID)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gateway: unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	paymentURL := resp.Header.Get("Location")
	if paymentURL == "" {
		return nil, fmt.Errorf("gateway: 'Location' header not found in response")
	}

	var orderResp orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, fmt.Errorf("gateway: failed to decode successful response: %w", err)
	}
	if len(orderResp.Orders) == 0 {
		return nil, fmt.Errorf("gateway: order details not found in response body")
	}

	return &Checkout{
		Provider:       g.provider,
		CheckoutURL:    paymentURL,
		GatewayOrderID: orderResp.Orders[0].ID,
	}, nil
}
