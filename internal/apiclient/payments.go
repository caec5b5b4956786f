package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"fanplatform.dk/internal/models"
)

// IdempotencyKey is derived only from the club, fee and client so retries and
// double submissions of the same payment carry the same key.
func IdempotencyKey(clubID int64, feeID, clientID string) string {
	return fmt.Sprintf("pay:%d:%s:%s", clubID, feeID, clientID)
}

func (c *Client) ListFees(ctx context.Context, clubID int64, cursor string, limit int) (*models.FeePage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var dto feePageDTO
	path := fmt.Sprintf("/api/clubs/%d/fees?%s", clubID, q.Encode())
	if err := c.do(ctx, "fetch fees", http.MethodGet, path, nil, nil, &dto); err != nil {
		return nil, err
	}
	page := &models.FeePage{Items: make([]models.Fee, 0, len(dto.Items)), NextCursor: dto.NextCursor.ptr()}
	for _, f := range dto.Items {
		page.Items = append(page.Items, f.model())
	}
	return page, nil
}

// PaymentQuery holds the filters of GET /api/payments. Zero values are omitted.
type PaymentQuery struct {
	ClubID   int64
	Status   models.PaymentStatus
	Search   string
	DateFrom string // YYYY-MM-DD
	DateTo   string
	Cursor   string
	Limit    int
}

func (q PaymentQuery) Values() url.Values {
	v := url.Values{}
	if q.ClubID != 0 {
		v.Set("club_id", strconv.FormatInt(q.ClubID, 10))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.DateFrom != "" {
		v.Set("date_from", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("date_to", q.DateTo)
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (c *Client) ListPayments(ctx context.Context, q PaymentQuery) (*models.PaymentPage, error) {
	var dto paymentPageDTO
	if err := c.do(ctx, "fetch payments", http.MethodGet, "/api/payments?"+q.Values().Encode(), nil, nil, &dto); err != nil {
		return nil, err
	}
	page := &models.PaymentPage{Items: make([]models.Payment, 0, len(dto.Items)), NextCursor: dto.NextCursor.ptr()}
	for _, p := range dto.Items {
		page.Items = append(page.Items, p.model())
	}
	return page, nil
}

// CreatePaymentIntent posts the intent request with an Idempotency-Key
// header; a replay returns the intent issued for the first request.
func (c *Client) CreatePaymentIntent(ctx context.Context, clubID int64, feeID, clientID string) (*models.PaymentIntent, error) {
	header := http.Header{"Idempotency-Key": {IdempotencyKey(clubID, feeID, clientID)}}
	body := models.IntentRequest{ClientID: clientID}
	path := fmt.Sprintf("/api/clubs/%d/fees/%s/intent", clubID, url.PathEscape(feeID))

	var dto intentDTO
	if err := c.do(ctx, "create payment intent", http.MethodPost, path, header, body, &dto); err != nil {
		return nil, err
	}
	return &models.PaymentIntent{IntentID: dto.IntentID, Provider: dto.Provider, CheckoutURL: dto.CheckoutURL}, nil
}

func (c *Client) SendPaymentLink(ctx context.Context, paymentID string) error {
	path := "/api/payments/" + url.PathEscape(paymentID) + "/send"
	return c.do(ctx, "send payment link", http.MethodPost, path, nil, nil, nil)
}
