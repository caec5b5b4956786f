package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/email"
	"fanplatform.dk/internal/events"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/paymentgateway"
	"fanplatform.dk/internal/sms"
	"fanplatform.dk/internal/store"
)

type LinkMailer interface {
	SendPaymentLink(ctx context.Context, to string, data email.PaymentLink) error
}

type TextSender interface {
	Enabled() bool
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

type PaymentHandlers struct {
	Store   store.Store
	Gateway paymentgateway.Gateway
	Events  events.Publisher
	Mailer  LinkMailer
	SMS     TextSender
}

func NewPaymentHandlers(s store.Store, g paymentgateway.Gateway, p events.Publisher, m LinkMailer, t TextSender) *PaymentHandlers {
	return &PaymentHandlers{Store: s, Gateway: g, Events: p, Mailer: m, SMS: t}
}

const dateLayout = "2006-01-02"

func parseDate(q, name string) (*time.Time, error) {
	if q == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, q)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, q)
	}
	return &d, nil
}

// filterFromQuery reads status, search, date_from, date_to and club_id.
func filterFromQuery(r *http.Request) (models.PaymentFilter, error) {
	q := r.URL.Query()
	var f models.PaymentFilter
	var err error

	if s := q.Get("status"); s != "" && s != "all" {
		f.Status = models.PaymentStatus(s)
		if !f.Status.Valid() {
			return f, fmt.Errorf("invalid status %q", s)
		}
	}
	f.Search = q.Get("search")
	if f.DateFrom, err = parseDate(q.Get("date_from"), "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate(q.Get("date_to"), "date_to"); err != nil {
		return f, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, fmt.Errorf("date_to is before date_from")
	}
	if c := q.Get("club_id"); c != "" {
		if f.ClubID, err = strconv.ParseInt(c, 10, 64); err != nil {
			return f, fmt.Errorf("invalid club_id %q", c)
		}
	}
	return f, nil
}

// ListPayments handles GET /api/payments.
func (h *PaymentHandlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payments, err := h.Store.ListPayments(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err, "")
		return
	}
	items, next := store.Page(payments, r.URL.Query().Get("cursor"), limit, func(p models.Payment) string { return p.ID })
	writeJSON(w, http.StatusOK, models.PaymentPage{Items: items, NextCursor: next})
}

// SendPaymentLink handles POST /api/payments/{id}/send. The payment is
// claimed by moving it to processing first; if delivery then fails it moves
// on to failed so the link can be sent again.
func (h *PaymentHandlers) SendPaymentLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID := r.PathValue("id")

	p, err := h.Store.GetPayment(ctx, paymentID)
	if err != nil {
		writeStoreError(w, r, err, "payment not found")
		return
	}
	if !p.Status.Sendable() {
		writeError(w, http.StatusConflict, "payment link cannot be sent in status "+string(p.Status))
		return
	}
	if p, err = h.Store.TransitionPayment(ctx, paymentID, models.PaymentStatusProcessing); err != nil {
		writeStoreError(w, r, err, "payment not found")
		return
	}
	events.Emit(ctx, h.Events, events.Event{Type: events.TypePaymentStatus, ClubID: p.ClubID, ResourceID: p.ID, Status: string(p.Status)})

	if err := h.deliver(ctx, p); err != nil {
		slog.Error("Failed to deliver payment link", "payment_id", paymentID, "error", err)
		if failed, terr := h.Store.TransitionPayment(ctx, paymentID, models.PaymentStatusFailed); terr != nil {
			slog.Error("Failed to mark payment as failed", "payment_id", paymentID, "error", terr)
		} else {
			events.Emit(ctx, h.Events, events.Event{Type: events.TypePaymentStatus, ClubID: failed.ClubID, ResourceID: failed.ID, Status: string(failed.Status)})
		}
		writeError(w, http.StatusBadGateway, "failed to send payment link")
		return
	}

	slog.Info("Payment link sent", "payment_id", paymentID, "member_id", p.Member.ID)
	events.Emit(ctx, h.Events, events.Event{Type: events.TypePaymentLinkSent, ClubID: p.ClubID, ResourceID: p.ID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentHandlers) deliver(ctx context.Context, p *models.Payment) error {
	// one checkout session per send attempt
	var stamp int64
	if p.UpdatedAt != nil {
		stamp = p.UpdatedAt.UnixNano()
	}
	attempt := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("fanplatform:payment:%s:%d", p.ID, stamp))).String()
	checkout, err := h.Gateway.CreateCheckout(ctx, paymentgateway.CheckoutRequest{
		IntentID:    attempt,
		ClubID:      p.ClubID,
		FeeID:       p.ID,
		Title:       p.Title,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Customer:    paymentgateway.Customer{Email: p.Member.Email, Name: p.Member.Name, Phone: p.Member.Phone},
	})
	if err != nil {
		return fmt.Errorf("create checkout: %w", err)
	}

	club, err := h.Store.GetClubSettings(ctx, strconv.FormatInt(p.ClubID, 10))
	if err != nil {
		return fmt.Errorf("load club settings: %w", err)
	}
	amount := models.FormatAmount(p.AmountCents, p.Currency)
	link := email.PaymentLink{
		Name:        p.Member.Name,
		ClubName:    club.Name,
		Title:       p.Title,
		Amount:      amount,
		CheckoutURL: checkout.CheckoutURL,
		Color:       club.PrimaryColor,
	}
	if p.DueAt != nil {
		link.DueDate = p.DueAt.Format(dateLayout)
	}
	if h.Mailer == nil {
		return errors.New("no mailer configured")
	}
	if err := h.Mailer.SendPaymentLink(ctx, p.Member.Email, link); err != nil {
		return err
	}

	if p.Member.Phone != "" && !auth.ValidatePhone(p.Member.Phone) {
		slog.Warn("Member phone is not in international format, SMS skipped", "payment_id", p.ID)
	} else if p.Member.Phone != "" && h.SMS != nil && h.SMS.Enabled() {
		// email already went out; an SMS failure is not fatal
		if err := h.SMS.SendSMS(ctx, p.Member.Phone, sms.PaymentLinkText(club.Name, p.Title, amount, checkout.CheckoutURL)); err != nil {
			slog.Warn("Failed to send payment link SMS", "payment_id", p.ID, "error", err)
		}
	}
	return nil
}
