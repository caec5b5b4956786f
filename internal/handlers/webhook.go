package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"fanplatform.dk/internal/events"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

// SignatureHeader carries hex(HMAC-SHA256(secret, body)).
const SignatureHeader = "X-Signature"

type checkoutNotification struct {
	IntentID  string `json:"intent_id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type WebhookHandlers struct {
	Store  store.Store
	Events events.Publisher
	Secret string
}

func NewWebhookHandlers(s store.Store, p events.Publisher, secret string) *WebhookHandlers {
	return &WebhookHandlers{Store: s, Events: p, Secret: secret}
}

// Sign returns the signature a provider sends for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret string, body []byte, got string) bool {
	want, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// CheckoutWebhook handles POST /api/webhooks/checkout and settles a fee
// (by intent_id) or a payment (by payment_id) as paid or failed.
func (h *WebhookHandlers) CheckoutWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if h.Secret == "" {
		slog.Warn("Webhook secret not configured, accepting unsigned notification")
	} else if !verifySignature(h.Secret, body, r.Header.Get(SignatureHeader)) {
		slog.Warn("Webhook signature mismatch", "ip", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var n checkoutNotification
	if err := json.Unmarshal(body, &n); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	if n.Status != "paid" && n.Status != "failed" {
		writeError(w, http.StatusBadRequest, "status must be paid or failed")
		return
	}

	switch {
	case n.IntentID != "":
		rec, fee, err := h.Store.SettleIntent(ctx, n.IntentID, models.FeeStatus(n.Status))
		if err != nil {
			writeStoreError(w, r, err, "intent not found")
			return
		}
		slog.Info("Fee settled by provider", "fee_id", fee.ID, "intent_id", rec.IntentID, "status", fee.Status)
		events.Emit(ctx, h.Events, events.Event{Type: events.TypeFeeStatus, ClubID: fee.ClubID, ResourceID: fee.ID, Status: string(fee.Status)})
	case n.PaymentID != "":
		p, err := h.Store.TransitionPayment(ctx, n.PaymentID, models.PaymentStatus(n.Status))
		if err != nil {
			writeStoreError(w, r, err, "payment not found")
			return
		}
		slog.Info("Payment settled by provider", "payment_id", p.ID, "status", p.Status)
		events.Emit(ctx, h.Events, events.Event{Type: events.TypePaymentStatus, ClubID: p.ClubID, ResourceID: p.ID, Status: string(p.Status)})
	default:
		writeError(w, http.StatusBadRequest, "intent_id or payment_id is required")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
