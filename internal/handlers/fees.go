package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"fanplatform.dk/internal/events"
	"fanplatform.dk/internal/idempotency"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/paymentgateway"
	"fanplatform.dk/internal/store"
	"fanplatform.dk/internal/validation"
)

type FeeHandlers struct {
	Store   store.Store
	Keeper  idempotency.Keeper
	Gateway paymentgateway.Gateway
	Events  events.Publisher
}

func NewFeeHandlers(s store.Store, k idempotency.Keeper, g paymentgateway.Gateway, p events.Publisher) *FeeHandlers {
	return &FeeHandlers{Store: s, Keeper: k, Gateway: g, Events: p}
}

// IntentID derives the intent id from the idempotency key and attempt, so
// concurrent requests with one key agree on the id before the record is
// stored. The first attempt keeps the bare key.
func IntentID(key string, attempt int) string {
	name := "fanplatform:intent:" + key
	if attempt > 1 {
		name += "#" + strconv.Itoa(attempt)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// ListFees handles GET /api/clubs/{clubId}/fees.
func (h *FeeHandlers) ListFees(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathClubID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fees, err := h.Store.ListFees(r.Context(), clubID)
	if err != nil {
		writeStoreError(w, r, err, "club not found")
		return
	}
	items, next := store.Page(fees, r.URL.Query().Get("cursor"), limit, func(f models.Fee) string { return f.ID })
	writeJSON(w, http.StatusOK, models.FeePage{Items: items, NextCursor: next})
}

// CreateIntent handles POST /api/clubs/{clubId}/fees/{feeId}/intent.
//
// Requests are serialised per Idempotency-Key. A key whose latest intent is
// still awaiting the provider replays it; once that intent failed the same
// key starts a new attempt. A key seen with a different club, fee or client
// is 422.
func (h *FeeHandlers) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clubID, err := pathClubID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	feeID := r.PathValue("feeId")

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header is required")
		return
	}

	var req models.IntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validation.ValidateStruct(req); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	unlock, err := h.Keeper.Lock(ctx, key)
	if err != nil {
		slog.Warn("Failed to take idempotency lock", "key", key, "error", err)
		writeError(w, http.StatusServiceUnavailable, "request already in progress, retry later")
		return
	}
	defer unlock()

	fingerprint := idempotency.Fingerprint(strconv.FormatInt(clubID, 10), feeID, req.ClientID)
	if err := h.Keeper.Remember(ctx, key, fingerprint); err != nil {
		if errors.Is(err, idempotency.ErrKeyReused) {
			writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
			return
		}
		slog.Error("Idempotency keeper failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	fee, err := h.Store.GetFee(ctx, clubID, feeID)
	if err != nil {
		writeStoreError(w, r, err, "fee not found")
		return
	}

	attempt := 1
	existing, err := h.Store.GetIntentByKey(ctx, key)
	switch {
	case err == nil:
		if existing.ClubID != clubID || existing.FeeID != feeID || existing.ClientID != req.ClientID {
			writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
			return
		}
		if existing.Open() && fee.Status == models.FeeStatusProcessing {
			slog.Debug("Replaying payment intent", "key", key, "intent_id", existing.IntentID)
			w.Header().Set("Idempotent-Replayed", "true")
			writeJSON(w, http.StatusOK, existing.Intent())
			return
		}
		attempt = existing.Attempt + 1
	case !errors.Is(err, store.ErrNotFound):
		writeStoreError(w, r, err, "")
		return
	}

	if !fee.Status.Payable() {
		writeError(w, http.StatusConflict, "fee is not payable in status "+string(fee.Status))
		return
	}

	intentID := IntentID(key, attempt)
	checkoutReq := paymentgateway.CheckoutRequest{
		IntentID:    intentID,
		ClubID:      clubID,
		FeeID:       fee.ID,
		Title:       fee.Title,
		AmountCents: fee.AmountCents,
		Currency:    fee.Currency,
	}
	if a := callerAccount(r); a != nil {
		checkoutReq.Customer = paymentgateway.Customer{Email: a.Email, Name: a.Name}
	}
	checkout, err := h.Gateway.CreateCheckout(ctx, checkoutReq)
	if err != nil {
		slog.Error("Checkout creation failed", "fee_id", feeID, "intent_id", intentID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to create payment intent")
		return
	}

	rec, err := h.Store.StartIntent(ctx, models.IntentRecord{
		IdempotencyKey: key,
		Attempt:        attempt,
		IntentID:       intentID,
		ClubID:         clubID,
		FeeID:          feeID,
		ClientID:       req.ClientID,
		Provider:       checkout.Provider,
		CheckoutURL:    checkout.CheckoutURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, "fee is no longer payable")
			return
		}
		writeStoreError(w, r, err, "fee not found")
		return
	}

	slog.Info("Payment intent created", "club_id", clubID, "fee_id", feeID, "intent_id", rec.IntentID, "attempt", rec.Attempt, "provider", rec.Provider)
	events.Emit(ctx, h.Events, events.Event{Type: events.TypeIntentCreated, ClubID: clubID, ResourceID: rec.IntentID})
	events.Emit(ctx, h.Events, events.Event{Type: events.TypeFeeStatus, ClubID: clubID, ResourceID: feeID, Status: string(models.FeeStatusProcessing)})
	writeJSON(w, http.StatusCreated, rec.Intent())
}
