package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"fanplatform.dk/internal/middleware"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
)

const maxJSONBody = 1 << 20

// ValidationMessage is the error text returned with field errors.
const ValidationMessage = "Please check your information and try again"

type errorResponse struct {
	Error  string     `json:"error"`
	Fields url.Values `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeValidationErrors(w http.ResponseWriter, fields url.Values) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ValidationMessage, Fields: fields})
}

// writeStoreError maps store sentinels onto status codes; anything else is logged as a 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "status does not allow this operation")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "already exists")
	default:
		slog.Error("Store error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return nil
}

func pathClubID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("clubId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid club id %q", r.PathValue("clubId"))
	}
	return id, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

// callerID is the authenticated account, or the demo profile when
// authentication is not enforced.
func callerID(r *http.Request, requireAuth bool) (string, bool) {
	if a, ok := middleware.AccountFromContext(r.Context()); ok {
		return a.ID, true
	}
	if requireAuth {
		return "", false
	}
	return store.DemoProfileID, true
}

func callerAccount(r *http.Request) *models.Account {
	a, _ := middleware.AccountFromContext(r.Context())
	return a
}
