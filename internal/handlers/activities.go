package handlers

import (
	"net/http"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
	"fanplatform.dk/internal/validation"
)

type ActivityHandlers struct {
	Store       store.Store
	RequireAuth bool
}

func NewActivityHandlers(s store.Store, requireAuth bool) *ActivityHandlers {
	return &ActivityHandlers{Store: s, RequireAuth: requireAuth}
}

// ListActivities handles GET /api/clubs/{clubId}/activities, soonest first.
func (h *ActivityHandlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	clubID, err := pathClubID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	memberID, _ := callerID(r, h.RequireAuth)
	list, err := h.Store.ListActivities(r.Context(), clubID, memberID)
	if err != nil {
		writeStoreError(w, r, err, "club not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ActivityHandlers) RSVP(w http.ResponseWriter, r *http.Request) {
	memberID, ok := callerID(r, h.RequireAuth)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req models.RSVPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validation.ValidateStruct(req); errs != nil {
		writeValidationErrors(w, errs)
		return
	}
	a, err := h.Store.SetRSVP(r.Context(), r.PathValue("id"), memberID, req.Response)
	if err != nil {
		writeStoreError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
