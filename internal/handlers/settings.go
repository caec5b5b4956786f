package handlers

import (
	"net/http"
	"strconv"

	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
	"fanplatform.dk/internal/validation"
)

type ClubSettingsHandlers struct {
	Store   store.Store
	Uploads *Uploader
}

func NewClubSettingsHandlers(s store.Store, u *Uploader) *ClubSettingsHandlers {
	return &ClubSettingsHandlers{Store: s, Uploads: u}
}

func (h *ClubSettingsHandlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Store.GetClubSettings(r.Context(), r.PathValue("clubId"))
	if err != nil {
		writeStoreError(w, r, err, "club not found")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// UpdateSettings merges a partial update; rsvp_defaults is merged per field.
func (h *ClubSettingsHandlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd models.ClubSettingsUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validation.ValidateStruct(upd); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	current, err := h.Store.GetClubSettings(r.Context(), r.PathValue("clubId"))
	if err != nil {
		writeStoreError(w, r, err, "club not found")
		return
	}
	next := current.Apply(upd)
	if err := h.Store.SaveClubSettings(r.Context(), next); err != nil {
		writeStoreError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// UploadLogo handles POST /api/uploads/club-logo with form fields club_id and file.
func (h *ClubSettingsHandlers) UploadLogo(w http.ResponseWriter, r *http.Request) {
	url, status, err := h.Uploads.Save(w, r, "club-logos")
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	clubID := r.FormValue("club_id")
	if _, err := strconv.ParseInt(clubID, 10, 64); err != nil {
		writeError(w, http.StatusBadRequest, "club_id is required")
		return
	}

	current, err := h.Store.GetClubSettings(r.Context(), clubID)
	if err != nil {
		writeStoreError(w, r, err, "club not found")
		return
	}
	current.LogoURL = url
	if err := h.Store.SaveClubSettings(r.Context(), *current); err != nil {
		writeStoreError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
