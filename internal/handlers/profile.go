package handlers

import (
	"net/http"

	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
	"fanplatform.dk/internal/validation"
)

type ProfileHandlers struct {
	Store       store.Store
	Uploads     *Uploader
	RequireAuth bool
}

func NewProfileHandlers(s store.Store, u *Uploader, requireAuth bool) *ProfileHandlers {
	return &ProfileHandlers{Store: s, Uploads: u, RequireAuth: requireAuth}
}

func (h *ProfileHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := callerID(r, h.RequireAuth)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	p, err := h.Store.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /api/profile with a partial body.
func (h *ProfileHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := callerID(r, h.RequireAuth)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var upd models.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if upd.Name != nil {
		name := auth.SanitizeName(*upd.Name)
		upd.Name = &name
	}
	if errs := validation.ValidateStruct(upd); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	current, err := h.Store.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "profile not found")
		return
	}
	next := current.Apply(upd)
	if err := h.Store.SaveProfile(r.Context(), next); err != nil {
		writeStoreError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// UploadAvatar handles POST /api/uploads/avatar (multipart field "file").
func (h *ProfileHandlers) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := callerID(r, h.RequireAuth)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	current, err := h.Store.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "profile not found")
		return
	}
	url, status, err := h.Uploads.Save(w, r, "avatars")
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	current.AvatarURL = url
	if err := h.Store.SaveProfile(r.Context(), *current); err != nil {
		writeStoreError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
