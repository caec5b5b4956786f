package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"fanplatform.dk/internal/auth"
	"fanplatform.dk/internal/middleware"
	"fanplatform.dk/internal/models"
	"fanplatform.dk/internal/store"
	"fanplatform.dk/internal/validation"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "An account with this email already exists"
)

type AuthHandlers struct {
	Store          store.Store
	SessionManager *scs.SessionManager
	Tokens         *auth.TokenIssuer
}

func NewAuthHandlers(s store.Store, sm *scs.SessionManager, tokens *auth.TokenIssuer) *AuthHandlers {
	return &AuthHandlers{Store: s, SessionManager: sm, Tokens: tokens}
}

// startSession issues a bearer token and binds the account to the session cookie.
func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, status int, a *models.Account) {
	token, err := h.Tokens.IssueToken(a.ID, a.Email, a.Role)
	if err != nil {
		slog.Error("Failed to issue token", "accountID", a.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.SessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("Failed to renew session token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.SessionManager.Put(r.Context(), middleware.SessionAccountKey, a.ID)

	view := a.View()
	writeJSON(w, status, models.AuthResponse{Token: token, User: &view})
}

func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var form models.SignupForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	form.Name = auth.SanitizeName(form.Name)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	if errs := validation.ValidateStruct(form); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	account := models.Account{
		ID:           uuid.NewString(),
		Name:         form.Name,
		Email:        form.Email,
		PasswordHash: hash,
		Role:         models.RoleMember,
	}
	if err := h.Store.CreateAccount(r.Context(), account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, msgEmailTaken)
			return
		}
		writeStoreError(w, r, err, "")
		return
	}
	slog.Info("Account created", "accountID", account.ID, "email", account.Email)
	h.startSession(w, r, http.StatusCreated, &account)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var form models.LoginForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validation.ValidateStruct(form); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	account, err := h.Store.GetAccountByEmail(r.Context(), strings.TrimSpace(form.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeStoreError(w, r, err, "")
		return
	}
	if account == nil || !auth.CheckPasswordHash(form.Password, account.PasswordHash) {
		slog.Warn("Failed login", "email", form.Email)
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	slog.Info("Account logged in", "accountID", account.ID, "role", account.Role)
	h.startSession(w, r, http.StatusOK, account)
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	accountID := h.SessionManager.GetString(r.Context(), middleware.SessionAccountKey)
	if err := h.SessionManager.Destroy(r.Context()); err != nil {
		slog.Error("Failed to destroy session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	slog.Info("Account logged out", "accountID", accountID)
	w.WriteHeader(http.StatusNoContent)
}
