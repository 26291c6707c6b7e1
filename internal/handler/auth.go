// Package handler contains the HTTP surface of the service. Handlers
// decode requests, call the service layer, and encode responses — no
// business rules live here.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/service"
)

// AuthHandler manages registration, login, logout, and the session check.
type AuthHandler struct {
	auth   *service.AuthService
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. Dependencies are injected; the
// handler does not know how they are constructed.
func NewAuthHandler(authSvc *service.AuthService, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		tokens: tokens,
		logger: logger,
	}
}

// authResponse is the body returned by register, login, check, and profile
// updates: a short status message plus the sanitized profile.
type authResponse struct {
	Message string              `json:"message"`
	User    model.PublicProfile `json:"user"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/auth/register
// Body: multipart/form-data with username, email, password, and an optional
// profilePic file — or a plain JSON object with the same text fields.
//
// On success the session cookie is set and 201 is returned with the
// sanitized profile. No cookie is set on any failure.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRegister(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.tokens.AttachCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully",
		User:    result.Account.Profile(),
	})
}

// HandleLogin verifies credentials and starts a new session.
//
// HTTP: POST /api/auth/login
// Body: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.tokens.AttachCookie(w, result.Token)
	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		User:    result.Account.Profile(),
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout (protected)
//
// Stateless sessions mean the token value itself stays valid until its
// natural expiry; without the cookie the browser just stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.tokens.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// HandleCheck returns the current account's sanitized profile.
//
// HTTP: GET /api/auth/check (protected)
//
// The service re-fetches the account so profile edits made after the token
// was issued are reflected.
func (h *AuthHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	acting, ok := auth.AccountFromContext(r.Context())
	if !ok {
		// Unreachable on a RequireAuth-protected route, but be safe.
		writeError(w, apperror.Unauthenticated("valid session required"))
		return
	}

	account, err := h.auth.CheckAuth(r.Context(), acting.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "Authenticated",
		User:    account.Profile(),
	})
}

// decodeRegister reads the registration input from either a multipart form
// (with optional avatar) or a JSON body.
func decodeRegister(r *http.Request) (service.RegisterInput, error) {
	var in service.RegisterInput

	if isMultipart(r) {
		// Cap the whole body: the avatar limit plus headroom for the
		// text fields and multipart framing.
		r.Body = http.MaxBytesReader(nil, r.Body, maxImageBytes+1<<20)
		if err := r.ParseMultipartForm(maxImageBytes + 1<<20); err != nil {
			return in, apperror.ValidationFailed("body", "invalid or oversized multipart body")
		}

		in.Username = r.FormValue("username")
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")

		avatar, err := avatarFromRequest(r)
		if err != nil {
			return in, err
		}
		in.Avatar = avatar
		return in, nil
	}

	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return in, apperror.ValidationFailed("body", "invalid JSON body")
	}
	in.Username = body.Username
	in.Email = body.Email
	in.Password = body.Password
	return in, nil
}
