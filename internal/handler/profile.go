package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/service"
)

// ProfileHandler manages profile mutations for the authenticated account.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// HandleUpdate applies a partial profile update to the acting account.
//
// HTTP: PUT /api/auth/profile (protected)
// Body: multipart/form-data with any of username, email, profilePic — or a
// JSON object with optional username/email. A field that is absent is left
// unchanged; sending nothing at all is rejected.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	acting, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid session required"))
		return
	}

	in, err := decodeProfileUpdate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.profiles.UpdateProfile(r.Context(), acting.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "Profile updated successfully",
		User:    account.Profile(),
	})
}

// decodeProfileUpdate reads the update input from a multipart form or a
// JSON body. Absence and emptiness are distinct: a multipart field that was
// not sent stays nil, while one sent empty reaches the service and fails
// validation there.
func decodeProfileUpdate(r *http.Request) (service.UpdateProfileInput, error) {
	var in service.UpdateProfileInput

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(nil, r.Body, maxImageBytes+1<<20)
		if err := r.ParseMultipartForm(maxImageBytes + 1<<20); err != nil {
			return in, apperror.ValidationFailed("body", "invalid or oversized multipart body")
		}

		if values, ok := r.MultipartForm.Value["username"]; ok && len(values) > 0 {
			in.Username = &values[0]
		}
		if values, ok := r.MultipartForm.Value["email"]; ok && len(values) > 0 {
			in.Email = &values[0]
		}

		avatar, err := avatarFromRequest(r)
		if err != nil {
			return in, err
		}
		in.Avatar = avatar
		return in, nil
	}

	var body struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return in, apperror.ValidationFailed("body", "invalid JSON body")
	}
	in.Username = body.Username
	in.Email = body.Email
	return in, nil
}
