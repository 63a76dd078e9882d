package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/user"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
)

// UsersHandler handles /users/* and /admin/users. Requires the Authenticator.
type UsersHandler struct {
	userRepo       ports.UserRepository
	updateProfile  *user.UpdateProfile
	changePassword *user.ChangePassword
	validate       *validator.Validate
	log            zerolog.Logger
}

func NewUsersHandler(userRepo ports.UserRepository, updateProfile *user.UpdateProfile, changePassword *user.ChangePassword, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{
		userRepo:       userRepo,
		updateProfile:  updateProfile,
		changePassword: changePassword,
		validate:       validator.New(),
		log:            log,
	}
}

// UserResponse is the JSON shape for a user (no password hash, no external id).
type UserResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	DisplayName     string `json:"displayName,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID.String(),
		Email:           u.Email,
		Role:            u.Role.String(),
		DisplayName:     u.DisplayName,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       u.UpdatedAt.Format(time.RFC3339),
	}
}

// Me returns the current user.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AuthFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	u, err := h.userRepo.GetByID(r.Context(), claims.UserID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if u == nil {
		writeErr(w, http.StatusNotFound, "", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// UpdateMe patches the display fields of the current user.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AuthFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	var body struct {
		DisplayName     string `json:"displayName" validate:"max=100"`
		ProfileImageURL string `json:"profileImageUrl" validate:"omitempty,url,max=2048"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	updated, err := h.updateProfile.Execute(r.Context(), user.UpdateProfileInput{
		UserID:          claims.UserID,
		DisplayName:     body.DisplayName,
		ProfileImageURL: body.ProfileImageURL,
	})
	if err != nil {
		if errors.Is(err, domerrors.ErrUserNotFound) {
			writeErr(w, http.StatusNotFound, "", "user not found")
			return
		}
		h.log.Error().Err(err).Msg("update profile failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(updated))
}

// ChangePassword sets a new password for the current user.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AuthFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	var body struct {
		CurrentPassword string `json:"currentPassword" validate:"max=128"`
		NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	newPassword := SanitizePassword(body.NewPassword)
	if newPassword == "" {
		writeErr(w, http.StatusBadRequest, "", "invalid password length")
		return
	}
	err := h.changePassword.Execute(r.Context(), user.ChangePasswordInput{
		UserID:          claims.UserID,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		AuditLog(h.log, r, "user.password_change", claims.UserID.String(), "", false, err.Error())
		if errors.Is(err, domerrors.ErrInvalidCredentials) {
			writeErr(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "current password is incorrect")
			return
		}
		if errors.Is(err, domerrors.ErrUserNotFound) {
			writeErr(w, http.StatusNotFound, "", "user not found")
			return
		}
		h.log.Error().Err(err).Msg("change password failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	AuditLog(h.log, r, "user.password_change", claims.UserID.String(), "", true, "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

const defaultListLimit = 20
const maxListLimit = 100

// List returns all users with limit/offset paging. Admin only; the role gate
// sits in front of this route.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
			if limit > maxListLimit {
				limit = maxListLimit
			}
		}
	}
	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}
	users, err := h.userRepo.List(r.Context(), limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": items})
}
