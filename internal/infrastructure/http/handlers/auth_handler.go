package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/auth"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
)

type AuthHandler struct {
	register *auth.Register
	login    *auth.Login
	refresh  *auth.Refresh
	logout   *auth.Logout
	cookies  middleware.CookieConfig
	enqueuer ports.TaskEnqueuer
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthHandler(register *auth.Register, login *auth.Login, refresh *auth.Refresh, logout *auth.Logout, cookies middleware.CookieConfig, enqueuer ports.TaskEnqueuer, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		register: register,
		login:    login,
		refresh:  refresh,
		logout:   logout,
		cookies:  cookies,
		enqueuer: enqueuer,
		validate: validator.New(),
		log:      log,
	}
}

// sessionPayload is the JSON shape shared by register, login and refresh.
// The refresh token itself never appears in a body; it travels only in the
// HTTP-only cookie set alongside.
func sessionPayload(tokens *auth.TokenPair, user *domain.User) map[string]interface{} {
	return map[string]interface{}{
		"accessToken": tokens.AccessToken,
		"expiresIn":   int64(time.Until(tokens.AccessExpiresAt).Seconds()),
		"user":        newUserResponse(user),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,min=8,max=128"`
		Role     string `json:"role" validate:"omitempty,oneof=trainer customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	email := SanitizeEmail(body.Email)
	password := SanitizePassword(body.Password)
	if email == "" || password == "" {
		writeErr(w, http.StatusBadRequest, "", "invalid email or password length")
		return
	}
	result, err := h.register.Execute(r.Context(), auth.RegisterInput{
		Email:    email,
		Password: password,
		Role:     body.Role,
	})
	if err != nil {
		AuditEmit(h.log, r, h.enqueuer, "user.register", "", email, false, err.Error())
		middleware.RecordAuthAttempt("register", false)
		if errors.Is(err, domerrors.ErrUserExists) {
			writeErr(w, http.StatusConflict, ErrCodeConflict, "an account with this email already exists")
			return
		}
		if errors.Is(err, domerrors.ErrInvalidCredentials) {
			writeErr(w, http.StatusBadRequest, "", "invalid email or password")
			return
		}
		h.log.Error().Err(err).Msg("register failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	AuditEmit(h.log, r, h.enqueuer, "user.register", result.User.ID.String(), email, true, "")
	middleware.RecordAuthAttempt("register", true)
	h.cookies.SetRefreshCookie(w, result.Tokens.RefreshToken, h.refresh.RefreshTTL())
	writeJSON(w, http.StatusCreated, sessionPayload(result.Tokens, result.User))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	email := SanitizeEmail(body.Email)
	password := SanitizePassword(body.Password)
	if email == "" || password == "" {
		writeErr(w, http.StatusBadRequest, "", "invalid email or password length")
		return
	}
	result, err := h.login.Execute(r.Context(), auth.LoginInput{Email: email, Password: password})
	if err != nil {
		AuditEmit(h.log, r, h.enqueuer, "user.login", "", email, false, err.Error())
		middleware.RecordAuthAttempt("login", false)
		if errors.Is(err, domerrors.ErrAccountLocked) {
			writeErr(w, http.StatusTooManyRequests, ErrCodeAccountLocked, "account temporarily locked")
			return
		}
		if errors.Is(err, domerrors.ErrInvalidCredentials) {
			writeErr(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	AuditEmit(h.log, r, h.enqueuer, "user.login", result.User.ID.String(), email, true, "")
	middleware.RecordAuthAttempt("login", true)
	h.cookies.SetRefreshCookie(w, result.Tokens.RefreshToken, h.refresh.RefreshTTL())
	writeJSON(w, http.StatusOK, sessionPayload(result.Tokens, result.User))
}

// Refresh rotates the credential from the cookie; a JSON body with
// refreshToken is accepted for non-browser clients. Invalid and expired
// tokens collapse to the same 401 so an attacker learns nothing.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := middleware.RefreshTokenFromRequest(r)
	if raw == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw = body.RefreshToken
	}
	result, err := h.refresh.Execute(r.Context(), auth.RefreshInput{RefreshToken: raw})
	if err != nil {
		AuditEmit(h.log, r, h.enqueuer, "auth.refresh", "", "", false, err.Error())
		middleware.RecordAuthAttempt("refresh", false)
		if errors.Is(err, domerrors.ErrInvalidToken) ||
			errors.Is(err, domerrors.ErrExpiredToken) ||
			errors.Is(err, domerrors.ErrUserNotFound) {
			h.cookies.ClearRefreshCookie(w)
			writeErr(w, http.StatusUnauthorized, ErrCodeInvalidToken, "invalid refresh token")
			return
		}
		h.log.Error().Err(err).Msg("refresh failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	AuditEmit(h.log, r, h.enqueuer, "auth.refresh", result.User.ID.String(), "", true, "")
	middleware.RecordAuthAttempt("refresh", true)
	h.cookies.SetRefreshCookie(w, result.Tokens.RefreshToken, h.refresh.RefreshTTL())
	writeJSON(w, http.StatusOK, sessionPayload(result.Tokens, result.User))
}

// Logout spends the presented refresh credential and clears the cookie.
// Always 204: logging out an already-dead session is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := middleware.RefreshTokenFromRequest(r)
	if raw == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw = body.RefreshToken
	}
	if raw != "" {
		if err := h.logout.Execute(r.Context(), raw); err != nil {
			h.log.Error().Err(err).Msg("logout failed")
		}
	}
	AuditEmit(h.log, r, h.enqueuer, "user.logout", "", "", true, "")
	h.cookies.ClearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every refresh credential of the authenticated user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AuthFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	if err := h.logout.ExecuteAll(r.Context(), claims.UserID); err != nil {
		h.log.Error().Err(err).Msg("logout-all failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	AuditEmit(h.log, r, h.enqueuer, "user.logout_all", claims.UserID.String(), "", true, "")
	h.cookies.ClearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
