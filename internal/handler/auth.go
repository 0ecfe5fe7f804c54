package handler

import (
	"net/http"
	"time"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/service"
)

// AuthHandler exposes the credential lifecycle endpoints
type AuthHandler struct {
	auth       *service.AuthService
	respond    *respond.Responder
	sessionTTL time.Duration
	secureJWT  bool
}

// NewAuthHandler creates the auth handler. secureCookie marks the jwt
// cookie Secure, which production should always do.
func NewAuthHandler(auth *service.AuthService, responder *respond.Responder, sessionTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, respond: responder, sessionTTL: sessionTTL, secureJWT: secureCookie}
}

// setSessionCookie mirrors the issued token into an httpOnly cookie so
// browser clients hold the session without script access to it
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		Secure:   h.secureJWT,
		SameSite: http.SameSiteLaxMode,
	})
}

// Signup handles POST /api/v1/users/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input service.SignupInput
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user, token, err := h.auth.Signup(r.Context(), input)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	h.respond.JSON(w, http.StatusCreated, respond.Envelope{Data: user, Token: token})
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		TenantID string `json:"tenantId"`
	}
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user, token, err := h.auth.Login(r.Context(), input.Email, input.Password, input.TenantID)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	h.respond.JSON(w, http.StatusOK, respond.Envelope{Data: user, Token: token})
}

// Logout handles GET /api/v1/users/logout by overwriting the cookie
// with a short-lived dummy value
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	h.respond.JSON(w, http.StatusOK, respond.Envelope{})
}

// ForgotPassword handles POST /api/v1/users/forgotPassword
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), input.Email); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	h.respond.JSON(w, http.StatusOK, respond.Envelope{Message: "Token sent to email!"})
}

// ResetPassword handles PATCH /api/v1/users/resetPassword/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	user, token, err := h.auth.ResetPassword(r.Context(), r.PathValue("token"), input.Password, input.PasswordConfirm)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	h.respond.JSON(w, http.StatusOK, respond.Envelope{Data: user, Token: token})
}

// UpdatePassword handles PATCH /api/v1/users/updateMyPassword
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperror.Unauthorized("not logged in"))
		return
	}

	var input struct {
		PasswordCurrent string `json:"passwordCurrent"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := decodeJSON(r, &input); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	updated, token, err := h.auth.UpdatePassword(r.Context(), user.ID, input.PasswordCurrent, input.Password, input.PasswordConfirm)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	h.respond.JSON(w, http.StatusOK, respond.Envelope{Data: updated, Token: token})
}

// CheckToken handles GET /api/v1/users/checkToken. Reaching it at all
// means the protect middleware accepted the session, so it just echoes
// the live user record.
func (h *AuthHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperror.Unauthorized("not logged in"))
		return
	}
	h.respond.Success(w, http.StatusOK, user)
}
