package handler

import (
	"net/http"
	"time"

	"github.com/policyops/acctd/internal/config"
	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/service"
)

const (
	sessionCookie = "session"
	refreshCookie = "refresh_token"
)

// AuthHandler serves the session lifecycle endpoints. Tokens travel only in
// HttpOnly cookies; the response bodies never carry them.
type AuthHandler struct {
	auth *service.AuthService
	cfg  config.Config
}

func NewAuthHandler(auth *service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates the caller. In the local environment it reads
// email/password credentials from the body; everywhere else it trusts the
// identity and group headers injected by the gateway, optionally verified
// against a shared secret header.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var session *service.Session
	var err error

	if h.cfg.IsLocal() {
		var req loginRequest
		if decodeErr := readJSON(r, &req); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		session, err = h.auth.LoginLocal(r.Context(), req.Email, req.Password)
	} else {
		if !h.verifySharedSecret(r) {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		identity := r.Header.Get(h.cfg.SSO.UserHeader)
		groups := r.Header.Get(h.cfg.SSO.GroupsHeader)
		session, err = h.auth.LoginSSO(r.Context(), identity, groups)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setCookie(w, sessionCookie, session.AccessToken, h.auth.AccessTokenTTL())
	h.setCookie(w, refreshCookie, session.RefreshToken, h.auth.RefreshTokenTTL())
	writeJSON(w, http.StatusOK, model.SessionResponse{
		Message: "Sign in successful",
		User:    &session.User,
	})
}

// Me returns the profile behind the current session cookie.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	user, err := h.auth.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SessionResponse{User: &user})
}

// Refresh exchanges a valid refresh cookie for a fresh session cookie. The
// refresh cookie itself is left alone; when it is missing or expired both
// cookies are cleared so the client starts over at login.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		h.clearSession(w)
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	access, user, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.clearSession(w)
		writeServiceError(w, err)
		return
	}

	h.setCookie(w, sessionCookie, access, h.auth.AccessTokenTTL())
	writeJSON(w, http.StatusOK, model.SessionResponse{
		Message: "Session refreshed",
		User:    &user,
	})
}

// Logout clears both cookies. It succeeds whether or not a session exists.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	writeJSON(w, http.StatusOK, model.SessionResponse{Message: "Sign out successful"})
}

func (h *AuthHandler) verifySharedSecret(r *http.Request) bool {
	expected := h.cfg.SSO.SharedSecret
	if expected == "" {
		return true
	}
	return r.Header.Get(h.cfg.SSO.SharedSecretHeader) == expected
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Auth.SecureCookie,
		SameSite: sameSiteMode(h.cfg.Auth.SameSite),
	})
}

func (h *AuthHandler) clearSession(w http.ResponseWriter) {
	for _, name := range []string{sessionCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cfg.Auth.SecureCookie,
			SameSite: sameSiteMode(h.cfg.Auth.SameSite),
		})
	}
}

func sameSiteMode(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
