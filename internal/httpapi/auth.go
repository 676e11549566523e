package httpapi

import (
	"net/http"
	"time"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/authn"
)

type authHandler struct {
	s *Server
}

func (h *authHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/login", h.handleLogin)
	mux.HandleFunc("POST /v1/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /v1/auth/whoami", h.s.chain(h.handleWhoAmI))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// CLI requests a long-lived bearer token instead of a cookie session,
	// for `papyrus` CLI invocations against a remote server (§6).
	CLI bool `json:"cli"`
}

type loginResponse struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
}

func (h *authHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.s.stores.Users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, apperr.Unauthorized("invalid username or password"))
		return
	}
	if err := authn.ComparePassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, err)
		return
	}

	ttl := time.Duration(h.s.cfg.Server.SessionTTLHours) * time.Hour
	if req.CLI {
		ttl = time.Duration(h.s.cfg.Server.CLITokenTTLDays) * 24 * time.Hour
	}
	sess, err := h.s.stores.Sessions.Create(r.Context(), user.ID, req.CLI, ttl)
	if err != nil {
		writeError(w, err)
		return
	}

	if !req.CLI {
		http.SetCookie(w, &http.Cookie{
			Name:     h.s.cfg.Server.SessionCookie,
			Value:    sess.Token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  sess.ExpiresAt,
		})
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    user.ID,
		Username:  user.Username,
	})
}

func (h *authHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		if c, err := r.Cookie(h.s.cfg.Server.SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
		return
	}
	if err := h.s.stores.Sessions.Delete(r.Context(), token); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.s.cfg.Server.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (h *authHandler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	user, err := h.s.stores.Users.Get(r.Context(), p.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
