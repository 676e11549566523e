package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/observability"
)

// tracingMiddleware wraps a request in a span named after its method and
// path, recording any non-2xx/3xx outcome the handler writes.
func tracingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := observability.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))
		if rec.status >= 400 {
			observability.RecordError(ctx, fmt.Errorf("request failed with status %d", rec.status))
		}
	}
}

// statusRecorder captures the status code a handler writes, so
// tracingMiddleware can record failed requests without every handler
// needing to report its own outcome.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// extractBearerToken pulls the opaque token out of an "Authorization: Bearer
// <token>" header, the CLI's auth mechanism (§6). Returns "" when absent or
// malformed.
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

// authMiddleware resolves the caller's session from the CLI bearer token
// first, then the browser session cookie, rejecting the request with
// Unauthorized when neither resolves to a live Session (§6).
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			if c, err := r.Cookie(s.cfg.Server.SessionCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			writeError(w, apperr.Unauthorized("no session token presented"))
			return
		}

		sess, err := s.stores.Sessions.GetByToken(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		user, err := s.stores.Users.Get(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := withPrincipal(r.Context(), &Principal{UserID: user.ID, Username: user.Username, IsCLI: sess.IsCLI})
		next(w, r.WithContext(ctx))
	}
}

// limiterRegistry hands out a token-bucket rate.Limiter per principal,
// so one user's bursty client can't starve another's requests (§6, §7
// KindRateLimited). Limiters are created lazily and kept for the process
// lifetime; a personal, single-tenant-per-user server never accumulates
// enough distinct callers for this map to matter memory-wise.
type limiterRegistry struct {
	mu       sync.Mutex
	perMin   int
	limiters map[string]*rate.Limiter
}

func newLimiterRegistry(perMin int) *limiterRegistry {
	return &limiterRegistry{perMin: perMin, limiters: make(map[string]*rate.Limiter)}
}

func (l *limiterRegistry) allow(key string) bool {
	if l.perMin <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// rateLimitMiddleware enforces the per-user request budget configured by
// RateLimitPerMin, keyed on the authenticated principal so it must sit
// behind authMiddleware in the handler chain.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := principalFromContext(r.Context())
		key := r.RemoteAddr
		if p != nil {
			key = p.UserID
		}
		if !s.limiters.allow(key) {
			writeError(w, apperr.RateLimited("rate limit exceeded, slow down"))
			return
		}
		next(w, r)
	}
}

// chain wraps next in every middleware a normal authenticated route needs,
// innermost-applied-last: rate limiting only runs once auth has resolved a
// principal to key on.
func (s *Server) chain(next http.HandlerFunc) http.HandlerFunc {
	return tracingMiddleware(s.authMiddleware(s.rateLimitMiddleware(next)))
}
