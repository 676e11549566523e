package httpapi

import "context"

// Principal is the authenticated caller attached to a request's context by
// authMiddleware: either a browser holding a cookie session or a CLI holding
// a bearer token.
type Principal struct {
	UserID   string
	Username string
	IsCLI    bool
}

type principalKey struct{}

// withPrincipal returns a context carrying p.
func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFromContext returns the Principal attached by authMiddleware, or
// nil if the request reached a handler without one (should not happen for
// any route registered behind authMiddleware).
func principalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
