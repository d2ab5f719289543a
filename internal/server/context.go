package server

import (
	"context"

	"loandesk/internal/access"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// withPrincipal returns a context carrying the authenticated principal.
// Handlers behind the session guard read it via PrincipalFromContext.
func withPrincipal(ctx context.Context, p *access.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal resolved by the session guard and
// true if set; otherwise nil, false.
func PrincipalFromContext(ctx context.Context) (*access.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*access.Principal)
	return p, ok
}
