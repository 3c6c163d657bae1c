package httpx

import (
	"context"

	"github.com/trialdiary/sponsorportal/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyClaims   ctxKey = "claims"
	CtxKeyIdentity ctxKey = "identity"
)

// Identity is the resolved caller attached to the request context once the
// gateway has verified the token and re-read the user record. Role and
// Sites come from the store, not the token, so revocation and role changes
// take effect on the next request.
type Identity struct {
	UserID string
	Role   string
	Sites  []string
}

// ContextWithClaims stashes verified token claims for downstream handlers.
func ContextWithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	return context.WithValue(ctx, CtxKeyClaims, c)
}

// ClaimsFromContext returns the verified claims, if any.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// ContextWithIdentity stashes the resolved identity for downstream handlers.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, CtxKeyIdentity, id)
}

// IdentityFromContext returns the resolved identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(Identity)
	return id, ok
}
