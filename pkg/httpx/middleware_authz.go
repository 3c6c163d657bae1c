package httpx

import (
	"net/http"
	"slices"
)

// RequireRole lets the request through only when the resolved identity
// holds one of the listed roles. It must run after the identity has been
// attached: a caller with a valid session but the wrong role gets 403, so
// clients can tell "log in again" apart from "you lack permission".
func RequireRole(allowed ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				// Identity middleware didn't run; fail closed.
				writeBearerError(w, "missing identity")
				return
			}

			if !slices.Contains(allowed, id.Role) {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
