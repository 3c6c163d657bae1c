package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/trialdiary/sponsorportal/internal/portal/store"
	"github.com/trialdiary/sponsorportal/pkg/httpx"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

// IdentityMiddleware re-reads the caller's account on every request and
// attaches the resolved identity to the context. Role and site scope come
// from the store rather than the token, so a revoked or demoted account
// is cut off as soon as the flag flips, without any token blacklist.
//
// A missing account and a deactivated one produce the same 401 a bad
// token would, so responses don't reveal account state.
func IdentityMiddleware(st store.Store) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			claims, ok := httpx.ClaimsFromContext(ctx)
			if !ok {
				writeUnauthenticated(w, "missing bearer token")
				return
			}

			user, err := st.Users().GetUserByID(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					log.Warn("session for unknown account", slog.String("user_id", claims.Subject))
					writeUnauthenticated(w, "session no longer valid")
					return
				}
				log.Error("failed to resolve identity", slog.Any("error", err))
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
				return
			}

			if !user.IsActive {
				log.Info("request from deactivated account", slog.String("user_id", user.ID))
				writeUnauthenticated(w, "session no longer valid")
				return
			}

			id := httpx.Identity{
				UserID: user.ID,
				Role:   user.Role.String(),
				Sites:  user.AssignedSites,
			}
			next.ServeHTTP(w, r.WithContext(httpx.ContextWithIdentity(ctx, id)))
		})
	}
}

func writeUnauthenticated(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", desc)
}
