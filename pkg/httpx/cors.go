package httpx

import "net/http"

// CORS headers for the portal API. The sponsor portal web app is served
// from per-sponsor domains, so the API answers any origin and relies on
// bearer tokens rather than cookies for authentication.
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Request-ID"
)

// CORSMiddleware adds CORS headers to every response, including errors,
// and short-circuits OPTIONS preflight requests with an empty 200.
func CORSMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
