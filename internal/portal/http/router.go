// Package http wires the portal's HTTP surface: the gateway middleware
// chain, route registration, and one handler per endpoint.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/trialdiary/sponsorportal/internal/portal/service"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
	"github.com/trialdiary/sponsorportal/pkg/httpx"
	"github.com/trialdiary/sponsorportal/pkg/jwtx"
	"github.com/trialdiary/sponsorportal/pkg/portalsdk"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	AuthService       *service.AuthService
	ActivationService *service.ActivationService
	UserService       *service.UserService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Global chain: request logging first so even CORS preflights and
	// rate-limited requests get logged.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORSMiddleware(),
	}

	return r
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(http.HandlerFunc(r.route), r.middlewares...).ServeHTTP(w, req)
}

// route dispatches to the mux, collapsing a known path with the wrong
// method into the same JSON 404 an unknown path gets: the route table is
// the contract, and anything outside it simply doesn't exist.
func (r *Router) route(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.Mux.Handler(req); pattern == "" {
		httpx.WriteError(w, http.StatusNotFound, portalsdk.ErrorCodeNotFound, "no such route")
		return
	}
	r.Mux.ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerActivation()
	r.registerAdmin()
	r.registerSystem()
}

// gateway is the authenticated-route chain: verify the bearer token, then
// re-read the account so revocation bites immediately, then check role.
func (r *Router) gateway(h http.Handler, roles ...string) http.Handler {
	mws := []httpx.Middleware{
		httpx.AuthnMiddleware(r.verifier),
		IdentityMiddleware(r.store),
	}
	if len(roles) > 0 {
		mws = append(mws, httpx.RequireRole(roles...))
	}
	mws = append(mws, httpx.RateLimitByUser(httpx.ModerateLimit))
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	// POST /auth/login - strict limit by IP (credential guessing)
	login := &LoginHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/change-password - any authenticated role
	changePassword := &ChangePasswordHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /auth/change-password", r.gateway(changePassword))
}

func (r *Router) registerActivation() {
	// POST /portal/activate - unauthenticated by design (the user has no
	// password yet), so strict limit by IP against code guessing.
	activate := &ActivateHandler{ActivationService: r.ActivationService}
	r.Mux.Handle("POST /portal/activate",
		httpx.Chain(activate,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /portal/users",
		r.gateway(http.HandlerFunc(h.HandleList), "admin"))
	r.Mux.Handle("POST /portal/admin/generate-code",
		r.gateway(http.HandlerFunc(h.HandleGenerateCode), "admin"))
	r.Mux.Handle("POST /portal/users/{id}/revoke",
		r.gateway(http.HandlerFunc(h.HandleRevoke), "admin"))
	r.Mux.Handle("POST /portal/users/{id}/reinstate",
		r.gateway(http.HandlerFunc(h.HandleReinstate), "admin"))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /health",
		httpx.Chain(HealthHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.store, r.keys, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
