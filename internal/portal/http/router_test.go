package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/service"
	"github.com/trialdiary/sponsorportal/internal/portal/store/drivers/memory"
	"github.com/trialdiary/sponsorportal/pkg/cryptox"
	"github.com/trialdiary/sponsorportal/pkg/jwtx"
	"github.com/trialdiary/sponsorportal/pkg/portalsdk"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "portal-http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

type testPortal struct {
	server     *httptest.Server
	client     *portalsdk.Client
	users      *service.UserService
	activation *service.ActivationService
}

// newTestPortal spins up the full router over the in-memory driver. Each
// call gets fresh rate-limit buckets, so tests don't starve each other.
func newTestPortal(t *testing.T) *testPortal {
	t.Helper()

	st := memory.NewStore()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)
	verifier := jwtx.NewVerifierEdDSA(keys, "sponsor-portal")

	tokens := &service.TokenService{
		Signer:     signer,
		Issuer:     "sponsor-portal",
		SessionTTL: time.Hour,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(keys, verifier, "test", st, logger)
	router.AuthService = &service.AuthService{Store: st, Tokens: tokens}
	router.ActivationService = &service.ActivationService{Store: st}
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testPortal{
		server:     server,
		client:     portalsdk.NewClient(server.URL),
		users:      router.UserService,
		activation: router.ActivationService,
	}
}

// seedActivatedUser provisions and activates an account directly through
// the services, bypassing HTTP so seeding doesn't eat rate-limit budget.
func (p *testPortal) seedActivatedUser(
	t *testing.T,
	email, password string,
	role domain.Role,
	sites []string,
) domain.PortalUser {
	t.Helper()
	ctx := context.Background()

	created, err := p.users.Create(ctx, email, "Seeded User", role, sites)
	require.NoError(t, err)

	activated, err := p.activation.Redeem(ctx, created.LinkingCode, password)
	require.NoError(t, err)
	return activated
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()

	var apiErr *portalsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
}

func TestActivationAndLoginFlow(t *testing.T) {
	ctx := context.Background()
	portal := newTestPortal(t)
	portal.seedActivatedUser(t, "admin@sponsor.example", "admin password", domain.RoleAdmin, nil)

	admin, _, err := portal.client.Login(ctx, "admin@sponsor.example", "admin password")
	require.NoError(t, err)

	code, err := admin.GenerateCode(ctx, portalsdk.GenerateCodeRequest{
		Email:         "inv@sponsor.example",
		Name:          "Site Investigator",
		Role:          "investigator",
		AssignedSites: []string{"site-001"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, code.UserID)
	require.Len(t, code.LinkingCode, 11)

	t.Run("dormant account cannot log in", func(t *testing.T) {
		_, _, err := portal.client.Login(ctx, "inv@sponsor.example", "anything")
		requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)
	})

	t.Run("activation accepts a lowercased code", func(t *testing.T) {
		resp, err := portal.client.Activate(ctx, strings.ToLower(code.LinkingCode), "first password")
		require.NoError(t, err)
		require.Equal(t, code.UserID, resp.UserID)
		require.Equal(t, "inv@sponsor.example", resp.Email)
		require.Equal(t, "investigator", resp.Role)
	})

	t.Run("a spent code cannot be replayed", func(t *testing.T) {
		_, err := portal.client.Activate(ctx, code.LinkingCode, "other password")
		requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeInvalidLinkingCode)
	})

	inv, _, err := portal.client.Login(ctx, "inv@sponsor.example", "first password")
	require.NoError(t, err)

	t.Run("investigators cannot reach admin routes", func(t *testing.T) {
		_, err := inv.ListUsers(ctx)
		requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeForbidden)
	})

	t.Run("password change invalidates the old password", func(t *testing.T) {
		require.NoError(t, inv.ChangePassword(ctx, "first password", "second password"))

		_, _, err := portal.client.Login(ctx, "inv@sponsor.example", "first password")
		requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)

		_, _, err = portal.client.Login(ctx, "inv@sponsor.example", "second password")
		require.NoError(t, err)
	})

	t.Run("admin listing hides credentials", func(t *testing.T) {
		users, err := admin.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		for _, u := range users {
			require.True(t, u.Activated)
		}
	})
}

func TestGatewayRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	portal := newTestPortal(t)

	t.Run("no token", func(t *testing.T) {
		_, err := portal.client.WithToken("").ListUsers(ctx)
		requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeUnauthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := portal.client.WithToken("not-a-jwt").ListUsers(ctx)
		requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeUnauthenticated)
	})

	t.Run("token from a foreign key", func(t *testing.T) {
		pemKey, err := cryptox.GenerateEd25519Key()
		require.NoError(t, err)
		foreign, err := jwtx.NewSignerEdDSA("test-key", pemKey)
		require.NoError(t, err)

		signed, err := foreign.Sign(jwtx.NewSessionClaims("u1", "admin", "sponsor-portal", time.Hour, time.Now()))
		require.NoError(t, err)

		_, err = portal.client.WithToken(signed).ListUsers(ctx)
		requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeUnauthenticated)
	})
}

func TestRevocationTakesEffectImmediately(t *testing.T) {
	ctx := context.Background()
	portal := newTestPortal(t)
	portal.seedActivatedUser(t, "admin@sponsor.example", "admin password", domain.RoleAdmin, nil)
	invUser := portal.seedActivatedUser(t, "inv@sponsor.example", "inv password",
		domain.RoleInvestigator, []string{"site-001"})

	admin, _, err := portal.client.Login(ctx, "admin@sponsor.example", "admin password")
	require.NoError(t, err)
	inv, _, err := portal.client.Login(ctx, "inv@sponsor.example", "inv password")
	require.NoError(t, err)

	// The investigator's session works until the admin revokes it. The
	// token itself stays cryptographically valid; the gateway's per-request
	// account read is what cuts it off.
	require.NoError(t, inv.ChangePassword(ctx, "inv password", "rotated password"))

	require.NoError(t, admin.RevokeUser(ctx, invUser.ID))

	err = inv.ChangePassword(ctx, "rotated password", "another password")
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeUnauthenticated)

	_, _, err = portal.client.Login(ctx, "inv@sponsor.example", "rotated password")
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)

	// Reinstating revives the same still-unexpired token.
	require.NoError(t, admin.ReinstateUser(ctx, invUser.ID))
	require.NoError(t, inv.ChangePassword(ctx, "rotated password", "another password"))

	t.Run("revoking a missing user is a 404", func(t *testing.T) {
		err := admin.RevokeUser(ctx, "no-such-user")
		requireAPIError(t, err, http.StatusNotFound, portalsdk.ErrorCodeNotFound)
	})
}

func TestGenerateCodeValidation(t *testing.T) {
	ctx := context.Background()
	portal := newTestPortal(t)
	portal.seedActivatedUser(t, "admin@sponsor.example", "admin password", domain.RoleAdmin, nil)

	admin, _, err := portal.client.Login(ctx, "admin@sponsor.example", "admin password")
	require.NoError(t, err)

	t.Run("unknown role", func(t *testing.T) {
		_, err := admin.GenerateCode(ctx, portalsdk.GenerateCodeRequest{
			Email: "x@sponsor.example", Name: "X", Role: "superuser",
		})
		requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest)
	})

	t.Run("investigator without sites", func(t *testing.T) {
		_, err := admin.GenerateCode(ctx, portalsdk.GenerateCodeRequest{
			Email: "x@sponsor.example", Name: "X", Role: "investigator",
		})
		requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := admin.GenerateCode(ctx, portalsdk.GenerateCodeRequest{
			Email: "admin@sponsor.example", Name: "X", Role: "admin",
		})
		requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeEmailTaken)
	})
}

func TestCORSPreflight(t *testing.T) {
	portal := newTestPortal(t)

	req, err := http.NewRequest(http.MethodOptions, portal.server.URL+"/auth/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://portal.sponsor.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := portal.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	t.Run("error responses carry CORS headers too", func(t *testing.T) {
		resp, err := portal.server.Client().Get(portal.server.URL + "/portal/users")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestUnknownRoutesReturn404(t *testing.T) {
	portal := newTestPortal(t)

	doReq := func(method, path string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, portal.server.URL+path, nil)
		require.NoError(t, err)
		resp, err := portal.server.Client().Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("unknown path", func(t *testing.T) {
		resp := doReq(http.MethodGet, "/no/such/path")
		defer resp.Body.Close()

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("known path with wrong method", func(t *testing.T) {
		resp := doReq(http.MethodPut, "/auth/login")
		defer resp.Body.Close()

		// Indistinguishable from an unknown path: the route table is the
		// whole surface, so no 405 leaks which methods exist.
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("wrong method on an id route", func(t *testing.T) {
		resp := doReq(http.MethodDelete, "/portal/users/some-id/revoke")
		defer resp.Body.Close()

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestLoginRateLimit(t *testing.T) {
	ctx := context.Background()
	portal := newTestPortal(t)

	// Burn through the strict per-IP budget with failing logins.
	var err error
	for i := 0; i < 5; i++ {
		_, _, err = portal.client.Login(ctx, "ghost@sponsor.example", "wrong")
		requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)
	}

	_, _, err = portal.client.Login(ctx, "ghost@sponsor.example", "wrong")
	requireAPIError(t, err, http.StatusTooManyRequests, portalsdk.ErrorCodeRateLimited)
}

func TestHealthEndpoints(t *testing.T) {
	ctx := context.Background()
	portal := newTestPortal(t)

	health, err := portal.client.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "sponsor-portal", health.Service)

	ready, err := portal.client.Ready(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
}
