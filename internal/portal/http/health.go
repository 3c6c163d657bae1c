package http

import (
	"net/http"
	"time"

	"github.com/trialdiary/sponsorportal/internal/portal/store"
	"github.com/trialdiary/sponsorportal/pkg/httpx"
	"github.com/trialdiary/sponsorportal/pkg/jwtx"
	"github.com/trialdiary/sponsorportal/pkg/portalsdk"
)

// HealthHandler handles GET /health. It only proves the process is up.
func HealthHandler(startTime time.Time, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, portalsdk.HealthResponse{
			Status:        "ok",
			Service:       "sponsor-portal",
			Version:       version,
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
		})
	})
}

// ReadyzHandler handles GET /readyz: ready means the database answers a
// ping and at least one verification key is loaded.
func ReadyzHandler(st store.Store, keys *jwtx.KeySet, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, portalsdk.HealthResponse{
				Status: "database unreachable",
			})
			return
		}
		if !keys.IsReady() {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, portalsdk.HealthResponse{
				Status: "no signing keys loaded",
			})
			return
		}

		httpx.WriteJSON(w, http.StatusOK, portalsdk.HealthResponse{
			Status:  "ok",
			Service: "sponsor-portal",
			Version: version,
		})
	})
}
