package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trialdiary/sponsorportal/internal/portal/service"
	"github.com/trialdiary/sponsorportal/pkg/httpx"
	"github.com/trialdiary/sponsorportal/pkg/portalsdk"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

type ChangePasswordHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /auth/change-password for the authenticated user.
func (h *ChangePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		writeUnauthenticated(w, "missing bearer token")
		return
	}

	var req portalsdk.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest,
			"current_password and new_password are required")
		return
	}

	err := h.AuthService.ChangePassword(ctx, id.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials,
				"current password is incorrect")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeWeakPassword,
				"new password does not meet the length policy")
		default:
			log.Error("password change failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, portalsdk.ErrorCodeServerError, "")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
