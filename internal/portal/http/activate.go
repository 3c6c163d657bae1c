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

type ActivateHandler struct {
	ActivationService *service.ActivationService
}

// ServeHTTP handles POST /portal/activate. Unknown, malformed and
// already-spent codes all return the same 400 body.
func (h *ActivateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req portalsdk.ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.LinkingCode == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest,
			"linking_code and new_password are required")
		return
	}

	user, err := h.ActivationService.Redeem(ctx, req.LinkingCode, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidLinkingCode,
				"linking code is invalid or already used")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeWeakPassword,
				"password does not meet the length policy")
		default:
			log.Error("activation failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, portalsdk.ErrorCodeServerError, "")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.ActivateResponse{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role.String(),
	})
}
