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

type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /auth/login. All credential failures collapse
// into one 401 body so the endpoint can't be used to enumerate accounts.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req portalsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "email and password are required")
		return
	}

	token, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials,
				"email or password is incorrect")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, portalsdk.ErrorCodeServerError, "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.SessionResponse{
		Token:     token.Token,
		TokenType: token.TokenType,
		ExpiresIn: token.ExpiresIn,
	})
}
