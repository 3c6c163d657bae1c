package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/service"
	"github.com/trialdiary/sponsorportal/pkg/httpx"
	"github.com/trialdiary/sponsorportal/pkg/portalsdk"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

// UsersHandler is the admin surface for account management: listing,
// provisioning with linking codes, and soft (de)activation.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleList handles GET /portal/users.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.UserService.List(ctx)
	if err != nil {
		log.Error("user listing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, portalsdk.ErrorCodeServerError, "")
		return
	}

	out := portalsdk.UsersResponse{Users: make([]portalsdk.User, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, toWireUser(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGenerateCode handles POST /portal/admin/generate-code. The
// linking code appears in this response and nowhere else.
func (h *UsersHandler) HandleGenerateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req portalsdk.GenerateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "invalid JSON body")
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest,
			"role must be admin or investigator")
		return
	}

	user, err := h.UserService.Create(ctx, req.Email, req.Name, role, req.AssignedSites)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeEmailTaken,
				"an account with that email already exists")
		case errors.Is(err, service.ErrSitesRequired):
			httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest,
				"investigators require at least one assigned site")
		case errors.Is(err, service.ErrInvalidUserRequest), errors.Is(err, service.ErrInvalidRole):
			httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest,
				"invalid account parameters")
		default:
			log.Error("account provisioning failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, portalsdk.ErrorCodeServerError, "")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalsdk.GenerateCodeResponse{
		UserID:      user.ID,
		LinkingCode: user.LinkingCode,
	})
}

// HandleRevoke handles POST /portal/users/{id}/revoke.
func (h *UsersHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// HandleReinstate handles POST /portal/users/{id}/reinstate.
func (h *UsersHandler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *UsersHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "user id is required")
		return
	}

	if err := h.UserService.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusNotFound, portalsdk.ErrorCodeNotFound, "no such user")
			return
		}
		log.Error("active flag update failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, portalsdk.ErrorCodeServerError, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toWireUser strips credentials: the hash and any outstanding linking
// code never leave the server through listing endpoints.
func toWireUser(u domain.PortalUser) portalsdk.User {
	return portalsdk.User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role.String(),
		AssignedSites: u.AssignedSites,
		Active:        u.IsActive,
		Activated:     u.Activated(),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
