package handlers

import (
	"net/http"

	"github.com/ai-stack-deploy/engine/internal/api/middleware"
	"github.com/ai-stack-deploy/engine/internal/api/types"
	"github.com/ai-stack-deploy/engine/internal/auth"
	"github.com/ai-stack-deploy/engine/internal/services"
)

type ProfileHandler struct {
	orch  services.Orchestrator
	admin *auth.AdminClient
}

func NewProfileHandler(orch services.Orchestrator, admin *auth.AdminClient) *ProfileHandler {
	return &ProfileHandler{orch: orch, admin: admin}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())

	subs, deps, err := h.orch.ProfileCounts(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	email := id.Email
	if email == "" {
		// Some tokens omit the email claim; fall back to the provider record.
		if u := h.admin.Lookup(r.Context(), id.UserID); u != nil {
			email = u.Email
		}
	}

	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data: types.ProfileResponse{
			UserID:            id.UserID,
			Email:             email,
			SubscriptionCount: subs,
			DeploymentCount:   deps,
		},
	})
}
