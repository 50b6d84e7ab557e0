package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ai-stack-deploy/engine/internal/api/middleware"
	"github.com/ai-stack-deploy/engine/internal/api/types"
	"github.com/ai-stack-deploy/engine/internal/services"
)

type DeploymentsHandler struct {
	orch     services.Orchestrator
	validate interface{ Struct(any) error }
}

func NewDeploymentsHandler(orch services.Orchestrator, v interface{ Struct(any) error }) *DeploymentsHandler {
	return &DeploymentsHandler{orch: orch, validate: v}
}

func (h *DeploymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "template_id is required")
		return
	}

	id := middleware.GetIdentity(r.Context())
	result, err := h.orch.Deploy(r.Context(), id, req.TemplateID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data: types.DeploymentResponse{
			DeploymentID:   result.DeploymentID.String(),
			SubscriptionID: result.SubscriptionID.String(),
			URL:            result.URL,
			Status:         result.Status,
		},
	})
}

func (h *DeploymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	items, err := h.orch.ListDeployments(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items})
}

func (h *DeploymentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	depID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "invalid deployment id")
		return
	}

	id := middleware.GetIdentity(r.Context())
	if err := h.orch.Teardown(r.Context(), id, depID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    map[string]string{"message": "deployment deleted"},
	})
}
