package handlers

import (
	"net/http"

	"github.com/ai-stack-deploy/engine/internal/api/types"
	"github.com/ai-stack-deploy/engine/internal/catalog"
)

// TemplatesHandler serves the public stack catalog.
type TemplatesHandler struct{}

func NewTemplatesHandler() *TemplatesHandler { return &TemplatesHandler{} }

func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	items := catalog.List()
	out := make([]types.TemplateResponse, 0, len(items))
	for _, t := range items {
		pricing := make(map[string]types.TierPricing, len(t.Pricing))
		for tier, p := range t.Pricing {
			pricing[tier] = types.TierPricing{Price: p.Price, Features: p.Features}
		}
		out = append(out, types.TemplateResponse{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Features:    t.Features,
			Port:        t.Port,
			Pricing:     pricing,
		})
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out})
}
