package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/api/middleware"
	"github.com/ai-stack-deploy/engine/internal/api/types"
	"github.com/ai-stack-deploy/engine/internal/models"
	"github.com/ai-stack-deploy/engine/internal/repository"
	"github.com/ai-stack-deploy/engine/internal/services"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

type SubscriptionsHandler struct {
	orch          services.Orchestrator
	subs          repository.SubscriptionRepository
	webhookSecret string
	validate      interface{ Struct(any) error }
}

func NewSubscriptionsHandler(orch services.Orchestrator, subs repository.SubscriptionRepository, webhookSecret string, v interface{ Struct(any) error }) *SubscriptionsHandler {
	return &SubscriptionsHandler{orch: orch, subs: subs, webhookSecret: webhookSecret, validate: v}
}

func (h *SubscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "plan_type and payment_method_id are required")
		return
	}

	id := middleware.GetIdentity(r.Context())
	result, err := h.orch.Subscribe(r.Context(), id, req.PlanType, req.PaymentMethodID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data: types.SubscriptionResponse{
			SubscriptionID:       result.SubscriptionID.String(),
			StripeSubscriptionID: result.StripeSubscriptionID,
			ClientSecret:         result.ClientSecret,
			Status:               result.Status,
		},
	})
}

// maxWebhookBody caps the event payload read; Stripe events are small.
const maxWebhookBody = 1 << 16

// Webhook ingests Stripe events. The signature check is the only
// authentication on this route.
func (h *SubscriptionsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "unreadable payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		logger.L().Warn("stripe webhook signature rejected", zap.Error(err))
		writeErrorStr(w, http.StatusBadRequest, "invalid", "invalid signature")
		return
	}

	switch event.Type {
	case "customer.subscription.updated":
		h.applySubscriptionStatus(w, r, event, "")
	case "customer.subscription.deleted":
		h.applySubscriptionStatus(w, r, event, models.SubscriptionCanceled)
	case "invoice.payment_failed":
		logger.L().Warn("invoice payment failed", zap.String("event_id", event.ID))
		writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
	default:
		logger.L().Debug("unhandled stripe event", zap.String("type", string(event.Type)))
		writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
	}
}

// applySubscriptionStatus mirrors the provider-reported state into the
// ledger. An empty override means "use the status on the event object".
func (h *SubscriptionsHandler) applySubscriptionStatus(w http.ResponseWriter, r *http.Request, event stripe.Event, override string) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid", "malformed event object")
		return
	}

	status := override
	if status == "" {
		status = string(sub.Status)
	}

	if err := h.subs.UpdateStatusByStripeID(r.Context(), sub.ID, status); err != nil {
		// An unknown subscription id is not an error worth retrying: the
		// event may predate this ledger or belong to another product.
		logger.L().Warn("webhook status update skipped",
			zap.String("stripe_subscription_id", sub.ID),
			zap.Error(err),
		)
	} else {
		logger.L().Info("subscription status updated from webhook",
			zap.String("stripe_subscription_id", sub.ID),
			zap.String("status", status),
		)
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}
