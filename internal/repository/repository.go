// Package repository is a thin typed query facade over the relational store.
// Two implementations exist: direct pooled Postgres (dev/fallback) and the
// provider's managed HTTP data-access API. All reads, updates, and deletes
// are scoped by user id for multi-tenant isolation.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ai-stack-deploy/engine/internal/models"
)

// SubscriptionRepository persists billing agreements. Rows are never
// deleted; cancellation is a status update.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID, userID string, dest *models.Subscription) error
	// GetActiveByPlanPrefix finds the caller's active subscription whose
	// plan_type starts with the given template prefix.
	GetActiveByPlanPrefix(ctx context.Context, userID, prefix string, dest *models.Subscription) error
	UpdateStatus(ctx context.Context, id uuid.UUID, userID, status string) error
	// UpdateStatusByStripeID applies provider-reported state changes
	// (webhooks) keyed by the external subscription id.
	UpdateStatusByStripeID(ctx context.Context, stripeID, status string) error
	CountActive(ctx context.Context, userID string) (int64, error)
}

// DeploymentRepository persists provisioned resources. Teardown removes the
// row entirely.
type DeploymentRepository interface {
	Create(ctx context.Context, d *models.Deployment) error
	GetByID(ctx context.Context, id uuid.UUID, userID string, dest *models.Deployment) error
	ListByUser(ctx context.Context, userID string) ([]models.Deployment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	CountByUser(ctx context.Context, userID string) (int64, error)
}
