package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"

	"github.com/ai-stack-deploy/engine/internal/models"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
)

// NewPostgrestClient builds a client for the provider's managed data-access
// API. Used instead of the pooled connection when the provider URL and
// service key are configured.
func NewPostgrestClient(baseURL, serviceKey string) *postgrest.Client {
	return postgrest.NewClient(baseURL+"/rest/v1", "public", map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	})
}

type subscriptionDataAPI struct {
	client *postgrest.Client
}

// NewSubscriptionDataAPI returns a SubscriptionRepository that talks to the
// managed HTTP data-access API. Context cancellation is not propagated: the
// underlying client drives its own request lifecycle.
func NewSubscriptionDataAPI(client *postgrest.Client) SubscriptionRepository {
	return &subscriptionDataAPI{client: client}
}

const subscriptionsTable = "subscriptions"

func (r *subscriptionDataAPI) Create(ctx context.Context, sub *models.Subscription) error {
	_, _, err := r.client.From(subscriptionsTable).Insert(sub, false, "", "", "").Execute()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "create subscription failed")
	}
	return nil
}

func (r *subscriptionDataAPI) GetByID(ctx context.Context, id uuid.UUID, userID string, dest *models.Subscription) error {
	var rows []models.Subscription
	_, err := r.client.From(subscriptionsTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "get subscription failed")
	}
	if len(rows) == 0 {
		return appErr.New(appErr.CodeNotFound, "subscription not found")
	}
	*dest = rows[0]
	return nil
}

func (r *subscriptionDataAPI) GetActiveByPlanPrefix(ctx context.Context, userID, prefix string, dest *models.Subscription) error {
	var rows []models.Subscription
	_, err := r.client.From(subscriptionsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Like("plan_type", prefix+"%").
		Eq("status", models.SubscriptionActive).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "get active subscription failed")
	}
	if len(rows) == 0 {
		return appErr.New(appErr.CodeNotFound, "no active subscription found")
	}
	*dest = rows[0]
	return nil
}

func (r *subscriptionDataAPI) UpdateStatus(ctx context.Context, id uuid.UUID, userID, status string) error {
	data, _, err := r.client.From(subscriptionsTable).
		Update(map[string]any{"status": status}, "representation", "").
		Eq("id", id.String()).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "update subscription status failed")
	}
	if emptyResult(data) {
		return appErr.New(appErr.CodeNotFound, "subscription not found")
	}
	return nil
}

func (r *subscriptionDataAPI) UpdateStatusByStripeID(ctx context.Context, stripeID, status string) error {
	data, _, err := r.client.From(subscriptionsTable).
		Update(map[string]any{"status": status}, "representation", "").
		Eq("stripe_subscription_id", stripeID).
		Execute()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "update subscription status failed")
	}
	if emptyResult(data) {
		return appErr.New(appErr.CodeNotFound, "subscription not found")
	}
	return nil
}

func (r *subscriptionDataAPI) CountActive(ctx context.Context, userID string) (int64, error) {
	_, n, err := r.client.From(subscriptionsTable).
		Select("id", "exact", false).
		Eq("user_id", userID).
		Eq("status", models.SubscriptionActive).
		Execute()
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeLedger, "count subscriptions failed")
	}
	return n, nil
}

type deploymentDataAPI struct {
	client *postgrest.Client
}

// NewDeploymentDataAPI returns a DeploymentRepository over the managed
// data-access API.
func NewDeploymentDataAPI(client *postgrest.Client) DeploymentRepository {
	return &deploymentDataAPI{client: client}
}

const deploymentsTable = "deployments"

func (r *deploymentDataAPI) Create(ctx context.Context, d *models.Deployment) error {
	_, _, err := r.client.From(deploymentsTable).Insert(d, false, "", "", "").Execute()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "create deployment failed")
	}
	return nil
}

func (r *deploymentDataAPI) GetByID(ctx context.Context, id uuid.UUID, userID string, dest *models.Deployment) error {
	var rows []models.Deployment
	_, err := r.client.From(deploymentsTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "get deployment failed")
	}
	if len(rows) == 0 {
		return appErr.New(appErr.CodeNotFound, "deployment not found")
	}
	*dest = rows[0]
	return nil
}

func (r *deploymentDataAPI) ListByUser(ctx context.Context, userID string) ([]models.Deployment, error) {
	var rows []models.Deployment
	_, err := r.client.From(deploymentsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeLedger, "list deployments failed")
	}
	return rows, nil
}

func (r *deploymentDataAPI) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	data, _, err := r.client.From(deploymentsTable).
		Update(map[string]any{"status": status}, "representation", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "update deployment status failed")
	}
	if emptyResult(data) {
		return appErr.New(appErr.CodeNotFound, "deployment not found")
	}
	return nil
}

func (r *deploymentDataAPI) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	data, _, err := r.client.From(deploymentsTable).
		Delete("representation", "").
		Eq("id", id.String()).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "delete deployment failed")
	}
	if emptyResult(data) {
		return appErr.New(appErr.CodeNotFound, "deployment not found")
	}
	return nil
}

func (r *deploymentDataAPI) CountByUser(ctx context.Context, userID string) (int64, error) {
	_, n, err := r.client.From(deploymentsTable).
		Select("id", "exact", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeLedger, "count deployments failed")
	}
	return n, nil
}

// emptyResult reports whether a PostgREST "representation" response contains
// no rows.
func emptyResult(data []byte) bool {
	trimmed := string(data)
	return trimmed == "" || trimmed == "[]"
}
