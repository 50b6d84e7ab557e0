// Package app wires configuration into a ready-to-serve API handler. Both the
// standalone server and the Lambda entry point build the same handler.
package app

import (
	"context"
	"net/http"

	"github.com/digitalocean/godo"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	stripe "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/api"
	"github.com/ai-stack-deploy/engine/internal/api/handlers"
	"github.com/ai-stack-deploy/engine/internal/api/validators"
	"github.com/ai-stack-deploy/engine/internal/auth"
	"github.com/ai-stack-deploy/engine/internal/provisioner"
	"github.com/ai-stack-deploy/engine/internal/ratelimit"
	"github.com/ai-stack-deploy/engine/internal/repository"
	"github.com/ai-stack-deploy/engine/internal/services"
	"github.com/ai-stack-deploy/engine/pkg/config"
	"github.com/ai-stack-deploy/engine/pkg/database"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// Build assembles the full API handler from configuration. The returned
// cleanup must run on shutdown.
func Build(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	stripe.Key = cfg.StripeSecretKey

	subs, deps, err := buildLedger(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	doClient := godo.NewFromToken(cfg.DigitalOceanToken)
	prov := provisioner.NewDropletProvisioner(doClient, cfg.IPWaitTimeout)

	tasks := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	store := buildRateStore(ctx, cfg)

	billing := services.NewStripeBilling()
	orch := services.NewOrchestrator(subs, deps, billing, prov, tasks)

	verifier := auth.NewVerifier([]byte(cfg.SupabaseJWTSecret))
	admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	validate := validators.New()

	if cfg.Debug {
		handlers.EnableErrorDetails()
	}

	router := api.NewRouter(api.Dependencies{
		Verifier:     verifier,
		RateStore:    store,
		Health:       handlers.NewHealthHandler(),
		Templates:    handlers.NewTemplatesHandler(),
		Profile:      handlers.NewProfileHandler(orch, admin),
		Subscription: handlers.NewSubscriptionsHandler(orch, subs, cfg.StripeWebhookSecret, validate),
		Deployments:  handlers.NewDeploymentsHandler(orch, validate),
	})

	cleanup := func() {
		if err := tasks.Close(); err != nil {
			logger.L().Warn("closing task client failed", zap.Error(err))
		}
		if mem, ok := store.(*ratelimit.MemoryStore); ok {
			mem.Close()
		}
	}
	return router, cleanup, nil
}

// buildLedger picks the persistence path: the provider's managed data API
// when fully configured, direct Postgres otherwise. The two paths expose the
// same repository contracts.
func buildLedger(ctx context.Context, cfg *config.Config) (repository.SubscriptionRepository, repository.DeploymentRepository, error) {
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		logger.L().Info("ledger using managed data API", zap.String("url", cfg.SupabaseURL))
		client := repository.NewPostgrestClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		return repository.NewSubscriptionDataAPI(client), repository.NewDeploymentDataAPI(client), nil
	}

	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.L().Info("ledger using direct postgres")
	return repository.NewSubscriptionRepository(db), repository.NewDeploymentRepository(db), nil
}

// buildRateStore prefers the shared Redis window so limits hold across
// replicas, falling back to process memory when Redis is unreachable.
func buildRateStore(ctx context.Context, cfg *config.Config) ratelimit.Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.L().Warn("redis unreachable, rate limits are per-process", zap.Error(err))
		_ = rdb.Close()
		return ratelimit.NewMemoryStore()
	}
	return ratelimit.NewRedisStore(rdb)
}
