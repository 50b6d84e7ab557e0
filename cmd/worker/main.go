package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitalocean/godo"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/provisioner"
	"github.com/ai-stack-deploy/engine/internal/queue"
	"github.com/ai-stack-deploy/engine/internal/queue/tasks"
	"github.com/ai-stack-deploy/engine/internal/repository"
	"github.com/ai-stack-deploy/engine/pkg/config"
	"github.com/ai-stack-deploy/engine/pkg/database"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	_, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.L().Fatal("redis connection failed", zap.Error(err))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}
	deploymentRepo := repository.NewDeploymentRepository(db)

	doClient := godo.NewFromToken(cfg.DigitalOceanToken)
	prov := provisioner.NewDropletProvisioner(doClient, cfg.IPWaitTimeout)

	handler := tasks.NewReadinessTaskHandler(prov, deploymentRepo, cfg.ProvisionTimeout)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeAwaitReady, handler.HandleAwaitReady)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}
