package main

import (
	"context"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/app"
	"github.com/ai-stack-deploy/engine/internal/lambda"
	"github.com/ai-stack-deploy/engine/pkg/config"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting AI Stack Deploy API (lambda)", zap.String("env", cfg.AppEnv))

	handler, cleanup, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}
	defer cleanup()

	awslambda.Start(lambda.New(handler).Handle)
}
