package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ai-stack-deploy/engine/internal/models"
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

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// gen_random_uuid defaults on the id columns need pgcrypto.
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		log.Fatal("enable pgcrypto failed", zap.Error(err))
	}

	if err := db.AutoMigrate(&models.Subscription{}, &models.Deployment{}); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_status ON subscriptions (user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_stripe_id ON subscriptions (stripe_subscription_id)`,
		`CREATE INDEX IF NOT EXISTS idx_deployments_user ON deployments (user_id)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			log.Fatal("index creation failed", zap.Error(err))
		}
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
