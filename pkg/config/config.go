package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables,
// an optional config file, or AWS Secrets Manager in production.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`
	Debug           bool          `mapstructure:"DEBUG"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`

	// Supabase issues the bearer tokens this API consumes. The service key
	// is only needed for the admin user-lookup API; the data API path of the
	// ledger also activates when both URL and key are present.
	SupabaseURL        string `mapstructure:"SUPABASE_URL" validate:"omitempty,url"`
	SupabaseServiceKey string `mapstructure:"SUPABASE_SERVICE_KEY"`
	SupabaseJWTSecret  string `mapstructure:"SUPABASE_JWT_SECRET" validate:"required"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY" validate:"required"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	DigitalOceanToken string `mapstructure:"DIGITALOCEAN_TOKEN" validate:"required"`

	// Droplet bring-up bounds. IPWaitTimeout caps the synchronous wait for a
	// public address during deploy; ProvisionTimeout caps the background
	// wait for the droplet to report active.
	IPWaitTimeout    time.Duration `mapstructure:"IP_WAIT_TIMEOUT" validate:"required"`
	ProvisionTimeout time.Duration `mapstructure:"PROVISION_TIMEOUT" validate:"required"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	AWSRegion string `mapstructure:"AWS_REGION"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var configKeys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"DEBUG",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_URL",
	"SUPABASE_URL",
	"SUPABASE_SERVICE_KEY",
	"SUPABASE_JWT_SECRET",
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"DIGITALOCEAN_TOKEN",
	"IP_WAIT_TIMEOUT",
	"PROVISION_TIMEOUT",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"AWS_REGION",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, overlays Secrets Manager values in
// production, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("IP_WAIT_TIMEOUT", "90s")
	v.SetDefault("PROVISION_TIMEOUT", "10m")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("AWS_REGION", "us-east-1")

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}

	// Production secrets come from AWS Secrets Manager; env values win only
	// when the secret store is unreachable.
	if v.GetString("APP_ENV") == "production" {
		overlaySecrets(context.Background(), v)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT":  &c.ShutdownTimeout,
		"IP_WAIT_TIMEOUT":   &c.IPWaitTimeout,
		"PROVISION_TIMEOUT": &c.ProvisionTimeout,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
