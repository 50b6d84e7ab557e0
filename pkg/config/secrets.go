package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/viper"
)

// overlaySecrets fetches the environment's secret bundle from AWS Secrets
// Manager and sets each entry on the viper instance, taking precedence over
// env vars. A fetch failure leaves the env-derived values in place; startup
// validation decides whether those are sufficient.
func overlaySecrets(ctx context.Context, v *viper.Viper) {
	secrets, err := fetchSecretBundle(ctx, v.GetString("AWS_REGION"), secretName(v.GetString("APP_ENV")))
	if err != nil {
		fmt.Printf("warning: secrets manager unavailable, falling back to env: %v\n", err)
		return
	}
	for k, val := range secrets {
		v.Set(k, val)
	}
}

func secretName(env string) string {
	return "ai-stack-platform/" + env
}

func fetchSecretBundle(ctx context.Context, region, name string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &name,
	})
	if err != nil {
		return nil, fmt.Errorf("get secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %q has no string payload", name)
	}

	var secrets map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &secrets); err != nil {
		return nil, fmt.Errorf("decode secret %q: %w", name, err)
	}
	return secrets, nil
}
