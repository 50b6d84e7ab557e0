package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// AdminUser is the subset of the identity provider's user record this API
// consumes.
type AdminUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	CreatedAt    string `json:"created_at"`
	LastSignInAt string `json:"last_sign_in_at"`
}

// AdminClient talks to the identity provider's admin user-lookup API with the
// service-role key. Lookups are best-effort profile enrichment; callers must
// tolerate a nil result.
type AdminClient struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

func NewAdminClient(baseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup fetches the provider-side user record. Returns nil (not an error)
// when the client is unconfigured or the provider call fails.
func (c *AdminClient) Lookup(ctx context.Context, userID string) *AdminUser {
	if c == nil || c.baseURL == "" || c.serviceKey == "" {
		return nil
	}

	url := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.L().Warn("admin user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.L().Warn("admin user lookup non-200", zap.String("user_id", userID), zap.Int("status", resp.StatusCode))
		return nil
	}

	var u AdminUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		logger.L().Warn("admin user lookup decode failed", zap.Error(err))
		return nil
	}
	return &u
}
