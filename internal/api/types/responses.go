package types

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// TemplateResponse is the public catalog entry shape.
type TemplateResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Features    []string               `json:"features"`
	Port        int                    `json:"port"`
	Pricing     map[string]TierPricing `json:"pricing"`
}

type TierPricing struct {
	Price    int      `json:"price"`
	Features []string `json:"features"`
}

type ProfileResponse struct {
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	SubscriptionCount int64  `json:"subscription_count"`
	DeploymentCount   int64  `json:"deployment_count"`
}

type SubscriptionResponse struct {
	SubscriptionID       string `json:"subscription_id"`
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	ClientSecret         string `json:"client_secret,omitempty"`
	Status               string `json:"status"`
}

type DeploymentResponse struct {
	DeploymentID   string `json:"deployment_id"`
	SubscriptionID string `json:"subscription_id"`
	URL            string `json:"url"`
	Status         string `json:"status"`
}
