package types

type CreateSubscriptionRequest struct {
	PlanType        string `json:"plan_type" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type DeployRequest struct {
	TemplateID string `json:"template_id" validate:"required"`
}
