package services

import (
	"context"
	"errors"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/product"
	stripeSubscription "github.com/stripe/stripe-go/v82/subscription"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/catalog"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// PlanHandle is the billing provider's view of a created plan.
type PlanHandle struct {
	ExternalID   string
	Status       string
	ClientSecret string
}

// BillingService creates and cancels recurring payment plans.
type BillingService interface {
	CreatePlan(ctx context.Context, userID, email string, tmpl *catalog.Template, tier, paymentMethodID string) (*PlanHandle, error)
	// CancelPlan is idempotent: an empty or already-canceled external id is
	// a no-op.
	CancelPlan(ctx context.Context, externalID string) error
}

type stripeBilling struct{}

// NewStripeBilling returns a BillingService backed by Stripe. The package
// expects stripe.Key to be set by the process entry point.
func NewStripeBilling() BillingService {
	return &stripeBilling{}
}

func (s *stripeBilling) CreatePlan(ctx context.Context, userID, email string, tmpl *catalog.Template, tier, paymentMethodID string) (*PlanHandle, error) {
	pricing, fellBack := tmpl.PriceFor(tier)
	if fellBack {
		logger.L().Warn("unknown pricing tier, falling back to basic",
			zap.String("template", tmpl.ID),
			zap.String("tier", tier),
		)
		tier = catalog.DefaultTier
	}

	custParams := &stripe.CustomerParams{
		Email:         stripe.String(email),
		PaymentMethod: stripe.String(paymentMethodID),
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	custParams.AddMetadata("user_id", userID)

	cust, err := customer.New(custParams)
	if err != nil {
		return nil, billingError(err, "create customer failed")
	}

	prodParams := &stripe.ProductParams{
		Name:        stripe.String(tmpl.Name + " - " + titleTier(tier)),
		Description: stripe.String(tmpl.Description),
	}
	prod, err := product.New(prodParams)
	if err != nil {
		return nil, billingError(err, "create product failed")
	}

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				PriceData: &stripe.SubscriptionItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					Product:    stripe.String(prod.ID),
					UnitAmount: stripe.Int64(int64(pricing.Price)),
					Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
				},
			},
		},
	}
	subParams.AddExpand("latest_invoice.confirmation_secret")
	subParams.AddMetadata("user_id", userID)
	subParams.AddMetadata("template_id", tmpl.ID+"-"+tier)

	sub, err := stripeSubscription.New(subParams)
	if err != nil {
		return nil, billingError(err, "create subscription failed")
	}

	handle := &PlanHandle{
		ExternalID: sub.ID,
		Status:     string(sub.Status),
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret != nil {
		handle.ClientSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
	}

	logger.L().Info("billing plan created",
		zap.String("stripe_subscription_id", sub.ID),
		zap.String("status", handle.Status),
		zap.String("user_id", userID),
	)
	return handle, nil
}

func (s *stripeBilling) CancelPlan(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}

	_, err := stripeSubscription.Cancel(externalID, &stripe.SubscriptionCancelParams{})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			logger.L().Info("stripe subscription already gone", zap.String("stripe_subscription_id", externalID))
			return nil
		}
		return billingError(err, "cancel subscription failed")
	}
	return nil
}

// billingError classifies provider failures: Stripe-reported errors (declined
// card, bad payment method, ...) are user-fixable client errors; everything
// else is internal.
func billingError(err error, msg string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return appErr.Wrap(err, appErr.CodeBilling, stripeErr.Msg)
	}
	return appErr.Wrap(err, appErr.CodeInternal, msg)
}

func titleTier(tier string) string {
	if tier == "" {
		return tier
	}
	return strings.ToUpper(tier[:1]) + tier[1:]
}
