package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ai-stack-deploy/engine/internal/models"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a SubscriptionRepository backed by a
// pooled Postgres connection.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "create subscription failed")
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID, userID string, dest *models.Subscription) error {
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "subscription not found")
		}
		return appErr.Wrap(err, appErr.CodeLedger, "get subscription failed")
	}
	return nil
}

func (r *subscriptionRepository) GetActiveByPlanPrefix(ctx context.Context, userID, prefix string, dest *models.Subscription) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_type LIKE ? AND status = ?", userID, prefix+"%", models.SubscriptionActive).
		Order("created_at DESC").
		First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "no active subscription found")
		}
		return appErr.Wrap(err, appErr.CodeLedger, "get active subscription failed")
	}
	return nil
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, userID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeLedger, "update subscription status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "subscription not found")
	}
	return nil
}

func (r *subscriptionRepository) UpdateStatusByStripeID(ctx context.Context, stripeID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeID).
		Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeLedger, "update subscription status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "subscription not found")
	}
	return nil
}

func (r *subscriptionRepository) CountActive(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Count(&n).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeLedger, "count subscriptions failed")
	}
	return n, nil
}
