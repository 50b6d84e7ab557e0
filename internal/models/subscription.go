package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription status values. Stripe may report additional states
// (incomplete, past_due, ...) which are stored verbatim.
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Subscription ties a user to a recurring Stripe billing agreement for one
// template tier. Rows are never deleted; cancellation flips the status so the
// billing history stays auditable.
type Subscription struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID               string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	UserEmail            string    `gorm:"not null" json:"user_email"`
	StripeSubscriptionID string    `gorm:"uniqueIndex;not null" json:"stripe_subscription_id"`
	PlanType             string    `gorm:"type:varchar(64);not null" json:"plan_type"`
	Status               string    `gorm:"type:varchar(32);index;not null" json:"status"`
	CreatedAt            time.Time `json:"created_at"`
}
