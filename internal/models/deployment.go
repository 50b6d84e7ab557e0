package models

import (
	"time"

	"github.com/google/uuid"
)

// Deployment status values.
const (
	DeploymentDeploying = "deploying"
	DeploymentActive    = "active"
	DeploymentError     = "error"
)

// Update schedules derived from the subscription tier.
const (
	UpdateManual    = "manual"
	UpdateMonthly   = "monthly"
	UpdateImmediate = "immediate"
)

// Deployment represents one provisioned droplet running an AI stack.
// SubscriptionID must reference a Subscription with the same UserID.
// Teardown hard-deletes the row.
type Deployment struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID            string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	UserEmail         string    `gorm:"not null" json:"user_email"`
	TemplateID        string    `gorm:"type:varchar(64);not null" json:"template_id"`
	DropletID         string    `gorm:"type:varchar(32)" json:"droplet_id"`
	URL               string    `json:"url"`
	Status            string    `gorm:"type:varchar(32);index;not null" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	SubscriptionID    uuid.UUID `gorm:"type:uuid;index" json:"subscription_id"`
	AutoUpdateEnabled bool      `gorm:"not null;default:false" json:"auto_update_enabled"`
	UpdateSchedule    string    `gorm:"type:varchar(16);not null;default:'manual'" json:"update_schedule"`
}

// UpdatePolicyForTier maps a pricing tier to the auto-update settings baked
// into the deployment at creation time.
func UpdatePolicyForTier(tier string) (autoUpdate bool, schedule string) {
	switch tier {
	case "pro":
		return true, UpdateMonthly
	case "enterprise":
		return true, UpdateImmediate
	default:
		return false, UpdateManual
	}
}
