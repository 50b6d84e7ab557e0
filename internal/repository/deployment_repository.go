package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ai-stack-deploy/engine/internal/models"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
)

type deploymentRepository struct {
	db *gorm.DB
}

// NewDeploymentRepository returns a DeploymentRepository backed by a pooled
// Postgres connection.
func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{db: db}
}

func (r *deploymentRepository) Create(ctx context.Context, d *models.Deployment) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "create deployment failed")
	}
	return nil
}

func (r *deploymentRepository) GetByID(ctx context.Context, id uuid.UUID, userID string, dest *models.Deployment) error {
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(dest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "deployment not found")
		}
		return appErr.Wrap(err, appErr.CodeLedger, "get deployment failed")
	}
	return nil
}

func (r *deploymentRepository) ListByUser(ctx context.Context, userID string) ([]models.Deployment, error) {
	var out []models.Deployment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeLedger, "list deployments failed")
	}
	return out, nil
}

// UpdateStatus is not user-scoped: the readiness worker advances status with
// only the deployment id in hand.
func (r *deploymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Deployment{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeLedger, "update deployment status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "deployment not found")
	}
	return nil
}

func (r *deploymentRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Deployment{})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeLedger, "delete deployment failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "deployment not found")
	}
	return nil
}

func (r *deploymentRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Deployment{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeLedger, "count deployments failed")
	}
	return n, nil
}
