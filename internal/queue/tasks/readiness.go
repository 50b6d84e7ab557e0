// Package tasks holds the asynq task handlers run by the worker process.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/models"
	"github.com/ai-stack-deploy/engine/internal/provisioner"
	"github.com/ai-stack-deploy/engine/internal/queue"
	"github.com/ai-stack-deploy/engine/internal/repository"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// ReadinessTaskHandler polls provisioned resources until they boot and mirrors
// the outcome into the deployments ledger.
type ReadinessTaskHandler struct {
	prov       provisioner.Provisioner
	deployRepo repository.DeploymentRepository
	timeout    time.Duration
	pollBase   time.Duration
}

func NewReadinessTaskHandler(prov provisioner.Provisioner, deployRepo repository.DeploymentRepository, timeout time.Duration) *ReadinessTaskHandler {
	return &ReadinessTaskHandler{
		prov:       prov,
		deployRepo: deployRepo,
		timeout:    timeout,
		pollBase:   5 * time.Second,
	}
}

// HandleAwaitReady blocks until the resource reports active, the timeout
// budget runs out, or the provider says it is gone. The deployment row ends
// in active or error; it is never left in deploying by this handler.
func (h *ReadinessTaskHandler) HandleAwaitReady(ctx context.Context, t *asynq.Task) error {
	var p queue.AwaitReadyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid readiness task payload", zap.Error(err))
		return err
	}

	logger.L().Info("tracking deployment readiness",
		zap.String("deployment_id", p.DeploymentID.String()),
		zap.String("resource_id", p.ResourceID),
	)

	waitCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.awaitActive(waitCtx, p.ResourceID)
	if err != nil {
		if markErr := h.deployRepo.UpdateStatus(ctx, p.DeploymentID, models.DeploymentError); markErr != nil {
			logger.L().Error("mark deployment errored failed", zap.Error(markErr))
		}
		logger.L().Error("deployment never became ready",
			zap.String("deployment_id", p.DeploymentID.String()),
			zap.Error(err),
		)
		return err
	}

	if err := h.deployRepo.UpdateStatus(ctx, p.DeploymentID, models.DeploymentActive); err != nil {
		return appErr.Wrap(err, appErr.CodeLedger, "mark deployment active failed")
	}
	logger.L().Info("deployment active", zap.String("deployment_id", p.DeploymentID.String()))
	return nil
}

func (h *ReadinessTaskHandler) awaitActive(ctx context.Context, resourceID string) error {
	delay := h.pollBase
	for {
		status, err := h.prov.Status(ctx, resourceID)
		switch {
		case err != nil && appErr.IsCode(err, appErr.CodeNotFound):
			// Resource was destroyed out from under us; stop tracking.
			return err
		case err != nil:
			logger.L().Warn("resource status check failed", zap.String("resource_id", resourceID), zap.Error(err))
		case status == "active":
			return nil
		}

		select {
		case <-ctx.Done():
			return appErr.Wrap(ctx.Err(), appErr.CodeProvisioning, "resource did not become active in time")
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}
