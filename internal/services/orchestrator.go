package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/auth"
	"github.com/ai-stack-deploy/engine/internal/catalog"
	"github.com/ai-stack-deploy/engine/internal/models"
	"github.com/ai-stack-deploy/engine/internal/provisioner"
	"github.com/ai-stack-deploy/engine/internal/queue"
	"github.com/ai-stack-deploy/engine/internal/repository"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// SubscribeResult is returned to the client after a plan purchase so the
// frontend can confirm the payment intent.
type SubscribeResult struct {
	SubscriptionID       uuid.UUID
	StripeSubscriptionID string
	ClientSecret         string
	Status               string
}

// DeployResult describes a freshly provisioned stack. The stack is still
// booting when this is returned; the readiness worker flips it to active.
type DeployResult struct {
	DeploymentID   uuid.UUID
	SubscriptionID uuid.UUID
	URL            string
	Status         string
}

// Orchestrator runs the multi-step subscribe, deploy, and teardown workflows,
// compensating completed steps when a later one fails.
type Orchestrator interface {
	Subscribe(ctx context.Context, caller *auth.Identity, planType, paymentMethodID string) (*SubscribeResult, error)
	Deploy(ctx context.Context, caller *auth.Identity, templateID string) (*DeployResult, error)
	Teardown(ctx context.Context, caller *auth.Identity, deploymentID uuid.UUID) error
	ListDeployments(ctx context.Context, userID string) ([]models.Deployment, error)
	ProfileCounts(ctx context.Context, userID string) (subscriptions, deployments int64, err error)
}

type orchestrator struct {
	subs    repository.SubscriptionRepository
	deps    repository.DeploymentRepository
	billing BillingService
	prov    provisioner.Provisioner
	tasks   *asynq.Client
}

// NewOrchestrator wires the workflow service. tasks may be nil; readiness
// tracking is then skipped and deployments stay in the deploying state until
// inspected manually.
func NewOrchestrator(
	subs repository.SubscriptionRepository,
	deps repository.DeploymentRepository,
	billing BillingService,
	prov provisioner.Provisioner,
	tasks *asynq.Client,
) Orchestrator {
	return &orchestrator{subs: subs, deps: deps, billing: billing, prov: prov, tasks: tasks}
}

// saga records undo actions for completed workflow steps so a failure later
// in the chain can roll them back in reverse order. Undo failures are logged,
// not returned: the original error is the one the caller needs.
type saga struct {
	steps []sagaStep
}

type sagaStep struct {
	name string
	undo func(context.Context) error
}

func (s *saga) done(name string, undo func(context.Context) error) {
	s.steps = append(s.steps, sagaStep{name: name, undo: undo})
}

func (s *saga) compensate(ctx context.Context) {
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			logger.L().Error("saga compensation failed",
				zap.String("step", step.name),
				zap.Error(err),
			)
			continue
		}
		logger.L().Info("saga step compensated", zap.String("step", step.name))
	}
}

func (o *orchestrator) Subscribe(ctx context.Context, caller *auth.Identity, planType, paymentMethodID string) (*SubscribeResult, error) {
	tmpl, tier, ok := catalog.Resolve(planType)
	if !ok {
		return nil, appErr.New(appErr.CodeInvalid, "Invalid template")
	}

	var sg saga
	plan, err := o.billing.CreatePlan(ctx, caller.UserID, caller.Email, tmpl, tier, paymentMethodID)
	if err != nil {
		return nil, err
	}
	sg.done("billing:create-plan", func(cctx context.Context) error {
		return o.billing.CancelPlan(cctx, plan.ExternalID)
	})

	sub := &models.Subscription{
		ID:                   uuid.New(),
		UserID:               caller.UserID,
		UserEmail:            caller.Email,
		StripeSubscriptionID: plan.ExternalID,
		PlanType:             planType,
		Status:               plan.Status,
	}
	if err := o.subs.Create(ctx, sub); err != nil {
		sg.compensate(ctx)
		return nil, appErr.Wrap(err, appErr.CodeLedger, "record subscription failed")
	}

	logger.L().Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan_type", planType),
		zap.String("user_id", caller.UserID),
	)
	return &SubscribeResult{
		SubscriptionID:       sub.ID,
		StripeSubscriptionID: plan.ExternalID,
		ClientSecret:         plan.ClientSecret,
		Status:               plan.Status,
	}, nil
}

func (o *orchestrator) Deploy(ctx context.Context, caller *auth.Identity, templateID string) (*DeployResult, error) {
	// The request id is either a bare template id or "<template>-<tier>".
	tmpl, tier, ok := catalog.Resolve(templateID)
	if !ok {
		return nil, appErr.New(appErr.CodeInvalid, "Invalid template")
	}

	// The subscription gate runs before any cloud call: an unsubscribed
	// request must not create resources.
	var sub models.Subscription
	if err := o.subs.GetActiveByPlanPrefix(ctx, caller.UserID, tmpl.ID, &sub); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeInvalid, "no active subscription found for this template")
		}
		return nil, appErr.Wrap(err, appErr.CodeLedger, "subscription lookup failed")
	}
	if templateID == tmpl.ID {
		// Bare id carries no tier; take it from the subscribed plan.
		_, tier, _ = catalog.Resolve(sub.PlanType)
	}
	autoUpdate, schedule := models.UpdatePolicyForTier(tier)

	deploymentID := uuid.New()
	var sg saga
	handle, err := o.prov.Create(ctx, &provisioner.ResourceSpec{
		DeploymentID: deploymentID,
		TemplateID:   tmpl.ID,
		ComposeKey:   tmpl.ComposeKey,
		Tier:         tier,
		UserID:       caller.UserID,
	})
	if err != nil {
		return nil, err
	}
	sg.done("provisioner:create", func(cctx context.Context) error {
		return o.prov.Destroy(cctx, handle.ID)
	})

	dep := &models.Deployment{
		ID:                deploymentID,
		UserID:            caller.UserID,
		UserEmail:         caller.Email,
		TemplateID:        templateID,
		DropletID:         handle.ID,
		URL:               fmt.Sprintf("http://%s:%d", handle.IPv4, tmpl.Port),
		Status:            models.DeploymentDeploying,
		SubscriptionID:    sub.ID,
		AutoUpdateEnabled: autoUpdate,
		UpdateSchedule:    schedule,
	}
	if err := o.deps.Create(ctx, dep); err != nil {
		sg.compensate(ctx)
		return nil, appErr.Wrap(err, appErr.CodeLedger, "record deployment failed")
	}

	o.enqueueAwaitReady(deploymentID, handle.ID)

	logger.L().Info("deployment started",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("template_id", tmpl.ID),
		zap.String("droplet_id", handle.ID),
		zap.String("user_id", caller.UserID),
	)
	return &DeployResult{
		DeploymentID:   deploymentID,
		SubscriptionID: sub.ID,
		URL:            dep.URL,
		Status:         dep.Status,
	}, nil
}

// enqueueAwaitReady hands the deployment to the readiness worker. Failure to
// enqueue is not fatal to the deploy: the stack still boots, it just never
// gets flipped to active automatically.
func (o *orchestrator) enqueueAwaitReady(deploymentID uuid.UUID, resourceID string) {
	if o.tasks == nil {
		logger.L().Warn("task queue not configured, skipping readiness tracking",
			zap.String("deployment_id", deploymentID.String()),
		)
		return
	}
	task, err := queue.NewAwaitReadyTask(deploymentID, resourceID)
	if err != nil {
		logger.L().Error("build readiness task failed", zap.Error(err))
		return
	}
	if _, err := o.tasks.Enqueue(task); err != nil {
		logger.L().Error("enqueue readiness task failed",
			zap.String("deployment_id", deploymentID.String()),
			zap.Error(err),
		)
	}
}

// Teardown destroys the compute resource, cancels the attached plan, and
// removes the ledger row, in that fixed order. The steps are not transactional:
// a billing or ledger failure after the droplet is gone leaves a row pointing
// at a destroyed resource, which the caller can retry.
func (o *orchestrator) Teardown(ctx context.Context, caller *auth.Identity, deploymentID uuid.UUID) error {
	var dep models.Deployment
	if err := o.deps.GetByID(ctx, deploymentID, caller.UserID, &dep); err != nil {
		return err
	}

	if dep.DropletID != "" {
		if err := o.prov.Destroy(ctx, dep.DropletID); err != nil {
			return err
		}
	}

	if dep.SubscriptionID != uuid.Nil {
		var sub models.Subscription
		switch err := o.subs.GetByID(ctx, dep.SubscriptionID, caller.UserID, &sub); {
		case err == nil:
			if err := o.billing.CancelPlan(ctx, sub.StripeSubscriptionID); err != nil {
				return err
			}
			if err := o.subs.UpdateStatus(ctx, sub.ID, caller.UserID, models.SubscriptionCanceled); err != nil {
				return appErr.Wrap(err, appErr.CodeLedger, "mark subscription canceled failed")
			}
		case appErr.IsCode(err, appErr.CodeNotFound):
			// Row already gone; nothing to cancel.
		default:
			return appErr.Wrap(err, appErr.CodeLedger, "subscription lookup failed")
		}
	}

	if err := o.deps.Delete(ctx, deploymentID, caller.UserID); err != nil {
		return err
	}

	logger.L().Info("deployment torn down",
		zap.String("deployment_id", deploymentID.String()),
		zap.String("user_id", caller.UserID),
	)
	return nil
}

func (o *orchestrator) ListDeployments(ctx context.Context, userID string) ([]models.Deployment, error) {
	return o.deps.ListByUser(ctx, userID)
}

func (o *orchestrator) ProfileCounts(ctx context.Context, userID string) (int64, int64, error) {
	subs, err := o.subs.CountActive(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	deps, err := o.deps.CountByUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return subs, deps, nil
}
