package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeAwaitReady polls a freshly provisioned resource until its services
	// come up, then flips the deployment to active.
	TypeAwaitReady = "deployment:await-ready"
)

// AwaitReadyPayload carries everything the worker needs to track a
// provisioning deployment without a ledger round trip on dequeue.
type AwaitReadyPayload struct {
	DeploymentID uuid.UUID `json:"deployment_id"`
	ResourceID   string    `json:"resource_id"`
}

func NewAwaitReadyTask(deploymentID uuid.UUID, resourceID string) (*asynq.Task, error) {
	payload, err := json.Marshal(AwaitReadyPayload{
		DeploymentID: deploymentID,
		ResourceID:   resourceID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAwaitReady, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
	), nil
}
