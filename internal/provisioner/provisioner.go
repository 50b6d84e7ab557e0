// Package provisioner creates and destroys the DigitalOcean droplets that
// run deployed AI stacks.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/digitalocean/godo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// ErrNotReady is returned by Create when the droplet exists but did not
// obtain a public address within the wait budget.
var ErrNotReady = errors.New("droplet has no public address yet")

// Droplet shape constants. All deployments share one machine profile; the
// stack inside differs per template.
const (
	dropletRegion = "nyc1"
	dropletImage  = "docker-20-04"
	dropletSize   = "s-2vcpu-2gb"
)

// ResourceSpec describes the compute resource to create.
type ResourceSpec struct {
	DeploymentID uuid.UUID
	TemplateID   string
	ComposeKey   string
	Tier         string
	UserID       string
}

// ResourceHandle identifies a created resource and its public address.
type ResourceHandle struct {
	ID   string
	Name string
	IPv4 string
}

// Provisioner is the compute-provider contract consumed by the orchestrator
// and the readiness worker.
type Provisioner interface {
	Create(ctx context.Context, spec *ResourceSpec) (*ResourceHandle, error)
	Destroy(ctx context.Context, resourceID string) error
	Status(ctx context.Context, resourceID string) (string, error)
}

// DropletProvisioner implements Provisioner against the DigitalOcean API.
type DropletProvisioner struct {
	droplets godo.DropletsService
	keys     godo.KeysService
	ipWait   time.Duration
}

// NewDropletProvisioner wires the provisioner to a godo client. ipWait bounds
// the synchronous wait for a public address after creation.
func NewDropletProvisioner(client *godo.Client, ipWait time.Duration) *DropletProvisioner {
	return &DropletProvisioner{droplets: client.Droplets, keys: client.Keys, ipWait: ipWait}
}

// Create provisions a droplet and waits (bounded, cancellable) until it has a
// public IPv4 address. The droplet keeps booting in the background; the
// readiness worker watches for the active state.
func (p *DropletProvisioner) Create(ctx context.Context, spec *ResourceSpec) (*ResourceHandle, error) {
	name := "ai-stack-" + strings.ReplaceAll(spec.DeploymentID.String(), "-", "")[:8]

	sshKeys, err := p.accountSSHKeys(ctx)
	if err != nil {
		// Keys are a convenience for operator access, not a hard dependency.
		logger.L().Warn("listing account ssh keys failed", zap.Error(err))
	}

	req := &godo.DropletCreateRequest{
		Name:     name,
		Region:   dropletRegion,
		Size:     dropletSize,
		Image:    godo.DropletCreateImage{Slug: dropletImage},
		SSHKeys:  sshKeys,
		Backups:  false,
		IPv6:     true,
		UserData: RenderCloudInit(spec.ComposeKey),
		Tags: []string{
			"ai-deploy-" + spec.TemplateID,
			"user-" + spec.UserID,
			"tier-" + spec.Tier,
		},
	}

	droplet, _, err := p.droplets.Create(ctx, req)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeProvisioning, "droplet create failed")
	}

	logger.L().Info("droplet created",
		zap.Int("droplet_id", droplet.ID),
		zap.String("name", name),
		zap.String("template", spec.TemplateID),
	)

	ip, err := p.waitForIPv4(ctx, droplet.ID)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeProvisioning, "droplet address wait failed").
			WithMeta("droplet_id", droplet.ID)
	}

	return &ResourceHandle{
		ID:   strconv.Itoa(droplet.ID),
		Name: name,
		IPv4: ip,
	}, nil
}

// waitForIPv4 polls the droplet until it reports a public address, with
// exponential backoff bounded by the configured wait budget.
func (p *DropletProvisioner) waitForIPv4(ctx context.Context, dropletID int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.ipWait)
	defer cancel()

	delay := 2 * time.Second
	const maxDelay = 15 * time.Second

	for {
		d, _, err := p.droplets.Get(ctx, dropletID)
		if err == nil {
			if ip, ipErr := d.PublicIPv4(); ipErr == nil && ip != "" {
				return ip, nil
			}
		} else {
			logger.L().Warn("droplet poll failed", zap.Int("droplet_id", dropletID), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrNotReady, ctx.Err())
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Destroy deletes the droplet. A provider-side 404 means the resource is
// already gone and is not an error.
func (p *DropletProvisioner) Destroy(ctx context.Context, resourceID string) error {
	id, err := strconv.Atoi(resourceID)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeProvisioning, "invalid resource id")
	}

	resp, err := p.droplets.Delete(ctx, id)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			logger.L().Info("droplet already deleted", zap.Int("droplet_id", id))
			return nil
		}
		return appErr.Wrap(err, appErr.CodeProvisioning, "droplet delete failed")
	}
	return nil
}

// Status reports the provider-side droplet status (new, active, off, ...).
func (p *DropletProvisioner) Status(ctx context.Context, resourceID string) (string, error) {
	id, err := strconv.Atoi(resourceID)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeProvisioning, "invalid resource id")
	}
	d, resp, err := p.droplets.Get(ctx, id)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", appErr.Wrap(err, appErr.CodeNotFound, "droplet no longer exists")
		}
		return "", appErr.Wrap(err, appErr.CodeProvisioning, "droplet status failed")
	}
	return d.Status, nil
}

func (p *DropletProvisioner) accountSSHKeys(ctx context.Context) ([]godo.DropletCreateSSHKey, error) {
	keys, _, err := p.keys.List(ctx, &godo.ListOptions{PerPage: 200})
	if err != nil {
		return nil, err
	}
	out := make([]godo.DropletCreateSSHKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, godo.DropletCreateSSHKey{ID: k.ID})
	}
	return out, nil
}
