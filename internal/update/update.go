// Package update applies in-place changes to a running deployment:
// instance-type resizing and container image rollout, both via a snapshot
// of the prior state so the deployment can be rolled back.
package update

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
	"github.com/GoCodeAlone/geuse/internal/errs"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/resources"
	"github.com/GoCodeAlone/geuse/internal/statestore"
)

// commandTimeoutSeconds bounds how long a container rollout's remote
// script may run via SSM before the update is considered failed.
const commandTimeoutSeconds = 900

// Request describes a requested update to a running deployment.
type Request struct {
	NewInstanceType string            // empty = no instance-type change
	ContainerImages map[string]string // nil/empty = no image rollout
	InitiatedBy     string
}

// Service applies updates to a deployment's compute and containers.
type Service struct {
	compute *resources.Compute
	clients *awsclient.Factory
	store   *statestore.Store
}

// New returns an update Service.
func New(compute *resources.Compute, clients *awsclient.Factory, store *statestore.Store) *Service {
	return &Service{compute: compute, clients: clients, store: store}
}

// rolloutScript is the SSM command executed on the instance to pull and
// restart the named container images.
const rolloutScript = `#!/bin/bash
set -euo pipefail
for image in "$@"; do
  docker pull "$image"
done
docker compose up -d
`

// Apply validates preconditions, snapshots the current state into the
// ring buffer, transitions to "updating", persists, then applies the
// requested instance-type change and/or container rollout.
func (s *Service) Apply(ctx context.Context, region string, state *model.DeploymentState, req Request) error {
	if state.Status != model.StatusRunning {
		return &errs.ValidationFailure{Field: "status", Message: fmt.Sprintf("update requires status running, got %s", state.Status)}
	}
	if req.NewInstanceType == "" && len(req.ContainerImages) == 0 {
		return &errs.ValidationFailure{Field: "request", Message: "update requires an instance type change or container image change"}
	}

	snapshot, err := snapshotState(state)
	if err != nil {
		return fmt.Errorf("update: snapshot state: %w", err)
	}
	state.PushPreviousState(snapshot)
	state.Status = model.StatusUpdating
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("update: save updating checkpoint: %w", err)
	}

	if req.NewInstanceType != "" && req.NewInstanceType != state.Config.InstanceType {
		if err := s.resizeInstance(ctx, region, state, req.NewInstanceType); err != nil {
			state.Status = model.StatusRunning
			_ = s.store.Save(ctx, state)
			return &errs.OrchestrationError{Stage: "update_instance_type", Err: err}
		}
		state.Config.InstanceType = req.NewInstanceType
	}

	if len(req.ContainerImages) > 0 {
		if err := s.rolloutContainers(ctx, region, state, req.ContainerImages); err != nil {
			state.Status = model.StatusRunning
			_ = s.store.Save(ctx, state)
			return &errs.OrchestrationError{Stage: "update_containers", Err: err}
		}
		if state.ContainerImages == nil {
			state.ContainerImages = map[string]string{}
		}
		for name, image := range req.ContainerImages {
			state.ContainerImages[name] = image
		}
	}

	state.Status = model.StatusRunning
	state.UpdatedAt = time.Now().UTC()
	now := state.UpdatedAt
	state.LastHealthyState = &now
	return s.store.Save(ctx, state)
}

func (s *Service) resizeInstance(ctx context.Context, region string, state *model.DeploymentState, newType string) error {
	if err := s.compute.Stop(ctx, region, state.InstanceID); err != nil {
		return fmt.Errorf("stop instance: %w", err)
	}
	if err := s.compute.ModifyInstanceType(ctx, region, state.InstanceID, newType); err != nil {
		return fmt.Errorf("modify instance type: %w", err)
	}
	if err := s.compute.Start(ctx, region, state.InstanceID); err != nil {
		return fmt.Errorf("start instance: %w", err)
	}
	return nil
}

func (s *Service) rolloutContainers(ctx context.Context, region string, state *model.DeploymentState, images map[string]string) error {
	client, err := s.clients.SSM(ctx, region)
	if err != nil {
		return fmt.Errorf("ssm client: %w", err)
	}

	imageList := make([]string, 0, len(images))
	for _, image := range images {
		imageList = append(imageList, image)
	}

	out, err := client.SendCommand(ctx, &ssm.SendCommandInput{
		InstanceIds:    []string{state.InstanceID},
		DocumentName:   aws.String("AWS-RunShellScript"),
		TimeoutSeconds: aws.Int32(commandTimeoutSeconds),
		Parameters: map[string][]string{
			"commands": {rolloutScript + " " + joinArgs(imageList)},
		},
	})
	if err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	if out.Command == nil || out.Command.CommandId == nil {
		return fmt.Errorf("send command returned no command id")
	}

	return s.waitForCommand(ctx, client, aws.ToString(out.Command.CommandId), state.InstanceID)
}

func (s *Service) waitForCommand(ctx context.Context, client awsclient.SSMClient, commandID, instanceID string) error {
	deadline := time.Now().Add(commandTimeoutSeconds * time.Second)
	for time.Now().Before(deadline) {
		out, err := client.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
			CommandId:  aws.String(commandID),
			InstanceId: aws.String(instanceID),
		})
		if err != nil {
			return fmt.Errorf("get command invocation: %w", err)
		}
		switch out.Status {
		case "Success":
			return nil
		case "Failed", "Cancelled", "TimedOut":
			return fmt.Errorf("container rollout command ended with status %s", out.Status)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return fmt.Errorf("container rollout command did not complete within %ds", commandTimeoutSeconds)
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

// snapshotState serializes state into a generic tree for the previous-
// states ring buffer, the same representation the migration runner
// operates on.
func snapshotState(state *model.DeploymentState) (map[string]any, error) {
	return map[string]any{
		"instance_type":    state.Config.InstanceType,
		"container_images": copyStringMap(state.ContainerImages),
		"snapshotted_at":   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
