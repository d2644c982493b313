// Package rollback reverts a deployment to one of its previously
// snapshotted states.
package rollback

import (
	"context"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/errs"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/resources"
	"github.com/GoCodeAlone/geuse/internal/statestore"
)

// Service rolls a deployment back to a previous snapshot.
type Service struct {
	compute *resources.Compute
	store   *statestore.Store
}

// New returns a rollback Service.
func New(compute *resources.Compute, store *statestore.Store) *Service {
	return &Service{compute: compute, store: store}
}

// Rollback reverts state to the snapshot at toVersion, where toVersion is
// a 1-based index into state.PreviousStates (1 = most recent snapshot).
// Instance-type differences are replayed via stop/modify/start; container
// image differences are reassigned in state without a remote re-pull,
// matching the source system's rollback semantics (it restores the
// recorded intent, not a live re-deploy).
func (s *Service) Rollback(ctx context.Context, region string, state *model.DeploymentState, toVersion int, reason, initiatedBy string) error {
	if toVersion < 1 || toVersion > len(state.PreviousStates) {
		return &errs.ValidationFailure{
			Field:   "to_version",
			Message: fmt.Sprintf("must be in [1,%d], got %d", len(state.PreviousStates), toVersion),
		}
	}

	snapshot := state.PreviousStates[toVersion-1]
	currentSnapshot := map[string]any{
		"instance_type":    state.Config.InstanceType,
		"container_images": copyImages(state.ContainerImages),
		"snapshotted_at":   time.Now().UTC().Format(time.RFC3339),
	}

	state.Status = model.StatusRollingBack
	state.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("rollback: save rolling_back checkpoint: %w", err)
	}

	snapshotInstanceType, _ := snapshot["instance_type"].(string)
	if snapshotInstanceType != "" && snapshotInstanceType != state.Config.InstanceType {
		if err := s.replayInstanceType(ctx, region, state.InstanceID, snapshotInstanceType); err != nil {
			state.Status = model.StatusFailed
			_ = s.store.Save(ctx, state)
			return &errs.OrchestrationError{Stage: "rollback_instance_type", Err: err}
		}
		state.Config.InstanceType = snapshotInstanceType
	}

	if snapshotImages := extractImages(snapshot["container_images"]); snapshotImages != nil {
		state.ContainerImages = snapshotImages
	}

	state.PushPreviousState(currentSnapshot)
	state.RollbackHistory = append(state.RollbackHistory, model.RollbackRecord{
		ToVersion:   toVersion,
		At:          time.Now().UTC(),
		Reason:      reason,
		InitiatedBy: initiatedBy,
	})
	state.Status = model.StatusRunning
	state.UpdatedAt = time.Now().UTC()
	now := state.UpdatedAt
	state.LastHealthyState = &now
	return s.store.Save(ctx, state)
}

func (s *Service) replayInstanceType(ctx context.Context, region, instanceID, instanceType string) error {
	if err := s.compute.Stop(ctx, region, instanceID); err != nil {
		return fmt.Errorf("stop instance: %w", err)
	}
	if err := s.compute.ModifyInstanceType(ctx, region, instanceID, instanceType); err != nil {
		return fmt.Errorf("modify instance type: %w", err)
	}
	if err := s.compute.Start(ctx, region, instanceID); err != nil {
		return fmt.Errorf("start instance: %w", err)
	}
	return nil
}

// extractImages recovers a container-image map from a previous-state
// snapshot. Snapshots taken in-process hold a map[string]string directly;
// snapshots that survived a save/load round trip through JSON decode their
// nested object as map[string]any instead, so both shapes are handled.
func extractImages(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			if s, ok := val.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

func copyImages(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
