package netgateway

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// Destroy tears down deployed resources in reverse dependency order,
// streaming progress events via the callback. Teardown is best-effort:
// a failed deletion is reported and the remaining resources are still
// deleted. The returned state holds the resources that could not be
// deleted.
func (p *Provider) Destroy(ctx context.Context, req *DestroyRequest, cb Callback) (string, error) {
	state, err := parseAdapterState(req.PriorState)
	if err != nil {
		return "", fmt.Errorf("netgateway: failed to parse prior state: %w", err)
	}
	reporter := newProgressReporter(cb)

	if len(state.Resources) == 0 {
		_ = reporter.progress("No resources to destroy", 0)
		_ = reporter.complete("Destroy complete (nothing to do)")
		return "", nil
	}

	_, env, err := p.connect(ctx, req.Config)
	if err != nil {
		return req.PriorState, err
	}

	byType := make(map[string][]ResourceState)
	for _, r := range state.Resources {
		byType[r.Type] = append(byType[r.Type], r)
	}

	_ = reporter.progress(fmt.Sprintf("Destroying %d resources", len(state.Resources)), 0)

	var remaining []ResourceState
	var failures []error
	done := 0
	for step, rtype := range destroyOrder {
		resources := sortedByName(byType[rtype])
		if len(resources) == 0 {
			continue
		}
		_ = reporter.progress(fmt.Sprintf("Step %d: deleting %s resources (%d)", step+1, rtype, len(resources)),
			float64(done)/float64(len(state.Resources)))

		for _, rs := range resources {
			done++
			r, err := env.resourceFromState(rs)
			if err == nil {
				err = r.Delete(ctx)
			}
			if err != nil {
				failures = append(failures, err)
				if r != nil {
					rs = r.Snapshot()
				}
				remaining = append(remaining, rs)
				_ = reporter.error(fmt.Errorf("failed to delete %s %q: %w", rs.Type, rs.Name, err), &ResourceResult{
					Type: rs.Type, Name: rs.Name, Action: ActionDelete, Status: "failed",
					ResourceID: rs.ResourceID, Detail: err.Error(),
				})
				continue
			}
			_ = reporter.resource(fmt.Sprintf("Deleted %s %q", rs.Type, rs.Name), &ResourceResult{
				Type: rs.Type, Name: rs.Name, Action: ActionDelete, Status: "deleted", ResourceID: rs.ResourceID,
			})
		}
	}

	// Unknown types cannot be deleted; keep them so they are not forgotten.
	for _, rs := range state.Resources {
		if !slices.Contains(destroyOrder, rs.Type) {
			remaining = append(remaining, rs)
			err := fmt.Errorf("resource %q: unknown type %q", rs.Name, rs.Type)
			failures = append(failures, err)
			_ = reporter.error(err, &ResourceResult{Type: rs.Type, Name: rs.Name, Action: ActionDelete, Status: "failed"})
		}
	}

	if len(failures) > 0 {
		_ = reporter.complete(fmt.Sprintf("Destroy finished with %d failure(s)", len(failures)))
		state.Resources = remaining
		stateJSON, err := json.Marshal(state)
		if err != nil {
			return "", fmt.Errorf("netgateway: failed to marshal state: %w", err)
		}
		return string(stateJSON), fmt.Errorf("netgateway: destroy incomplete\n%s", DiagnosticSummary(failures))
	}
	_ = reporter.complete("Destroy complete")
	return "", nil
}

// Status returns the current deployment status by checking each resource.
func (p *Provider) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	state, err := parseAdapterState(req.PriorState)
	if err != nil {
		return nil, fmt.Errorf("netgateway: failed to parse prior state: %w", err)
	}
	if len(state.Resources) == 0 {
		return &StatusResponse{Status: DeploymentNotDeployed}, nil
	}

	_, env, err := p.connect(ctx, req.Config)
	if err != nil {
		return nil, err
	}

	var resources []ResourceStatus
	hasUnhealthy := false
	for _, rs := range state.Resources {
		health, detail := StatusUnhealthy, ""
		r, err := env.resourceFromState(rs)
		if err != nil {
			detail = err.Error()
		} else {
			health, detail = r.Check(ctx)
		}
		if health != StatusHealthy {
			hasUnhealthy = true
		}
		resources = append(resources, ResourceStatus{
			Type:       rs.Type,
			Name:       rs.Name,
			ResourceID: rs.ResourceID,
			Status:     health,
			Detail:     detail,
		})
	}

	aggregate := DeploymentDeployed
	if hasUnhealthy {
		aggregate = DeploymentDegraded
	}

	// Re-serialize state so it round-trips.
	stateJSON, _ := json.Marshal(state)
	return &StatusResponse{
		Status:    aggregate,
		Resources: resources,
		State:     string(stateJSON),
	}, nil
}

// parseAdapterState deserializes the opaque state JSON.
// An empty string is treated as no state.
func parseAdapterState(raw string) (*AdapterState, error) {
	if raw == "" {
		return &AdapterState{}, nil
	}
	var s AdapterState
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("invalid state JSON: %w", err)
	}
	return &s, nil
}

// sortedByName returns a copy of states sorted by resource name.
func sortedByName(states []ResourceState) []ResourceState {
	out := slices.Clone(states)
	slices.SortFunc(out, func(a, b ResourceState) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
