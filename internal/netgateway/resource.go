package netgateway

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/AltairaLabs/netgateway-provider/internal/scheduler"
)

// Action is the lifecycle action a resource last performed.
type Action string

// Lifecycle actions.
const (
	ActionInit   Action = "INIT"
	ActionCreate Action = "CREATE"
	ActionDelete Action = "DELETE"
	ActionUpdate Action = "UPDATE"
)

// Status is the progress of the last action.
type Status string

// Lifecycle statuses.
const (
	InProgress Status = "IN_PROGRESS"
	Complete   Status = "COMPLETE"
	Failed     Status = "FAILED"
)

// handler implements the behaviour of one resource type.
type handler interface {
	validate(props map[string]any) error
	create(ctx context.Context, r *Resource) error
	// delete returns a task to run to completion, or nil when the
	// deletion already finished.
	delete(ctx context.Context, r *Resource) (scheduler.Task, error)
	attributes() []string
	attribute(ctx context.Context, r *Resource, key string) (any, error)
	// check reports the remote health of a created resource.
	check(ctx context.Context, r *Resource) (health, detail string)
}

// resourceEnv is what every resource of a stack shares.
type resourceEnv struct {
	variant   Variant
	api       gatewayAPI
	runner    *scheduler.Runner
	log       zerolog.Logger
	stackName string
}

// resourceFactory builds the handler of one resource type.
type resourceFactory func(env *resourceEnv) handler

// resourceMapping registers the resource types this provider implements.
var resourceMapping = map[string]resourceFactory{
	ResTypeGateway:    newGatewayHandler,
	ResTypeConnection: newConnectionHandler,
}

// SupportedTypes returns the resource types in sorted order.
func SupportedTypes() []string {
	return slices.Sorted(maps.Keys(resourceMapping))
}

// Resource is one template resource and its lifecycle state.
type Resource struct {
	Name       string
	Type       string
	Properties map[string]any
	ResourceID string
	Metadata   map[string]string

	action Action
	status Status
	reason string

	env *resourceEnv
	h   handler
}

// newResource builds a resource of a registered type in the INIT state.
func (e *resourceEnv) newResource(name, typ string, props map[string]any) (*Resource, error) {
	factory, ok := resourceMapping[typ]
	if !ok {
		return nil, fmt.Errorf("resource %q: unknown type %q", name, typ)
	}
	return &Resource{
		Name:       name,
		Type:       typ,
		Properties: props,
		Metadata:   map[string]string{},
		action:     ActionInit,
		status:     Complete,
		env:        e,
		h:          factory(e),
	}, nil
}

// resourceFromState rebuilds a resource recorded by a previous apply.
func (e *resourceEnv) resourceFromState(rs ResourceState) (*Resource, error) {
	r, err := e.newResource(rs.Name, rs.Type, nil)
	if err != nil {
		return nil, err
	}
	r.ResourceID = rs.ResourceID
	maps.Copy(r.Metadata, rs.Metadata)
	if rs.Action != "" {
		r.action, r.status = rs.Action, rs.Status
	} else {
		r.action, r.status = ActionCreate, Complete
	}
	return r, nil
}

// State returns the last action and its status.
func (r *Resource) State() (Action, Status) {
	return r.action, r.status
}

// StatusReason returns the message recorded with the last state change.
func (r *Resource) StatusReason() string {
	return r.reason
}

// StateSet forces the lifecycle state.
func (r *Resource) StateSet(action Action, status Status, reason string) {
	r.env.log.Debug().
		Str("resource", r.Name).
		Str("type", r.Type).
		Str("action", string(action)).
		Str("status", string(status)).
		Msg(reason)
	r.action, r.status, r.reason = action, status, reason
}

// Validate checks the properties against the type's schema and
// cross-field rules. It never calls the remote service.
func (r *Resource) Validate() error {
	return r.h.validate(r.Properties)
}

// Create validates and creates the resource.
func (r *Resource) Create(ctx context.Context) error {
	r.StateSet(ActionCreate, InProgress, "state changed")
	if err := r.h.validate(r.Properties); err != nil {
		return r.fail(ActionCreate, err)
	}
	if err := r.h.create(ctx, r); err != nil {
		return r.fail(ActionCreate, err)
	}
	r.StateSet(ActionCreate, Complete, "state changed")
	return nil
}

// Delete removes the resource, driving any confirmation task with the
// stack's runner. Deleting a resource that was never created, or is
// already deleted, does nothing.
func (r *Resource) Delete(ctx context.Context) error {
	if r.action == ActionInit || (r.action == ActionDelete && r.status == Complete) {
		return nil
	}

	r.StateSet(ActionDelete, InProgress, "state changed")
	task, err := r.h.delete(ctx, r)
	if err == nil && task != nil {
		err = r.env.runner.Run(ctx, task)
	}
	if err != nil {
		return r.fail(ActionDelete, err)
	}
	r.StateSet(ActionDelete, Complete, "state changed")
	return nil
}

// Update always asks for replacement: gateways and connections have no
// in-place update.
func (r *Resource) Update(_ context.Context, _ map[string]any) error {
	return ErrUpdateReplace
}

// FnGetAtt resolves a declared attribute.
func (r *Resource) FnGetAtt(ctx context.Context, key string) (any, error) {
	if !slices.Contains(r.h.attributes(), key) {
		return nil, &InvalidAttributeError{Resource: r.Name, Key: key}
	}
	if r.ResourceID == "" {
		return nil, nil
	}
	return r.h.attribute(ctx, r, key)
}

// Check reports whether the resource still exists remotely. A resource
// whose last action failed is unhealthy without a remote call.
func (r *Resource) Check(ctx context.Context) (health, detail string) {
	if r.status == Failed {
		return StatusUnhealthy, fmt.Sprintf("%s failed: %s", r.action, r.reason)
	}
	if r.ResourceID == "" || r.action == ActionDelete {
		return StatusMissing, ""
	}
	return r.h.check(ctx, r)
}

// FnGetRefID returns the value other resources see for {"Ref": name}.
func (r *Resource) FnGetRefID() string {
	if r.ResourceID != "" {
		return r.ResourceID
	}
	return r.Name
}

// Snapshot returns the persistable state of the resource.
func (r *Resource) Snapshot() ResourceState {
	rs := ResourceState{
		Type:       r.Type,
		Name:       r.Name,
		ResourceID: r.ResourceID,
		Action:     r.action,
		Status:     r.status,
	}
	if len(r.Metadata) > 0 {
		rs.Metadata = maps.Clone(r.Metadata)
	}
	return rs
}

func (r *Resource) fail(action Action, err error) error {
	failure := newResourceFailure(action, r.Type, r.Name, err)
	r.StateSet(action, Failed, err.Error())
	return failure
}
