package netgateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// metaPropsHash records the digest of the resolved properties a resource
// was created with, so unchanged resources are kept on re-apply.
const metaPropsHash = "properties_sha256"

// createOrder is the dependency order of resource types: connections
// reference gateways.
var createOrder = []string{ResTypeGateway, ResTypeConnection}

// destroyOrder is createOrder reversed.
var destroyOrder = []string{ResTypeConnection, ResTypeGateway}

// applyOp is what Apply does with one template resource.
type applyOp int

const (
	opCreate applyOp = iota
	opKeep
	opReplace
)

// applier converges one template against the prior state.
type applier struct {
	env      *resourceEnv
	tmpl     *Template
	reporter *progressReporter

	prior map[string]ResourceState
	ops   map[string]applyOp
	// live holds the resources that exist after this apply, by name.
	live     map[string]*Resource
	failures []error

	step, total int
}

// Apply converges the template. Gateways are created before connections;
// resources removed from the template, or whose properties changed, are
// deleted first, connections before gateways. The returned state records
// every resource that exists afterwards, including failed ones, and is
// returned even when some resources failed. An invalid template is
// rejected before the client is created.
func (p *Provider) Apply(ctx context.Context, req *ApplyRequest, cb Callback) (string, error) {
	tmpl, err := ParseTemplate(req.Template)
	if err != nil {
		return "", fmt.Errorf("netgateway: %w", err)
	}
	prior, err := parseAdapterState(req.PriorState)
	if err != nil {
		return "", fmt.Errorf("netgateway: failed to parse prior state: %w", err)
	}
	cfg, err := loadConfig(req.Config)
	if err != nil {
		return "", fmt.Errorf("netgateway: %w", err)
	}
	if len(prior.Resources) > 0 && prior.Revision != "" && prior.Revision != cfg.SchemaRevision {
		return "", fmt.Errorf("netgateway: stack was applied with schema revision %s, config selects %s; destroy it first",
			prior.Revision, cfg.SchemaRevision)
	}
	if errs := p.validateResources(cfg, tmpl); len(errs) > 0 {
		return "", fmt.Errorf("netgateway: invalid template: %w", errors.Join(errs...))
	}
	env, err := p.dial(ctx, cfg)
	if err != nil {
		return "", err
	}

	a := &applier{
		env:      env,
		tmpl:     tmpl,
		reporter: newProgressReporter(cb),
		prior:    make(map[string]ResourceState, len(prior.Resources)),
		ops:      make(map[string]applyOp),
		live:     make(map[string]*Resource),
	}
	for _, rs := range prior.Resources {
		a.prior[rs.Name] = rs
	}

	cbErr := a.run(ctx)

	state := AdapterState{
		StackName:  cfg.StackName,
		Revision:   cfg.SchemaRevision,
		Resources:  a.snapshot(),
		DeployedAt: time.Now().UTC().Format(time.RFC3339),
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("netgateway: failed to marshal state: %w", err)
	}
	if cbErr != nil {
		return string(stateJSON), cbErr
	}
	return string(stateJSON), errors.Join(a.failures...)
}

// run plans, tears down and creates. It returns only callback errors;
// resource failures are collected in a.failures.
func (a *applier) run(ctx context.Context) error {
	teardown := a.plan(ctx)
	for _, name := range a.orderedNames() {
		if a.ops[name] != opKeep {
			a.total++
		}
	}
	a.total += len(teardown)

	for _, r := range teardown {
		if err := a.teardown(ctx, r); err != nil {
			return err
		}
	}
	for _, name := range a.orderedNames() {
		if err := a.converge(ctx, name); err != nil {
			return err
		}
	}
	return a.reporter.complete(fmt.Sprintf("Apply complete (%d resources)", len(a.live)))
}

// orderedNames returns template resource names in creation order.
func (a *applier) orderedNames() []string {
	var names []string
	for _, typ := range createOrder {
		names = append(names, a.tmpl.namesOfType(typ)...)
	}
	return names
}

// plan decides the operation of every template resource and returns the
// prior resources to delete, in destroy order.
func (a *applier) plan(ctx context.Context) []*Resource {
	for _, name := range a.orderedNames() {
		a.ops[name] = a.planResource(ctx, name)
	}

	var stale []ResourceState
	for _, rs := range a.prior {
		tr, inTemplate := a.tmpl.Resources[rs.Name]
		switch {
		case inTemplate && tr.Type == rs.Type && a.ops[rs.Name] == opKeep:
		case inTemplate && tr.Type == rs.Type && a.ops[rs.Name] == opReplace:
			stale = append(stale, rs)
		case rs.ResourceID != "" && !(rs.Action == ActionDelete && rs.Status == Complete):
			stale = append(stale, rs)
		}
	}
	return a.inDestroyOrder(stale)
}

func (a *applier) planResource(ctx context.Context, name string) applyOp {
	tr := a.tmpl.Resources[name]
	rs, ok := a.prior[name]
	if !ok || rs.Type != tr.Type || rs.ResourceID == "" || rs.Action != ActionCreate || rs.Status != Complete {
		return opCreate
	}

	props, err := resolveRefs(tr.Properties, func(ref string) (string, bool) {
		dep, ok := a.prior[ref]
		if !ok || a.ops[ref] != opKeep {
			return "", false
		}
		return dep.ResourceID, true
	})
	if err != nil || rs.Metadata[metaPropsHash] != propertiesHash(props) {
		r, rerr := a.env.resourceFromState(rs)
		if rerr == nil && errors.Is(r.Update(ctx, props), ErrUpdateReplace) {
			return opReplace
		}
		return opCreate
	}
	return opKeep
}

func (a *applier) inDestroyOrder(states []ResourceState) []*Resource {
	var out []*Resource
	for _, typ := range destroyOrder {
		for _, rs := range sortedByName(states) {
			if rs.Type != typ {
				continue
			}
			r, err := a.env.resourceFromState(rs)
			if err != nil {
				a.failures = append(a.failures, err)
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

// teardown deletes a prior resource. A resource that fails to delete stays
// in the state and blocks its replacement.
func (a *applier) teardown(ctx context.Context, r *Resource) error {
	if err := a.reporter.progress(fmt.Sprintf("Deleting %s: %s", r.Type, r.Name), a.pct()); err != nil {
		return err
	}
	a.step++

	if err := r.Delete(ctx); err != nil {
		a.failures = append(a.failures, err)
		a.live[r.Name] = r
		a.ops[r.Name] = opKeep
		return a.reporter.error(err, &ResourceResult{
			Type: r.Type, Name: r.Name, Action: ActionDelete, Status: "failed",
			ResourceID: r.ResourceID, Detail: err.Error(),
		})
	}
	return a.reporter.resource(fmt.Sprintf("Deleted %s %q", r.Type, r.Name), &ResourceResult{
		Type: r.Type, Name: r.Name, Action: ActionDelete, Status: "deleted", ResourceID: r.ResourceID,
	})
}

// converge keeps or creates one template resource.
func (a *applier) converge(ctx context.Context, name string) error {
	tr := a.tmpl.Resources[name]
	if a.ops[name] == opKeep {
		if _, blocked := a.live[name]; blocked {
			return nil
		}
		r, err := a.env.resourceFromState(a.prior[name])
		if err != nil {
			a.failures = append(a.failures, err)
			return nil
		}
		a.live[name] = r
		return a.reporter.resource(fmt.Sprintf("Unchanged %s %q", tr.Type, name), &ResourceResult{
			Type: tr.Type, Name: name, Action: ActionCreate, Status: "unchanged", ResourceID: r.ResourceID,
		})
	}

	verb, done, status := "Creating", "Created", "created"
	if a.ops[name] == opReplace {
		verb, done, status = "Replacing", "Replaced", "replaced"
	}
	if err := a.reporter.progress(fmt.Sprintf("%s %s: %s", verb, tr.Type, name), a.pct()); err != nil {
		return err
	}
	a.step++

	r, err := a.create(ctx, name, tr)
	if r != nil {
		a.live[name] = r
	}
	if err != nil {
		a.failures = append(a.failures, err)
		res := &ResourceResult{Type: tr.Type, Name: name, Action: ActionCreate, Status: "failed", Detail: err.Error()}
		return a.reporter.error(err, res)
	}
	return a.reporter.resource(fmt.Sprintf("%s %s %q", done, tr.Type, name), &ResourceResult{
		Type: tr.Type, Name: name, Action: ActionCreate, Status: status, ResourceID: r.ResourceID,
	})
}

func (a *applier) create(ctx context.Context, name string, tr TemplateResource) (*Resource, error) {
	props, err := resolveRefs(tr.Properties, func(ref string) (string, bool) {
		dep, ok := a.live[ref]
		if !ok || dep.ResourceID == "" {
			return "", false
		}
		if action, status := dep.State(); action != ActionCreate || status != Complete {
			return "", false
		}
		return dep.FnGetRefID(), true
	})
	if err != nil {
		return nil, newResourceFailure(ActionCreate, tr.Type, name, err)
	}

	r, err := a.env.newResource(name, tr.Type, props)
	if err != nil {
		return nil, err
	}
	if err := r.Create(ctx); err != nil {
		return r, err
	}
	r.Metadata[metaPropsHash] = propertiesHash(props)
	return r, nil
}

func (a *applier) pct() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.step) / float64(a.total)
}

// snapshot returns the state of every live resource in creation order.
func (a *applier) snapshot() []ResourceState {
	states := make([]ResourceState, 0, len(a.live))
	for _, r := range a.live {
		states = append(states, r.Snapshot())
	}
	var out []ResourceState
	for _, typ := range createOrder {
		for _, rs := range sortedByName(states) {
			if rs.Type == typ {
				out = append(out, rs)
			}
		}
	}
	return out
}

// propertiesHash returns a stable digest of resolved properties.
// encoding/json sorts map keys, so equal maps hash equally.
func propertiesHash(props map[string]any) string {
	raw, err := json.Marshal(props)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
