package netgateway

import (
	"context"
	"fmt"

	"github.com/AltairaLabs/netgateway-provider/internal/scheduler"
)

// gatewayHandler implements OS::Neutron::NetworkGateway.
type gatewayHandler struct {
	env *resourceEnv
}

func newGatewayHandler(env *resourceEnv) handler {
	return &gatewayHandler{env: env}
}

func (h *gatewayHandler) validate(props map[string]any) error {
	return validateAgainstSchema(h.env.variant.GatewaySchema(), props)
}

// create sends the create request. An omitted name defaults to the
// physical resource name so gateways stay traceable to their stack.
func (h *gatewayHandler) create(ctx context.Context, r *Resource) error {
	props, err := decodeProperties[GatewayProperties](r.Properties)
	if err != nil {
		return err
	}
	if props.Name == "" {
		props.Name = physicalResourceName(h.env.stackName, r.Name)
	}

	gw, err := h.env.api.CreateGateway(ctx, h.env.variant.GatewaySpec(props))
	if err != nil {
		return err
	}
	if gw.ID == "" {
		return fmt.Errorf("create gateway %q: service returned no id", props.Name)
	}
	r.ResourceID = gw.ID
	h.env.log.Info().Str("resource", r.Name).Str("id", gw.ID).Msg("gateway created")
	return nil
}

func (h *gatewayHandler) delete(_ context.Context, r *Resource) (scheduler.Task, error) {
	return newGatewayDeletion(h.env.api, r.ResourceID, h.env.log.With().Str("resource", r.Name).Logger()), nil
}

func (h *gatewayHandler) attributes() []string {
	return h.env.variant.GatewayAttributes()
}

// attribute reads the latest gateway record. A gateway that no longer
// exists resolves every attribute to nil.
func (h *gatewayHandler) attribute(ctx context.Context, r *Resource, key string) (any, error) {
	gw, err := h.env.api.ShowGateway(ctx, r.ResourceID)
	if err != nil {
		if isNotFound(err) {
			h.env.log.Warn().Str("resource", r.Name).Str("id", r.ResourceID).Msg("gateway not found while reading attribute")
			return nil, nil
		}
		return nil, err
	}

	switch key {
	case "name":
		return gw.Name, nil
	case "tenant_id":
		return gw.TenantID, nil
	case "devices":
		return gw.Devices, nil
	case "default":
		return gw.Default, nil
	case "shared":
		if gw.Shared == nil {
			return false, nil
		}
		return *gw.Shared, nil
	case "show":
		return gw, nil
	default:
		return nil, &InvalidAttributeError{Resource: r.Name, Key: key}
	}
}

func (h *gatewayHandler) check(ctx context.Context, r *Resource) (string, string) {
	if _, err := h.env.api.ShowGateway(ctx, r.ResourceID); err != nil {
		if isNotFound(err) {
			return StatusMissing, ""
		}
		return StatusUnhealthy, err.Error()
	}
	return StatusHealthy, ""
}
