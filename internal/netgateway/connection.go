package netgateway

import (
	"context"
	"fmt"

	"github.com/AltairaLabs/netgateway-provider/internal/scheduler"
)

// connectionHandler implements OS::Neutron::NetworkGatewayConnection.
type connectionHandler struct {
	env *resourceEnv
}

func newConnectionHandler(env *resourceEnv) handler {
	return &connectionHandler{env: env}
}

func (h *connectionHandler) validate(props map[string]any) error {
	if err := validateAgainstSchema(h.env.variant.ConnectionSchema(), props); err != nil {
		return err
	}
	p, err := decodeProperties[ConnectionProperties](props)
	if err != nil {
		return err
	}
	return h.env.variant.ValidateSegmentation(p.SegmentationType, p.SegmentationID)
}

// create connects the network to the gateway and records the composite
// identity used later to disconnect.
func (h *connectionHandler) create(ctx context.Context, r *Resource) error {
	p, err := decodeProperties[ConnectionProperties](r.Properties)
	if err != nil {
		return err
	}

	networkID, err := h.env.api.FindNetworkID(ctx, p.NetworkID)
	if err != nil {
		return err
	}

	ident := ConnectionIdentity{
		GatewayID:        p.NetworkGatewayID,
		NetworkID:        networkID,
		SegmentationType: p.SegmentationType,
		SegmentationID:   p.SegmentationID,
	}
	info, err := h.env.api.ConnectNetwork(ctx, p.NetworkGatewayID, ident.request())
	if err != nil {
		return err
	}
	ident.PortID = info.PortID

	r.ResourceID = h.env.variant.EncodeIdentity(ident)
	if !h.env.variant.IdentityCarriesPort() {
		r.Metadata[metaPortID] = info.PortID
	}
	h.env.log.Info().Str("resource", r.Name).Str("gateway", ident.GatewayID).Str("port", info.PortID).Msg("network connected")
	return nil
}

// delete disconnects synchronously; no confirmation task is needed.
func (h *connectionHandler) delete(ctx context.Context, r *Resource) (scheduler.Task, error) {
	if r.ResourceID == "" {
		return nil, nil
	}
	ident, err := h.identity(r)
	if err != nil {
		return nil, err
	}
	return nil, disconnect(ctx, h.env.api, ident, h.env.log.With().Str("resource", r.Name).Logger())
}

func (h *connectionHandler) attributes() []string {
	return h.env.variant.ConnectionAttributes()
}

// attribute answers from the persisted identity without a remote call.
func (h *connectionHandler) attribute(_ context.Context, r *Resource, key string) (any, error) {
	ident, err := h.identity(r)
	if err != nil {
		return nil, err
	}
	switch key {
	case "network_gateway_id":
		return ident.GatewayID, nil
	case "network_id":
		return ident.NetworkID, nil
	case "port_id":
		return ident.PortID, nil
	case "show":
		show := map[string]any{
			"network_gateway_id": ident.GatewayID,
			"network_id":         ident.NetworkID,
			"segmentation_type":  ident.SegmentationType,
			"port_id":            ident.PortID,
		}
		if ident.SegmentationID != nil {
			show["segmentation_id"] = *ident.SegmentationID
		}
		return show, nil
	default:
		return nil, &InvalidAttributeError{Resource: r.Name, Key: key}
	}
}

// identity decodes the resource id, filling the port from metadata when
// the identity format does not carry it.
func (h *connectionHandler) identity(r *Resource) (ConnectionIdentity, error) {
	ident, err := h.env.variant.DecodeIdentity(r.ResourceID)
	if err != nil {
		return ConnectionIdentity{}, fmt.Errorf("resource %q: %w", r.Name, err)
	}
	if ident.PortID == "" {
		ident.PortID = r.Metadata[metaPortID]
	}
	return ident, nil
}

// check looks for the connection's port on its gateway. A removed gateway
// leaves the connection missing.
func (h *connectionHandler) check(ctx context.Context, r *Resource) (string, string) {
	ident, err := h.identity(r)
	if err != nil {
		return StatusUnhealthy, err.Error()
	}
	attached, err := connectionAttached(ctx, h.env.api, ident)
	switch {
	case err != nil:
		return StatusUnhealthy, err.Error()
	case !attached:
		return StatusMissing, ""
	default:
		return StatusHealthy, ""
	}
}
