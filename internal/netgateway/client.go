package netgateway

import "context"

// Segmentation types accepted by gateway connections.
const (
	SegmentationFlat = "flat"
	SegmentationVLAN = "vlan"
)

// Device is a physical device and interface bridged by a gateway.
type Device struct {
	ID            string `json:"id"`
	InterfaceName string `json:"interface_name"`
}

// Gateway is the remote record of a network gateway.
type Gateway struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	TenantID string        `json:"tenant_id"`
	Devices  []Device      `json:"devices"`
	Default  bool          `json:"default"`
	Shared   *bool         `json:"shared,omitempty"`
	Ports    []GatewayPort `json:"ports,omitempty"`
}

// GatewayPort is one network connection attached to a gateway, as reported
// by the gateway listing.
type GatewayPort struct {
	PortID           string `json:"port_id"`
	SegmentationType string `json:"segmentation_type"`
	SegmentationID   *int   `json:"segmentation_id,omitempty"`
}

// GatewaySpec is the create payload of a gateway.
type GatewaySpec struct {
	Name     string   `json:"name,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Devices  []Device `json:"devices"`
	Shared   *bool    `json:"shared,omitempty"`
}

// ConnectionRequest is the body of connect and disconnect calls.
type ConnectionRequest struct {
	NetworkID        string `json:"network_id"`
	SegmentationType string `json:"segmentation_type"`
	SegmentationID   *int   `json:"segmentation_id,omitempty"`
}

// ConnectionInfo is returned by a successful connect.
type ConnectionInfo struct {
	NetworkGatewayID string `json:"network_gateway_id"`
	NetworkID        string `json:"network_id"`
	PortID           string `json:"port_id"`
}

// ListFilter narrows a gateway listing. An empty filter lists everything.
type ListFilter struct {
	ID string
}

// gatewayAPI abstracts the remote network-gateway service for testing.
// Delete and disconnect return a *RemoteError (or a gophercloud status
// error) for HTTP failures so callers can tell not-found from ambiguous
// failures.
type gatewayAPI interface {
	CreateGateway(ctx context.Context, spec GatewaySpec) (*Gateway, error)
	ShowGateway(ctx context.Context, id string) (*Gateway, error)
	DeleteGateway(ctx context.Context, id string) error
	ListGateways(ctx context.Context, filter ListFilter) ([]Gateway, error)
	ConnectNetwork(ctx context.Context, gatewayID string, req ConnectionRequest) (*ConnectionInfo, error)
	DisconnectNetwork(ctx context.Context, gatewayID string, req ConnectionRequest) error
	// FindNetworkID resolves a network name or id to an id.
	FindNetworkID(ctx context.Context, nameOrID string) (string, error)
}
