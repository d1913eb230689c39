package netgateway

// Resource type names accepted in templates.
const (
	ResTypeGateway    = "OS::Neutron::NetworkGateway"
	ResTypeConnection = "OS::Neutron::NetworkGatewayConnection"
)

// Health status constants returned by resource checks.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusMissing   = "missing"
)

// metaPortID is the resource metadata key holding a connection's gateway
// port when the identity string does not carry it.
const metaPortID = "port_id"

// AdapterState holds the resources of one applied stack. It is serialized
// as the opaque state string exchanged between Apply, Destroy, and Status.
type AdapterState struct {
	StackName  string          `json:"stack_name,omitempty"`
	Revision   Revision        `json:"schema_revision,omitempty"`
	Resources  []ResourceState `json:"resources"`
	DeployedAt string          `json:"deployed_at,omitempty"`
}

// ResourceState describes a single applied resource. ResourceID is the
// remote id for gateways and the composite identity for connections.
type ResourceState struct {
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	ResourceID string            `json:"resource_id,omitempty"`
	Action     Action            `json:"action,omitempty"`
	Status     Status            `json:"status,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
