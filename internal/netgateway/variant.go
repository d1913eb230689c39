package netgateway

import (
	"fmt"
	"slices"
)

// Revision names a revision of the gateway resource schema.
type Revision string

// Supported schema revisions.
const (
	RevisionV1 Revision = "v1"
	RevisionV2 Revision = "v2"
)

// Validation messages for the segmentation rules.
const (
	msgVLANNeedsSegmentationID = "segmentation_id must be specified for using vlan"
	msgFlatForbidsSegmentation = "segmentation_id cannot be specified for using flat"
)

// Variant captures everything that differs between schema revisions. One
// Variant is chosen when the provider config is parsed and used for every
// call after that.
type Variant interface {
	Revision() Revision
	// Envelope returns the JSON keys wrapping a single gateway and a
	// gateway list on the wire.
	Envelope() (single, plural string)
	GatewaySchema() string
	ConnectionSchema() string
	GatewayAttributes() []string
	ConnectionAttributes() []string
	// GatewaySpec builds the create payload from validated properties.
	GatewaySpec(props GatewayProperties) GatewaySpec
	// ValidateSegmentation enforces the cross-field segmentation rules.
	ValidateSegmentation(segType string, segID *int) error
	EncodeIdentity(c ConnectionIdentity) string
	DecodeIdentity(s string) (ConnectionIdentity, error)
	// IdentityCarriesPort reports whether the identity keeps the port id.
	IdentityCarriesPort() bool
}

// VariantFor returns the Variant for a revision.
func VariantFor(rev Revision) (Variant, error) {
	switch rev {
	case RevisionV1:
		return variantV1{}, nil
	case RevisionV2:
		return variantV2{}, nil
	default:
		return nil, fmt.Errorf("unknown schema revision %q (want %q or %q)", rev, RevisionV1, RevisionV2)
	}
}

var (
	baseGatewayAttributes    = []string{"name", "tenant_id", "devices", "default", "show"}
	baseConnectionAttributes = []string{"network_gateway_id", "network_id", "port_id", "show"}
)

// variantV1 is the original revision: port id in the identity, only the
// vlan rule.
type variantV1 struct{}

func (variantV1) Revision() Revision { return RevisionV1 }

func (variantV1) Envelope() (string, string) { return "network_gateway", "network_gateways" }

func (variantV1) GatewaySchema() string { return gatewaySchema(false) }

func (variantV1) ConnectionSchema() string { return connectionSchema }

func (variantV1) GatewayAttributes() []string { return baseGatewayAttributes }

func (variantV1) ConnectionAttributes() []string { return baseConnectionAttributes }

func (variantV1) GatewaySpec(p GatewayProperties) GatewaySpec {
	return GatewaySpec{Name: p.Name, TenantID: p.TenantID, Devices: p.Devices}
}

func (variantV1) ValidateSegmentation(segType string, segID *int) error {
	if segType == SegmentationVLAN && !hasSegmentationID(segID) {
		return &ValidationError{Message: msgVLANNeedsSegmentationID}
	}
	return nil
}

func (variantV1) EncodeIdentity(c ConnectionIdentity) string { return encodeIdentity(c, true) }

func (variantV1) DecodeIdentity(s string) (ConnectionIdentity, error) { return decodeIdentity(s, true) }

func (variantV1) IdentityCarriesPort() bool { return true }

// variantV2 adds the shared flag, the flat rule, and drops the port id
// from the identity.
type variantV2 struct{}

func (variantV2) Revision() Revision { return RevisionV2 }

func (variantV2) Envelope() (string, string) { return "net_gateway", "net_gateways" }

func (variantV2) GatewaySchema() string { return gatewaySchema(true) }

func (variantV2) ConnectionSchema() string { return connectionSchema }

func (variantV2) GatewayAttributes() []string {
	return append(slices.Clone(baseGatewayAttributes), "shared")
}

func (variantV2) ConnectionAttributes() []string { return baseConnectionAttributes }

func (variantV2) GatewaySpec(p GatewayProperties) GatewaySpec {
	return GatewaySpec{Name: p.Name, TenantID: p.TenantID, Devices: p.Devices, Shared: p.Shared}
}

func (variantV2) ValidateSegmentation(segType string, segID *int) error {
	switch {
	case segType == SegmentationVLAN && !hasSegmentationID(segID):
		return &ValidationError{Message: msgVLANNeedsSegmentationID}
	case segType == SegmentationFlat && hasSegmentationID(segID):
		return &ValidationError{Message: msgFlatForbidsSegmentation}
	}
	return nil
}

func (variantV2) EncodeIdentity(c ConnectionIdentity) string { return encodeIdentity(c, false) }

func (variantV2) DecodeIdentity(s string) (ConnectionIdentity, error) { return decodeIdentity(s, false) }

func (variantV2) IdentityCarriesPort() bool { return false }

// hasSegmentationID reports whether segID names a segment. VLAN tags start
// at 1, so 0 counts as unset.
func hasSegmentationID(segID *int) bool {
	return segID != nil && *segID != 0
}
