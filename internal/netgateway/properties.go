package netgateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// GatewayProperties are the template properties of a network gateway.
type GatewayProperties struct {
	Name     string   `json:"name,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Devices  []Device `json:"devices"`
	Shared   *bool    `json:"shared,omitempty"`
}

// ConnectionProperties are the template properties of a gateway connection.
type ConnectionProperties struct {
	NetworkGatewayID string `json:"network_gateway_id"`
	NetworkID        string `json:"network_id"`
	SegmentationType string `json:"segmentation_type"`
	SegmentationID   *int   `json:"segmentation_id,omitempty"`
}

// maxSegmentationID is the largest VLAN tag the service accepts.
const maxSegmentationID = 4094

// gatewaySchema returns the JSON Schema of gateway properties. The shared
// flag only exists in the v2 revision.
func gatewaySchema(withShared bool) string {
	shared := ""
	if withShared {
		shared = `,
    "shared": {"type": "boolean", "description": "Whether the gateway is visible to all tenants"}`
	}
	return fmt.Sprintf(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["devices"],
  "properties": {
    "name": {"type": "string", "description": "The name of the network gateway"},
    "tenant_id": {"type": "string", "description": "Tenant owning the network gateway"},
    "devices": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "interface_name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "interface_name": {"type": "string", "minLength": 1}
        },
        "additionalProperties": false
      }
    }%s
  },
  "additionalProperties": false
}`, shared)
}

// connectionSchema is the JSON Schema of gateway connection properties.
var connectionSchema = fmt.Sprintf(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["network_gateway_id", "network_id", "segmentation_type"],
  "properties": {
    "network_gateway_id": {"type": "string", "minLength": 1},
    "network_id": {"type": "string", "minLength": 1},
    "segmentation_type": {"type": "string", "enum": ["%s", "%s"]},
    "segmentation_id": {"type": "integer", "minimum": 0, "maximum": %d}
  },
  "additionalProperties": false
}`, SegmentationFlat, SegmentationVLAN, maxSegmentationID)

// validateAgainstSchema checks props against a JSON Schema and returns a
// ValidationError listing every violation.
func validateAgainstSchema(schema string, props map[string]any) error {
	if props == nil {
		props = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(props),
	)
	if err != nil {
		return fmt.Errorf("evaluate property schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	sort.Strings(msgs)
	return &ValidationError{Message: "Property error: " + strings.Join(msgs, "; ")}
}

// decodeProperties converts a validated property map into its typed form.
func decodeProperties[T any](props map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(props)
	if err != nil {
		return out, fmt.Errorf("encode properties: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode properties: %w", err)
	}
	return out, nil
}
