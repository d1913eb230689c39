package netgateway

import (
	"reflect"
	"strings"
	"testing"
)

const testTemplate = `
Description: Gateway with one vlan connection
Resources:
  test_network_gateway:
    Type: OS::Neutron::NetworkGateway
    Properties:
      name: NetworkGateway
      devices:
        - id: e52148ca-7db9-4ec3-abe6-2c7c0ff316eb
          interface_name: breth1
  test_network_gateway_connection:
    Type: OS::Neutron::NetworkGatewayConnection
    Properties:
      network_gateway_id: {Ref: test_network_gateway}
      network_id: 6af055d3-26f6-48dd-a597-7611d7e58d35
      segmentation_type: vlan
      segmentation_id: 10
`

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(testTemplate))
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if tmpl.Description != "Gateway with one vlan connection" {
		t.Errorf("Description = %q", tmpl.Description)
	}
	want := []string{"test_network_gateway", "test_network_gateway_connection"}
	if got := tmpl.names(); !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v", got)
	}
	if got := tmpl.namesOfType(ResTypeConnection); !reflect.DeepEqual(got, want[1:]) {
		t.Errorf("namesOfType = %v", got)
	}
	refs := collectRefs(tmpl.Resources["test_network_gateway_connection"].Properties)
	if !reflect.DeepEqual(refs, []string{"test_network_gateway"}) {
		t.Errorf("refs = %v", refs)
	}
}

func TestParseTemplate_JSON(t *testing.T) {
	raw := `{"Resources": {"gw": {"Type": "OS::Neutron::NetworkGateway", "Properties": {"devices": [{"id": "d", "interface_name": "eth0"}]}}}}`
	tmpl, err := ParseTemplate([]byte(raw))
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if tmpl.Resources["gw"].Type != ResTypeGateway {
		t.Errorf("Type = %q", tmpl.Resources["gw"].Type)
	}
}

func TestParseTemplate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{"malformed", "Resources: [", "invalid template"},
		{"unknown section", "Outputs: {}\nResources: {}", "invalid template"},
		{"empty", "Description: nothing", "no resources"},
		{
			"unknown type",
			"Resources:\n  r:\n    Type: OS::Nova::Server\n",
			`unknown type "OS::Nova::Server"`,
		},
		{
			"bad name",
			"Resources:\n  1r:\n    Type: OS::Neutron::NetworkGateway\n",
			"is invalid",
		},
		{
			"unknown reference",
			"Resources:\n  c:\n    Type: OS::Neutron::NetworkGatewayConnection\n    Properties:\n      network_gateway_id: {Ref: gw}\n",
			`references unknown resource "gw"`,
		},
		{
			"self reference",
			"Resources:\n  c:\n    Type: OS::Neutron::NetworkGatewayConnection\n    Properties:\n      network_gateway_id: {Ref: c}\n",
			"references itself",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestResolveRefs(t *testing.T) {
	props := map[string]any{
		"network_gateway_id": map[string]any{"Ref": "gw"},
		"list":               []any{map[string]any{"Ref": "gw"}, "plain"},
		"segmentation_id":    10,
	}
	out, err := resolveRefs(props, func(name string) (string, bool) {
		return "id-of-" + name, name == "gw"
	})
	if err != nil {
		t.Fatalf("resolveRefs: %v", err)
	}
	want := map[string]any{
		"network_gateway_id": "id-of-gw",
		"list":               []any{"id-of-gw", "plain"},
		"segmentation_id":    10,
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("resolveRefs = %#v, want %#v", out, want)
	}
	// The input is left untouched.
	if _, ok := props["network_gateway_id"].(map[string]any); !ok {
		t.Error("resolveRefs modified its input")
	}

	_, err = resolveRefs(map[string]any{"x": map[string]any{"Ref": "missing"}}, func(string) (string, bool) { return "", false })
	if err == nil || !strings.Contains(err.Error(), `"missing"`) {
		t.Errorf("err = %v, want unresolved reference", err)
	}

	if out, err := resolveRefs(nil, nil); out != nil || err != nil {
		t.Errorf("resolveRefs(nil) = %v, %v", out, err)
	}
}

func TestRefTarget(t *testing.T) {
	if name, ok := refTarget(map[string]any{"Ref": "gw"}); !ok || name != "gw" {
		t.Errorf("refTarget = %q, %v", name, ok)
	}
	if _, ok := refTarget(map[string]any{"Ref": "gw", "extra": 1}); ok {
		t.Error("a map with other keys is not a reference")
	}
	if _, ok := refTarget("gw"); ok {
		t.Error("a string is not a reference")
	}
}
