package netgateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AltairaLabs/netgateway-provider/internal/scheduler"
)

// Identifiers used across the resource tests.
const (
	testTenantID  = "96ba52dc-c5c5-44c6-9a9d-d3ba1a03f77f"
	testDeviceID  = "e52148ca-7db9-4ec3-abe6-2c7c0ff316eb"
	testGatewayID = "ed4c03b9-8251-4c09-acc4-e59ee9e6aa37"
	testNetworkID = "6af055d3-26f6-48dd-a597-7611d7e58d35"
	testPortID    = "32acc49c-899e-44ea-8177-6f4157e12eb4"
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

// newTestEnv returns a resource environment backed by a simulated service
// whose runner never waits between steps.
func newTestEnv(t *testing.T, rev Revision) (*resourceEnv, *simulatedClient) {
	t.Helper()
	variant, err := VariantFor(rev)
	if err != nil {
		t.Fatalf("VariantFor(%s): %v", rev, err)
	}
	api := newSimulatedClient()
	return &resourceEnv{
		variant:   variant,
		api:       api,
		runner:    scheduler.Immediate(),
		log:       zerolog.Nop(),
		stackName: "test",
	}, api
}

// gatewayProps returns the properties of the single-device test gateway.
func gatewayProps() map[string]any {
	return map[string]any{
		"name":      "NetworkGateway",
		"tenant_id": testTenantID,
		"devices": []any{
			map[string]any{"id": testDeviceID, "interface_name": "breth1"},
		},
	}
}

// connectionProps returns vlan 10 connection properties.
func connectionProps() map[string]any {
	return map[string]any{
		"network_gateway_id": testGatewayID,
		"network_id":         testNetworkID,
		"segmentation_type":  SegmentationVLAN,
		"segmentation_id":    10,
	}
}

// attachedGateway stores the test gateway with the test port connected.
func attachedGateway(api *simulatedClient) {
	api.putGateway(Gateway{
		ID:       testGatewayID,
		Name:     "NetworkGateway",
		TenantID: testTenantID,
		Devices:  []Device{{ID: testDeviceID, InterfaceName: "breth1"}},
		Ports: []GatewayPort{{
			PortID:           testPortID,
			SegmentationType: SegmentationVLAN,
			SegmentationID:   intPtr(10),
		}},
	})
}

// testIdentity is the identity of the connection attached by attachedGateway.
func testIdentity() ConnectionIdentity {
	return ConnectionIdentity{
		GatewayID:        testGatewayID,
		NetworkID:        testNetworkID,
		SegmentationType: SegmentationVLAN,
		SegmentationID:   intPtr(10),
		PortID:           testPortID,
	}
}

// serverError is an HTTP failure the service reports for a cascade.
func serverError() *RemoteError {
	return &RemoteError{StatusCode: http.StatusInternalServerError, Type: "NeutronException", Message: "boom"}
}

// runDeletion drives a gateway deletion with an immediate runner.
func runDeletion(t *testing.T, api gatewayAPI, id string) (*GatewayDeletion, error) {
	t.Helper()
	d := newGatewayDeletion(api, id, zerolog.Nop())
	err := scheduler.Immediate().Run(context.Background(), d)
	return d, err
}
