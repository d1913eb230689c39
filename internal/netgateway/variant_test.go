package netgateway

import (
	"errors"
	"slices"
	"testing"
)

func TestVariantFor(t *testing.T) {
	for _, rev := range []Revision{RevisionV1, RevisionV2} {
		v, err := VariantFor(rev)
		if err != nil {
			t.Fatalf("VariantFor(%s): %v", rev, err)
		}
		if v.Revision() != rev {
			t.Errorf("Revision() = %s, want %s", v.Revision(), rev)
		}
	}
	if _, err := VariantFor("v3"); err == nil {
		t.Error("expected error for unknown revision")
	}
}

func TestVariant_Envelope(t *testing.T) {
	v1, _ := VariantFor(RevisionV1)
	v2, _ := VariantFor(RevisionV2)

	if s, p := v1.Envelope(); s != "network_gateway" || p != "network_gateways" {
		t.Errorf("v1 envelope = %s/%s", s, p)
	}
	if s, p := v2.Envelope(); s != "net_gateway" || p != "net_gateways" {
		t.Errorf("v2 envelope = %s/%s", s, p)
	}
}

func TestVariant_SharedOnlyInV2(t *testing.T) {
	v1, _ := VariantFor(RevisionV1)
	v2, _ := VariantFor(RevisionV2)

	if slices.Contains(v1.GatewayAttributes(), "shared") {
		t.Error("v1 must not declare the shared attribute")
	}
	if !slices.Contains(v2.GatewayAttributes(), "shared") {
		t.Error("v2 must declare the shared attribute")
	}
	// Appending in v2 must not leak into the shared base list.
	if slices.Contains(baseGatewayAttributes, "shared") {
		t.Error("base attribute list was modified")
	}

	props := GatewayProperties{Name: "gw", Devices: []Device{{ID: "d", InterfaceName: "eth0"}}, Shared: boolPtr(true)}
	if spec := v1.GatewaySpec(props); spec.Shared != nil {
		t.Error("v1 create payload must not carry shared")
	}
	if spec := v2.GatewaySpec(props); spec.Shared == nil || !*spec.Shared {
		t.Error("v2 create payload must carry shared")
	}
}

func TestVariant_ValidateSegmentation(t *testing.T) {
	tests := []struct {
		name    string
		rev     Revision
		segType string
		segID   *int
		wantMsg string
	}{
		{"v1 vlan with id", RevisionV1, SegmentationVLAN, intPtr(10), ""},
		{"v1 vlan without id", RevisionV1, SegmentationVLAN, nil, msgVLANNeedsSegmentationID},
		{"v1 vlan with zero id", RevisionV1, SegmentationVLAN, intPtr(0), msgVLANNeedsSegmentationID},
		{"v1 flat without id", RevisionV1, SegmentationFlat, nil, ""},
		{"v1 flat with id is accepted", RevisionV1, SegmentationFlat, intPtr(10), ""},
		{"v2 vlan with id", RevisionV2, SegmentationVLAN, intPtr(10), ""},
		{"v2 vlan without id", RevisionV2, SegmentationVLAN, nil, msgVLANNeedsSegmentationID},
		{"v2 flat without id", RevisionV2, SegmentationFlat, nil, ""},
		{"v2 vlan with zero id", RevisionV2, SegmentationVLAN, intPtr(0), msgVLANNeedsSegmentationID},
		{"v2 flat with id", RevisionV2, SegmentationFlat, intPtr(10), msgFlatForbidsSegmentation},
		{"v2 flat with zero id", RevisionV2, SegmentationFlat, intPtr(0), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := VariantFor(tt.rev)
			err := v.ValidateSegmentation(tt.segType, tt.segID)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", ve.Message, tt.wantMsg)
			}
		})
	}
}

func TestVariant_IdentityFormat(t *testing.T) {
	v1, _ := VariantFor(RevisionV1)
	v2, _ := VariantFor(RevisionV2)
	ident := testIdentity()

	if !v1.IdentityCarriesPort() || v2.IdentityCarriesPort() {
		t.Fatal("only v1 identities carry the port")
	}

	back, err := v1.DecodeIdentity(v1.EncodeIdentity(ident))
	if err != nil {
		t.Fatalf("v1 decode: %v", err)
	}
	if back.PortID != testPortID {
		t.Errorf("v1 PortID = %q, want %q", back.PortID, testPortID)
	}

	back, err = v2.DecodeIdentity(v2.EncodeIdentity(ident))
	if err != nil {
		t.Fatalf("v2 decode: %v", err)
	}
	if back.PortID != "" {
		t.Errorf("v2 PortID = %q, want empty", back.PortID)
	}

	// A v1 identity is not a valid v2 identity.
	if _, err := v2.DecodeIdentity(v1.EncodeIdentity(ident)); err == nil {
		t.Error("expected v2 to reject a five-field identity")
	}
}
