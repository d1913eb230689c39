package netgateway

import (
	"fmt"
	"strconv"
	"strings"
)

// identitySep separates the fields of a connection identity.
const identitySep = ":"

// legacyNone is how older state files encoded an absent segmentation id.
const legacyNone = "None"

// ConnectionIdentity is the decoded composite identity of a gateway
// connection. PortID is empty when the identity format does not carry it.
type ConnectionIdentity struct {
	GatewayID        string
	NetworkID        string
	SegmentationType string
	SegmentationID   *int
	PortID           string
}

// request builds the connect/disconnect body for this connection.
func (c ConnectionIdentity) request() ConnectionRequest {
	return ConnectionRequest{
		NetworkID:        c.NetworkID,
		SegmentationType: c.SegmentationType,
		SegmentationID:   c.SegmentationID,
	}
}

// encodeIdentity joins the identity fields. An absent segmentation id is
// the empty field.
func encodeIdentity(c ConnectionIdentity, withPort bool) string {
	segID := ""
	if c.SegmentationID != nil {
		segID = strconv.Itoa(*c.SegmentationID)
	}
	parts := []string{c.GatewayID, c.NetworkID, c.SegmentationType, segID}
	if withPort {
		parts = append(parts, c.PortID)
	}
	return strings.Join(parts, identitySep)
}

// decodeIdentity splits an identity produced by encodeIdentity.
func decodeIdentity(s string, withPort bool) (ConnectionIdentity, error) {
	want := 4
	if withPort {
		want = 5
	}
	parts := strings.Split(s, identitySep)
	if len(parts) != want {
		return ConnectionIdentity{}, fmt.Errorf("connection identity %q: expected %d fields, got %d", s, want, len(parts))
	}

	id := ConnectionIdentity{
		GatewayID:        parts[0],
		NetworkID:        parts[1],
		SegmentationType: parts[2],
	}
	if raw := parts[3]; raw != "" && raw != legacyNone {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ConnectionIdentity{}, fmt.Errorf("connection identity %q: segmentation_id: %w", s, err)
		}
		id.SegmentationID = &n
	}
	if withPort {
		id.PortID = parts[4]
	}
	return id, nil
}
