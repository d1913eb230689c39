package netgateway

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// simulatedClient is an in-memory gateway service. It backs dry runs and
// unit tests; tests can queue failures and make deleted gateways linger
// in listings.
type simulatedClient struct {
	mu       sync.Mutex
	gateways map[string]*Gateway
	networks map[string]string // id -> name
	// acceptAnyNetwork resolves every network token to itself.
	acceptAnyNetwork bool

	calls          []string
	deleteErrs     []error
	disconnectErrs []error
	listErrs       []error
	lingerPolls    int
	lingering      map[string]int
}

func newSimulatedClient() *simulatedClient {
	return &simulatedClient{
		gateways:  make(map[string]*Gateway),
		networks:  make(map[string]string),
		lingering: make(map[string]int),
	}
}

// newDryRunClient returns a simulated client that accepts any network.
func newDryRunClient() *simulatedClient {
	c := newSimulatedClient()
	c.acceptAnyNetwork = true
	return c
}

func (c *simulatedClient) record(op string) {
	c.calls = append(c.calls, op)
}

// callCount returns how often op was called.
func (c *simulatedClient) callCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == op {
			n++
		}
	}
	return n
}

// callLog returns a copy of every call made so far.
func (c *simulatedClient) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

func (c *simulatedClient) addNetwork(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networks[id] = name
}

// putGateway stores a gateway record directly.
func (c *simulatedClient) putGateway(gw Gateway) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gateways[gw.ID] = &gw
}

// removeGateway drops a gateway without a delete call, as a cascade would.
func (c *simulatedClient) removeGateway(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.gateways, id)
	delete(c.lingering, id)
}

func (c *simulatedClient) failNextDelete(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteErrs = append(c.deleteErrs, err)
}

func (c *simulatedClient) failNextDisconnect(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectErrs = append(c.disconnectErrs, err)
}

func (c *simulatedClient) failNextList(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErrs = append(c.listErrs, err)
}

// setLinger keeps deleted gateways visible for n further listings.
func (c *simulatedClient) setLinger(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lingerPolls = n
}

func popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func notFound(kind, id string) error {
	return &RemoteError{
		StatusCode: http.StatusNotFound,
		Type:       kind + "NotFound",
		Message:    fmt.Sprintf("%s %s could not be found", kind, id),
	}
}

func (c *simulatedClient) CreateGateway(_ context.Context, spec GatewaySpec) (*Gateway, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("create_gateway")

	gw := &Gateway{
		ID:       uuid.NewString(),
		Name:     spec.Name,
		TenantID: spec.TenantID,
		Devices:  slices.Clone(spec.Devices),
		Shared:   spec.Shared,
	}
	c.gateways[gw.ID] = gw
	out := *gw
	return &out, nil
}

func (c *simulatedClient) ShowGateway(_ context.Context, id string) (*Gateway, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("show_gateway")

	gw, ok := c.gateways[id]
	if !ok || c.lingering[id] > 0 {
		return nil, notFound("NetworkGateway", id)
	}
	out := *gw
	return &out, nil
}

func (c *simulatedClient) DeleteGateway(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("delete_gateway")

	if err := popErr(&c.deleteErrs); err != nil {
		return err
	}
	if _, ok := c.gateways[id]; !ok || c.lingering[id] > 0 {
		return notFound("NetworkGateway", id)
	}
	if c.lingerPolls > 0 {
		c.lingering[id] = c.lingerPolls
		return nil
	}
	delete(c.gateways, id)
	return nil
}

func (c *simulatedClient) ListGateways(_ context.Context, filter ListFilter) ([]Gateway, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("list_gateways")

	if err := popErr(&c.listErrs); err != nil {
		return nil, err
	}

	var out []Gateway
	for id, gw := range c.gateways {
		if filter.ID != "" && id != filter.ID {
			continue
		}
		out = append(out, *gw)
	}
	// A lingering gateway disappears once its remaining listings run out.
	for id, left := range c.lingering {
		if left <= 1 {
			delete(c.lingering, id)
			delete(c.gateways, id)
			continue
		}
		c.lingering[id] = left - 1
	}
	slices.SortFunc(out, func(a, b Gateway) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (c *simulatedClient) ConnectNetwork(_ context.Context, gatewayID string, req ConnectionRequest) (*ConnectionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("connect_network")

	gw, ok := c.gateways[gatewayID]
	if !ok {
		return nil, notFound("NetworkGateway", gatewayID)
	}
	port := GatewayPort{
		PortID:           uuid.NewString(),
		SegmentationType: req.SegmentationType,
		SegmentationID:   req.SegmentationID,
	}
	gw.Ports = append(gw.Ports, port)
	return &ConnectionInfo{
		NetworkGatewayID: gatewayID,
		NetworkID:        req.NetworkID,
		PortID:           port.PortID,
	}, nil
}

func (c *simulatedClient) DisconnectNetwork(_ context.Context, gatewayID string, req ConnectionRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("disconnect_network")

	if err := popErr(&c.disconnectErrs); err != nil {
		return err
	}
	gw, ok := c.gateways[gatewayID]
	if !ok {
		return notFound("NetworkGateway", gatewayID)
	}
	want := ConnectionIdentity{SegmentationType: req.SegmentationType, SegmentationID: req.SegmentationID}
	for i, port := range gw.Ports {
		if portMatches(port, want) {
			gw.Ports = slices.Delete(gw.Ports, i, i+1)
			return nil
		}
	}
	return notFound("GatewayConnection", gatewayID)
}

func (c *simulatedClient) FindNetworkID(_ context.Context, nameOrID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("find_network")

	if c.acceptAnyNetwork {
		return nameOrID, nil
	}
	if _, ok := c.networks[nameOrID]; ok {
		return nameOrID, nil
	}
	var matches []string
	for id, name := range c.networks {
		if name == nameOrID {
			matches = append(matches, id)
		}
	}
	return pickNetwork(nameOrID, matches)
}

// pickNetwork applies the name-or-id resolution rules to the candidate ids
// whose name matched.
func pickNetwork(nameOrID string, matches []string) (string, error) {
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("network %q: %w", nameOrID, ErrNetworkNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("multiple network matches found for name %q, use an id to be more specific", nameOrID)
	}
}
