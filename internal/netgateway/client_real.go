package netgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/networks"
)

// gatewaysPath is the collection path of the gateway extension.
const gatewaysPath = "network-gateways"

// envToken is read when the config names a fixed endpoint instead of
// authenticating through Keystone.
const envToken = "OS_TOKEN"

// realClient implements gatewayAPI against the network service using
// gophercloud. gophercloud v1 binds the request context to the provider
// client, so every call runs on a copy bound to the caller's context.
type realClient struct {
	sc     *gophercloud.ServiceClient
	single string
	plural string
}

// newRealClient builds a realClient from the Config. A configured endpoint
// bypasses Keystone; otherwise credentials come from the OS_* environment.
func newRealClient(ctx context.Context, cfg *Config) (*realClient, error) {
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}
	single, plural := variant.Envelope()

	var sc *gophercloud.ServiceClient
	if cfg.Endpoint != "" {
		sc = newEndpointServiceClient(ctx, cfg.Endpoint, os.Getenv(envToken))
	} else {
		sc, err = newKeystoneServiceClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
	}
	return &realClient{sc: sc, single: single, plural: plural}, nil
}

// newRealClientFactory is the clientFactory used by NewProvider.
func newRealClientFactory(ctx context.Context, cfg *Config) (gatewayAPI, error) {
	if cfg.DryRun {
		return newDryRunClient(), nil
	}
	return newRealClient(ctx, cfg)
}

// newKeystoneServiceClient authenticates with the OS_* variables and
// returns the network service client for region.
func newKeystoneServiceClient(ctx context.Context, region string) (*gophercloud.ServiceClient, error) {
	opts, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read OS_* credentials: %w", err)
	}
	opts.AllowReauth = true

	provider, err := openstack.NewClient(opts.IdentityEndpoint)
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}
	provider.Context = ctx
	if err := openstack.Authenticate(provider, opts); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	sc, err := openstack.NewNetworkV2(provider, gophercloud.EndpointOpts{Region: region})
	if err != nil {
		return nil, fmt.Errorf("network service client: %w", err)
	}
	return sc, nil
}

// newEndpointServiceClient returns a service client for a fixed network
// endpoint, such as the fake service used in tests.
func newEndpointServiceClient(ctx context.Context, endpoint, token string) *gophercloud.ServiceClient {
	base := strings.TrimRight(endpoint, "/") + "/"
	provider := &gophercloud.ProviderClient{
		IdentityBase:     base,
		IdentityEndpoint: base,
		Context:          ctx,
	}
	if token != "" {
		provider.SetToken(token)
	}
	return &gophercloud.ServiceClient{
		ProviderClient: provider,
		Endpoint:       base,
		ResourceBase:   base + "v2.0/",
		Type:           "network",
	}
}

func (c *realClient) CreateGateway(ctx context.Context, spec GatewaySpec) (*Gateway, error) {
	sc := c.client(ctx)
	var body map[string]json.RawMessage
	_, err := sc.Post(sc.ServiceURL(gatewaysPath), map[string]any{c.single: spec}, &body, &gophercloud.RequestOpts{
		OkCodes: []int{http.StatusOK, http.StatusCreated},
	})
	if err != nil {
		return nil, fmt.Errorf("create network gateway: %w", remoteError(err))
	}
	return c.unwrapGateway(body)
}

func (c *realClient) ShowGateway(ctx context.Context, id string) (*Gateway, error) {
	sc := c.client(ctx)
	var body map[string]json.RawMessage
	if _, err := sc.Get(sc.ServiceURL(gatewaysPath, id), &body, nil); err != nil {
		return nil, fmt.Errorf("show network gateway %q: %w", id, remoteError(err))
	}
	return c.unwrapGateway(body)
}

func (c *realClient) DeleteGateway(ctx context.Context, id string) error {
	sc := c.client(ctx)
	if _, err := sc.Delete(sc.ServiceURL(gatewaysPath, id), nil); err != nil {
		return fmt.Errorf("delete network gateway %q: %w", id, remoteError(err))
	}
	return nil
}

func (c *realClient) ListGateways(ctx context.Context, filter ListFilter) ([]Gateway, error) {
	sc := c.client(ctx)
	u := sc.ServiceURL(gatewaysPath)
	if filter.ID != "" {
		u += "?" + url.Values{"id": {filter.ID}}.Encode()
	}

	var body map[string]json.RawMessage
	if _, err := sc.Get(u, &body, nil); err != nil {
		return nil, fmt.Errorf("list network gateways: %w", remoteError(err))
	}
	raw, ok := body[c.plural]
	if !ok {
		return nil, fmt.Errorf("list network gateways: response has no %q key", c.plural)
	}
	var gateways []Gateway
	if err := json.Unmarshal(raw, &gateways); err != nil {
		return nil, fmt.Errorf("decode %q: %w", c.plural, err)
	}
	return gateways, nil
}

func (c *realClient) ConnectNetwork(ctx context.Context, gatewayID string, req ConnectionRequest) (*ConnectionInfo, error) {
	sc := c.client(ctx)
	var body struct {
		ConnectionInfo ConnectionInfo `json:"connection_info"`
	}
	_, err := sc.Put(sc.ServiceURL(gatewaysPath, gatewayID, "connect_network"), req, &body, &gophercloud.RequestOpts{
		OkCodes: []int{http.StatusOK},
	})
	if err != nil {
		return nil, fmt.Errorf("connect network %q to gateway %q: %w", req.NetworkID, gatewayID, remoteError(err))
	}
	return &body.ConnectionInfo, nil
}

func (c *realClient) DisconnectNetwork(ctx context.Context, gatewayID string, req ConnectionRequest) error {
	sc := c.client(ctx)
	_, err := sc.Put(sc.ServiceURL(gatewaysPath, gatewayID, "disconnect_network"), req, nil, &gophercloud.RequestOpts{
		OkCodes: []int{http.StatusOK, http.StatusNoContent},
	})
	if err != nil {
		return fmt.Errorf("disconnect network %q from gateway %q: %w", req.NetworkID, gatewayID, remoteError(err))
	}
	return nil
}

// FindNetworkID accepts a network id, or a name that matches exactly one
// network.
func (c *realClient) FindNetworkID(ctx context.Context, nameOrID string) (string, error) {
	sc := c.client(ctx)
	_, err := networks.Get(sc, nameOrID).Extract()
	if err == nil {
		return nameOrID, nil
	}
	if !isNotFound(err) {
		return "", fmt.Errorf("show network %q: %w", nameOrID, remoteError(err))
	}

	pages, err := networks.List(sc, networks.ListOpts{Name: nameOrID}).AllPages()
	if err != nil {
		return "", fmt.Errorf("list networks named %q: %w", nameOrID, remoteError(err))
	}
	found, err := networks.ExtractNetworks(pages)
	if err != nil {
		return "", fmt.Errorf("decode networks: %w", err)
	}
	ids := make([]string, 0, len(found))
	for _, n := range found {
		ids = append(ids, n.ID)
	}
	return pickNetwork(nameOrID, ids)
}

// client returns a copy of the service client bound to ctx. Reauth runs
// on the shared provider and the copy takes over its new token.
func (c *realClient) client(ctx context.Context) *gophercloud.ServiceClient {
	shared := c.sc.ProviderClient
	pc := *shared
	pc.Context = ctx
	if reauth := shared.ReauthFunc; reauth != nil {
		pc.ReauthFunc = func() error {
			if err := reauth(); err != nil {
				return err
			}
			pc.CopyTokenFrom(shared)
			return nil
		}
	}
	sc := *c.sc
	sc.ProviderClient = &pc
	return &sc
}

func (c *realClient) unwrapGateway(body map[string]json.RawMessage) (*Gateway, error) {
	raw, ok := body[c.single]
	if !ok {
		return nil, fmt.Errorf("response has no %q key", c.single)
	}
	var gw Gateway
	if err := json.Unmarshal(raw, &gw); err != nil {
		return nil, fmt.Errorf("decode %q: %w", c.single, err)
	}
	return &gw, nil
}

// neutronFault is the error body returned by the network service.
type neutronFault struct {
	NeutronError struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"NeutronError"`
}

// remoteError converts a gophercloud status error into a *RemoteError
// carrying the service's own error type and message. Other errors are
// returned unchanged.
func remoteError(err error) error {
	var sc gophercloud.StatusCodeError
	if !errors.As(err, &sc) {
		return err
	}
	re := &RemoteError{StatusCode: sc.GetStatusCode()}

	var fault neutronFault
	if body := responseBody(err); len(body) > 0 && json.Unmarshal(body, &fault) == nil {
		re.Type = fault.NeutronError.Type
		re.Message = fault.NeutronError.Message
	}
	return re
}

// responseBody extracts the raw body from the gophercloud error types the
// network service produces.
func responseBody(err error) []byte {
	var (
		e400 gophercloud.ErrDefault400
		e404 gophercloud.ErrDefault404
		e409 gophercloud.ErrDefault409
		e500 gophercloud.ErrDefault500
		e503 gophercloud.ErrDefault503
		eAny gophercloud.ErrUnexpectedResponseCode
	)
	switch {
	case errors.As(err, &e400):
		return e400.Body
	case errors.As(err, &e404):
		return e404.Body
	case errors.As(err, &e409):
		return e409.Body
	case errors.As(err, &e500):
		return e500.Body
	case errors.As(err, &e503):
		return e503.Body
	case errors.As(err, &eAny):
		return eAny.Body
	}
	return nil
}
