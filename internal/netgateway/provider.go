// Package netgateway implements the network gateway and gateway connection
// resources of the OpenStack networking gateway extension, and a provider
// that applies, destroys and checks stacks of them.
package netgateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AltairaLabs/netgateway-provider/internal/scheduler"
)

// clientFactory creates a gatewayAPI for the given config.
type clientFactory func(ctx context.Context, cfg *Config) (gatewayAPI, error)

// runnerFactory creates the runner that drives deletion confirmations.
type runnerFactory func(cfg *Config, log zerolog.Logger) *scheduler.Runner

// Provider applies gateway templates against the network service.
type Provider struct {
	clientFunc clientFactory
	runnerFunc runnerFactory
	log        zerolog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the provider's logger.
func WithLogger(l zerolog.Logger) ProviderOption {
	return func(p *Provider) { p.log = l }
}

// NewProvider creates a Provider with the real client factory.
// Credentials are resolved from the standard OS_* environment.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		clientFunc: newRealClientFactory,
		runnerFunc: newConfiguredRunner,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// newConfiguredRunner builds a runner from the poll settings. Dry runs
// confirm deletions without waiting.
func newConfiguredRunner(cfg *Config, log zerolog.Logger) *scheduler.Runner {
	if cfg.DryRun {
		return scheduler.Immediate()
	}
	return scheduler.NewRunner(
		scheduler.WithInterval(cfg.pollInterval(), cfg.pollMaxInterval()),
		scheduler.WithTimeout(cfg.timeout()),
		scheduler.WithLogger(log),
	)
}

// GetProviderInfo returns metadata about the provider.
func (p *Provider) GetProviderInfo(_ context.Context) (*ProviderInfo, error) {
	return &ProviderInfo{
		Name:           "netgateway",
		Version:        Version,
		Capabilities:   providerCapabilities,
		ResourceTypes:  SupportedTypes(),
		ConfigSchema:   configSchema,
		SchemaRevision: []string{string(RevisionV1), string(RevisionV2)},
	}, nil
}

// ValidateConfig validates the provider configuration. In addition to hard
// errors, it runs diagnostic checks and reports non-fatal warnings.
func (p *Provider) ValidateConfig(_ context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	resp := &ValidateResponse{}
	cfg, errs := p.checkConfig(req.Config)
	resp.Errors = errs
	if cfg != nil {
		for _, w := range DiagnoseConfig(cfg) {
			resp.Warnings = append(resp.Warnings, w.String())
		}
	}
	resp.Valid = len(resp.Errors) == 0
	return resp, nil
}

// ValidateTemplate validates the configuration and then every resource of
// the template against the selected schema revision. No remote calls are
// made.
func (p *Provider) ValidateTemplate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	resp, err := p.ValidateConfig(ctx, req)
	if err != nil || !resp.Valid {
		return resp, err
	}
	cfg, _ := parseConfig(req.Config)

	tmpl, err := ParseTemplate(req.Template)
	if err != nil {
		resp.Errors = append(resp.Errors, err.Error())
		resp.Valid = false
		return resp, nil
	}
	for _, err := range p.validateResources(cfg, tmpl) {
		resp.Errors = append(resp.Errors, err.Error())
	}
	resp.Valid = len(resp.Errors) == 0
	return resp, nil
}

// validateResources validates every resource of tmpl without a client, so
// no remote call is made.
func (p *Provider) validateResources(cfg *Config, tmpl *Template) []error {
	env := p.newEnv(cfg, nil)
	var errs []error
	for _, name := range tmpl.names() {
		if err := validateTemplateResource(env, name, tmpl.Resources[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// validateTemplateResource validates one resource with references replaced
// by the referenced resource name.
func validateTemplateResource(env *resourceEnv, name string, res TemplateResource) error {
	props, err := resolveRefs(res.Properties, func(ref string) (string, bool) { return ref, true })
	if err != nil {
		return fmt.Errorf("resource %q: %w", name, err)
	}
	r, err := env.newResource(name, res.Type, props)
	if err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("resource %q: %w", name, err)
	}
	return nil
}

// checkConfig returns the parsed config, or nil when it cannot be parsed,
// along with every schema and semantic error.
func (p *Provider) checkConfig(raw string) (*Config, []string) {
	errs, err := schemaErrors(raw)
	if err != nil {
		return nil, []string{err.Error()}
	}
	cfg, err := parseConfig(raw)
	if err != nil {
		return nil, append(errs, err.Error())
	}
	if len(errs) == 0 {
		errs = cfg.validate()
	}
	return cfg, errs
}

// newEnv builds the environment shared by the resources of one operation.
func (p *Provider) newEnv(cfg *Config, api gatewayAPI) *resourceEnv {
	// validate() has already rejected unknown revisions.
	variant, _ := cfg.Variant()
	return &resourceEnv{
		variant:   variant,
		api:       api,
		runner:    p.runnerFunc(cfg, p.log),
		log:       p.log,
		stackName: cfg.StackName,
	}
}

// connect loads the config and creates the remote client.
func (p *Provider) connect(ctx context.Context, rawConfig string) (*Config, *resourceEnv, error) {
	cfg, err := loadConfig(rawConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("netgateway: %w", err)
	}
	env, err := p.dial(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, env, nil
}

// dial creates the remote client for an already loaded config.
func (p *Provider) dial(ctx context.Context, cfg *Config) (*resourceEnv, error) {
	api, err := p.clientFunc(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("netgateway: failed to create network client: %w", err)
	}
	return p.newEnv(cfg, api), nil
}
