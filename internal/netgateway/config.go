package netgateway

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/AltairaLabs/netgateway-provider/internal/scheduler"
)

// Config holds the provider configuration.
type Config struct {
	// SchemaRevision selects the gateway extension revision ("v1" or "v2").
	SchemaRevision Revision `json:"schema_revision"`
	Region         string   `json:"region,omitempty"`
	// Endpoint is a fixed network service URL. When set, Keystone is not
	// contacted and OS_TOKEN, if present, is sent as the auth token.
	Endpoint string `json:"endpoint,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`

	PollInterval    string `json:"poll_interval,omitempty"`
	PollMaxInterval string `json:"poll_max_interval,omitempty"`
	Timeout         string `json:"timeout,omitempty"`

	// StackName prefixes generated physical names.
	StackName string `json:"stack_name,omitempty"`
}

// configSchema is the JSON Schema for the provider configuration.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "schema_revision": {"type": "string", "enum": ["v1", "v2"]},
    "region": {"type": "string"},
    "endpoint": {"type": "string", "pattern": "^https?://"},
    "dry_run": {"type": "boolean"},
    "poll_interval": {"type": "string"},
    "poll_max_interval": {"type": "string"},
    "timeout": {"type": "string"},
    "stack_name": {"type": "string", "maxLength": 128}
  },
  "required": ["schema_revision"],
  "additionalProperties": false
}`

var (
	regionRE    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	stackNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// parseConfig unmarshals JSON config into Config.
func parseConfig(raw string) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("invalid config JSON: %w", err)
	}
	return &cfg, nil
}

// schemaErrors validates raw config JSON against configSchema.
func schemaErrors(raw string) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid config JSON: %w", err)
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	slices.Sort(errs)
	return errs, nil
}

// validate checks the config and returns any validation errors.
func (c *Config) validate() []string {
	var errs []string

	if _, err := VariantFor(c.SchemaRevision); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Region != "" && !regionRE.MatchString(c.Region) {
		errs = append(errs, fmt.Sprintf("region %q contains invalid characters", c.Region))
	}
	if c.StackName != "" && !stackNameRE.MatchString(c.StackName) {
		errs = append(errs, fmt.Sprintf("stack_name %q must start with a letter and contain only letters, digits, '-' or '_'", c.StackName))
	}
	if c.DryRun && c.Endpoint != "" {
		errs = append(errs, "dry_run and endpoint are mutually exclusive")
	}

	errs = append(errs, validateDuration("poll_interval", c.PollInterval)...)
	errs = append(errs, validateDuration("poll_max_interval", c.PollMaxInterval)...)
	errs = append(errs, validateDuration("timeout", c.Timeout)...)

	if len(errs) == 0 && c.pollInterval() > c.pollMaxInterval() {
		errs = append(errs, fmt.Sprintf("poll_interval %s exceeds poll_max_interval %s", c.pollInterval(), c.pollMaxInterval()))
	}
	return errs
}

func validateDuration(field, value string) []string {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return []string{fmt.Sprintf("%s %q is not a duration (e.g. 2s, 1m)", field, value)}
	}
	if d <= 0 {
		return []string{fmt.Sprintf("%s must be positive, got %s", field, value)}
	}
	return nil
}

// Variant returns the variant selected by SchemaRevision.
func (c *Config) Variant() (Variant, error) {
	return VariantFor(c.SchemaRevision)
}

func (c *Config) pollInterval() time.Duration {
	return durationOr(c.PollInterval, scheduler.DefaultInterval)
}

func (c *Config) pollMaxInterval() time.Duration {
	return durationOr(c.PollMaxInterval, scheduler.DefaultMaxInterval)
}

func (c *Config) timeout() time.Duration {
	return durationOr(c.Timeout, 0)
}

// durationOr parses s, returning def when s is empty or invalid.
func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// loadConfig parses and fully validates raw config JSON.
func loadConfig(raw string) (*Config, error) {
	if errs, err := schemaErrors(raw); err != nil {
		return nil, err
	} else if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	cfg, err := parseConfig(raw)
	if err != nil {
		return nil, err
	}
	if errs := cfg.validate(); len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}
