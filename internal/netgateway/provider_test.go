package netgateway

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AltairaLabs/netgateway-provider/internal/scheduler"
)

const testConfig = `{"schema_revision":"v2","stack_name":"edge","dry_run":true}`

// newTestProvider returns a provider whose every operation talks to api.
func newTestProvider(api *simulatedClient) *Provider {
	return &Provider{
		clientFunc: func(context.Context, *Config) (gatewayAPI, error) { return api, nil },
		runnerFunc: func(*Config, zerolog.Logger) *scheduler.Runner { return scheduler.Immediate() },
		log:        zerolog.Nop(),
	}
}

func TestGetProviderInfo(t *testing.T) {
	info, err := NewProvider().GetProviderInfo(context.Background())
	if err != nil {
		t.Fatalf("GetProviderInfo: %v", err)
	}
	if info.Name != "netgateway" {
		t.Errorf("Name = %q", info.Name)
	}
	if !slices.Contains(info.Capabilities, "destroy") {
		t.Errorf("Capabilities = %v", info.Capabilities)
	}
	if !slices.Equal(info.ResourceTypes, SupportedTypes()) {
		t.Errorf("ResourceTypes = %v", info.ResourceTypes)
	}
	if !slices.Equal(info.SchemaRevision, []string{"v1", "v2"}) {
		t.Errorf("SchemaRevision = %v", info.SchemaRevision)
	}
	if info.ConfigSchema == "" {
		t.Error("expected config schema")
	}
}

func TestValidateConfig(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	resp, err := p.ValidateConfig(ctx, &ValidateRequest{Config: testConfig})
	if err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
	if !resp.Valid || len(resp.Errors) != 0 {
		t.Errorf("resp = %+v, want valid", resp)
	}

	resp, _ = p.ValidateConfig(ctx, &ValidateRequest{Config: `{"schema_revision":"v2","poll_interval":"fast"}`})
	if resp.Valid {
		t.Error("expected invalid config")
	}

	resp, _ = p.ValidateConfig(ctx, &ValidateRequest{Config: `not json`})
	if resp.Valid || len(resp.Errors) != 1 {
		t.Errorf("resp = %+v, want one parse error", resp)
	}
}

func TestValidateConfig_WarningsDoNotInvalidate(t *testing.T) {
	t.Setenv("OS_AUTH_URL", "")
	resp, err := NewProvider().ValidateConfig(context.Background(), &ValidateRequest{Config: `{"schema_revision":"v1"}`})
	if err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
	if !resp.Valid {
		t.Errorf("resp = %+v, want valid", resp)
	}
	if len(resp.Warnings) == 0 || !strings.Contains(resp.Warnings[0], "OS_AUTH_URL") {
		t.Errorf("Warnings = %v", resp.Warnings)
	}
}

func TestValidateTemplate(t *testing.T) {
	p := NewProvider()
	resp, err := p.ValidateTemplate(context.Background(), &ValidateRequest{Config: testConfig, Template: []byte(testTemplate)})
	if err != nil {
		t.Fatalf("ValidateTemplate: %v", err)
	}
	if !resp.Valid {
		t.Errorf("resp = %+v, want valid", resp)
	}
}

func TestValidateTemplate_SegmentationRules(t *testing.T) {
	flatWithID := strings.Replace(testTemplate, "segmentation_type: vlan", "segmentation_type: flat", 1)

	tests := []struct {
		name    string
		config  string
		valid   bool
		wantMsg string
	}{
		{"v2 rejects flat with id", testConfig, false, msgFlatForbidsSegmentation},
		{"v1 accepts flat with id", `{"schema_revision":"v1","dry_run":true}`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewProvider().ValidateTemplate(context.Background(), &ValidateRequest{Config: tt.config, Template: []byte(flatWithID)})
			if err != nil {
				t.Fatalf("ValidateTemplate: %v", err)
			}
			if resp.Valid != tt.valid {
				t.Fatalf("Valid = %v, errors %v", resp.Valid, resp.Errors)
			}
			if tt.wantMsg != "" && (len(resp.Errors) != 1 || !strings.Contains(resp.Errors[0], tt.wantMsg)) {
				t.Errorf("Errors = %v, want %q", resp.Errors, tt.wantMsg)
			}
		})
	}
}

func TestValidateTemplate_InvalidConfigStopsEarly(t *testing.T) {
	resp, err := NewProvider().ValidateTemplate(context.Background(), &ValidateRequest{Config: `{}`, Template: []byte("garbage: [")})
	if err != nil {
		t.Fatalf("ValidateTemplate: %v", err)
	}
	if resp.Valid {
		t.Fatal("expected invalid")
	}
	for _, e := range resp.Errors {
		if strings.Contains(e, "template") {
			t.Errorf("template was checked despite a bad config: %v", resp.Errors)
		}
	}
}

func TestValidateTemplate_BadTemplate(t *testing.T) {
	resp, _ := NewProvider().ValidateTemplate(context.Background(), &ValidateRequest{Config: testConfig, Template: []byte("Resources: {}")})
	if resp.Valid || len(resp.Errors) != 1 || !strings.Contains(resp.Errors[0], "no resources") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestNewConfiguredRunner(t *testing.T) {
	if r := newConfiguredRunner(&Config{DryRun: true}, zerolog.Nop()); r == nil {
		t.Error("expected runner for dry run")
	}
	if r := newConfiguredRunner(&Config{PollInterval: "1s", Timeout: "1m"}, zerolog.Nop()); r == nil {
		t.Error("expected runner")
	}
}
