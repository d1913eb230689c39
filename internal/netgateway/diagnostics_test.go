package netgateway

import (
	"strings"
	"testing"
)

func TestDiagnoseConfig_Clean(t *testing.T) {
	t.Setenv("OS_AUTH_URL", "https://keystone.example.com/v3")
	cfg := &Config{SchemaRevision: RevisionV2, Region: "RegionOne"}

	if warnings := DiagnoseConfig(cfg); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestDiagnoseConfig_MissingCredentials(t *testing.T) {
	t.Setenv("OS_AUTH_URL", "")
	cfg := &Config{SchemaRevision: RevisionV2}

	warnings := DiagnoseConfig(cfg)
	if len(warnings) != 1 || warnings[0].Category != ErrCategoryPermission {
		t.Fatalf("warnings = %v", warnings)
	}
	if !strings.Contains(warnings[0].Message, "OS_AUTH_URL") {
		t.Errorf("message = %q", warnings[0].Message)
	}
}

func TestDiagnoseConfig_MissingRegion(t *testing.T) {
	t.Setenv("OS_AUTH_URL", "https://keystone.example.com/v3")
	t.Setenv("OS_REGION_NAME", "")
	cfg := &Config{SchemaRevision: RevisionV2}

	warnings := DiagnoseConfig(cfg)
	if len(warnings) != 1 || warnings[0].Message != "no region configured" {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestDiagnoseConfig_DryRunSkipsCredentials(t *testing.T) {
	t.Setenv("OS_AUTH_URL", "")
	cfg := &Config{SchemaRevision: RevisionV2, DryRun: true}

	if warnings := DiagnoseConfig(cfg); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestDiagnoseConfig_Polling(t *testing.T) {
	t.Setenv("OS_AUTH_URL", "")
	cfg := &Config{SchemaRevision: RevisionV2, DryRun: true, PollInterval: "100ms", Timeout: "50ms", PollMaxInterval: "1s"}

	warnings := DiagnoseConfig(cfg)
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
	if warnings[0].Category != ErrCategoryConfiguration || warnings[1].Category != ErrCategoryTimeout {
		t.Errorf("categories = %s, %s", warnings[0].Category, warnings[1].Category)
	}
}

func TestDiagnoseConfig_Endpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		warn     bool
	}{
		{"https://neutron.example.com:9696", false},
		{"http://localhost:9696", false},
		{"http://127.0.0.1:9696", false},
		{"http://neutron.example.com:9696", true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := &Config{SchemaRevision: RevisionV2, Endpoint: tt.endpoint}
			got := len(diagnoseEndpoint(cfg)) > 0
			if got != tt.warn {
				t.Errorf("warned = %v, want %v", got, tt.warn)
			}
		})
	}
}

func TestDiagnosticWarning_String(t *testing.T) {
	w := DiagnosticWarning{Category: "network", Message: "m", Hint: "h"}
	if got := w.String(); got != "[network] m (hint: h)" {
		t.Errorf("String() = %q", got)
	}
	w.Hint = ""
	if got := w.String(); got != "[network] m" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormatWarnings(t *testing.T) {
	if FormatWarnings(nil) != "" {
		t.Error("expected empty output")
	}
	out := FormatWarnings([]DiagnosticWarning{{Category: "timeout", Message: "slow"}})
	if !strings.HasPrefix(out, "1 diagnostic warning(s):") || !strings.Contains(out, "1. [timeout] slow") {
		t.Errorf("FormatWarnings = %q", out)
	}
}
