package netgateway

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DiagnosticWarning represents a non-fatal issue detected during
// pre-deploy diagnostics.
type DiagnosticWarning struct {
	Category string
	Message  string
	Hint     string
}

// String formats the warning for display.
func (w DiagnosticWarning) String() string {
	if w.Hint != "" {
		return fmt.Sprintf("[%s] %s (hint: %s)", w.Category, w.Message, w.Hint)
	}
	return fmt.Sprintf("[%s] %s", w.Category, w.Message)
}

// minPollInterval is the shortest poll interval that does not hammer the
// network service while a gateway deletion is confirmed.
const minPollInterval = 500 * time.Millisecond

// DiagnoseConfig checks the configuration for common misconfigurations and
// returns warnings. Unlike validate(), these are non-fatal.
func DiagnoseConfig(cfg *Config) []DiagnosticWarning {
	var warnings []DiagnosticWarning
	warnings = append(warnings, diagnoseCredentials(cfg)...)
	warnings = append(warnings, diagnosePolling(cfg)...)
	warnings = append(warnings, diagnoseEndpoint(cfg)...)
	return warnings
}

// diagnoseCredentials warns when a real deployment has no way to
// authenticate.
func diagnoseCredentials(cfg *Config) []DiagnosticWarning {
	if cfg.DryRun || cfg.Endpoint != "" {
		return nil
	}
	if os.Getenv("OS_AUTH_URL") == "" {
		return []DiagnosticWarning{{
			Category: ErrCategoryPermission,
			Message:  "OS_AUTH_URL is not set and no endpoint is configured",
			Hint:     "source an openrc file or set endpoint for a fixed network service URL",
		}}
	}
	if cfg.Region == "" && os.Getenv("OS_REGION_NAME") == "" {
		return []DiagnosticWarning{{
			Category: ErrCategoryConfiguration,
			Message:  "no region configured",
			Hint:     "set region or OS_REGION_NAME when the cloud has more than one region",
		}}
	}
	return nil
}

// diagnosePolling checks the deletion confirmation timing.
func diagnosePolling(cfg *Config) []DiagnosticWarning {
	var warnings []DiagnosticWarning
	if cfg.pollInterval() < minPollInterval {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryConfiguration,
			Message:  fmt.Sprintf("poll_interval %s is very short", cfg.pollInterval()),
			Hint:     fmt.Sprintf("use at least %s to avoid excessive list calls", minPollInterval),
		})
	}
	if t := cfg.timeout(); t > 0 && t < cfg.pollInterval() {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryTimeout,
			Message:  fmt.Sprintf("timeout %s is shorter than poll_interval %s", t, cfg.pollInterval()),
			Hint:     "gateway deletions will time out before the first confirmation listing",
		})
	}
	return warnings
}

// diagnoseEndpoint flags plain-text endpoints outside local development.
func diagnoseEndpoint(cfg *Config) []DiagnosticWarning {
	if !strings.HasPrefix(cfg.Endpoint, "http://") {
		return nil
	}
	host := strings.TrimPrefix(cfg.Endpoint, "http://")
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		return nil
	}
	return []DiagnosticWarning{{
		Category: ErrCategoryNetwork,
		Message:  fmt.Sprintf("endpoint %q is not using TLS", cfg.Endpoint),
		Hint:     "use an https endpoint outside local testing",
	}}
}

// FormatWarnings returns a multi-line string from a list of warnings,
// suitable for display to the user.
func FormatWarnings(warnings []DiagnosticWarning) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d diagnostic warning(s):\n", len(warnings))
	for i, w := range warnings {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, w.String())
	}
	return b.String()
}
