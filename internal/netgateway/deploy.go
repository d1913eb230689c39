package netgateway

// Capabilities advertised by GetProviderInfo.
var providerCapabilities = []string{"validate", "apply", "destroy", "status", "diagnose"}

// ProviderInfo describes the provider.
type ProviderInfo struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Capabilities   []string `json:"capabilities"`
	ResourceTypes  []string `json:"resource_types"`
	ConfigSchema   string   `json:"config_schema"`
	SchemaRevision []string `json:"schema_revisions"`
}

// ValidateRequest carries a provider config, and optionally a template, to
// validate.
type ValidateRequest struct {
	Config   string
	Template []byte
}

// ValidateResponse lists validation errors and diagnostic warnings.
// Warnings do not affect Valid.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ApplyRequest asks the provider to converge a template.
type ApplyRequest struct {
	Config     string
	Template   []byte
	PriorState string
}

// DestroyRequest asks the provider to remove every resource of a state.
type DestroyRequest struct {
	Config     string
	PriorState string
}

// StatusRequest asks for the health of every resource of a state.
type StatusRequest struct {
	Config     string
	PriorState string
}

// Aggregate deployment statuses.
const (
	DeploymentDeployed    = "deployed"
	DeploymentDegraded    = "degraded"
	DeploymentNotDeployed = "not_deployed"
)

// StatusResponse reports per-resource health and an aggregate status.
type StatusResponse struct {
	Status    string           `json:"status"`
	Resources []ResourceStatus `json:"resources,omitempty"`
	State     string           `json:"-"`
}

// ResourceStatus is the health of one resource.
type ResourceStatus struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	ResourceID string `json:"resource_id,omitempty"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
}

// Event types streamed to callbacks.
const (
	EventProgress = "progress"
	EventResource = "resource"
	EventError    = "error"
	EventComplete = "complete"
)

// Event reports progress of Apply or Destroy.
type Event struct {
	Type     string
	Message  string
	Progress float64
	Resource *ResourceResult
}

// ResourceResult is the outcome of one resource action.
type ResourceResult struct {
	Type       string
	Name       string
	Action     Action
	Status     string
	ResourceID string
	Detail     string
}

// Callback receives events. Returning an error aborts Apply.
type Callback func(*Event) error

// progressReporter emits events through a Callback.
type progressReporter struct {
	cb Callback
}

func newProgressReporter(cb Callback) *progressReporter {
	if cb == nil {
		cb = func(*Event) error { return nil }
	}
	return &progressReporter{cb: cb}
}

func (r *progressReporter) progress(msg string, pct float64) error {
	return r.cb(&Event{Type: EventProgress, Message: msg, Progress: pct})
}

func (r *progressReporter) resource(msg string, res *ResourceResult) error {
	return r.cb(&Event{Type: EventResource, Message: msg, Resource: res})
}

func (r *progressReporter) error(err error, res *ResourceResult) error {
	return r.cb(&Event{Type: EventError, Message: err.Error(), Resource: res})
}

func (r *progressReporter) complete(msg string) error {
	return r.cb(&Event{Type: EventComplete, Message: msg, Progress: 1})
}
