package netgateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gophercloud/gophercloud"
)

// Error category constants classify resource failures for diagnostics.
const (
	ErrCategoryPermission    = "permission"
	ErrCategoryConfiguration = "configuration"
	ErrCategoryResource      = "resource"
	ErrCategoryTimeout       = "timeout"
	ErrCategoryNetwork       = "network"
)

// ErrUpdateReplace is returned by Update: gateways and connections cannot
// be changed in place and must be replaced.
var ErrUpdateReplace = errors.New("resource must be replaced to apply property changes")

// ErrNetworkNotFound is returned when a network name or id matches nothing.
var ErrNetworkNotFound = errors.New("network not found")

// RemoteError is a failure reported by the remote network service. It
// satisfies gophercloud.StatusCodeError so it classifies the same way as
// errors returned directly by a gophercloud ServiceClient.
type RemoteError struct {
	StatusCode int
	Type       string
	Message    string
}

// Error formats the error as "<Type>: <Message>".
func (e *RemoteError) Error() string {
	typ := e.Type
	if typ == "" {
		typ = "NeutronClientException"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "An unknown exception occurred."
	}
	return fmt.Sprintf("%s: %s", typ, msg)
}

// GetStatusCode returns the HTTP status of the failed call.
func (e *RemoteError) GetStatusCode() int {
	return e.StatusCode
}

var _ gophercloud.StatusCodeError = (*RemoteError)(nil)

// remoteOutcome classifies the result of a remote delete or disconnect.
type remoteOutcome int

const (
	outcomeOK remoteOutcome = iota
	// outcomeNotFound means the object is provably gone.
	outcomeNotFound
	// outcomeAmbiguous is any other HTTP failure. The service answers this
	// way when a parent object was already removed, so it must be
	// reconciled against a listing before being reported.
	outcomeAmbiguous
	// outcomeGenuine is a failure that never reached the service
	// (transport, encoding) and is reported as is.
	outcomeGenuine
)

// classifyRemote maps an error from the remote client to an outcome.
func classifyRemote(err error) remoteOutcome {
	if err == nil {
		return outcomeOK
	}
	var sc gophercloud.StatusCodeError
	if !errors.As(err, &sc) {
		return outcomeGenuine
	}
	if sc.GetStatusCode() == http.StatusNotFound {
		return outcomeNotFound
	}
	return outcomeAmbiguous
}

// isNotFound returns true if err is a remote 404.
func isNotFound(err error) bool {
	return classifyRemote(err) == outcomeNotFound
}

// ResourceFailure is returned when a lifecycle action on a resource fails.
// The underlying error is kept as Cause and its message is repeated in
// Error so operators see the root cause.
type ResourceFailure struct {
	// Action is the lifecycle action that failed (CREATE, DELETE, ...).
	Action Action
	// ResourceType is the template type of the resource.
	ResourceType string
	// ResourceName is the template name of the resource.
	ResourceName string
	// Category classifies the failure (e.g. "permission", "network").
	Category string
	// Remediation is a human-readable hint on how to fix the issue.
	Remediation string
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface with a diagnostic-rich message.
func (e *ResourceFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %q failed", strings.ToLower(string(e.Action)), e.ResourceType, e.ResourceName)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.Remediation != "" {
		fmt.Fprintf(&b, " [hint: %s]", e.Remediation)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ResourceFailure) Unwrap() error {
	return e.Cause
}

// newResourceFailure creates a ResourceFailure with automatic
// classification of the cause.
func newResourceFailure(action Action, resType, resName string, cause error) *ResourceFailure {
	category, remediation := classifyError(cause)
	return &ResourceFailure{
		Action:       action,
		ResourceType: resType,
		ResourceName: resName,
		Category:     category,
		Remediation:  remediation,
		Cause:        cause,
	}
}

// IsResourceFailure returns the ResourceFailure if err is (or wraps) one.
func IsResourceFailure(err error) *ResourceFailure {
	var rf *ResourceFailure
	if errors.As(err, &rf) {
		return rf
	}
	return nil
}

// ValidationError reports properties that violate a resource's schema or
// cross-field rules. It is raised before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidAttributeError is returned when a template asks a resource for an
// attribute it does not declare.
type InvalidAttributeError struct {
	Resource string
	Key      string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("The Referenced Attribute (%s %s) is incorrect.", e.Resource, e.Key)
}

// classifyErrorMessage determines category and remediation from an error string.
// classifyError categorizes err by its HTTP status when it has one and
// falls back to its message otherwise.
func classifyError(err error) (category, remediation string) {
	var sc gophercloud.StatusCodeError
	if errors.As(err, &sc) {
		switch sc.GetStatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrCategoryPermission, hintCheckCredentials
		}
	}
	return classifyErrorMessage(err.Error())
}

func classifyErrorMessage(msg string) (category, remediation string) {
	lower := strings.ToLower(msg)

	if containsAny(lower, permissionKeywords) {
		return ErrCategoryPermission, hintCheckCredentials
	}
	if containsAny(lower, timeoutKeywords) {
		return ErrCategoryTimeout, hintRetryOrTimeout
	}
	if containsAny(lower, networkKeywords) {
		return ErrCategoryNetwork, hintCheckNetwork
	}
	if containsAny(lower, configKeywords) {
		return ErrCategoryConfiguration, hintCheckConfig
	}
	return ErrCategoryResource, ""
}

// Keyword groups for error classification.
var (
	permissionKeywords = []string{
		"unauthorized", "forbidden", "not authorized", "policy does not allow",
	}
	networkKeywords = []string{
		"connection refused", "no such host", "dial tcp", "tls handshake",
		"no suitable endpoint",
	}
	timeoutKeywords = []string{
		"deadline exceeded", "context canceled", "timed out",
	}
	configKeywords = []string{
		"invalid", "malformed", "bad request", "must be specified", "cannot be specified",
	}
)

// Remediation hint constants.
const (
	hintCheckCredentials = "verify the OS_* credentials have admin rights on the network service"
	hintCheckNetwork     = "verify the endpoint or region is correct and the network service is reachable"
	hintRetryOrTimeout   = "the gateway may still be deleting; retry after a short wait"
	hintCheckConfig      = "check the template properties match the network service requirements"
)

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// DiagnosticSummary returns a multi-line diagnostic string for a slice of
// errors, suitable for display after a failed apply or destroy.
func DiagnosticSummary(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Completed with %d error(s):\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}
