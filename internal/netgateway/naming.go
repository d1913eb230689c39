package netgateway

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// maxNameLen is the longest name the network service stores.
const maxNameLen = 255

// shortIDLen is the length of the random suffix of physical names.
const shortIDLen = 12

// resourceNamePattern restricts template resource names.
const resourceNamePattern = `^[A-Za-z][A-Za-z0-9_.-]{0,127}$`

var resourceNameRe = regexp.MustCompile(resourceNamePattern)

// validateResourceName checks a template resource name.
func validateResourceName(name string) error {
	if !resourceNameRe.MatchString(name) {
		return fmt.Errorf("resource name %q is invalid: must match %s", name, resourceNamePattern)
	}
	return nil
}

// physicalResourceName derives the remote name of a resource that has no
// explicit name: "<stack>-<resource>-<short id>", truncated from the
// middle so the random suffix survives.
func physicalResourceName(stackName, resourceName string) string {
	suffix := shortID()
	prefix := resourceName
	if stackName != "" {
		prefix = stackName + "-" + resourceName
	}
	if room := maxNameLen - len(suffix) - 1; len(prefix) > room {
		prefix = prefix[:room]
	}
	return prefix + "-" + suffix
}

// shortID returns a lowercase random identifier of shortIDLen characters.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:shortIDLen]
}
