package netgateway

import (
	"strings"
	"testing"
)

func TestValidateResourceName(t *testing.T) {
	valid := []string{"gw", "Gateway1", "test_network_gateway", "edge.gw-1"}
	for _, name := range valid {
		if err := validateResourceName(name); err != nil {
			t.Errorf("validateResourceName(%q): %v", name, err)
		}
	}
	invalid := []string{"", "1gw", "-gw", "gw name", strings.Repeat("a", 129)}
	for _, name := range invalid {
		if err := validateResourceName(name); err == nil {
			t.Errorf("validateResourceName(%q): expected error", name)
		}
	}
}

func TestPhysicalResourceName(t *testing.T) {
	name := physicalResourceName("prod", "edge")
	if !strings.HasPrefix(name, "prod-edge-") {
		t.Errorf("name = %q, want prefix prod-edge-", name)
	}
	if len(name) != len("prod-edge-")+shortIDLen {
		t.Errorf("len(%q) = %d", name, len(name))
	}

	if got := physicalResourceName("", "edge"); !strings.HasPrefix(got, "edge-") {
		t.Errorf("name without stack = %q", got)
	}
}

func TestPhysicalResourceName_Truncates(t *testing.T) {
	name := physicalResourceName(strings.Repeat("s", 200), strings.Repeat("r", 128))
	if len(name) != maxNameLen {
		t.Errorf("len = %d, want %d", len(name), maxNameLen)
	}
	suffix := name[len(name)-shortIDLen:]
	if strings.ContainsAny(suffix, "sr-") {
		t.Errorf("random suffix %q was truncated", suffix)
	}
}

func TestShortID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := shortID()
		if len(id) != shortIDLen {
			t.Fatalf("len(%q) = %d", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
