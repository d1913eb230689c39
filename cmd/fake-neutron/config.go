// Package main implements the fake-neutron binary. It serves an in-memory
// network gateway extension so templates can be applied without a cloud.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	envPort     = "FAKE_NEUTRON_PORT"
	envRevision = "FAKE_NEUTRON_SCHEMA_REVISION"
	envToken    = "FAKE_NEUTRON_TOKEN"
	envNetworks = "FAKE_NEUTRON_NETWORKS"
	envLogLevel = "FAKE_NEUTRON_LOG_LEVEL"
)

const (
	defaultPort     = 9696
	defaultRevision = "v2"
)

// serverConfig holds all configuration parsed from environment variables.
type serverConfig struct {
	Port     int
	Revision string
	Token    string
	// Networks are created at startup, by name.
	Networks []string
	LogLevel string
}

// loadConfig reads configuration from environment variables. Every
// variable is optional.
func loadConfig() (*serverConfig, error) {
	cfg := &serverConfig{
		Port:     defaultPort,
		Revision: defaultRevision,
		Token:    os.Getenv(envToken),
		LogLevel: os.Getenv(envLogLevel),
	}

	if portStr := os.Getenv(envPort); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", envPort, portStr, err)
		}
		cfg.Port = port
	}

	if rev := os.Getenv(envRevision); rev != "" {
		if rev != "v1" && rev != "v2" {
			return nil, fmt.Errorf("invalid %s %q: want v1 or v2", envRevision, rev)
		}
		cfg.Revision = rev
	}

	for _, name := range strings.Split(os.Getenv(envNetworks), ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Networks = append(cfg.Networks, name)
		}
	}

	return cfg, nil
}
