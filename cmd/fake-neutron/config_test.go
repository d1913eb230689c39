package main

import (
	"slices"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envPort, envRevision, envToken, envNetworks, envLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != defaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, defaultPort)
	}
	if cfg.Revision != defaultRevision {
		t.Errorf("Revision = %q, want %q", cfg.Revision, defaultRevision)
	}
	if cfg.Networks != nil {
		t.Errorf("Networks should be nil by default, got %v", cfg.Networks)
	}
}

func TestLoadConfig_AllSet(t *testing.T) {
	clearEnv(t)
	t.Setenv(envPort, "19696")
	t.Setenv(envRevision, "v1")
	t.Setenv(envToken, "secret")
	t.Setenv(envNetworks, "public, private,,")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 19696 {
		t.Errorf("Port = %d, want 19696", cfg.Port)
	}
	if cfg.Revision != "v1" {
		t.Errorf("Revision = %q, want v1", cfg.Revision)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want secret", cfg.Token)
	}
	if !slices.Equal(cfg.Networks, []string{"public", "private"}) {
		t.Errorf("Networks = %v, want [public private]", cfg.Networks)
	}
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv(envPort, "not-a-number")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoadConfig_InvalidRevision(t *testing.T) {
	clearEnv(t)
	t.Setenv(envRevision, "v3")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for unknown schema revision")
	}
}
