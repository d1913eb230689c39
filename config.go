package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// providerKeys are the viper keys passed through to the provider config.
var providerKeys = []string{
	"schema_revision",
	"region",
	"endpoint",
	"dry_run",
	"poll_interval",
	"poll_max_interval",
	"timeout",
	"stack_name",
}

// newViper returns a viper instance reading NGW_* environment variables.
// Nested keys are not used, so "poll_interval" maps to NGW_POLL_INTERVAL.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("NGW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("schema_revision", "v2")
	v.SetDefault("state", "netgateway.db")
	v.SetDefault("stack_name", "default")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_level", "info")
	return v
}

// readConfigFile loads path, if set, into v. A missing default config
// file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netgateway")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.netgateway")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// providerConfig renders the provider config JSON from v. Empty values are
// omitted so provider defaults apply.
func providerConfig(v *viper.Viper) (string, error) {
	cfg := make(map[string]any)
	for _, key := range providerKeys {
		if key == "dry_run" {
			if v.GetBool(key) {
				cfg[key] = true
			}
			continue
		}
		if s := v.GetString(key); s != "" {
			cfg[key] = s
		}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// newLogger builds the CLI logger from log_format and log_level.
func newLogger(v *viper.Viper, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	switch v.GetString("log_format") {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q: want console or json", v.GetString("log_format"))
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// readTemplate reads a template file, or stdin for "-".
func readTemplate(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return data, nil
}
