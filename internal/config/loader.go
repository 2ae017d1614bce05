// Package config provides configuration loading for otelharness.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix is the prefix for environment overrides.
	EnvPrefix = "OTELHARNESS_"
)

// Config is a loaded configuration tree.
//
// Each package owns its section type and decodes it with Section, so the
// loader never needs to know about telemetry, logging or collector settings.
type Config struct {
	k    *koanf.Koanf
	path string
}

// Load loads configuration from a YAML file, then overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (OTELHARNESS_TELEMETRY_ENDPOINT, ...)
//  2. YAML config file
//  3. Defaults held by the section structs passed to Section
//
// An empty configPath skips the file. A configPath that does not exist is an error.
//
// # Environment Variable Mapping
//
// The prefix is stripped, the rest is lowercased and split on the first underscore:
//
//	OTELHARNESS_TELEMETRY_ENDPOINT     -> telemetry.endpoint
//	OTELHARNESS_TELEMETRY_SERVICE_NAME -> telemetry.service_name
//	OTELHARNESS_COLLECTOR_ROOT         -> collector.root
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return &Config{k: k, path: configPath}, nil
}

// envKey maps OTELHARNESS_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile opens the file once and validates through the descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Section decodes the subtree at key into out.
//
// out should already hold defaults; only keys present in the file or
// environment overwrite them. A missing section leaves out untouched.
func (c *Config) Section(key string, out interface{}) error {
	if c == nil || c.k == nil || !c.k.Exists(key) {
		return nil
	}
	if err := c.k.Unmarshal(key, out); err != nil {
		return fmt.Errorf("failed to decode %q section: %w", key, err)
	}
	return nil
}

// Has reports whether key is set.
func (c *Config) Has(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}

// String returns the string at key, or def when unset.
func (c *Config) String(key, def string) string {
	if !c.Has(key) {
		return def
	}
	return c.k.String(key)
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}
