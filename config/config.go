// Package config loads the engine configuration from a YAML or JSON file,
// with R_-prefixed environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/opensar/rescue/core/dispatch"
	"github.com/opensar/rescue/infra/mqtt"
	"github.com/opensar/rescue/simulator"
)

// MetricsConfig selects and configures the observability sinks.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults fills the listen address for the scrape endpoint.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// Validate rejects half-configured sinks.
func (c MetricsConfig) Validate() error {
	if c.InfluxEnabled && c.InfluxURL == "" {
		return fmt.Errorf("metrics: influx_url required when influx_enabled")
	}
	return nil
}

// AuditConfig selects the plan audit backend.
type AuditConfig struct {
	Backend string `json:"backend"` // jsonl, sqlite or none
	Path    string `json:"path"`
}

// SetDefaults keeps auditing on with a local JSONL file.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" && c.Backend != "none" {
		c.Path = "plan_audit." + map[string]string{"jsonl": "jsonl", "sqlite": "db"}[c.Backend]
	}
}

// Validate checks the backend name.
func (c AuditConfig) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite", "none":
		return nil
	default:
		return fmt.Errorf("audit: unknown backend %q", c.Backend)
	}
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults picks the standard API port.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
}

// Config is the full engine configuration.
type Config struct {
	MQTT      mqtt.Config      `json:"mqtt"`
	Dispatch  dispatch.Config  `json:"dispatch"`
	Metrics   MetricsConfig    `json:"metrics"`
	Audit     AuditConfig      `json:"audit"`
	API       APIConfig        `json:"api"`
	Simulator simulator.Config `json:"simulator"`
}

// SetDefaults applies defaults across all sections.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Metrics.SetDefaults()
	c.Audit.SetDefaults()
	c.API.SetDefaults()
	c.Simulator.SetDefaults()
}

// Validate checks all sections.
func (c Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt: broker required")
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Audit.Validate()
}

// Load reads the file at path, applies environment overrides (R_MQTT__BROKER
// maps to mqtt.broker), defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("R_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "r_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
