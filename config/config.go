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

	"github.com/kilianp07/crisistriage/core/audit"
	"github.com/kilianp07/crisistriage/core/metrics"
	"github.com/kilianp07/crisistriage/core/triage"
	"github.com/kilianp07/crisistriage/infra/mqtt"
)

type Config struct {
	LogLevel   string           `json:"log_level"`
	HTTP       HTTPConfig       `json:"http"`
	Matching   MatchingConfig   `json:"matching"`
	Extraction ExtractionConfig `json:"extraction"`
	LLM        LLMConfig        `json:"llm"`
	Geocode    GeocodeConfig    `json:"geocode"`
	Store      StoreConfig      `json:"store"`
	Audit      audit.Config     `json:"audit"`
	Metrics    metrics.Config   `json:"metrics"`
	MQTT       mqtt.Config      `json:"mqtt"`
	Sentry     SentryConfig     `json:"sentry"`
}

// Load reads the configuration file at path and applies K_ prefixed
// environment overrides, where a double underscore separates nested keys
// (K_MATCHING__AI_ENABLED=true).
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
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
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

// Default returns a configuration with every section defaulted, as used when
// no configuration file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.HTTP.SetDefaults()
	c.Matching.SetDefaults()
	c.Extraction.SetDefaults()
	c.LLM.SetDefaults()
	c.Geocode.SetDefaults()
	c.Store.SetDefaults()
	c.Audit.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.LLM.Validate(c.Matching.AIEnabled); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	return nil
}

// Triage returns the orchestrator settings derived from the sections.
func (c Config) Triage() triage.Config {
	return triage.Config{
		MaxMatches:     c.Matching.MaxMatches,
		ExtractTimeout: seconds(c.Extraction.TimeoutSeconds),
		GeocodeTimeout: seconds(c.Geocode.TimeoutSeconds),
	}
}
