package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/crisistriage/core/errs"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `log_level: debug
http:
  address: ":9000"
  audit_token: "secret"
matching:
  ai_enabled: true
  max_matches: 3
  weights:
    suitability: 0.5
    availability: 0.2
    capacity: 0.15
    distance: 0.15
llm:
  api_key: "key"
geocode:
  cache:
    redis_url: "redis://localhost:6379/0"
store:
  backend: postgres
  dsn: "postgres://triage@localhost/triage"
audit:
  backend: sqlite
metrics:
  sinks:
    - type: "nop"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  ack_topic: "units/+/ack"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"log_level", cfg.LogLevel, "debug"},
		{"http.address", cfg.HTTP.Address, ":9000"},
		{"http.audit_token", cfg.HTTP.AuditToken, "secret"},
		{"matching.ai_enabled", cfg.Matching.AIEnabled, true},
		{"matching.max_matches", cfg.Matching.MaxMatches, 3},
		{"matching.weights.suitability", cfg.Matching.Weights.Suitability, 0.5},
		{"matching.ai_min_confidence", cfg.Matching.AIMinConfidence, 0.6},
		{"extraction.fallback", cfg.Extraction.FallbackEnabled(), true},
		{"extraction.weights", cfg.Extraction.Weights.MedicalRisk, 0.35},
		{"llm.provider", cfg.LLM.Provider, "gemini"},
		{"llm.temperature", cfg.LLM.Temperature, float32(0.3)},
		{"geocode.user_agent", cfg.Geocode.UserAgent, "emergency-triage-system"},
		{"geocode.cache.redis_url", cfg.Geocode.Cache.RedisURL, "redis://localhost:6379/0"},
		{"store.backend", cfg.Store.Backend, "postgres"},
		{"audit.path", cfg.Audit.Path, "triage_audit.db"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"metrics.port", cfg.Metrics.PrometheusPort, "9091"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.ack_topic", cfg.MQTT.AckTopic, "units/+/ack"},
		{"mqtt.notice_prefix", cfg.MQTT.NoticeTopicPrefix, "triage/resource"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"matching":{"max_matches":4},"extraction":{"keyword_fallback":true}}`)
	t.Setenv("K_MATCHING__MAX_MATCHES", "2")
	t.Setenv("K_EXTRACTION__KEYWORD_FALLBACK", "false")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Matching.MaxMatches != 2 {
		t.Fatalf("env override not applied: %d", cfg.Matching.MaxMatches)
	}
	if cfg.Extraction.FallbackEnabled() {
		t.Fatalf("keyword fallback should be disabled")
	}
}

func TestLoadYAMLEnvOverrideDeepKey(t *testing.T) {
	path := writeConfig(t, "config.yaml", "geocode:\n  cache:\n    ttl_minutes: 5\n")
	t.Setenv("K_GEOCODE__CACHE__TTL_MINUTES", "15")
	t.Setenv("K_MATCHING__AI_ENABLED", "true")
	t.Setenv("K_LLM__API_KEY", "key")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Geocode.Cache.TTLMinutes != 15 {
		t.Fatalf("nested env override not applied: %d", cfg.Geocode.Cache.TTLMinutes)
	}
	if !cfg.Matching.AIEnabled {
		t.Fatalf("ai_enabled override not applied")
	}
	if cfg.LLM.APIKey != "key" {
		t.Fatalf("llm.api_key override not applied: %q", cfg.LLM.APIKey)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	path := writeConfig(t, "config.yaml", `matching:
  weights:
    suitability: 0.5
    availability: 0.5
    capacity: 0.5
    distance: 0.5
`)
	_, err := Load(path)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadRejectsInvalidSections(t *testing.T) {
	cases := map[string]string{
		"log level":      "log_level: loud\n",
		"store dsn":      "store:\n  backend: postgres\n",
		"store backend":  "store:\n  backend: mongo\n",
		"ai without key": "matching:\n  ai_enabled: true\n",
		"llm provider":   "llm:\n  provider: other\n",
		"mqtt broker":    "mqtt:\n  enabled: true\n",
	}
	for name, data := range cases {
		if _, err := Load(writeConfig(t, "config.yaml", data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "")); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestDefaultsConvert(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	tc := cfg.Triage()
	if tc.MaxMatches != 5 || tc.ExtractTimeout != 30*time.Second || tc.GeocodeTimeout != 5*time.Second {
		t.Fatalf("unexpected triage config %+v", tc)
	}
	mc := cfg.Matching.Orchestrator()
	if mc.AITimeout != 30*time.Second || mc.AIEnabled || mc.Weights.Distance != 0.15 {
		t.Fatalf("unexpected matching config %+v", mc)
	}
	if cfg.HTTP.Address != ":8000" || cfg.Store.Backend != "memory" {
		t.Fatalf("unexpected defaults %+v %+v", cfg.HTTP, cfg.Store)
	}
}

func TestSentryValidate(t *testing.T) {
	cfg := Default()
	cfg.Sentry.TracesSampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected sample rate error")
	}
	s := SentryConfig{DSN: "https://k@sentry.example/1"}
	s.SetDefaults()
	if s.Environment != "production" {
		t.Fatalf("environment = %q", s.Environment)
	}
}
