package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			InstanceID:             "bgp-synth-1",
			HTTPListen:             ":8080",
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 30,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ClientID:      "bgp-synth",
			FetchMaxBytes: 52428800,
			Jobs: ConsumerConfig{
				GroupID: "bgp-synth-jobs",
				Topics:  []string{"synth.jobs"},
			},
		},
		Postgres: PostgresConfig{
			DSN:      "postgres://localhost/bgpsynth",
			MaxConns: 20,
			MinConns: 2,
		},
		Synth: SynthConfig{
			MaxRequestBytes: 16777216,
			CompressResults: true,
			TimeoutSeconds:  120,
		},
		Retention: RetentionConfig{
			Days:     30,
			Timezone: "UTC",
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_NoBrokersSkipsKafkaChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Kafka.Brokers = nil
	cfg.Kafka.Jobs.GroupID = ""
	cfg.Kafka.Jobs.Topics = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected kafka-less config to be valid, got error: %v", err)
	}
}

func TestValidate_NoDSNIsValid(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.DSN = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config without a DSN to be valid, got error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing group", func(c *Config) { c.Kafka.Jobs.GroupID = "" }},
		{"missing topics", func(c *Config) { c.Kafka.Jobs.Topics = nil }},
		{"bad fetch bytes", func(c *Config) { c.Kafka.FetchMaxBytes = 0 }},
		{"request exceeds fetch", func(c *Config) { c.Synth.MaxRequestBytes = 1 << 30 }},
		{"bad request bytes", func(c *Config) { c.Synth.MaxRequestBytes = 0 }},
		{"bad timeout", func(c *Config) { c.Synth.TimeoutSeconds = 0 }},
		{"bad retention", func(c *Config) { c.Retention.Days = 0 }},
		{"bad timezone", func(c *Config) { c.Retention.Timezone = "Not/AZone" }},
		{"bad max conns", func(c *Config) { c.Postgres.MaxConns = 0 }},
		{"negative min conns", func(c *Config) { c.Postgres.MinConns = -1 }},
		{"bad shutdown timeout", func(c *Config) { c.Service.ShutdownTimeoutSeconds = 0 }},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
service:
  http_listen: ":9090"
kafka:
  brokers:
    - broker1:9092
  jobs:
    topics:
      - synth.jobs
postgres:
  dsn: postgres://localhost/bgpsynth
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.HTTPListen != ":9090" {
		t.Fatalf("expected file override, got %s", cfg.Service.HTTPListen)
	}
	// Defaults fill in what the file omits.
	if cfg.Service.InstanceID != "bgp-synth-1" {
		t.Fatalf("expected default instance id, got %s", cfg.Service.InstanceID)
	}
	if cfg.Kafka.Jobs.GroupID != "bgp-synth-jobs" {
		t.Fatalf("expected default group id, got %s", cfg.Kafka.Jobs.GroupID)
	}
	if !cfg.Synth.CompressResults {
		t.Fatal("expected compression on by default")
	}
}

func TestLoad_EnvOverridesAndSplitting(t *testing.T) {
	t.Setenv("BGP_SYNTH_KAFKA__BROKERS", "b1:9092,b2:9092")
	t.Setenv("BGP_SYNTH_KAFKA__JOBS__TOPICS", "synth.jobs")
	t.Setenv("BGP_SYNTH_SERVICE__LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "b1:9092" || cfg.Kafka.Brokers[1] != "b2:9092" {
		t.Fatalf("expected comma-split brokers, got %v", cfg.Kafka.Brokers)
	}
	if len(cfg.Kafka.Jobs.Topics) != 1 || cfg.Kafka.Jobs.Topics[0] != "synth.jobs" {
		t.Fatalf("expected jobs topics from env, got %v", cfg.Kafka.Jobs.Topics)
	}
	if cfg.Service.LogLevel != "debug" {
		t.Fatalf("expected log level from env, got %s", cfg.Service.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
