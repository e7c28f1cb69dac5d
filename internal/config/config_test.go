package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.Path != "cataloglist.txt" || cfg.Catalog.MaxBodyBytes != 512 {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if cfg.Search.Endpoint != "https://api.duckduckgo.com/" {
		t.Fatalf("unexpected search endpoint %q", cfg.Search.Endpoint)
	}
	if got := cfg.SearchTimeout(); got != 10*time.Second {
		t.Fatalf("expected search timeout 10s, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  admin_port: 9091
catalog:
  path: /var/lib/catalog/list.txt
  max_body_bytes: 1024
search:
  endpoint: http://search.internal/
  timeout_seconds: 3
  rate_limit_rps: 2.5
telemetry:
  service_name: catalog-prod
  exporter: none
  records:
    max_wait_ms: 250
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.AdminPort != 9091 {
		t.Fatalf("expected server overrides, got %+v", cfg.Server)
	}
	if cfg.Catalog.Path != "/var/lib/catalog/list.txt" || cfg.Catalog.MaxBodyBytes != 1024 {
		t.Fatalf("expected catalog overrides, got %+v", cfg.Catalog)
	}
	if cfg.Search.RateLimitRPS != 2.5 || cfg.SearchTimeout() != 3*time.Second {
		t.Fatalf("expected search overrides, got %+v", cfg.Search)
	}
	if cfg.Telemetry.ServiceName != "catalog-prod" || cfg.Telemetry.Exporter != ExporterNone {
		t.Fatalf("expected telemetry overrides, got %+v", cfg.Telemetry)
	}
	if cfg.RecordsMaxWait() != 250*time.Millisecond {
		t.Fatalf("expected 250ms record wait, got %v", cfg.RecordsMaxWait())
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
}

func TestLoadHonorsOTelEnvironment(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "catalog-from-env")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://collector:4317")
	t.Setenv("CATALOG_CATALOG_PATH", "/tmp/env-catalog.txt")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Telemetry.ServiceName != "catalog-from-env" {
		t.Fatalf("expected service name from env, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.Endpoint != "http://collector:4317" {
		t.Fatalf("expected endpoint from env, got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Catalog.Path != "/tmp/env-catalog.txt" {
		t.Fatalf("expected catalog path from env, got %q", cfg.Catalog.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080, AdminPort: 9464},
		Catalog:   CatalogConfig{Path: "catalog.txt", MaxBodyBytes: 512},
		Search:    SearchConfig{Endpoint: "http://example.com/", TimeoutSeconds: 1},
		Telemetry: TelemetryConfig{Exporter: ExporterNone},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "admin port clash", mutate: func(c *Config) { c.Server.AdminPort = 8080 }, want: "server.admin_port"},
		{name: "missing path", mutate: func(c *Config) { c.Catalog.Path = " " }, want: "catalog.path"},
		{name: "zero body", mutate: func(c *Config) { c.Catalog.MaxBodyBytes = 0 }, want: "catalog.max_body_bytes"},
		{name: "missing endpoint", mutate: func(c *Config) { c.Search.Endpoint = "" }, want: "search.endpoint"},
		{name: "negative timeout", mutate: func(c *Config) { c.Search.TimeoutSeconds = -1 }, want: "search.timeout_seconds"},
		{name: "negative rps", mutate: func(c *Config) { c.Search.RateLimitRPS = -1 }, want: "search.rate_limit_rps"},
		{name: "unknown exporter", mutate: func(c *Config) { c.Telemetry.Exporter = "zipkin" }, want: "telemetry.exporter"},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Exporter = ExporterOTLP
				c.Telemetry.Endpoint = ""
			},
			want: "telemetry.endpoint",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
