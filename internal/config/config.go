// Package config loads and validates catalog service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported trace exporters.
const (
	ExporterOTLP = "otlp"
	ExporterNone = "none"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Search    SearchConfig    `mapstructure:"search"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the catalog and admin HTTP listeners.
type ServerConfig struct {
	Port                     int `mapstructure:"port"`
	AdminPort                int `mapstructure:"admin_port"`
	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int `mapstructure:"shutdown_timeout_seconds"`
}

// CatalogConfig locates the backing file and bounds insert payloads.
type CatalogConfig struct {
	Path         string `mapstructure:"path"`
	MaxBodyBytes int    `mapstructure:"max_body_bytes"`
}

// SearchConfig configures the outbound search proxy.
type SearchConfig struct {
	Endpoint       string  `mapstructure:"endpoint"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// TelemetryConfig configures tracing, the request counter and log records.
type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Endpoint    string        `mapstructure:"endpoint"`
	Exporter    string        `mapstructure:"exporter"`
	TracerName  string        `mapstructure:"tracer_name"`
	Records     RecordsConfig `mapstructure:"records"`
}

// RecordsConfig sizes the log record hub.
type RecordsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	MaxBatch   int `mapstructure:"max_batch"`
	MaxWaitMs  int `mapstructure:"max_wait_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindOTelEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.admin_port", 9464)
	v.SetDefault("server.read_header_timeout_seconds", 5)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("catalog.path", "cataloglist.txt")
	v.SetDefault("catalog.max_body_bytes", 512)
	v.SetDefault("search.endpoint", "https://api.duckduckgo.com/")
	v.SetDefault("search.timeout_seconds", 10)
	v.SetDefault("search.user_agent", "catalog-service/1.0")
	v.SetDefault("search.rate_limit_rps", 0)
	v.SetDefault("search.rate_limit_burst", 1)
	v.SetDefault("telemetry.service_name", "DefaultOTELService")
	v.SetDefault("telemetry.endpoint", "http://localhost:4317")
	v.SetDefault("telemetry.exporter", ExporterOTLP)
	v.SetDefault("telemetry.tracer_name", "catalog-service")
	v.SetDefault("telemetry.records.buffer_size", 4096)
	v.SetDefault("telemetry.records.max_batch", 256)
	v.SetDefault("telemetry.records.max_wait_ms", 500)
	v.SetDefault("logging.development", true)
}

// bindOTelEnv lets the standard OpenTelemetry variables override the
// prefixed ones, so the service drops into an existing collector setup.
func bindOTelEnv(v *viper.Viper) error {
	if err := v.BindEnv("telemetry.service_name", "OTEL_SERVICE_NAME", "CATALOG_TELEMETRY_SERVICE_NAME"); err != nil {
		return fmt.Errorf("bind service name env: %w", err)
	}
	if err := v.BindEnv(
		"telemetry.endpoint",
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		"CATALOG_TELEMETRY_ENDPOINT",
	); err != nil {
		return fmt.Errorf("bind traces endpoint env: %w", err)
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.AdminPort < 0 {
		return fmt.Errorf("server.admin_port must be >= 0")
	}
	if c.Server.AdminPort != 0 && c.Server.AdminPort == c.Server.Port {
		return fmt.Errorf("server.admin_port must differ from server.port")
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if c.Catalog.MaxBodyBytes <= 0 {
		return fmt.Errorf("catalog.max_body_bytes must be > 0")
	}
	if c.Search.Endpoint == "" {
		return fmt.Errorf("search.endpoint is required")
	}
	if c.Search.TimeoutSeconds < 0 {
		return fmt.Errorf("search.timeout_seconds must be >= 0")
	}
	if c.Search.RateLimitRPS < 0 {
		return fmt.Errorf("search.rate_limit_rps must be >= 0")
	}
	switch c.Telemetry.Exporter {
	case ExporterOTLP, ExporterNone:
	default:
		return fmt.Errorf("telemetry.exporter must be %q or %q, got %q", ExporterOTLP, ExporterNone, c.Telemetry.Exporter)
	}
	if c.Telemetry.Exporter == ExporterOTLP && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint must be set when the otlp exporter is enabled")
	}
	return nil
}

// SearchTimeout converts the configured seconds into a client timeout. Zero
// disables the timeout.
func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful drain of both listeners.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// RecordsMaxWait converts the batch wait to a duration.
func (c Config) RecordsMaxWait() time.Duration {
	return time.Duration(c.Telemetry.Records.MaxWaitMs) * time.Millisecond
}
