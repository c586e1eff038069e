package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// AlertsConfig controls PSP status alerting and webhook delivery targets.
type AlertsConfig struct {
	// EvaluateInterval is how often every PSP's health is re-evaluated for
	// status transitions. Default: 1m.
	EvaluateInterval time.Duration `yaml:"evaluate_interval"`

	// Cooldown suppresses re-fires for the same PSP after an alert fires.
	// Default: 15m.
	Cooldown time.Duration `yaml:"cooldown"`

	// Rules are extra per-PSP threshold checks on top of status alerts.
	Rules []AlertRule `yaml:"rules"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition evaluated per PSP.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "p95_response_time_ms > 25000",
	// "success_rate < 0.8", "status == unhealthy".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning. Defaults to warning.
	Severity string `yaml:"severity"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultGRPCPort              = 50051
	DefaultHTTPPort              = 8080
	DefaultLogLevel              = "info"
	DefaultWindowMinutes         = 60
	DefaultStorageBackend        = "sqlite"
	DefaultStoragePath           = "./data/payments.db"
	DefaultPurgeInterval         = time.Hour
	DefaultEventsBackend         = "local"
	DefaultEventsChannel         = "pspwatch:events"
	DefaultStreamInterval        = 5 * time.Second
	DefaultAlertEvaluateInterval = time.Minute
	DefaultAlertCooldown         = 15 * time.Minute
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort serves the REST API, the event stream and /metrics (default 8080).
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the grpc.health.v1 probe service (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// DefaultWindowMinutes is the evaluation window used when a request
	// carries no from/to bounds.
	DefaultWindowMinutes int `yaml:"default_window_minutes"`

	Auth       AuthConfig         `yaml:"auth"`
	Thresholds compute.Thresholds `yaml:"thresholds"`
	Storage    StorageConfig      `yaml:"storage"`
	Events     EventsConfig       `yaml:"events"`
	Stream     StreamConfig       `yaml:"stream"`
	Alerts     AlertsConfig       `yaml:"alerts"`
}

// DefaultWindow returns DefaultWindowMinutes as a duration.
func (s ServerConfig) DefaultWindow() time.Duration {
	return time.Duration(s.DefaultWindowMinutes) * time.Minute
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StorageConfig selects and configures the transaction store.
type StorageConfig struct {
	// Backend is one of: sqlite | postgres.
	Backend string `yaml:"backend"`

	// Path is the SQLite database file. Ignored for postgres.
	Path string `yaml:"path"`

	// DSNEnv names the environment variable holding the postgres connection
	// string. Required when Backend == "postgres".
	DSNEnv string `yaml:"dsn_env"`

	// Retention deletes transactions older than this. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`

	// PurgeInterval is how often the retention sweep runs. Default: 1h.
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

// DSN returns the driver connection string for the configured backend.
func (s StorageConfig) DSN() string {
	if s.Backend == "postgres" {
		if s.DSNEnv == "" {
			return ""
		}
		return os.Getenv(s.DSNEnv)
	}
	return s.Path
}

// EventsConfig selects the event bus that feeds the realtime stream.
type EventsConfig struct {
	// Backend is one of: local | redis.
	Backend string `yaml:"backend"`

	// RedisAddr is host:port of the Redis server. Required for the redis backend.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPasswordEnv names the environment variable holding the Redis password.
	RedisPasswordEnv string `yaml:"redis_password_env"`

	// Channel is the Redis pub/sub channel. Default: pspwatch:events.
	Channel string `yaml:"channel"`
}

// RedisPassword returns the Redis password resolved from the environment.
func (e EventsConfig) RedisPassword() string {
	if e.RedisPasswordEnv == "" {
		return ""
	}
	return os.Getenv(e.RedisPasswordEnv)
}

// StreamConfig controls the websocket event stream.
type StreamConfig struct {
	// Interval is how often a health summary is broadcast. Default: 5s.
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort:             DefaultGRPCPort,
			HTTPPort:             DefaultHTTPPort,
			LogLevel:             DefaultLogLevel,
			DefaultWindowMinutes: DefaultWindowMinutes,
			Thresholds:           compute.DefaultThresholds(),
			Storage: StorageConfig{
				Backend:       DefaultStorageBackend,
				Path:          DefaultStoragePath,
				PurgeInterval: DefaultPurgeInterval,
			},
			Events: EventsConfig{
				Backend: DefaultEventsBackend,
				Channel: DefaultEventsChannel,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
			Alerts: AlertsConfig{
				EvaluateInterval: DefaultAlertEvaluateInterval,
				Cooldown:         DefaultAlertCooldown,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	if s.DefaultWindowMinutes <= 0 {
		return fmt.Errorf("server.default_window_minutes must be positive")
	}
	switch s.Auth.Mode {
	case "apikey":
		if s.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required when mode is apikey")
		}
		if s.Auth.Key() == "" {
			return fmt.Errorf("server.auth.key_env: %s is unset or empty", s.Auth.KeyEnv)
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if err := validateThresholds(s.Thresholds); err != nil {
		return err
	}

	switch s.Storage.Backend {
	case "sqlite":
		if s.Storage.Path == "" {
			return fmt.Errorf("server.storage.path is required for the sqlite backend")
		}
	case "postgres":
		if s.Storage.DSNEnv == "" {
			return fmt.Errorf("server.storage.dsn_env is required for the postgres backend")
		}
	default:
		return fmt.Errorf("server.storage.backend %q unknown: want sqlite|postgres", s.Storage.Backend)
	}
	if s.Storage.Retention < 0 {
		return fmt.Errorf("server.storage.retention must not be negative")
	}
	if s.Storage.PurgeInterval <= 0 {
		return fmt.Errorf("server.storage.purge_interval must be positive")
	}

	switch s.Events.Backend {
	case "local":
	case "redis":
		if s.Events.RedisAddr == "" {
			return fmt.Errorf("server.events.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("server.events.backend %q unknown: want local|redis", s.Events.Backend)
	}
	if s.Events.Channel == "" {
		return fmt.Errorf("server.events.channel must not be empty")
	}

	if s.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	if s.Alerts.EvaluateInterval <= 0 {
		return fmt.Errorf("server.alerts.evaluate_interval must be positive")
	}
	if s.Alerts.Cooldown < 0 {
		return fmt.Errorf("server.alerts.cooldown must not be negative")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] needs a name and a condition", i)
		}
		switch r.Severity {
		case "", "warning", "critical":
		default:
			return fmt.Errorf("server.alerts.rules[%d].severity %q unknown: want warning|critical", i, r.Severity)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d].type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}

func validateThresholds(th compute.Thresholds) error {
	bands := []struct {
		name string
		band compute.Band
	}{
		{"timeout_rate", th.TimeoutRate},
		{"avg_response_time_ms", th.AvgResponseTimeMs},
		{"error_rate", th.ErrorRate},
	}
	for _, b := range bands {
		if b.band.Degraded < 0 || b.band.Unhealthy < 0 {
			return fmt.Errorf("server.thresholds.%s must not be negative", b.name)
		}
		if b.band.Degraded > b.band.Unhealthy {
			return fmt.Errorf("server.thresholds.%s.degraded (%v) exceeds unhealthy (%v)",
				b.name, b.band.Degraded, b.band.Unhealthy)
		}
	}
	return nil
}
