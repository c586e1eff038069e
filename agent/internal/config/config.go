package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultInterval       = 5 * time.Second
	DefaultShipInterval   = 2 * time.Second
	DefaultReportInterval = time.Minute
	DefaultBatchSize      = 500
	DefaultBufferSize     = 5000
	DefaultCurrency       = "KES"
	DefaultRecent         = 3 * time.Hour
	DefaultBaseline       = 24 * time.Hour
	DefaultRecentCount    = 60
	DefaultBaselineCount  = 40

	// MaxBatchSize is the largest bulk request the server accepts.
	MaxBatchSize = 1000
)

// Traffic profiles understood by the simulator.
const (
	ProfileHealthy = "healthy"
	ProfileTimeout = "timeout"
	ProfileSlow    = "slow"
)

// DefaultPaymentMethods is used when payment_methods is empty.
var DefaultPaymentMethods = []string{"mpesa", "mtn_mobile_money", "airtel_money", "card", "bank_transfer"}

// DefaultPSPs is used when psps is empty: five healthy providers, one with
// a high timeout rate and one with slow responses.
var DefaultPSPs = []PSP{
	{Name: "FlutterWave", Profile: ProfileTimeout, Rate: 4, Currencies: []string{"NGN", "KES"}},
	{Name: "Paystack", Profile: ProfileHealthy, Rate: 3, Currencies: []string{"NGN"}},
	{Name: "DPO", Profile: ProfileSlow, Rate: 4, Currencies: []string{"KES", "ZAR"}},
	{Name: "PesaPal", Profile: ProfileHealthy, Rate: 3, Currencies: []string{"KES"}},
	{Name: "Interswitch", Profile: ProfileHealthy, Rate: 3, Currencies: []string{"NGN"}},
	{Name: "Cellulant", Profile: ProfileHealthy, Rate: 3, Currencies: []string{"KES", "NGN"}},
	{Name: "Ozow", Profile: ProfileHealthy, Rate: 3, Currencies: []string{"ZAR"}},
}

// Config is the top-level agent configuration. The `server:` key in the same
// file is ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerURL is the base URL of pspwatch-server, e.g. http://localhost:8080.
	ServerURL string `yaml:"server_url"`

	// ServerGRPC is the host:port of the server's gRPC health service. When
	// set, the agent waits for it to report SERVING before shipping.
	ServerGRPC string `yaml:"server_grpc"`

	// Interval controls how often a round of live traffic is generated.
	Interval time.Duration `yaml:"interval"`

	// ShipInterval controls how often buffered transactions are sent.
	ShipInterval time.Duration `yaml:"ship_interval"`

	// ReportInterval controls how often the server's /metrics view is logged.
	// Zero disables reporting.
	ReportInterval time.Duration `yaml:"report_interval"`

	// BatchSize is the maximum number of transactions per bulk request.
	BatchSize int `yaml:"batch_size"`

	// BufferSize is the maximum number of transactions held in memory when
	// the server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	PSPs           []PSP          `yaml:"psps"`
	PaymentMethods []string       `yaml:"payment_methods"`
	Backfill       BackfillConfig `yaml:"backfill"`

	// ServerAuth configures how the agent authenticates to pspwatch-server.
	ServerAuth AuthConfig `yaml:"server_auth"`

	TLS TLSConfig `yaml:"tls"`
}

// PSP describes one simulated payment service provider.
type PSP struct {
	Name string `yaml:"name"`

	// Profile is one of: healthy | timeout | slow.
	Profile string `yaml:"profile"`

	// Rate is the number of transactions generated per interval.
	Rate int `yaml:"rate"`

	// Currencies are picked from at random. Defaults to [KES].
	Currencies []string `yaml:"currencies"`
}

// BackfillConfig seeds history once at startup.
type BackfillConfig struct {
	Enabled bool `yaml:"enabled"`

	// Recent is the span, ending now, filled with profile traffic.
	Recent time.Duration `yaml:"recent"`

	// Baseline is the span before Recent filled with healthy traffic, so
	// trends show the profile's degradation.
	Baseline time.Duration `yaml:"baseline"`

	// RecentCount and BaselineCount are transactions per PSP in each span.
	RecentCount   int `yaml:"recent_count"`
	BaselineCount int `yaml:"baseline_count"`
}

// AuthConfig specifies how the agent authenticates to the server.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header carries the API key when Mode == "apikey". Defaults to x-api-key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
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

// TLSConfig holds TLS dial options for the server connection.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	fill(&cfg.Agent)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default scalar values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Interval:       DefaultInterval,
			ShipInterval:   DefaultShipInterval,
			ReportInterval: DefaultReportInterval,
			BatchSize:      DefaultBatchSize,
			BufferSize:     DefaultBufferSize,
			Backfill: BackfillConfig{
				Recent:        DefaultRecent,
				Baseline:      DefaultBaseline,
				RecentCount:   DefaultRecentCount,
				BaselineCount: DefaultBaselineCount,
			},
		},
	}
}

// fill applies list defaults, which yaml would otherwise replace wholesale.
func fill(a *AgentConfig) {
	if len(a.PSPs) == 0 {
		a.PSPs = append([]PSP(nil), DefaultPSPs...)
	}
	if len(a.PaymentMethods) == 0 {
		a.PaymentMethods = append([]string(nil), DefaultPaymentMethods...)
	}
	for i := range a.PSPs {
		if a.PSPs[i].Profile == "" {
			a.PSPs[i].Profile = ProfileHealthy
		}
		if len(a.PSPs[i].Currencies) == 0 {
			a.PSPs[i].Currencies = []string{DefaultCurrency}
		}
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerURL == "" {
		return fmt.Errorf("agent.server_url is required")
	}
	u, err := url.Parse(a.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("agent.server_url %q must be an absolute http(s) URL", a.ServerURL)
	}
	if a.Interval <= 0 {
		return fmt.Errorf("agent.interval must be positive")
	}
	if a.ShipInterval <= 0 {
		return fmt.Errorf("agent.ship_interval must be positive")
	}
	if a.ReportInterval < 0 {
		return fmt.Errorf("agent.report_interval must not be negative")
	}
	if a.BatchSize <= 0 || a.BatchSize > MaxBatchSize {
		return fmt.Errorf("agent.batch_size must be between 1 and %d", MaxBatchSize)
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	if len(a.PaymentMethods) == 0 {
		return fmt.Errorf("agent.payment_methods must not be empty")
	}

	seen := make(map[string]bool, len(a.PSPs))
	for i, p := range a.PSPs {
		if p.Name == "" {
			return fmt.Errorf("psps[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("psps[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		switch p.Profile {
		case ProfileHealthy, ProfileTimeout, ProfileSlow:
		default:
			return fmt.Errorf("psps[%d] %q: unknown profile %q", i, p.Name, p.Profile)
		}
		if p.Rate < 0 {
			return fmt.Errorf("psps[%d] %q: rate must not be negative", i, p.Name)
		}
		for _, c := range p.Currencies {
			if len(c) != 3 {
				return fmt.Errorf("psps[%d] %q: currency %q must be a 3-letter code", i, p.Name, c)
			}
		}
	}

	b := a.Backfill
	if b.Recent < 0 || b.Baseline < 0 || b.RecentCount < 0 || b.BaselineCount < 0 {
		return fmt.Errorf("agent.backfill values must not be negative")
	}

	switch a.ServerAuth.Mode {
	case "apikey":
		if a.ServerAuth.Key() == "" {
			return fmt.Errorf("agent.server_auth: apikey mode needs key_env naming a non-empty variable")
		}
	case "mtls", "none", "":
	default:
		return fmt.Errorf("agent.server_auth: unknown mode %q", a.ServerAuth.Mode)
	}
	return nil
}
