package compute

// Band holds the two bounds of one classified metric. A value strictly above
// Unhealthy is critical; a value strictly above Degraded is a warning.
type Band struct {
	Degraded  float64 `yaml:"degraded"  json:"degraded"`
	Unhealthy float64 `yaml:"unhealthy" json:"unhealthy"`
}

// Thresholds is the classification configuration for Classify.
// Rates are fractions in [0, 1]; AvgResponseTimeMs is in milliseconds.
type Thresholds struct {
	TimeoutRate       Band `yaml:"timeout_rate"         json:"timeout_rate"`
	AvgResponseTimeMs Band `yaml:"avg_response_time_ms" json:"avg_response_time_ms"`
	ErrorRate         Band `yaml:"error_rate"           json:"error_rate"`
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TimeoutRate:       Band{Degraded: 0.12, Unhealthy: 0.15},
		AvgResponseTimeMs: Band{Degraded: 16000, Unhealthy: 20000},
		ErrorRate:         Band{Degraded: 0.08, Unhealthy: 0.10},
	}
}
