package api

import (
	"github.com/pspwatch/pspwatch/server/internal/alerts"
	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// envelope wraps every API response body.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Status           string `json:"status"`
	TransactionCount int64  `json:"transaction_count"`
}

// CreatedResponse is the payload for POST /api/transactions.
type CreatedResponse struct {
	TransactionID string `json:"transaction_id"`
}

// HealthListResponse is the payload for GET /api/health.
type HealthListResponse struct {
	PSPs []compute.PSPHealth `json:"psps"`
}

// ScoresResponse is the payload for GET /api/health/scores.
type ScoresResponse struct {
	Scores []compute.PSPHealthScore `json:"scores"`
}

// MethodsResponse is the payload for GET /api/health/{psp}/methods.
type MethodsResponse struct {
	PSP     string               `json:"psp"`
	Methods []compute.PSPMetrics `json:"methods"`
}

// BandStrings renders one threshold band.
type BandStrings struct {
	Unhealthy string `json:"unhealthy"`
	Degraded  string `json:"degraded"`
}

// ThresholdStrings is the payload for GET /api/alerts/config.
type ThresholdStrings struct {
	Thresholds struct {
		TimeoutRate       BandStrings `json:"timeout_rate"`
		AvgResponseTimeMs BandStrings `json:"avg_response_time_ms"`
		ErrorRate         BandStrings `json:"error_rate"`
	} `json:"thresholds"`
}

// ActiveResponse is the payload for GET /api/alerts/active.
type ActiveResponse struct {
	Alerts []alerts.Alert `json:"alerts"`
}

func thresholdStrings(th compute.Thresholds) ThresholdStrings {
	var out ThresholdStrings
	out.Thresholds.TimeoutRate = BandStrings{
		Unhealthy: "> " + compute.FormatRate(th.TimeoutRate.Unhealthy),
		Degraded:  "> " + compute.FormatRate(th.TimeoutRate.Degraded),
	}
	out.Thresholds.AvgResponseTimeMs = BandStrings{
		Unhealthy: "> " + compute.FormatMillis(th.AvgResponseTimeMs.Unhealthy),
		Degraded:  "> " + compute.FormatMillis(th.AvgResponseTimeMs.Degraded),
	}
	out.Thresholds.ErrorRate = BandStrings{
		Unhealthy: "> " + compute.FormatRate(th.ErrorRate.Unhealthy),
		Degraded:  "> " + compute.FormatRate(th.ErrorRate.Degraded),
	}
	return out
}
