package compute

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the wire format for window bounds: UTC with millisecond
// precision. It is fixed-width, so formatted values sort lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// TimeRange is a closed evaluation window. From must not be after To.
type TimeRange struct {
	From time.Time
	To   time.Time
}

type timeRangeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MarshalJSON renders both bounds in TimeLayout.
func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeRangeJSON{
		From: r.From.UTC().Format(TimeLayout),
		To:   r.To.UTC().Format(TimeLayout),
	})
}

// UnmarshalJSON accepts any RFC 3339 timestamp with an offset.
func (r *TimeRange) UnmarshalJSON(b []byte) error {
	var raw timeRangeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	from, err := time.Parse(time.RFC3339Nano, raw.From)
	if err != nil {
		return fmt.Errorf("time_window.from: %w", err)
	}
	to, err := time.Parse(time.RFC3339Nano, raw.To)
	if err != nil {
		return fmt.Errorf("time_window.to: %w", err)
	}
	r.From, r.To = from, to
	return nil
}

// AggregatedRow holds raw outcome counts for one PSP (and optionally one
// payment method) over a window, as produced by the storage layer.
// AvgResponseTime is the mean response time in milliseconds, 0 when Total is 0.
type AggregatedRow struct {
	PSP             string
	PaymentMethod   string
	Total           int64
	Approved        int64
	Declined        int64
	Timeout         int64
	Error           int64
	Pending         int64
	AvgResponseTime float64
}

// PSPMetrics is the normalised metrics record for one PSP over one window.
type PSPMetrics struct {
	PSP               string    `json:"psp"`
	PaymentMethod     string    `json:"payment_method,omitempty"`
	TotalTransactions int64     `json:"total_transactions"`
	ApprovedCount     int64     `json:"approved_count"`
	DeclinedCount     int64     `json:"declined_count"`
	TimeoutCount      int64     `json:"timeout_count"`
	ErrorCount        int64     `json:"error_count"`
	PendingCount      int64     `json:"pending_count"`
	TimeoutRate       float64   `json:"timeout_rate"`
	ErrorRate         float64   `json:"error_rate"`
	SuccessRate       float64   `json:"success_rate"`
	AvgResponseTimeMs float64   `json:"avg_response_time_ms"`
	P95ResponseTimeMs float64   `json:"p95_response_time_ms"`
	TimeWindow        TimeRange `json:"time_window"`
}

// AlertMessage describes one breached threshold.
type AlertMessage struct {
	Metric       string   `json:"metric"`
	Threshold    string   `json:"threshold"`
	CurrentValue float64  `json:"current_value"`
	Severity     Severity `json:"severity"`
}

// PSPHealth bundles a metrics record with its classification.
type PSPHealth struct {
	PSP     string         `json:"psp"`
	Status  HealthStatus   `json:"status"`
	Metrics PSPMetrics     `json:"metrics"`
	Alerts  []AlertMessage `json:"alerts"`
}

// TrendDirection is the comparison result for one tracked dimension.
type TrendDirection struct {
	Direction     Direction `json:"direction"`
	ChangePercent float64   `json:"change_percent"`
}

// Trends holds one TrendDirection per tracked dimension.
type Trends struct {
	TimeoutRate     TrendDirection `json:"timeout_rate"`
	ErrorRate       TrendDirection `json:"error_rate"`
	AvgResponseTime TrendDirection `json:"avg_response_time"`
	SuccessRate     TrendDirection `json:"success_rate"`
}

// TrendData compares a PSP's current window against its baseline window.
type TrendData struct {
	PSP            string     `json:"psp"`
	CurrentWindow  PSPMetrics `json:"current_window"`
	BaselineWindow PSPMetrics `json:"baseline_window"`
	Trends         Trends     `json:"trends"`
}

// Breakdown reports the weighted components of a health score.
type Breakdown struct {
	TimeoutComponent      float64 `json:"timeout_component"`
	ErrorComponent        float64 `json:"error_component"`
	SuccessComponent      float64 `json:"success_component"`
	ResponseTimeComponent float64 `json:"response_time_component"`
}

// PSPHealthScore is the composite score for one PSP.
type PSPHealthScore struct {
	PSP       string       `json:"psp"`
	Score     float64      `json:"score"`
	Status    HealthStatus `json:"status"`
	Breakdown Breakdown    `json:"breakdown"`
}
