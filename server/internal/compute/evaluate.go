package compute

import (
	"fmt"
	"strconv"
)

// Metric names carried by AlertMessage.Metric.
const (
	MetricTimeoutRate     = "timeout_rate"
	MetricAvgResponseTime = "avg_response_time_ms"
	MetricErrorRate       = "error_rate"
)

// Classify checks m against th and returns the derived status together with
// one alert per breached metric. Alerts are ordered timeout rate, average
// response time, error rate. The returned slice is never nil.
func Classify(m PSPMetrics, th Thresholds) (HealthStatus, []AlertMessage) {
	alerts := make([]AlertMessage, 0, 3)

	checks := []struct {
		metric string
		value  float64
		band   Band
		format func(float64) string
	}{
		{MetricTimeoutRate, m.TimeoutRate, th.TimeoutRate, FormatRate},
		{MetricAvgResponseTime, m.AvgResponseTimeMs, th.AvgResponseTimeMs, FormatMillis},
		{MetricErrorRate, m.ErrorRate, th.ErrorRate, FormatRate},
	}
	for _, c := range checks {
		switch {
		case c.value > c.band.Unhealthy:
			alerts = append(alerts, AlertMessage{
				Metric:       c.metric,
				Threshold:    "> " + c.format(c.band.Unhealthy),
				CurrentValue: c.value,
				Severity:     SeverityCritical,
			})
		case c.value > c.band.Degraded:
			alerts = append(alerts, AlertMessage{
				Metric:       c.metric,
				Threshold:    "> " + c.format(c.band.Degraded),
				CurrentValue: c.value,
				Severity:     SeverityWarning,
			})
		}
	}

	return statusOf(alerts), alerts
}

// Evaluate classifies m and bundles the result.
func Evaluate(m PSPMetrics, th Thresholds) PSPHealth {
	status, alerts := Classify(m, th)
	return PSPHealth{
		PSP:     m.PSP,
		Status:  status,
		Metrics: m,
		Alerts:  alerts,
	}
}

func statusOf(alerts []AlertMessage) HealthStatus {
	status := StatusHealthy
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			return StatusUnhealthy
		case SeverityWarning:
			status = StatusDegraded
		}
	}
	return status
}

// FormatRate renders a fractional rate as a percentage, e.g. 0.15 → "15%".
func FormatRate(v float64) string {
	return strconv.FormatFloat(round(v*100, 4), 'f', -1, 64) + "%"
}

// FormatMillis renders a duration in milliseconds, e.g. 20000 → "20000ms".
func FormatMillis(v float64) string {
	return fmt.Sprintf("%sms", strconv.FormatFloat(v, 'f', -1, 64))
}
