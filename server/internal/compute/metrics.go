package compute

import "math"

// BuildMetrics converts raw counts into a PSPMetrics record for window.
// p95 is stored unmodified.
func BuildMetrics(row AggregatedRow, p95 float64, window TimeRange) PSPMetrics {
	var timeoutRate, errorRate, successRate float64
	if row.Total > 0 {
		timeoutRate = round(float64(row.Timeout)/float64(row.Total), 4)
		errorRate = round(float64(row.Error)/float64(row.Total), 4)
	}
	// Timeouts and errors never reached a decision, so they are left out of
	// the success denominator.
	if completed := row.Total - row.Timeout - row.Error; completed > 0 {
		successRate = round(float64(row.Approved)/float64(completed), 4)
	}

	return PSPMetrics{
		PSP:               row.PSP,
		PaymentMethod:     row.PaymentMethod,
		TotalTransactions: row.Total,
		ApprovedCount:     row.Approved,
		DeclinedCount:     row.Declined,
		TimeoutCount:      row.Timeout,
		ErrorCount:        row.Error,
		PendingCount:      row.Pending,
		TimeoutRate:       timeoutRate,
		ErrorRate:         errorRate,
		SuccessRate:       successRate,
		AvgResponseTimeMs: round(row.AvgResponseTime, 2),
		P95ResponseTimeMs: p95,
		TimeWindow:        window,
	}
}

// round rounds v to the given number of decimals, half away from zero.
func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
