package alerts

import (
	"strconv"
	"strings"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// evalCondition evaluates a rule condition string against one PSP's health.
//
// Supported expressions (field operator value):
//
//	timeout_rate > 0.2
//	error_rate >= 0.05
//	success_rate < 0.9
//	avg_response_time_ms > 10000
//	p95_response_time_ms > 25000
//	total_transactions < 10
//	status == unhealthy
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, h compute.PSPHealth) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "status" {
		want, err := compute.ParseHealthStatus(rhs)
		if err != nil {
			return false, 0
		}
		switch op {
		case "==":
			return h.Status == want, float64(h.Status)
		case "!=":
			return h.Status != want, float64(h.Status)
		}
		return false, 0
	}

	v, ok := numericField(field, h.Metrics)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// validCondition reports whether cond parses and names a known field.
func validCondition(cond string) bool {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false
	}
	if parts[0] == "status" {
		_, err := compute.ParseHealthStatus(parts[2])
		return err == nil && (parts[1] == "==" || parts[1] == "!=")
	}
	if _, ok := numericField(parts[0], compute.PSPMetrics{}); !ok {
		return false
	}
	if _, err := strconv.ParseFloat(parts[2], 64); err != nil {
		return false
	}
	switch parts[1] {
	case ">", ">=", "<", "<=", "==":
		return true
	}
	return false
}

// numericField maps a field name to its value in the metrics record.
func numericField(field string, m compute.PSPMetrics) (float64, bool) {
	switch field {
	case "timeout_rate":
		return m.TimeoutRate, true
	case "error_rate":
		return m.ErrorRate, true
	case "success_rate":
		return m.SuccessRate, true
	case "avg_response_time_ms":
		return m.AvgResponseTimeMs, true
	case "p95_response_time_ms":
		return m.P95ResponseTimeMs, true
	case "total_transactions":
		return float64(m.TotalTransactions), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
