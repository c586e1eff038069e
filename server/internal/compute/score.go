package compute

// Weight constants for the health score formula. They sum to 100.
const (
	weightTimeout      = 30.0
	weightError        = 30.0
	weightSuccess      = 20.0
	weightResponseTime = 20.0
)

// responseTimeCeilingMs is the average response time at which the response
// time component reaches zero.
const responseTimeCeilingMs = 30000.0

// Score calculates the composite health score for m.
//
// Formula:
//
//	score = (1 - timeout_rate)                    * 30 +
//	        (1 - error_rate)                      * 30 +
//	        success_rate                          * 20 +
//	        max(0, 1 - avg_response_time/30000)   * 20
//
// The score is rounded to one decimal and clamped to [0, 100]. Breakdown
// components are rounded to two decimals; their sum may differ from the score
// by rounding.
func Score(m PSPMetrics) (float64, Breakdown) {
	timeout := (1 - m.TimeoutRate) * weightTimeout
	errc := (1 - m.ErrorRate) * weightError
	success := m.SuccessRate * weightSuccess

	rtFactor := 1 - m.AvgResponseTimeMs/responseTimeCeilingMs
	if rtFactor < 0 {
		rtFactor = 0
	}
	rt := rtFactor * weightResponseTime

	score := clamp(round(timeout+errc+success+rt, 1), 0, 100)
	return score, Breakdown{
		TimeoutComponent:      round(timeout, 2),
		ErrorComponent:        round(errc, 2),
		SuccessComponent:      round(success, 2),
		ResponseTimeComponent: round(rt, 2),
	}
}

// ScoreHealth scores m and attaches the status Classify derives under th.
func ScoreHealth(m PSPMetrics, th Thresholds) PSPHealthScore {
	score, breakdown := Score(m)
	status, _ := Classify(m, th)
	return PSPHealthScore{
		PSP:       m.PSP,
		Score:     score,
		Status:    status,
		Breakdown: breakdown,
	}
}
