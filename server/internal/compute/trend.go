package compute

import "math"

// stableBand is the absolute percentage change below which a trend is stable.
const stableBand = 5.0

// pegged is reported when the baseline is zero and the current value is not,
// where a relative change is undefined.
const pegged = 100.0

// Trend compares current with baseline for a metric where higher is worse
// (timeout rate, error rate, response time).
func Trend(current, baseline float64) TrendDirection {
	return trend(current, baseline, false)
}

// TrendSuccessRate compares current with baseline for success rate, where
// higher is better.
func TrendSuccessRate(current, baseline float64) TrendDirection {
	return trend(current, baseline, true)
}

func trend(current, baseline float64, higherIsBetter bool) TrendDirection {
	up, down := DirectionWorsening, DirectionImproving
	if higherIsBetter {
		up, down = DirectionImproving, DirectionWorsening
	}

	if baseline == 0 {
		if current == 0 {
			return TrendDirection{Direction: DirectionStable, ChangePercent: 0}
		}
		return TrendDirection{Direction: up, ChangePercent: pegged}
	}

	change := round((current-baseline)/baseline*100, 2)
	switch {
	case math.Abs(change) < stableBand:
		return TrendDirection{Direction: DirectionStable, ChangePercent: change}
	case change > 0:
		return TrendDirection{Direction: up, ChangePercent: change}
	default:
		return TrendDirection{Direction: down, ChangePercent: change}
	}
}

// CompareTrends applies Trend and TrendSuccessRate to the four tracked
// dimensions of current against baseline.
func CompareTrends(current, baseline PSPMetrics) Trends {
	return Trends{
		TimeoutRate:     Trend(current.TimeoutRate, baseline.TimeoutRate),
		ErrorRate:       Trend(current.ErrorRate, baseline.ErrorRate),
		AvgResponseTime: Trend(current.AvgResponseTimeMs, baseline.AvgResponseTimeMs),
		SuccessRate:     TrendSuccessRate(current.SuccessRate, baseline.SuccessRate),
	}
}
