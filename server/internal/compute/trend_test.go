package compute

import "testing"

func TestTrend(t *testing.T) {
	tests := []struct {
		name          string
		current       float64
		baseline      float64
		successRate   bool
		wantDirection Direction
		wantChange    float64
	}{
		{"both zero", 0, 0, false, DirectionStable, 0},
		{"both zero success rate", 0, 0, true, DirectionStable, 0},
		{"zero baseline pegs worsening", 0.1, 0, false, DirectionWorsening, 100},
		{"zero baseline pegs improving for success rate", 0.9, 0, true, DirectionImproving, 100},
		{"doubled timeout rate", 0.2, 0.1, false, DirectionWorsening, 100},
		{"halved timeout rate", 0.05, 0.1, false, DirectionImproving, -50},
		{"small rise is stable", 0.104, 0.1, false, DirectionStable, 4},
		{"small drop is stable", 0.096, 0.1, false, DirectionStable, -4},
		{"five percent is not stable", 0.105, 0.1, false, DirectionWorsening, 5},
		{"dropped to zero", 0, 0.1, false, DirectionImproving, -100},
		{"success rate rise improves", 0.95, 0.9, true, DirectionImproving, 5.56},
		{"success rate drop worsens", 0.8, 0.9, true, DirectionWorsening, -11.11},
		{"response time rise", 12000, 8000, false, DirectionWorsening, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got TrendDirection
			if tt.successRate {
				got = TrendSuccessRate(tt.current, tt.baseline)
			} else {
				got = Trend(tt.current, tt.baseline)
			}
			if got.Direction != tt.wantDirection {
				t.Errorf("direction = %v, want %v", got.Direction, tt.wantDirection)
			}
			if !almostEqual(got.ChangePercent, tt.wantChange, 1e-9) {
				t.Errorf("change = %v, want %v", got.ChangePercent, tt.wantChange)
			}
		})
	}
}

// The same pair of values reads in opposite directions depending on whether
// higher is better; only the direction flips, the change is identical.
func TestTrend_SuccessRateMirrorsLowerIsBetter(t *testing.T) {
	lower := Trend(0.95, 0.80)
	higher := TrendSuccessRate(0.95, 0.80)

	if lower.Direction != DirectionWorsening {
		t.Errorf("Trend direction = %v, want worsening", lower.Direction)
	}
	if higher.Direction != DirectionImproving {
		t.Errorf("TrendSuccessRate direction = %v, want improving", higher.Direction)
	}
	for _, got := range []TrendDirection{lower, higher} {
		if !almostEqual(got.ChangePercent, 18.75, 1e-9) {
			t.Errorf("change = %v, want 18.75", got.ChangePercent)
		}
	}

	lower, higher = Trend(0.80, 0.95), TrendSuccessRate(0.80, 0.95)
	if lower.Direction != DirectionImproving || higher.Direction != DirectionWorsening {
		t.Errorf("reversed pair: got %v and %v, want improving and worsening", lower.Direction, higher.Direction)
	}
	if lower.ChangePercent != higher.ChangePercent {
		t.Errorf("reversed pair change differs: %v vs %v", lower.ChangePercent, higher.ChangePercent)
	}
}

func TestCompareTrends(t *testing.T) {
	current := PSPMetrics{TimeoutRate: 0.2, ErrorRate: 0.05, AvgResponseTimeMs: 1000, SuccessRate: 0.7}
	baseline := PSPMetrics{TimeoutRate: 0.1, ErrorRate: 0.05, AvgResponseTimeMs: 0, SuccessRate: 0.9}

	got := CompareTrends(current, baseline)

	if got.TimeoutRate.Direction != DirectionWorsening {
		t.Errorf("timeout direction = %v, want worsening", got.TimeoutRate.Direction)
	}
	if got.ErrorRate.Direction != DirectionStable || got.ErrorRate.ChangePercent != 0 {
		t.Errorf("error trend = %+v, want stable 0", got.ErrorRate)
	}
	if got.AvgResponseTime != (TrendDirection{Direction: DirectionWorsening, ChangePercent: 100}) {
		t.Errorf("avg response trend = %+v, want worsening 100", got.AvgResponseTime)
	}
	if got.SuccessRate.Direction != DirectionWorsening {
		t.Errorf("success direction = %v, want worsening", got.SuccessRate.Direction)
	}
}
