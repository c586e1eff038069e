package compute

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		name          string
		m             PSPMetrics
		wantScore     float64
		wantBreakdown Breakdown
	}{
		{
			name:          "perfect",
			m:             PSPMetrics{SuccessRate: 1},
			wantScore:     100,
			wantBreakdown: Breakdown{30, 30, 20, 20},
		},
		{
			name: "healthy with one second latency",
			// 30 + 30 + 20 + (1 - 1000/30000)*20 = 99.33
			m:             PSPMetrics{SuccessRate: 1, AvgResponseTimeMs: 1000},
			wantScore:     99.3,
			wantBreakdown: Breakdown{30, 30, 20, 19.33},
		},
		{
			name: "degraded mix",
			// 27 + 28.5 + 18 + 10
			m:             PSPMetrics{TimeoutRate: 0.1, ErrorRate: 0.05, SuccessRate: 0.9, AvgResponseTimeMs: 15000},
			wantScore:     83.5,
			wantBreakdown: Breakdown{27, 28.5, 18, 10},
		},
		{
			name: "all timeouts",
			// timeout_rate 1 zeroes the timeout component; latency beyond the
			// ceiling zeroes the response time component.
			m:             PSPMetrics{TimeoutRate: 1, AvgResponseTimeMs: 50000},
			wantScore:     30,
			wantBreakdown: Breakdown{0, 30, 0, 0},
		},
		{
			name:          "worst case",
			m:             PSPMetrics{TimeoutRate: 0.5, ErrorRate: 0.5, AvgResponseTimeMs: 60000},
			wantScore:     30,
			wantBreakdown: Breakdown{15, 15, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, b := Score(tt.m)
			if !almostEqual(score, tt.wantScore, 1e-9) {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			pairs := []struct {
				name      string
				got, want float64
			}{
				{"timeout", b.TimeoutComponent, tt.wantBreakdown.TimeoutComponent},
				{"error", b.ErrorComponent, tt.wantBreakdown.ErrorComponent},
				{"success", b.SuccessComponent, tt.wantBreakdown.SuccessComponent},
				{"response time", b.ResponseTimeComponent, tt.wantBreakdown.ResponseTimeComponent},
			}
			for _, p := range pairs {
				if !almostEqual(p.got, p.want, 1e-9) {
					t.Errorf("%s component = %v, want %v", p.name, p.got, p.want)
				}
			}
		})
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	rates := []float64{0, 0.01, 0.1, 0.5, 0.99, 1}
	times := []float64{0, 1, 15000, 29999, 30000, 1e7}
	for _, tr := range rates {
		for _, er := range rates {
			for _, sr := range rates {
				for _, avg := range times {
					m := PSPMetrics{TimeoutRate: tr, ErrorRate: er, SuccessRate: sr, AvgResponseTimeMs: avg}
					score, b := Score(m)
					if score < 0 || score > 100 {
						t.Fatalf("score %v out of range for %+v", score, m)
					}
					if b.ResponseTimeComponent < 0 {
						t.Fatalf("negative response time component for %+v", m)
					}
				}
			}
		}
	}
}

func TestScoreHealth(t *testing.T) {
	m := PSPMetrics{PSP: "DPO", SuccessRate: 0.95, AvgResponseTimeMs: 18000}
	got := ScoreHealth(m, DefaultThresholds())
	if got.PSP != "DPO" {
		t.Errorf("PSP = %q, want DPO", got.PSP)
	}
	if got.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", got.Status)
	}
	// 30 + 30 + 19 + (1 - 0.6)*20 = 87
	if !almostEqual(got.Score, 87, 1e-9) {
		t.Errorf("Score = %v, want 87", got.Score)
	}
}
