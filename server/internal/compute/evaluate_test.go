package compute

import (
	"encoding/json"
	"testing"
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name       string
		m          PSPMetrics
		wantStatus HealthStatus
		wantAlerts []AlertMessage
	}{
		{
			name:       "healthy",
			m:          PSPMetrics{TimeoutRate: 0.05, ErrorRate: 0.02, AvgResponseTimeMs: 1500},
			wantStatus: StatusHealthy,
		},
		{
			name:       "timeout rate equal to degraded bound is healthy",
			m:          PSPMetrics{TimeoutRate: 0.12},
			wantStatus: StatusHealthy,
		},
		{
			name:       "timeout rate equal to unhealthy bound is a warning",
			m:          PSPMetrics{TimeoutRate: 0.15},
			wantStatus: StatusDegraded,
			wantAlerts: []AlertMessage{{Metric: MetricTimeoutRate, Threshold: "> 12%", CurrentValue: 0.15, Severity: SeverityWarning}},
		},
		{
			name:       "timeout rate above unhealthy bound is critical",
			m:          PSPMetrics{TimeoutRate: 0.2},
			wantStatus: StatusUnhealthy,
			wantAlerts: []AlertMessage{{Metric: MetricTimeoutRate, Threshold: "> 15%", CurrentValue: 0.2, Severity: SeverityCritical}},
		},
		{
			name:       "slow responses",
			m:          PSPMetrics{AvgResponseTimeMs: 18000},
			wantStatus: StatusDegraded,
			wantAlerts: []AlertMessage{{Metric: MetricAvgResponseTime, Threshold: "> 16000ms", CurrentValue: 18000, Severity: SeverityWarning}},
		},
		{
			name:       "very slow responses",
			m:          PSPMetrics{AvgResponseTimeMs: 20000.01},
			wantStatus: StatusUnhealthy,
			wantAlerts: []AlertMessage{{Metric: MetricAvgResponseTime, Threshold: "> 20000ms", CurrentValue: 20000.01, Severity: SeverityCritical}},
		},
		{
			name:       "error rate warning",
			m:          PSPMetrics{ErrorRate: 0.09},
			wantStatus: StatusDegraded,
			wantAlerts: []AlertMessage{{Metric: MetricErrorRate, Threshold: "> 8%", CurrentValue: 0.09, Severity: SeverityWarning}},
		},
		{
			name:       "warning and critical together",
			m:          PSPMetrics{TimeoutRate: 0.13, AvgResponseTimeMs: 500, ErrorRate: 0.2},
			wantStatus: StatusUnhealthy,
			wantAlerts: []AlertMessage{
				{Metric: MetricTimeoutRate, Threshold: "> 12%", CurrentValue: 0.13, Severity: SeverityWarning},
				{Metric: MetricErrorRate, Threshold: "> 10%", CurrentValue: 0.2, Severity: SeverityCritical},
			},
		},
		{
			name:       "all three breached in order",
			m:          PSPMetrics{TimeoutRate: 0.3, AvgResponseTimeMs: 25000, ErrorRate: 0.09},
			wantStatus: StatusUnhealthy,
			wantAlerts: []AlertMessage{
				{Metric: MetricTimeoutRate, Threshold: "> 15%", CurrentValue: 0.3, Severity: SeverityCritical},
				{Metric: MetricAvgResponseTime, Threshold: "> 20000ms", CurrentValue: 25000, Severity: SeverityCritical},
				{Metric: MetricErrorRate, Threshold: "> 8%", CurrentValue: 0.09, Severity: SeverityWarning},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, alerts := Classify(tt.m, th)
			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if alerts == nil {
				t.Fatal("alerts is nil, want empty slice")
			}
			if len(alerts) != len(tt.wantAlerts) {
				t.Fatalf("len(alerts) = %d, want %d: %+v", len(alerts), len(tt.wantAlerts), alerts)
			}
			for i := range alerts {
				if alerts[i] != tt.wantAlerts[i] {
					t.Errorf("alerts[%d] = %+v, want %+v", i, alerts[i], tt.wantAlerts[i])
				}
			}
		})
	}
}

func TestClassify_AtMostOneAlertPerMetric(t *testing.T) {
	m := PSPMetrics{TimeoutRate: 1, AvgResponseTimeMs: 1e9, ErrorRate: 1}
	_, alerts := Classify(m, DefaultThresholds())
	seen := map[string]bool{}
	for _, a := range alerts {
		if seen[a.Metric] {
			t.Errorf("metric %s alerted twice", a.Metric)
		}
		seen[a.Metric] = true
	}
}

func TestEvaluate(t *testing.T) {
	m := PSPMetrics{PSP: "FlutterWave", TimeoutRate: 0.25}
	h := Evaluate(m, DefaultThresholds())
	if h.PSP != "FlutterWave" {
		t.Errorf("PSP = %q, want FlutterWave", h.PSP)
	}
	if h.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", h.Status)
	}
	if len(h.Alerts) != 1 {
		t.Errorf("len(Alerts) = %d, want 1", len(h.Alerts))
	}

	b, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded struct {
		Status string `json:"status"`
		Alerts []struct {
			Severity string `json:"severity"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Status != "unhealthy" || decoded.Alerts[0].Severity != "critical" {
		t.Errorf("json = %s", b)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatRate(0.12), "12%"},
		{FormatRate(0.15), "15%"},
		{FormatRate(0.08), "8%"},
		{FormatRate(0.125), "12.5%"},
		{FormatMillis(20000), "20000ms"},
		{FormatMillis(1500.5), "1500.5ms"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseHealthStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseHealthStatus(s.String())
		if err != nil {
			t.Fatalf("ParseHealthStatus(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("ParseHealthStatus(%q) = %v, want %v", s, got, s)
		}
	}
	if _, err := ParseHealthStatus("unknown"); err == nil {
		t.Error("expected error for unknown status")
	}
}
