package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// pspMetrics is a trimmed pspwatch-server exposition for two PSPs.
const pspMetrics = `
# HELP go_goroutines Number of goroutines that currently exist.
# TYPE go_goroutines gauge
go_goroutines 12
# HELP pspwatch_psp_health_score Composite health score from 0 to 100.
# TYPE pspwatch_psp_health_score gauge
pspwatch_psp_health_score{psp="FlutterWave"} 41.5
pspwatch_psp_health_score{psp="Paystack"} 96
# HELP pspwatch_psp_p95_response_time_ms 95th percentile response time in milliseconds.
# TYPE pspwatch_psp_p95_response_time_ms gauge
pspwatch_psp_p95_response_time_ms{psp="FlutterWave"} 31000
pspwatch_psp_p95_response_time_ms{psp="Paystack"} 4800
# HELP pspwatch_psp_status Health classification: 0 healthy, 1 degraded, 2 unhealthy.
# TYPE pspwatch_psp_status gauge
pspwatch_psp_status{psp="FlutterWave"} 2
pspwatch_psp_status{psp="Paystack"} 0
# HELP pspwatch_psp_timeout_rate Share of transactions that timed out.
# TYPE pspwatch_psp_timeout_rate gauge
pspwatch_psp_timeout_rate{psp="FlutterWave"} 0.22
pspwatch_psp_timeout_rate{psp="Paystack"} 0.01
# HELP pspwatch_psp_transactions Transactions recorded in the evaluation window.
# TYPE pspwatch_psp_transactions gauge
pspwatch_psp_transactions{psp="FlutterWave"} 80
pspwatch_psp_transactions{psp="Paystack"} 60
`

func serve(t *testing.T, code int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != metricsPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestScrape_Reports(t *testing.T) {
	s := New(serve(t, http.StatusOK, pspMetrics)+"/", http.DefaultClient)

	rs, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("len(reports) = %d, want 2", len(rs))
	}

	fw := rs[0]
	if fw.PSP != "FlutterWave" {
		t.Fatalf("reports[0].PSP = %q, want FlutterWave (sorted)", fw.PSP)
	}
	if fw.Status != "unhealthy" {
		t.Errorf("FlutterWave status = %q, want unhealthy", fw.Status)
	}
	if fw.Score != 41.5 {
		t.Errorf("FlutterWave score = %v, want 41.5", fw.Score)
	}
	if fw.TimeoutRate != 0.22 {
		t.Errorf("FlutterWave timeout rate = %v, want 0.22", fw.TimeoutRate)
	}
	if fw.P95ResponseTimeMs != 31000 {
		t.Errorf("FlutterWave p95 = %v, want 31000", fw.P95ResponseTimeMs)
	}
	if fw.Transactions != 80 {
		t.Errorf("FlutterWave transactions = %v, want 80", fw.Transactions)
	}

	if ps := rs[1]; ps.PSP != "Paystack" || ps.Status != "healthy" || ps.Score != 96 {
		t.Errorf("Paystack = %+v, want healthy with score 96", ps)
	}
}

func TestScrape_EmptyExposition(t *testing.T) {
	s := New(serve(t, http.StatusOK, ""), http.DefaultClient)

	rs, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(rs) != 0 {
		t.Errorf("len(reports) = %d, want 0", len(rs))
	}
}

func TestScrape_MissingStatusIsUnknown(t *testing.T) {
	body := "# TYPE pspwatch_psp_health_score gauge\npspwatch_psp_health_score{psp=\"Ozow\"} 80\n"
	s := New(serve(t, http.StatusOK, body), http.DefaultClient)

	rs, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(rs) != 1 || rs[0].Status != "unknown" {
		t.Errorf("reports = %+v, want one report with status unknown", rs)
	}
}

func TestScrape_ServerError(t *testing.T) {
	s := New(serve(t, http.StatusInternalServerError, "collect failed"), http.DefaultClient)

	if _, err := s.Scrape(context.Background()); err == nil {
		t.Error("Scrape() expected error for 500 response")
	}
}

func TestScrape_Unreachable(t *testing.T) {
	s := New("http://127.0.0.1:1", http.DefaultClient)

	if _, err := s.Scrape(context.Background()); err == nil {
		t.Error("Scrape() expected error for unreachable server")
	}
}
