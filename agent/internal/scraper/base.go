package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	namespace   = "pspwatch_psp_"
	metricsPath = "/metrics"
)

// statusNames maps the numeric status gauge back to its label.
var statusNames = []string{"healthy", "degraded", "unhealthy"}

// Report is one PSP's health as read from the server's metrics exposition.
type Report struct {
	PSP               string
	Status            string
	Score             float64
	Transactions      float64
	TimeoutRate       float64
	ErrorRate         float64
	SuccessRate       float64
	AvgResponseTimeMs float64
	P95ResponseTimeMs float64
}

// Scraper reads PSP health from pspwatch-server's /metrics endpoint.
type Scraper struct {
	client *http.Client
	url    string
}

// New returns a Scraper for the server at serverURL. client carries the
// configured auth and TLS settings.
func New(serverURL string, client *http.Client) *Scraper {
	return &Scraper{
		client: client,
		url:    strings.TrimRight(serverURL, "/") + metricsPath,
	}
}

// Scrape fetches the exposition and returns one Report per PSP, sorted by
// PSP.
func (s *Scraper) Scrape(ctx context.Context) ([]Report, error) {
	mfs, err := fetchMetrics(ctx, s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}
	return reports(mfs), nil
}

// Run logs a health line per PSP every interval until ctx is cancelled.
// Scrape failures are logged and retried on the next tick.
func (s *Scraper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		rs, err := s.Scrape(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("scraper: scrape failed", "url", s.url, "err", err)
			}
			continue
		}
		for _, r := range rs {
			level := slog.LevelInfo
			if r.Status != "healthy" {
				level = slog.LevelWarn
			}
			slog.Log(ctx, level, "psp health",
				"psp", r.PSP,
				"status", r.Status,
				"score", r.Score,
				"transactions", r.Transactions,
				"timeout_rate", r.TimeoutRate,
				"p95_ms", r.P95ResponseTimeMs)
		}
	}
}

// reports folds the pspwatch_psp_* gauge families into per-PSP reports.
func reports(mfs map[string]*dto.MetricFamily) []Report {
	byPSP := make(map[string]*Report)
	for name, mf := range mfs {
		field, ok := strings.CutPrefix(name, namespace)
		if !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			psp := label(m, "psp")
			if psp == "" {
				continue
			}
			r, ok := byPSP[psp]
			if !ok {
				r = &Report{PSP: psp, Status: "unknown"}
				byPSP[psp] = r
			}
			set(r, field, value(m))
		}
	}

	out := make([]Report, 0, len(byPSP))
	for _, r := range byPSP {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PSP < out[j].PSP })
	return out
}

func set(r *Report, field string, v float64) {
	switch field {
	case "status":
		if i := int(v); i >= 0 && i < len(statusNames) {
			r.Status = statusNames[i]
		}
	case "health_score":
		r.Score = v
	case "transactions":
		r.Transactions = v
	case "timeout_rate":
		r.TimeoutRate = v
	case "error_rate":
		r.ErrorRate = v
	case "success_rate":
		r.SuccessRate = v
	case "avg_response_time_ms":
		r.AvgResponseTimeMs = v
	case "p95_response_time_ms":
		r.P95ResponseTimeMs = v
	}
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func value(m *dto.Metric) float64 {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	}
	return 0
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric
// families. An empty body yields no families. A partial result with a
// non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}
