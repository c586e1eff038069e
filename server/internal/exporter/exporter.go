package exporter

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// Namespace prefixes every exported metric name.
const Namespace = "pspwatch_psp_"

// CollectFunc returns the current health and score of every PSP.
type CollectFunc func(ctx context.Context) ([]compute.PSPHealth, []compute.PSPHealthScore, error)

type gauge struct {
	name  string
	help  string
	value func(h compute.PSPHealth, s compute.PSPHealthScore) float64
}

var gauges = []gauge{
	{"transactions", "Transactions recorded in the evaluation window.",
		func(h compute.PSPHealth, _ compute.PSPHealthScore) float64 { return float64(h.Metrics.TotalTransactions) }},
	{"timeout_rate", "Share of transactions that timed out.",
		func(h compute.PSPHealth, _ compute.PSPHealthScore) float64 { return h.Metrics.TimeoutRate }},
	{"error_rate", "Share of transactions that errored.",
		func(h compute.PSPHealth, _ compute.PSPHealthScore) float64 { return h.Metrics.ErrorRate }},
	{"success_rate", "Share of resolved transactions that succeeded.",
		func(h compute.PSPHealth, _ compute.PSPHealthScore) float64 { return h.Metrics.SuccessRate }},
	{"avg_response_time_ms", "Mean response time in milliseconds.",
		func(h compute.PSPHealth, _ compute.PSPHealthScore) float64 { return h.Metrics.AvgResponseTimeMs }},
	{"p95_response_time_ms", "95th percentile response time in milliseconds.",
		func(h compute.PSPHealth, _ compute.PSPHealthScore) float64 { return h.Metrics.P95ResponseTimeMs }},
	{"health_score", "Composite health score from 0 to 100.",
		func(_ compute.PSPHealth, s compute.PSPHealthScore) float64 { return s.Score }},
	{"status", "Health classification: 0 healthy, 1 degraded, 2 unhealthy.",
		func(h compute.PSPHealth, _ compute.PSPHealthScore) float64 { return float64(h.Status) }},
}

// Families converts health and scores into metric families sorted by name.
// Families are omitted entirely when health is empty.
// Scores are matched to health records by PSP; a PSP without a score reports
// a health_score of 0.
func Families(health []compute.PSPHealth, scores []compute.PSPHealthScore) []*dto.MetricFamily {
	byPSP := make(map[string]compute.PSPHealthScore, len(scores))
	for _, s := range scores {
		byPSP[s.PSP] = s
	}

	sorted := append([]compute.PSPHealth(nil), health...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PSP < sorted[j].PSP })

	out := make([]*dto.MetricFamily, 0, len(gauges))
	for _, g := range gauges {
		mf := &dto.MetricFamily{
			Name: proto.String(Namespace + g.name),
			Help: proto.String(g.help),
			Type: dto.MetricType_GAUGE.Enum(),
		}
		for _, h := range sorted {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: []*dto.LabelPair{{Name: proto.String("psp"), Value: proto.String(h.PSP)}},
				Gauge: &dto.Gauge{Value: proto.Float64(g.value(h, byPSP[h.PSP]))},
			})
		}
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Handler returns an http.Handler that writes the text exposition.
func Handler(collect CollectFunc) http.Handler {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		health, scores, err := collect(r.Context())
		if err != nil {
			slog.Error("exporter: collect failed", "err", err)
			http.Error(w, "collect failed", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range Families(health, scores) {
			if err := enc.Encode(mf); err != nil {
				slog.Error("exporter: encode failed", "metric", mf.GetName(), "err", err)
				http.Error(w, "encode failed", http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", string(format))
		w.Write(buf.Bytes()) //nolint:errcheck
	})
}
