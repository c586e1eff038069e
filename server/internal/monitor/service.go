package monitor

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// ErrNoData is returned when a PSP has no transactions in the requested window.
var ErrNoData = errors.New("monitor: no data for psp")

// BaselineLookback is the length of the trend baseline window, which ends
// where the current window starts.
const BaselineLookback = 24 * time.Hour

// AlertSummary buckets every PSP in a window by health status.
type AlertSummary struct {
	Timestamp     string              `json:"timestamp"`
	UnhealthyPSPs []compute.PSPHealth `json:"unhealthy_psps"`
	DegradedPSPs  []compute.PSPHealth `json:"degraded_psps"`
	HealthyPSPs   []compute.PSPHealth `json:"healthy_psps"`
	TotalPSPs     int                 `json:"total_psps"`
}

// Service answers health queries over a Source.
type Service struct {
	snap       *Snapshotter
	thresholds atomic.Pointer[compute.Thresholds]
	window     time.Duration
	now        func() time.Time // injectable for deterministic tests
}

// NewService returns a Service reading from src. window is the default
// evaluation window used by DefaultRange.
func NewService(src Source, th compute.Thresholds, window time.Duration) *Service {
	s := &Service{
		snap:   NewSnapshotter(src),
		window: window,
		now:    time.Now,
	}
	s.thresholds.Store(&th)
	return s
}

// Thresholds returns the thresholds currently used for classification.
func (s *Service) Thresholds() compute.Thresholds {
	return *s.thresholds.Load()
}

// SetThresholds replaces the classification thresholds. Requests already in
// flight keep the thresholds they started with.
func (s *Service) SetThresholds(th compute.Thresholds) {
	s.thresholds.Store(&th)
}

// DefaultRange returns the window [now - default window, now].
func (s *Service) DefaultRange() compute.TimeRange {
	now := s.now()
	return compute.TimeRange{From: now.Add(-s.window), To: now}
}

// Resolve fills whichever bound is nil from DefaultRange. It does not check
// ordering; callers reject From after To.
func (s *Service) Resolve(from, to *time.Time) compute.TimeRange {
	r := s.DefaultRange()
	if from != nil {
		r.From = *from
	}
	if to != nil {
		r.To = *to
	}
	return r
}

// AllHealth classifies every PSP with transactions in r, ordered by PSP.
func (s *Service) AllHealth(ctx context.Context, r compute.TimeRange) ([]compute.PSPHealth, error) {
	metrics, err := s.snap.All(ctx, r)
	if err != nil {
		return nil, err
	}
	th := s.Thresholds()
	out := make([]compute.PSPHealth, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, compute.Evaluate(m, th))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PSP < out[j].PSP })
	return out, nil
}

// Health classifies one PSP. It returns ErrNoData when psp has no
// transactions in r.
func (s *Service) Health(ctx context.Context, psp string, r compute.TimeRange) (compute.PSPHealth, error) {
	m, found, err := s.snap.PSP(ctx, psp, r)
	if err != nil {
		return compute.PSPHealth{}, err
	}
	if !found {
		return compute.PSPHealth{}, ErrNoData
	}
	return compute.Evaluate(m, s.Thresholds()), nil
}

// Methods returns per-payment-method metrics for psp, ordered by method.
// It returns ErrNoData when psp has no transactions in r.
func (s *Service) Methods(ctx context.Context, psp string, r compute.TimeRange) ([]compute.PSPMetrics, error) {
	out, err := s.snap.ByMethod(ctx, psp, r)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentMethod < out[j].PaymentMethod })
	return out, nil
}

// Trends compares psp over r with the BaselineLookback window that ends at
// r.From. A PSP with no baseline traffic is compared against an all-zero
// baseline. The baseline is always BaselineLookback long, whatever the
// length of r.
func (s *Service) Trends(ctx context.Context, psp string, r compute.TimeRange) (compute.TrendData, error) {
	current, found, err := s.snap.PSP(ctx, psp, r)
	if err != nil {
		return compute.TrendData{}, err
	}
	if !found {
		return compute.TrendData{}, ErrNoData
	}

	br := compute.TimeRange{From: r.From.Add(-BaselineLookback), To: r.From}
	baseline, found, err := s.snap.PSP(ctx, psp, br)
	if err != nil {
		return compute.TrendData{}, err
	}
	if !found {
		baseline = compute.BuildMetrics(compute.AggregatedRow{PSP: psp}, 0, br)
	}

	return compute.TrendData{
		PSP:            psp,
		CurrentWindow:  current,
		BaselineWindow: baseline,
		Trends:         compute.CompareTrends(current, baseline),
	}, nil
}

// Scores returns the composite health score of every PSP in r, ordered by PSP.
func (s *Service) Scores(ctx context.Context, r compute.TimeRange) ([]compute.PSPHealthScore, error) {
	metrics, err := s.snap.All(ctx, r)
	if err != nil {
		return nil, err
	}
	th := s.Thresholds()
	out := make([]compute.PSPHealthScore, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, compute.ScoreHealth(m, th))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PSP < out[j].PSP })
	return out, nil
}

// Summary buckets every PSP in r by status.
func (s *Service) Summary(ctx context.Context, r compute.TimeRange) (AlertSummary, error) {
	health, err := s.AllHealth(ctx, r)
	if err != nil {
		return AlertSummary{}, err
	}
	return Summarize(health, s.now()), nil
}

// Summarize buckets health by status. Each bucket is non-nil.
func Summarize(health []compute.PSPHealth, at time.Time) AlertSummary {
	sum := AlertSummary{
		Timestamp:     at.UTC().Format(compute.TimeLayout),
		UnhealthyPSPs: []compute.PSPHealth{},
		DegradedPSPs:  []compute.PSPHealth{},
		HealthyPSPs:   []compute.PSPHealth{},
		TotalPSPs:     len(health),
	}
	for _, h := range health {
		switch h.Status {
		case compute.StatusUnhealthy:
			sum.UnhealthyPSPs = append(sum.UnhealthyPSPs, h)
		case compute.StatusDegraded:
			sum.DegradedPSPs = append(sum.DegradedPSPs, h)
		case compute.StatusHealthy:
			sum.HealthyPSPs = append(sum.HealthyPSPs, h)
		}
	}
	return sum
}
