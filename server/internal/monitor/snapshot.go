package monitor

import (
	"context"
	"fmt"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// Source is the read side of the transaction store.
type Source interface {
	// AggregateAll returns one row per PSP with transactions in r.
	AggregateAll(ctx context.Context, r compute.TimeRange) ([]compute.AggregatedRow, error)

	// AggregatePSP returns psp's counts in r; found is false when it has none.
	AggregatePSP(ctx context.Context, psp string, r compute.TimeRange) (row compute.AggregatedRow, found bool, err error)

	// AggregateByMethod returns one row per payment method psp used in r.
	AggregateByMethod(ctx context.Context, psp string, r compute.TimeRange) ([]compute.AggregatedRow, error)

	// ResponseTimes returns psp's response times in r sorted ascending.
	// An empty method selects every payment method.
	ResponseTimes(ctx context.Context, psp, method string, r compute.TimeRange) ([]float64, error)
}

// Snapshotter builds PSPMetrics from a Source.
type Snapshotter struct {
	src Source
}

// NewSnapshotter returns a Snapshotter reading from src.
func NewSnapshotter(src Source) *Snapshotter {
	return &Snapshotter{src: src}
}

func (s *Snapshotter) build(ctx context.Context, row compute.AggregatedRow, r compute.TimeRange) (compute.PSPMetrics, error) {
	samples, err := s.src.ResponseTimes(ctx, row.PSP, row.PaymentMethod, r)
	if err != nil {
		return compute.PSPMetrics{}, fmt.Errorf("monitor: response times for %s: %w", row.PSP, err)
	}
	return compute.BuildMetrics(row, compute.P95(samples), r), nil
}

// All returns metrics for every PSP with transactions in r.
func (s *Snapshotter) All(ctx context.Context, r compute.TimeRange) ([]compute.PSPMetrics, error) {
	rows, err := s.src.AggregateAll(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("monitor: aggregate: %w", err)
	}
	out := make([]compute.PSPMetrics, 0, len(rows))
	for _, row := range rows {
		m, err := s.build(ctx, row, r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// PSP returns metrics for one PSP. found is false when psp has no
// transactions in r.
func (s *Snapshotter) PSP(ctx context.Context, psp string, r compute.TimeRange) (compute.PSPMetrics, bool, error) {
	row, found, err := s.src.AggregatePSP(ctx, psp, r)
	if err != nil {
		return compute.PSPMetrics{}, false, fmt.Errorf("monitor: aggregate %s: %w", psp, err)
	}
	if !found {
		return compute.PSPMetrics{}, false, nil
	}
	row.PSP = psp
	m, err := s.build(ctx, row, r)
	return m, err == nil, err
}

// ByMethod returns metrics for each payment method psp used in r. The P95 of
// each entry is computed over that method's samples only.
func (s *Snapshotter) ByMethod(ctx context.Context, psp string, r compute.TimeRange) ([]compute.PSPMetrics, error) {
	rows, err := s.src.AggregateByMethod(ctx, psp, r)
	if err != nil {
		return nil, fmt.Errorf("monitor: aggregate %s by method: %w", psp, err)
	}
	out := make([]compute.PSPMetrics, 0, len(rows))
	for _, row := range rows {
		row.PSP = psp
		m, err := s.build(ctx, row, r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
