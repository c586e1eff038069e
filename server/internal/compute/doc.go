// Package compute is the PSP health evaluation engine.
//
// Every function here is a pure computation over its arguments: no I/O, no
// package state, no caching between calls. The package is safe for concurrent
// use without coordination.
//
// percentile.go implements the nearest-rank P95 estimator over samples the
// caller has already sorted ascending.
//
// metrics.go converts one AggregatedRow plus a P95 value into PSPMetrics.
// Rates are rounded to 4 decimals and times to 2 decimals (half away from
// zero). success_rate is taken over total - timeout - error.
//
// evaluate.go classifies PSPMetrics against Thresholds. Each metric yields at
// most one alert: critical when the value is strictly above the unhealthy
// bound, warning when strictly above the degraded bound. A value equal to a
// bound does not breach it.
//
// trend.go compares a current and a baseline value. Changes inside ±5% are
// stable. For timeout rate, error rate and response time a rise is worsening;
// for success rate a rise is improving.
//
// score.go produces the 0–100 composite score:
// timeout(30) + error(30) + success(20) + response time(20).
package compute
