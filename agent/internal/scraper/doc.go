// Package scraper reads PSP health back from pspwatch-server's Prometheus
// text exposition at /metrics and reports it in the agent's log.
//
// The pspwatch_psp_* gauges are folded into one Report per PSP, keyed by the
// psp label. The numeric status gauge maps back to healthy, degraded or
// unhealthy; a PSP with no status gauge reports "unknown".
package scraper
