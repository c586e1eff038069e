// Package exporter serves PSP health in the Prometheus text exposition format
// at /metrics.
//
// Every scrape re-evaluates the default window through the supplied
// CollectFunc; nothing is cached between scrapes. All series are gauges
// labelled by psp:
//
//	pspwatch_psp_transactions            total transactions in the window
//	pspwatch_psp_timeout_rate            0-1
//	pspwatch_psp_error_rate              0-1
//	pspwatch_psp_success_rate            0-1
//	pspwatch_psp_avg_response_time_ms
//	pspwatch_psp_p95_response_time_ms
//	pspwatch_psp_health_score            0-100
//	pspwatch_psp_status                  0 healthy, 1 degraded, 2 unhealthy
package exporter
