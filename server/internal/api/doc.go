// Package api implements the HTTP REST API for pspwatch-server.
//
// New(deps) returns an http.Handler that serves:
//
//	GET  /ping                          liveness plus stored transaction count
//	POST /api/transactions              ingest one transaction (201, 400, 409)
//	POST /api/transactions/bulk         ingest 1 to 1000 transactions (201, 400)
//	GET  /api/health                    every PSP's metrics and classification
//	GET  /api/health/scores             composite 0-100 score per PSP
//	GET  /api/health/{psp}              one PSP; 404 when it has no data
//	GET  /api/health/{psp}/methods      per payment method breakdown
//	GET  /api/health/{psp}/trends       current window against 24h baseline
//	GET  /api/alerts                    PSPs bucketed by status
//	GET  /api/alerts/config             thresholds as human-readable strings
//	GET  /api/alerts/active             firing and recently resolved alerts
//
// Read endpoints accept optional from/to query parameters (RFC 3339). A
// missing bound defaults to the configured window ending now; an unparseable
// bound or from after to is rejected with 400.
//
// Every response, /ping excepted, uses the envelope
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": "...", "details": [...]}
//
// Mismatched methods get 405. No external HTTP framework is used.
package api
