// Package monitor turns stored transactions into PSP health reports.
//
// Source is the storage collaborator: it answers windowed count aggregates
// and returns sorted response-time samples. Snapshotter pairs the two into
// compute.PSPMetrics for each scope (all PSPs, one PSP, one PSP by payment
// method). Service layers classification, trends, scoring and the alert
// summary on top and owns the default window and the live thresholds.
//
// Consistency: one report is built from several independent reads (counts,
// then samples, and for trends a second window). No snapshot isolation is
// taken across them, so under concurrent ingest a P95 may be computed over a
// slightly different population than the counts it is reported with. Reports
// are advisory and the drift is bounded by one request's latency.
package monitor
