// Package alerts turns PSP health into alert notifications.
//
// Every evaluation cycle the Engine receives the current compute.PSPHealth of
// each PSP. A PSP entering degraded or unhealthy fires a status alert; a PSP
// returning to healthy resolves it. Escalation from degraded to unhealthy
// fires again immediately; other repeats are held back by a per-PSP cooldown.
// PSPs absent from a cycle (no traffic in the window) keep their alert state.
//
// Optional rules add threshold checks on any metric, e.g.
// "p95_response_time_ms > 25000", evaluated per PSP with the same
// fire/resolve/cooldown lifecycle.
//
// Fired and resolved alerts are published on the event bus and delivered to
// Teams, Slack or generic HTTP webhooks.
package alerts
