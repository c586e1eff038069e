// Package probe exposes PSP health over the standard grpc.health.v1.Health
// service so load balancers and orchestrators can probe pspwatch-server
// with stock tooling (grpc_health_probe, Kubernetes gRPC probes).
//
// The overall service "" reports whether transaction storage is reachable.
// Each PSP is published as service "psp/<name>": SERVING while healthy or
// degraded, NOT_SERVING while unhealthy. PSPs that drop out of an evaluation
// keep their last published status.
//
// Publisher.Run drives periodic updates from a supplied evaluate function.
// Authentication is enforced by the gRPC server interceptors (see package
// auth), not here.
package probe
