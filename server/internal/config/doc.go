// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort             REST API, event stream and /metrics (default 8080)
//   - GRPCPort             grpc.health.v1 probe service (default 50051)
//   - LogLevel             debug | info | warn | error (default info)
//   - DefaultWindowMinutes evaluation window when a request gives no bounds (default 60)
//   - Auth                 optional API key check on HTTP and gRPC
//   - Thresholds           degraded/unhealthy bounds per classified metric
//   - Storage              sqlite or postgres backend plus retention
//   - Events               local or redis event bus
//   - Stream               summary broadcast interval (default 5s)
//   - Alerts               status alert cadence, cooldown and webhooks
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file whenever it is written.
package config
