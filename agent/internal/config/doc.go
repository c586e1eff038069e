// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: the `agent:` section parsed from YAML
//   - AgentConfig: server_url, server_grpc, interval, ship_interval,
//     report_interval, batch_size, buffer_size, psps [], payment_methods [],
//     backfill, server_auth, tls
//   - PSP: name, profile (healthy|timeout|slow), rate per interval, currencies
//   - AuthConfig: mode (mtls|apikey|none), cert/key/ca files, header, key_env;
//     Key() resolves from the environment
//
// Load(path) reads the YAML file, applies defaults (5s interval, 2s ship,
// batches of 500, the seven reference PSPs and five payment methods), then
// validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. The parent directory is watched so
// atomic-save editors (vim, VS Code) keep triggering reloads.
package config
