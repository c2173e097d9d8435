// Package config loads and watches the rateboost configuration file
// (config.yaml).
//
// Top-level types:
//   - Config{Booster, Host, Telemetry, Log}: full config tree parsed from YAML
//   - BoosterConfig: factor, cadence (every_tick|periodic), interval,
//     epsilon, per-class ceilings, discovery tokens, allow_unexported
//   - HostConfig: role (host|client), scene file, tick_rate, ticks
//   - TelemetryConfig: listen address and websocket broadcast interval
//   - LogConfig: level and format (json|text)
//
// Load(path) reads the YAML file, applies defaults (factor 6, every tick,
// turn_rate ceiling 1080, 50ms tick rate, 1s broadcast), then validates
// ranges and enums. Settings() converts the booster section into the
// attach.Settings used by the attach manager.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors (vim, VS Code) by re-adding the watch after
// a rename event.
package config
