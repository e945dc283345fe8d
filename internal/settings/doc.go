// Package settings persists the mutable configuration of Leafcore Core.
//
// Three namespaces exist, each backed by one JSON file under the data
// directory:
//
//   - config: automation targets (setpoints, photoperiod, watering schedule)
//   - manual: manual mode flag and per-channel forced values
//   - device: the device identity record attached to forwarded telemetry
//
// All namespaces share one discipline: missing files are created from
// defaults, existing files are merged with defaults so upgrades can add
// keys, and updates are validated as a whole before any key is mutated.
// Persistence is synchronous but best-effort; when a write fails the
// in-memory state remains authoritative and the controller keeps running.
package settings
