// Package device provides the actuator and sensor layer of Leafcore Core.
//
// This package manages:
//   - The Capability contract implemented by both backends
//   - The Simulated backend (drift model, development and tests)
//   - The Hardware backend (Raspberry Pi via gobot: relays, PWM, I2C sensors)
//   - The Controller, the single serialised mutation path for actuators
//   - The transition audit trail (StateHistory, SQLite)
//
// # Architecture
//
//	automation engine ─┐
//	HTTP API ──────────┤
//	MQTT commands ─────┼──> Controller ──> Capability ──> relays / PWM
//	watering trigger ──┘        │
//	                            └──> StateHistory, change fan-out
//
// Every actuator write in the system passes through the Controller and
// is serialised by a single mutex, so there is never more than one
// in-flight hardware mutation. Writes are diff-based and faults are
// isolated per channel: a failing relay leaves its channel's recorded
// state untouched for the next evaluation to retry, while the other
// channels proceed.
//
// Sensor reads do not pass through the Controller; the sensors package
// is the sole reader of raw sensor values.
package device
