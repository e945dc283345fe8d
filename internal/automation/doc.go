// Package automation contains the tick-driven rule engine of Leafcore Core.
//
// Every tick the engine reads the cached sensor values, the target
// configuration, and the clock, computes one desired actuator state, and
// hands it to the device controller, which applies only the channels
// that changed. Climate channels use hysteresis dead bands so they never
// chatter around a setpoint. The grow light follows a photoperiod that
// may wrap midnight. Watering is edge-triggered against the schedule and
// timed off via a deadline checked on subsequent ticks.
//
// Manual mode is honoured per channel: while enabled, a held override
// replaces the rule outcome for that channel and nothing else.
package automation
