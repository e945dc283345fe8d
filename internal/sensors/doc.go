// Package sensors owns all raw sensor access in Leafcore Core.
//
// The Cache polls the device backend on a fixed interval and publishes
// the latest Reading atomically; every other component reads from the
// cache, never from the hardware. The Forwarder periodically ships the
// cached reading, stamped with the device identity, to remote HTTP
// collectors, the MQTT telemetry topic, and InfluxDB, all best-effort.
package sensors
