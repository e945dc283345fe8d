// Package influxdb writes Leafcore telemetry to InfluxDB v2.
//
// Two measurements are written: climate (temperature, humidity, ambient
// light, tagged by device) and actuator (channel transitions, tagged by
// channel and source). Writes are batched and non-blocking.
package influxdb
