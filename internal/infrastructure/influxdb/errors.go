package influxdb

import "errors"

var (
	// ErrDisabled indicates InfluxDB is turned off in configuration.
	ErrDisabled = errors.New("influxdb disabled")

	// ErrConnectionFailed indicates the initial connection failed.
	ErrConnectionFailed = errors.New("influxdb connection failed")

	// ErrNotConnected indicates an operation attempted while disconnected.
	ErrNotConnected = errors.New("influxdb not connected")
)
