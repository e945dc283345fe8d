package influxdb

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/leafcore/terrarium-core/internal/device"
	"github.com/leafcore/terrarium-core/internal/sensors"
	"github.com/leafcore/terrarium-core/internal/settings"
)

// Measurement names in the telemetry bucket.
const (
	measurementClimate  = "climate"
	measurementActuator = "actuator"
)

// WriteReading queues a climate point. Satisfies sensors.TelemetryWriter.
//
// The write is non-blocking; failures surface through the error
// callback, not here.
func (c *Client) WriteReading(_ context.Context, identity settings.Identity, r sensors.Reading) {
	if !c.IsConnected() {
		return
	}

	p := influxdb2.NewPoint(
		measurementClimate,
		map[string]string{
			"device_id": identity.DeviceID,
			"name":      identity.Name,
		},
		map[string]interface{}{
			"temperature":   r.Temperature,
			"humidity":      r.Humidity,
			"ambient_light": r.AmbientLight,
		},
		r.CapturedAt,
	)
	c.writeAPI.WritePoint(p)
}

// WriteTransition queues an actuator transition point, so channel
// activity can be graphed against the climate series.
func (c *Client) WriteTransition(deviceID string, tr device.Transition) {
	if !c.IsConnected() {
		return
	}

	p := influxdb2.NewPoint(
		measurementActuator,
		map[string]string{
			"device_id": deviceID,
			"channel":   string(tr.Channel),
			"source":    tr.Source,
		},
		map[string]interface{}{
			"value": tr.Value,
		},
		tr.RecordedAt,
	)
	c.writeAPI.WritePoint(p)
}
