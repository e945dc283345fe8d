package settings

import (
	"github.com/leafcore/terrarium-core/internal/device"
)

// Namespace names. Each namespace is one JSON file under the data directory.
const (
	// NamespaceConfig holds the automation targets (TargetConfig).
	NamespaceConfig = "config"

	// NamespaceManual holds manual mode and per-channel overrides.
	NamespaceManual = "manual"

	// NamespaceDevice holds the device identity record.
	NamespaceDevice = "device"
)

// TargetConfig is the typed view of the config namespace: the setpoints
// and schedules the automation engine works toward.
type TargetConfig struct {
	// TargetTemperature is the desired air temperature in degrees Celsius.
	TargetTemperature float64 `json:"target_temperature"`

	// TargetHumidity is the desired relative humidity in percent.
	TargetHumidity float64 `json:"target_humidity"`

	// LightOnHour and LightOffHour bound the photoperiod [on, off) in
	// local hours. The window may wrap midnight (e.g. 18 to 6).
	LightOnHour  int `json:"light_on_hour"`
	LightOffHour int `json:"light_off_hour"`

	// LightDefaultIntensity is the level the light runs at inside the
	// photoperiod, in [0, 1].
	LightDefaultIntensity float64 `json:"light_default_intensity"`

	// WateringDays lists lowercase weekday names on which the pump fires.
	WateringDays []string `json:"watering_days"`

	// WateringTime is the local "HH:MM" at which watering triggers.
	WateringTime string `json:"watering_time"`

	// WateringDurationSeconds is how long the pump runs per watering.
	WateringDurationSeconds int `json:"watering_duration_seconds"`
}

// ManualOverride is the typed view of the manual namespace. A nil
// channel pointer means no override is held for that channel.
type ManualOverride struct {
	// ManualMode gates all overrides: when false, held overrides are
	// retained but ignored by the automation engine.
	ManualMode bool `json:"manual_mode"`

	Fan       *bool    `json:"fan"`
	Heater    *bool    `json:"heater"`
	Pump      *bool    `json:"pump"`
	Sprinkler *bool    `json:"sprinkler"`
	Light     *float64 `json:"light"`
}

// Value returns the forced value held for a channel, if any.
//
// Parameters:
//   - ch: The actuator channel
//
// Returns:
//   - device.Value: The forced value, meaningful only when held is true
//   - bool: Whether an override is held for the channel
func (m ManualOverride) Value(ch device.Channel) (device.Value, bool) {
	boolVal := func(p *bool) (device.Value, bool) {
		if p == nil {
			return 0, false
		}
		if *p {
			return 1, true
		}
		return 0, true
	}

	switch ch {
	case device.ChannelFan:
		return boolVal(m.Fan)
	case device.ChannelHeater:
		return boolVal(m.Heater)
	case device.ChannelPump:
		return boolVal(m.Pump)
	case device.ChannelSprinkler:
		return boolVal(m.Sprinkler)
	case device.ChannelLight:
		if m.Light == nil {
			return 0, false
		}
		return device.Value(*m.Light), true
	}
	return 0, false
}

// Identity is the typed view of the device namespace, attached to every
// forwarded telemetry payload.
type Identity struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}
