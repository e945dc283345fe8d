package device

// Capability is the contract every actuator/sensor backend satisfies.
//
// Two implementations exist: Simulated (development and tests) and
// Hardware (Raspberry Pi via gobot). The rest of the system only ever
// sees this interface; nothing above it knows which backend is live.
//
// Implementations must be safe for concurrent use. In practice the
// Controller serialises all Set* calls, but sensor reads arrive from the
// sensor cache goroutine concurrently with actuator writes.
type Capability interface {
	// ReadTemperatureHumidity returns the current temperature in degrees
	// Celsius and relative humidity in percent.
	ReadTemperatureHumidity() (temperature, humidity float64, err error)

	// ReadAmbientLight returns the ambient light level in lux.
	ReadAmbientLight() (lux float64, err error)

	// SetFan switches the exhaust fan relay.
	SetFan(on bool) error

	// SetHeater switches the heater relay.
	SetHeater(on bool) error

	// SetPump switches the watering pump relay.
	SetPump(on bool) error

	// SetSprinkler switches the misting sprinkler relay.
	SetSprinkler(on bool) error

	// SetLight sets the grow light intensity in [0, 1]. Zero is off.
	SetLight(level float64) error

	// State returns the backend's view of the commanded actuator state,
	// used for startup reconciliation.
	State() (ActuatorState, error)

	// Close releases backend resources. Actuators are left as commanded;
	// shutdown does not force channels off.
	Close() error
}
