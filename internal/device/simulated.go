package device

import (
	"math/rand"
	"sync"
	"time"
)

// Simulated is an in-memory Capability backend with a small physical
// drift model, used for development and tests when no Raspberry Pi is
// attached.
//
// The model advances lazily on each sensor read:
//   - the enclosure drifts toward ambient baselines
//   - the heater and the grow light warm the air
//   - the exhaust fan lowers humidity
//   - the pump and the sprinkler raise humidity
//   - the grow light raises the measured lux
//
// All values are clamped to plausible ranges so long simulations stay
// stable.
type Simulated struct {
	mu sync.Mutex

	temperature float64
	humidity    float64

	state  ActuatorState
	closed bool

	lastStep time.Time
	now      func() time.Time
	rng      *rand.Rand
}

// Ambient baselines and drift rates for the simulation, per second.
const (
	simAmbientTemperature = 22.0
	simAmbientHumidity    = 55.0
	simAmbientLux         = 120.0

	simDriftRate     = 0.01 // pull toward ambient, fraction per second
	simHeaterRate    = 0.05 // degrees C per second
	simLightWarmRate = 0.02 // degrees C per second at full intensity
	simFanRate       = 0.40 // %RH removed per second
	simPumpRate      = 0.80 // %RH added per second
	simSprinklerRate = 0.50 // %RH added per second
	simLightLuxGain  = 800.0

	simMinTemperature = 5.0
	simMaxTemperature = 45.0
)

// NewSimulated creates a simulated backend starting at ambient conditions.
func NewSimulated() *Simulated {
	now := time.Now
	return &Simulated{
		temperature: simAmbientTemperature,
		humidity:    simAmbientHumidity,
		lastStep:    now(),
		now:         now,
		rng:         rand.New(rand.NewSource(now().UnixNano())),
	}
}

// step advances the drift model to the current time. Caller holds mu.
func (s *Simulated) step() {
	now := s.now()
	elapsed := now.Sub(s.lastStep).Seconds()
	s.lastStep = now
	if elapsed <= 0 {
		return
	}
	// Cap a long idle gap so a debugger pause does not swing the model.
	if elapsed > 60 {
		elapsed = 60
	}

	s.temperature += (simAmbientTemperature - s.temperature) * simDriftRate * elapsed
	s.humidity += (simAmbientHumidity - s.humidity) * simDriftRate * elapsed

	if s.state.Heater {
		s.temperature += simHeaterRate * elapsed
	}
	s.temperature += simLightWarmRate * s.state.Light * elapsed
	if s.state.Fan {
		s.humidity -= simFanRate * elapsed
	}
	if s.state.Pump {
		s.humidity += simPumpRate * elapsed
	}
	if s.state.Sprinkler {
		s.humidity += simSprinklerRate * elapsed
	}

	s.temperature = clamp(s.temperature, simMinTemperature, simMaxTemperature)
	s.humidity = clamp(s.humidity, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ReadTemperatureHumidity returns the simulated climate with a small
// measurement jitter.
func (s *Simulated) ReadTemperatureHumidity() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, 0, ErrClosed
	}
	s.step()
	jitterT := (s.rng.Float64() - 0.5) * 0.1
	jitterH := (s.rng.Float64() - 0.5) * 0.4
	return s.temperature + jitterT, clamp(s.humidity+jitterH, 0, 100), nil
}

// ReadAmbientLight returns the simulated lux, dominated by the grow light.
func (s *Simulated) ReadAmbientLight() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.step()
	lux := simAmbientLux + s.state.Light*simLightLuxGain
	lux += (s.rng.Float64() - 0.5) * 5
	if lux < 0 {
		lux = 0
	}
	return lux, nil
}

func (s *Simulated) SetFan(on bool) error       { return s.setSwitch(func() { s.state.Fan = on }) }
func (s *Simulated) SetHeater(on bool) error    { return s.setSwitch(func() { s.state.Heater = on }) }
func (s *Simulated) SetPump(on bool) error      { return s.setSwitch(func() { s.state.Pump = on }) }
func (s *Simulated) SetSprinkler(on bool) error { return s.setSwitch(func() { s.state.Sprinkler = on }) }

// SetLight sets the grow light intensity.
func (s *Simulated) SetLight(level float64) error {
	if level < 0 || level > 1 {
		return ErrInvalidValue
	}
	return s.setSwitch(func() { s.state.Light = level })
}

func (s *Simulated) setSwitch(mutate func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.step()
	mutate()
	return nil
}

// State returns the commanded actuator state.
func (s *Simulated) State() (ActuatorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ActuatorState{}, ErrClosed
	}
	return s.state, nil
}

// Close marks the backend closed. Subsequent calls return ErrClosed.
func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SetConditions overrides the simulated climate directly. Test hook.
func (s *Simulated) SetConditions(temperature, humidity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = clamp(temperature, simMinTemperature, simMaxTemperature)
	s.humidity = clamp(humidity, 0, 100)
	s.lastStep = s.now()
}
