package device

import (
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/leafcore/terrarium-core/internal/infrastructure/config"
)

// Hardware is the Raspberry Pi Capability backend.
//
// It drives relays through GPIO for the switch channels, PWM for the
// grow light, and reads an SHT2x temperature/humidity sensor plus a
// TSL2561 lux sensor over I2C.
//
// Relays cannot be read back, so Hardware tracks the commanded state
// itself and reports it from State().
type Hardware struct {
	mu sync.Mutex

	adaptor *raspi.Adaptor
	sht     *i2c.SHT2xDriver
	lux     *i2c.TSL2561Driver

	fan       *gpio.RelayDriver
	heater    *gpio.RelayDriver
	pump      *gpio.RelayDriver
	sprinkler *gpio.RelayDriver
	lightPin  string

	state  ActuatorState
	closed bool
}

// NewHardware initialises the Raspberry Pi backend from pin configuration.
//
// All drivers are started eagerly; a failure to connect the adaptor or
// start any driver aborts initialisation so the caller can fall back to
// the simulated backend.
//
// Parameters:
//   - cfg: Pin assignments for the actuator channels
//
// Returns:
//   - *Hardware: Ready backend with all drivers started
//   - error: ErrBackendUnavailable wrapped with the failing driver
func NewHardware(cfg config.PinConfig) (*Hardware, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connecting raspi adaptor: %v", ErrBackendUnavailable, err)
	}

	h := &Hardware{
		adaptor:   adaptor,
		sht:       i2c.NewSHT2xDriver(adaptor),
		lux:       i2c.NewTSL2561Driver(adaptor),
		fan:       gpio.NewRelayDriver(adaptor, cfg.Fan),
		heater:    gpio.NewRelayDriver(adaptor, cfg.Heater),
		pump:      gpio.NewRelayDriver(adaptor, cfg.Pump),
		sprinkler: gpio.NewRelayDriver(adaptor, cfg.Sprinkler),
		lightPin:  cfg.Light,
	}

	starters := []struct {
		name  string
		start func() error
	}{
		{"sht2x", h.sht.Start},
		{"tsl2561", h.lux.Start},
		{"fan relay", h.fan.Start},
		{"heater relay", h.heater.Start},
		{"pump relay", h.pump.Start},
		{"sprinkler relay", h.sprinkler.Start},
	}
	for _, s := range starters {
		if err := s.start(); err != nil {
			_ = adaptor.Finalize()
			return nil, fmt.Errorf("%w: starting %s driver: %v", ErrBackendUnavailable, s.name, err)
		}
	}

	// Start with the light off so commanded and physical state agree.
	if err := adaptor.PwmWrite(h.lightPin, 0); err != nil {
		_ = adaptor.Finalize()
		return nil, fmt.Errorf("%w: initialising light pwm: %v", ErrBackendUnavailable, err)
	}

	return h, nil
}

// ReadTemperatureHumidity reads the SHT2x sensor.
func (h *Hardware) ReadTemperatureHumidity() (float64, float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, 0, ErrClosed
	}

	temp, err := h.sht.Temperature()
	if err != nil {
		return 0, 0, fmt.Errorf("reading sht2x temperature: %w", err)
	}
	hum, err := h.sht.Humidity()
	if err != nil {
		return 0, 0, fmt.Errorf("reading sht2x humidity: %w", err)
	}
	return float64(temp), float64(hum), nil
}

// ReadAmbientLight reads the TSL2561 sensor and converts to lux.
func (h *Hardware) ReadAmbientLight() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrClosed
	}

	broadband, ir, err := h.lux.GetLuminocity()
	if err != nil {
		return 0, fmt.Errorf("reading tsl2561 channels: %w", err)
	}
	return float64(h.lux.CalculateLux(broadband, ir)), nil
}

func (h *Hardware) SetFan(on bool) error {
	return h.setRelay(h.fan, on, func() { h.state.Fan = on })
}

func (h *Hardware) SetHeater(on bool) error {
	return h.setRelay(h.heater, on, func() { h.state.Heater = on })
}

func (h *Hardware) SetPump(on bool) error {
	return h.setRelay(h.pump, on, func() { h.state.Pump = on })
}

func (h *Hardware) SetSprinkler(on bool) error {
	return h.setRelay(h.sprinkler, on, func() { h.state.Sprinkler = on })
}

func (h *Hardware) setRelay(relay *gpio.RelayDriver, on bool, commit func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	var err error
	if on {
		err = relay.On()
	} else {
		err = relay.Off()
	}
	if err != nil {
		return fmt.Errorf("switching relay %s: %w", relay.Pin(), err)
	}
	commit()
	return nil
}

// SetLight drives the grow light PWM pin. Level 0 is fully off, 1 is
// full brightness.
func (h *Hardware) SetLight(level float64) error {
	if level < 0 || level > 1 {
		return ErrInvalidValue
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	if err := h.adaptor.PwmWrite(h.lightPin, byte(level*255)); err != nil {
		return fmt.Errorf("writing light pwm: %w", err)
	}
	h.state.Light = level
	return nil
}

// State returns the commanded actuator state.
func (h *Hardware) State() (ActuatorState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ActuatorState{}, ErrClosed
	}
	return h.state, nil
}

// Close finalises the adaptor. Relays are left in their commanded
// position; the enclosure keeps running without the controller.
func (h *Hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	if err := h.adaptor.Finalize(); err != nil {
		return fmt.Errorf("finalising raspi adaptor: %w", err)
	}
	return nil
}
