package control

import (
	"context"
	"sync"
	"time"

	"github.com/leafcore/terrarium-core/internal/device"
	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
	"github.com/leafcore/terrarium-core/internal/sensors"
	"github.com/leafcore/terrarium-core/internal/settings"
)

// ReadingSource supplies the latest cached sensor reading.
// Satisfied by sensors.Cache.
type ReadingSource interface {
	Latest() (sensors.Reading, bool)
}

// WateringTrigger starts a watering run out of band.
// Satisfied by automation.Engine.
type WateringTrigger interface {
	TriggerWatering(ctx context.Context) error
}

// Status is the combined state snapshot served to the API, the display
// panel, and MQTT status requests.
type Status struct {
	// Reading is nil until the first successful sensor poll.
	Reading *sensors.Reading `json:"reading"`

	Actuators  device.ActuatorState    `json:"actuators"`
	ManualMode bool                    `json:"manual_mode"`
	Overrides  settings.ManualOverride `json:"overrides"`
	Targets    settings.TargetConfig   `json:"targets"`
	Identity   settings.Identity       `json:"identity"`
	Timestamp  time.Time               `json:"timestamp"`
}

// Surface is the single entry point for everything outside the core:
// the HTTP API, the MQTT command subscriber, and the WebSocket hub all
// call through here rather than reaching into the packages below.
//
// A surface-level lock serialises Status against the mutation entry
// points, so a status snapshot never pairs actuator state with settings
// from a mutation caught mid-flight. Engine ticks mutate actuators
// through the controller's own mutex and never touch settings.
type Surface struct {
	controller *device.Controller
	store      *settings.Store
	cache      ReadingSource
	watering   WateringTrigger
	logger     *logging.Logger

	// mu orders Status snapshots against settings+actuator mutations.
	mu sync.RWMutex
}

// New creates the control surface.
func New(
	controller *device.Controller,
	store *settings.Store,
	cache ReadingSource,
	watering WateringTrigger,
	logger *logging.Logger,
) *Surface {
	return &Surface{
		controller: controller,
		store:      store,
		cache:      cache,
		watering:   watering,
		logger:     logger.With("component", "control"),
	}
}

// Status assembles the combined snapshot. All fields are read under the
// surface lock, so no mutation entry point can land between them.
func (s *Surface) Status(ctx context.Context) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Actuators: s.controller.Snapshot(),
		Overrides: s.store.Overrides(),
		Targets:   s.store.TargetConfig(),
		Identity:  s.store.Identity(),
		Timestamp: time.Now().UTC(),
	}
	st.ManualMode = st.Overrides.ManualMode

	if reading, ok := s.cache.Latest(); ok {
		st.Reading = &reading
	}
	return st
}

// Reading returns the latest cached sensor sample.
func (s *Surface) Reading() (sensors.Reading, bool) {
	return s.cache.Latest()
}

// SetOverride stores a manual override for one channel.
//
// The value is validated, persisted to the manual namespace, and, only
// when manual mode is currently enabled, applied to the hardware within
// this call. With manual mode off the override is retained silently and
// takes effect on the first tick after manual mode is enabled. A nil
// raw value clears the override.
//
// Parameters:
//   - ctx: Context for the actuator write
//   - channel: Channel name from the request path
//   - raw: Decoded JSON value, or nil to clear
//
// Returns:
//   - error: device.ErrUnknownChannel, device.ErrInvalidValue,
//     settings.ErrInvalidSetting, or the wrapped hardware failure
func (s *Surface) SetOverride(ctx context.Context, channel string, raw any) error {
	ch, err := device.ParseChannel(channel)
	if err != nil {
		return err
	}

	var stored any
	if raw != nil {
		value, err := device.ParseValue(ch, raw)
		if err != nil {
			return err
		}
		stored = overrideSettingValue(ch, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Update(settings.NamespaceManual, map[string]any{
		string(ch): stored,
	}); err != nil {
		return err
	}

	overrides := s.store.Overrides()
	if !overrides.ManualMode {
		s.logger.Debug("override retained, manual mode off", "channel", ch)
		return nil
	}

	if forced, held := overrides.Value(ch); held {
		return s.controller.Set(ctx, ch, forced, device.SourceManual)
	}
	return nil
}

// overrideSettingValue converts a parsed channel value into the JSON
// shape the manual namespace stores: booleans for switches, a number
// for the light.
func overrideSettingValue(ch device.Channel, v device.Value) any {
	if ch.Kind() == device.KindSwitch {
		return v.Bool()
	}
	return float64(v)
}

// SetManualMode enables or disables manual mode.
//
// No hardware is written here: on enable, held overrides take effect on
// the next automation tick; on disable, the rules resume on the next
// tick. Held overrides survive mode changes.
func (s *Surface) SetManualMode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.Update(settings.NamespaceManual, map[string]any{
		"manual_mode": enabled,
	})
	if err == nil {
		s.logger.Info("manual mode changed", "enabled", enabled)
	}
	return err
}

// UpdateManual applies a partial update to the manual namespace and,
// when manual mode is enabled afterwards, immediately applies the
// overrides named in the patch.
func (s *Surface) UpdateManual(ctx context.Context, partial map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := s.store.Update(settings.NamespaceManual, partial)
	if err != nil {
		return nil, err
	}

	overrides := s.store.Overrides()
	if overrides.ManualMode {
		for key := range partial {
			ch, err := device.ParseChannel(key)
			if err != nil {
				continue // manual_mode or similar non-channel key
			}
			if forced, held := overrides.Value(ch); held {
				if err := s.controller.Set(ctx, ch, forced, device.SourceManual); err != nil {
					s.logger.Error("applying override failed", "channel", ch, "error", err)
				}
			}
		}
	}
	return merged, nil
}

// UpdateTargets applies a partial update to the target configuration.
// The automation engine picks the new targets up on its next tick.
func (s *Surface) UpdateTargets(partial map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Update(settings.NamespaceConfig, partial)
}

// Targets returns the current target configuration namespace.
func (s *Surface) Targets() (map[string]any, error) {
	return s.store.All(settings.NamespaceConfig)
}

// Manual returns the current manual namespace.
func (s *Surface) Manual() (map[string]any, error) {
	return s.store.All(settings.NamespaceManual)
}

// TriggerWatering starts a watering run immediately.
func (s *Surface) TriggerWatering(ctx context.Context) error {
	return s.watering.TriggerWatering(ctx)
}

// ChannelState returns the commanded value of one channel.
func (s *Surface) ChannelState(channel string) (device.Value, error) {
	ch, err := device.ParseChannel(channel)
	if err != nil {
		return 0, err
	}
	return s.controller.Snapshot().Get(ch)
}

// History returns recent transitions for a channel, newest first.
// An empty channel name returns transitions across all channels.
func (s *Surface) History(ctx context.Context, channel string, limit int) ([]device.Transition, error) {
	var ch device.Channel
	if channel != "" {
		parsed, err := device.ParseChannel(channel)
		if err != nil {
			return nil, err
		}
		ch = parsed
	}
	return s.controller.History(ctx, ch, limit)
}

// Identity returns the device identity record.
func (s *Surface) Identity() settings.Identity {
	return s.store.Identity()
}

// UpdateIdentity applies a partial update to the device namespace.
func (s *Surface) UpdateIdentity(partial map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Update(settings.NamespaceDevice, partial)
}
