package automation

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leafcore/terrarium-core/internal/device"
	"github.com/leafcore/terrarium-core/internal/infrastructure/config"
	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
	"github.com/leafcore/terrarium-core/internal/sensors"
	"github.com/leafcore/terrarium-core/internal/settings"
)

// Engine computes the desired actuator state on every tick and drives
// the controller toward it.
//
// Rules, evaluated against the cached reading, the target configuration,
// and the clock:
//
//   - Heater: hysteresis around the temperature target. On below
//     target-band, off above target+band, held inside the dead band.
//   - Fan (exhaust): hysteresis around the humidity target, inverted.
//     On above target+band, off below target-band.
//   - Sprinkler (mist): on below target-band, off above target+band.
//   - Light: runs at the configured intensity inside the photoperiod
//     [on_hour, off_hour), which may wrap midnight. Off-hour exclusive.
//   - Watering: fires when the scheduled time is crossed between the
//     previous and the current tick on a scheduled weekday, at most once
//     per day. The pump-off deadline is tracked by the engine and
//     checked each tick; nothing ever sleeps holding the pump.
//
// Manual mode takes precedence per channel: a held override replaces
// the rule outcome for that channel while manual mode is enabled.
//
// With no reading cached yet, climate rules hold the current state;
// the clock-driven rules still run.
// ReadingSource supplies the latest cached sensor reading.
// Satisfied by sensors.Cache.
type ReadingSource interface {
	Latest() (sensors.Reading, bool)
}

type Engine struct {
	controller *device.Controller
	store      *settings.Store
	cache      ReadingSource
	cfg        config.AutomationConfig
	logger     *logging.Logger

	// Schedule state. Guarded by mu; the engine tick and the manual
	// watering trigger both touch it.
	mu             sync.Mutex
	prevTick       time.Time
	lastWateredDay string // "2006-01-02", local
	pumpOffAt      time.Time
}

// New creates an automation engine. Call Start to begin ticking.
//
// Parameters:
//   - controller: The serialised actuator mutation path
//   - store: Settings source (targets and overrides, re-read each tick)
//   - cache: Sensor reading source
//   - cfg: Tick interval and hysteresis bands
//   - logger: Structured logger
func New(
	controller *device.Controller,
	store *settings.Store,
	cache ReadingSource,
	cfg config.AutomationConfig,
	logger *logging.Logger,
) *Engine {
	return &Engine{
		controller: controller,
		store:      store,
		cache:      cache,
		cfg:        cfg,
		logger:     logger.With("component", "automation"),
	}
}

// Start launches the tick loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.cfg.GetTickInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				e.logger.Info("automation engine stopped")
				return
			case <-ticker.C:
				e.Evaluate(ctx)
			}
		}
	}()
}

// Evaluate runs one tick against the wall clock.
func (e *Engine) Evaluate(ctx context.Context) {
	e.EvaluateAt(ctx, time.Now())
}

// EvaluateAt runs one tick at an explicit instant. Split from Evaluate
// so schedule behaviour is testable without a real clock.
func (e *Engine) EvaluateAt(ctx context.Context, now time.Time) {
	current := e.controller.Snapshot()
	desired := current

	targets := e.store.TargetConfig()
	overrides := e.store.Overrides()

	if reading, ok := e.cache.Latest(); ok {
		desired.Heater = hysteresis(reading.Temperature, targets.TargetTemperature,
			e.cfg.TemperatureHysteresis, current.Heater, belowTurnsOn)
		desired.Fan = hysteresis(reading.Humidity, targets.TargetHumidity,
			e.cfg.HumidityHysteresis, current.Fan, aboveTurnsOn)
		desired.Sprinkler = hysteresis(reading.Humidity, targets.TargetHumidity,
			e.cfg.HumidityHysteresis, current.Sprinkler, belowTurnsOn)
	}

	if lightScheduledOn(now.Hour(), targets.LightOnHour, targets.LightOffHour) {
		desired.Light = targets.LightDefaultIntensity
	} else {
		desired.Light = 0
	}

	desired.Pump = e.evaluateWatering(now, targets)

	// Manual precedence: a held override replaces the rule outcome for
	// its channel while manual mode is on. Overrides held during
	// automatic mode are retained but ignored.
	if overrides.ManualMode {
		for _, ch := range device.Channels() {
			if forced, held := overrides.Value(ch); held {
				var err error
				desired, err = desired.With(ch, forced)
				if err != nil {
					e.logger.Error("applying override failed", "channel", ch, "error", err)
				}
			}
		}
	}

	if err := e.controller.Apply(ctx, desired, device.SourceAutomation); err != nil {
		// Per-channel faults are already isolated and retried next tick.
		e.logger.Warn("tick apply completed with channel faults", "error", err)
	}
}

// evaluateWatering advances the watering state machine by one tick and
// returns the desired pump value. Edge-triggered: the pump fires when
// the scheduled time falls between the previous and the current tick,
// on a scheduled weekday, at most once per day. Outside a run the pump
// is off; the pump has no steady-state rule.
func (e *Engine) evaluateWatering(now time.Time, targets settings.TargetConfig) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.prevTick
	e.prevTick = now

	// A run in progress ends when the deadline passes.
	if !e.pumpOffAt.IsZero() {
		if now.Before(e.pumpOffAt) {
			return true
		}
		e.pumpOffAt = time.Time{}
		e.logger.Info("watering complete")
		return false
	}

	// First tick after startup: establish the edge baseline only.
	// A watering missed while the process was down is not fired late.
	if prev.IsZero() {
		return false
	}

	fireAt, ok := nextScheduledWatering(prev, now, targets)
	if !ok {
		return false
	}

	day := fireAt.Format("2006-01-02")
	if day == e.lastWateredDay {
		return false
	}

	e.lastWateredDay = day
	e.pumpOffAt = now.Add(time.Duration(targets.WateringDurationSeconds) * time.Second)
	e.logger.Info("watering started",
		"scheduled_at", fireAt.Format("15:04"),
		"duration_seconds", targets.WateringDurationSeconds,
	)
	return true
}

// TriggerWatering starts a watering run immediately, equivalent to the
// schedule firing. The engine turns the pump off when the deadline
// passes on a subsequent tick. A manual trigger does not consume the
// day's scheduled slot.
//
// Parameters:
//   - ctx: Context for the actuator write
//
// Returns:
//   - error: The controller write failure, if any
func (e *Engine) TriggerWatering(ctx context.Context) error {
	targets := e.store.TargetConfig()

	// Publish the deadline before the pump write: a tick interleaving
	// with the write must see the run in progress, or it would compute
	// pump-off and undo the trigger.
	e.mu.Lock()
	prevOff := e.pumpOffAt
	e.pumpOffAt = time.Now().Add(time.Duration(targets.WateringDurationSeconds) * time.Second)
	e.mu.Unlock()

	if err := e.controller.Set(ctx, device.ChannelPump, 1, device.SourceWatering); err != nil {
		e.mu.Lock()
		e.pumpOffAt = prevOff
		e.mu.Unlock()
		return err
	}

	e.logger.Info("watering triggered manually",
		"duration_seconds", targets.WateringDurationSeconds)
	return nil
}

// hysteresis direction: which side of the dead band turns the channel on.
const (
	belowTurnsOn = iota
	aboveTurnsOn
)

// hysteresis applies a symmetric dead band around a target.
// Inside the band the current state is held, preventing chatter.
func hysteresis(measured, target, band float64, current bool, direction int) bool {
	switch direction {
	case belowTurnsOn:
		if measured < target-band {
			return true
		}
		if measured > target+band {
			return false
		}
	case aboveTurnsOn:
		if measured > target+band {
			return true
		}
		if measured < target-band {
			return false
		}
	}
	return current
}

// lightScheduledOn reports whether hour falls inside [on, off), with
// midnight wraparound when on > off. Equal bounds yield a degenerate
// schedule that is always off.
func lightScheduledOn(hour, on, off int) bool {
	switch {
	case on == off:
		return false
	case on < off:
		return hour >= on && hour < off
	default:
		return hour >= on || hour < off
	}
}

// nextScheduledWatering returns the scheduled watering instant that was
// crossed in (prev, now], if any. Both the previous tick's day and the
// current day are candidates so a tick spanning midnight cannot skip a
// schedule.
func nextScheduledWatering(prev, now time.Time, targets settings.TargetConfig) (time.Time, bool) {
	hour, minute, ok := parseClock(targets.WateringTime)
	if !ok {
		return time.Time{}, false
	}

	days := make(map[string]bool, len(targets.WateringDays))
	for _, d := range targets.WateringDays {
		days[strings.ToLower(d)] = true
	}

	candidates := []time.Time{prev, now}
	for _, day := range candidates {
		if !days[strings.ToLower(day.Weekday().String())] {
			continue
		}
		sched := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
		if sched.After(prev) && !sched.After(now) {
			return sched, true
		}
	}
	return time.Time{}, false
}

// parseClock parses "HH:MM". The settings store validates the format on
// write; a malformed stored value simply disables the schedule.
func parseClock(s string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
