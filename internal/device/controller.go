package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
)

// StateHistory records actuator transitions for later inspection.
// Recording is best-effort; a failing repository never blocks a write
// to the hardware.
type StateHistory interface {
	// Record persists one transition.
	Record(ctx context.Context, tr Transition) error

	// List returns recent transitions for a channel, newest first.
	// An empty channel returns transitions across all channels.
	List(ctx context.Context, ch Channel, limit int) ([]Transition, error)
}

// ChangeFunc is invoked after a channel transition has been committed.
// Used to fan out state changes to the WebSocket hub and MQTT.
type ChangeFunc func(ch Channel, value Value, source string)

// Controller is the single serialised mutation path for actuators.
//
// Every writer in the system (automation tick, API call, MQTT command,
// watering trigger) goes through this type, and one mutex guards both
// the in-memory ActuatorState and the Capability writes. At most one
// actuator mutation is in flight at any time.
//
// Writes are diff-based: a channel is only touched when the desired
// value differs from the current one. Faults are isolated per channel;
// a failed write leaves that channel's recorded state unchanged so the
// next evaluation retries it, while other channels proceed.
type Controller struct {
	mu    sync.Mutex
	cap   Capability
	state ActuatorState

	history StateHistory
	logger  *logging.Logger

	callbackMu sync.RWMutex
	onChange   ChangeFunc
}

// NewController wraps a Capability backend in the serialised mutation path.
//
// Parameters:
//   - cap: The actuator backend (simulated or hardware)
//   - history: Transition repository, may be nil to disable recording
//   - logger: Structured logger
//
// Returns:
//   - *Controller: Controller with zero-value state; call Reconcile
//     before starting the automation engine
func NewController(cap Capability, history StateHistory, logger *logging.Logger) *Controller {
	return &Controller{
		cap:     cap,
		history: history,
		logger:  logger.With("component", "device"),
	}
}

// OnChange registers the transition fan-out callback.
// Replaces any previously registered callback.
func (c *Controller) OnChange(fn ChangeFunc) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onChange = fn
}

// Reconcile adopts the backend's commanded state as the controller's
// starting point, so the first automation tick diffs against reality
// rather than against an all-off zero value.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.cap.State()
	if err != nil {
		return fmt.Errorf("reading backend state: %w", err)
	}
	c.state = state

	c.logger.Info("actuator state reconciled",
		"fan", state.Fan,
		"heater", state.Heater,
		"pump", state.Pump,
		"sprinkler", state.Sprinkler,
		"light", state.Light,
	)
	return nil
}

// Snapshot returns a copy of the current commanded actuator state.
func (c *Controller) Snapshot() ActuatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply drives the backend toward the desired state.
//
// Only channels whose desired value differs from the current one are
// written. A failed channel write is logged and skipped; the remaining
// channels are still applied. The returned error joins all per-channel
// failures, or is nil when every delta committed.
//
// Parameters:
//   - ctx: Used for history recording; hardware writes themselves are
//     not cancellable mid-operation
//   - desired: Target state for all channels
//   - source: Mutation source recorded against each transition
func (c *Controller) Apply(ctx context.Context, desired ActuatorState, source string) error {
	c.mu.Lock()
	var errs []error
	var committed []channelChange
	for _, ch := range channelOrder {
		spec := channelTable[ch]
		want := spec.get(desired)
		have := spec.get(c.state)
		if want == have {
			continue
		}
		if err := c.writeLocked(ctx, ch, want, source); err != nil {
			errs = append(errs, err)
			continue
		}
		committed = append(committed, channelChange{ch, want})
	}
	c.mu.Unlock()

	for _, cc := range committed {
		c.notify(cc.channel, cc.value, source)
	}
	return errors.Join(errs...)
}

// channelChange is a committed transition queued for callback fan-out
// after the controller mutex is released.
type channelChange struct {
	channel Channel
	value   Value
}

// Set writes a single channel.
//
// Parameters:
//   - ctx: Used for history recording
//   - ch: Target channel
//   - value: Validated value (see ParseValue)
//   - source: Mutation source recorded against the transition
//
// Returns:
//   - error: ErrUnknownChannel, or the wrapped backend failure
func (c *Controller) Set(ctx context.Context, ch Channel, value Value, source string) error {
	spec, ok := channelTable[ch]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}

	c.mu.Lock()
	if spec.get(c.state) == value {
		c.mu.Unlock()
		return nil
	}
	err := c.writeLocked(ctx, ch, value, source)
	c.mu.Unlock()

	if err == nil {
		c.notify(ch, value, source)
	}
	return err
}

// writeLocked performs one channel write. Caller holds mu.
// On failure the recorded state keeps its previous value.
func (c *Controller) writeLocked(ctx context.Context, ch Channel, value Value, source string) error {
	spec := channelTable[ch]

	if err := spec.apply(c.cap, value); err != nil {
		c.logger.Error("channel write failed, state retained",
			"channel", ch,
			"value", float64(value),
			"source", source,
			"error", err,
		)
		return fmt.Errorf("writing channel %s: %w", ch, err)
	}

	spec.set(&c.state, value)
	c.logger.Debug("channel written",
		"channel", ch,
		"value", float64(value),
		"source", source,
	)

	c.recordLocked(ctx, ch, value, source)
	return nil
}

// recordLocked appends the transition to the history repository.
// Failures are logged and swallowed; the audit trail never gates hardware.
func (c *Controller) recordLocked(ctx context.Context, ch Channel, value Value, source string) {
	if c.history == nil {
		return
	}
	tr := Transition{
		ID:         uuid.New().String(),
		Channel:    ch,
		Value:      float64(value),
		Source:     source,
		RecordedAt: time.Now().UTC(),
	}
	if err := c.history.Record(ctx, tr); err != nil {
		c.logger.Warn("recording transition failed", "channel", ch, "error", err)
	}
}

func (c *Controller) notify(ch Channel, value Value, source string) {
	c.callbackMu.RLock()
	fn := c.onChange
	c.callbackMu.RUnlock()
	if fn != nil {
		fn(ch, value, source)
	}
}

// History returns recent transitions for a channel, newest first.
func (c *Controller) History(ctx context.Context, ch Channel, limit int) ([]Transition, error) {
	if c.history == nil {
		return nil, nil
	}
	return c.history.List(ctx, ch, limit)
}
