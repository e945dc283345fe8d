package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
)

// fakeCapability records Set* calls and can fail individual channels.
type fakeCapability struct {
	mu     sync.Mutex
	state  ActuatorState
	fail   map[Channel]error
	writes []Channel

	inFlight   atomic.Int32
	overlapped atomic.Bool
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{fail: make(map[Channel]error)}
}

// enter/exit detect overlapping actuator mutations.
func (f *fakeCapability) enter(ch Channel) error {
	if f.inFlight.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, ch)
	return f.fail[ch]
}

func (f *fakeCapability) exit() {
	f.inFlight.Add(-1)
}

func (f *fakeCapability) set(ch Channel, mutate func()) error {
	err := f.enter(ch)
	defer f.exit()
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate()
	return nil
}

func (f *fakeCapability) SetFan(on bool) error    { return f.set(ChannelFan, func() { f.state.Fan = on }) }
func (f *fakeCapability) SetHeater(on bool) error {
	return f.set(ChannelHeater, func() { f.state.Heater = on })
}
func (f *fakeCapability) SetPump(on bool) error {
	return f.set(ChannelPump, func() { f.state.Pump = on })
}
func (f *fakeCapability) SetSprinkler(on bool) error {
	return f.set(ChannelSprinkler, func() { f.state.Sprinkler = on })
}
func (f *fakeCapability) SetLight(level float64) error {
	return f.set(ChannelLight, func() { f.state.Light = level })
}

func (f *fakeCapability) ReadTemperatureHumidity() (float64, float64, error) { return 24, 60, nil }
func (f *fakeCapability) ReadAmbientLight() (float64, error)                 { return 120, nil }

func (f *fakeCapability) State() (ActuatorState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeCapability) Close() error { return nil }

func (f *fakeCapability) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// fakeHistory collects transitions in memory.
type fakeHistory struct {
	mu          sync.Mutex
	transitions []Transition
	failWith    error
}

func (h *fakeHistory) Record(_ context.Context, tr Transition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failWith != nil {
		return h.failWith
	}
	h.transitions = append(h.transitions, tr)
	return nil
}

func (h *fakeHistory) List(_ context.Context, ch Channel, limit int) ([]Transition, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Transition
	for i := len(h.transitions) - 1; i >= 0 && len(out) < limit; i-- {
		if ch == "" || h.transitions[i].Channel == ch {
			out = append(out, h.transitions[i])
		}
	}
	return out, nil
}

func testController(t *testing.T) (*Controller, *fakeCapability, *fakeHistory) {
	t.Helper()
	cap := newFakeCapability()
	history := &fakeHistory{}
	ctrl := NewController(cap, history, logging.Default())
	return ctrl, cap, history
}

func TestController_ApplyWritesOnlyDeltas(t *testing.T) {
	ctrl, cap, _ := testController(t)
	ctx := context.Background()

	desired := ActuatorState{Heater: true, Light: 0.5}
	if err := ctrl.Apply(ctx, desired, SourceAutomation); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if got := cap.writeCount(); got != 2 {
		t.Errorf("first apply wrote %d channels, want 2", got)
	}

	// Same desired state again: no writes at all.
	if err := ctrl.Apply(ctx, desired, SourceAutomation); err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}
	if got := cap.writeCount(); got != 2 {
		t.Errorf("idempotent apply wrote %d channels total, want still 2", got)
	}

	if snap := ctrl.Snapshot(); !snap.Heater || snap.Light != 0.5 {
		t.Errorf("Snapshot() = %+v, want heater on, light 0.5", snap)
	}
}

func TestController_ApplyIsolatesChannelFaults(t *testing.T) {
	ctrl, cap, _ := testController(t)
	ctx := context.Background()

	relayErr := errors.New("relay stuck")
	cap.fail[ChannelHeater] = relayErr

	desired := ActuatorState{Heater: true, Fan: true}
	err := ctrl.Apply(ctx, desired, SourceAutomation)
	if err == nil {
		t.Fatal("Apply expected error for failing heater, got nil")
	}
	if !errors.Is(err, relayErr) {
		t.Errorf("Apply error = %v, want wrapped relay error", err)
	}

	snap := ctrl.Snapshot()
	if snap.Heater {
		t.Error("failed heater write recorded as committed")
	}
	if !snap.Fan {
		t.Error("fan write did not proceed despite heater fault")
	}

	// Fault clears: the next apply retries only the heater.
	delete(cap.fail, ChannelHeater)
	before := cap.writeCount()
	if err := ctrl.Apply(ctx, desired, SourceAutomation); err != nil {
		t.Fatalf("retry Apply returned error: %v", err)
	}
	if got := cap.writeCount() - before; got != 1 {
		t.Errorf("retry wrote %d channels, want 1 (heater only)", got)
	}
	if !ctrl.Snapshot().Heater {
		t.Error("heater not committed after fault cleared")
	}
}

func TestController_SetValidatesChannel(t *testing.T) {
	ctrl, _, _ := testController(t)

	err := ctrl.Set(context.Background(), "bogus", 1, SourceManual)
	if !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Set(bogus) error = %v, want ErrUnknownChannel", err)
	}
}

func TestController_RecordsTransitions(t *testing.T) {
	ctrl, _, history := testController(t)
	ctx := context.Background()

	if err := ctrl.Set(ctx, ChannelFan, 1, SourceManual); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := ctrl.Set(ctx, ChannelFan, 1, SourceManual); err != nil {
		t.Fatalf("idempotent Set returned error: %v", err)
	}

	history.mu.Lock()
	count := len(history.transitions)
	history.mu.Unlock()
	if count != 1 {
		t.Fatalf("recorded %d transitions, want 1 (idempotent set skipped)", count)
	}

	history.mu.Lock()
	tr := history.transitions[0]
	history.mu.Unlock()
	if tr.Channel != ChannelFan || tr.Value != 1 || tr.Source != SourceManual {
		t.Errorf("transition = %+v, want fan/1/manual", tr)
	}
	if tr.ID == "" {
		t.Error("transition ID is empty")
	}
}

func TestController_HistoryFailureDoesNotBlockWrite(t *testing.T) {
	ctrl, cap, history := testController(t)
	history.failWith = errors.New("disk full")

	if err := ctrl.Set(context.Background(), ChannelPump, 1, SourceWatering); err != nil {
		t.Fatalf("Set returned error despite history being best-effort: %v", err)
	}
	state, _ := cap.State()
	if !state.Pump {
		t.Error("pump not switched when history failed")
	}
}

func TestController_NotifiesAfterCommit(t *testing.T) {
	ctrl, _, _ := testController(t)

	type event struct {
		ch     Channel
		value  Value
		source string
	}
	var mu sync.Mutex
	var events []event
	ctrl.OnChange(func(ch Channel, v Value, source string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event{ch, v, source})
	})

	desired := ActuatorState{Fan: true, Heater: true}
	if err := ctrl.Apply(context.Background(), desired, SourceAutomation); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("got %d change events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.source != SourceAutomation {
			t.Errorf("event source = %q, want %q", ev.source, SourceAutomation)
		}
	}
}

func TestController_ReconcileAdoptsBackendState(t *testing.T) {
	cap := newFakeCapability()
	cap.state = ActuatorState{Fan: true, Light: 0.3}
	ctrl := NewController(cap, nil, logging.Default())

	if err := ctrl.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	snap := ctrl.Snapshot()
	if !snap.Fan || snap.Light != 0.3 {
		t.Errorf("Snapshot() = %+v, want reconciled fan on, light 0.3", snap)
	}

	// Applying the same state writes nothing: reconciliation means the
	// first diff runs against reality, not against a zero value.
	if err := ctrl.Apply(context.Background(), snap, SourceAutomation); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if got := cap.writeCount(); got != 0 {
		t.Errorf("apply after reconcile wrote %d channels, want 0", got)
	}
}

func TestController_SerialisesConcurrentMutation(t *testing.T) {
	ctrl, cap, _ := testController(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = ctrl.Set(ctx, ChannelFan, boolValue(on), SourceManual)
				_ = ctrl.Apply(ctx, ActuatorState{Heater: on, Light: 0.5}, SourceAutomation)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if cap.overlapped.Load() {
		t.Error("observed overlapping actuator mutations; writes must be serialised")
	}
}
