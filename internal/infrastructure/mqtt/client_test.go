package mqtt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeLogger records log calls for assertion.
type fakeLogger struct {
	errors   []string
	warnings []string
}

func (f *fakeLogger) Error(msg string, _ ...any) { f.errors = append(f.errors, msg) }
func (f *fakeLogger) Warn(msg string, _ ...any)  { f.warnings = append(f.warnings, msg) }

// fakeMessage implements pahomqtt.Message for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// TestPublish_Validation verifies input checks run before any broker IO.
func TestPublish_Validation(t *testing.T) {
	c := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "leafcore/telemetry", []byte("x"), 3, ErrPublishFailed},
		{"oversized payload", "leafcore/telemetry", bytes.Repeat([]byte("a"), maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "leafcore/telemetry", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestSubscribe_Validation verifies subscribe input checks.
func TestSubscribe_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("leafcore/command/+", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() while disconnected error = %v, want ErrNotConnected", err)
	}
}

// TestWrapHandler_PanicRecovery verifies a panicking handler is contained.
func TestWrapHandler_PanicRecovery(t *testing.T) {
	logger := &fakeLogger{}
	c := &Client{logger: logger}

	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("handler exploded")
	})

	// Must not propagate the panic.
	wrapped(nil, &fakeMessage{topic: "leafcore/command/fan", payload: []byte("true")})

	if len(logger.errors) != 1 {
		t.Errorf("logged errors = %d, want 1", len(logger.errors))
	}
}

// TestWrapHandler_OversizedPayload verifies large payloads are dropped
// before reaching the handler.
func TestWrapHandler_OversizedPayload(t *testing.T) {
	logger := &fakeLogger{}
	c := &Client{logger: logger}

	called := false
	wrapped := c.wrapHandler(func(string, []byte) error {
		called = true
		return nil
	})

	wrapped(nil, &fakeMessage{
		topic:   "leafcore/command/fan",
		payload: bytes.Repeat([]byte("a"), maxPayloadSize+1),
	})

	if called {
		t.Error("handler should not run for oversized payload")
	}
	if len(logger.warnings) != 1 {
		t.Errorf("logged warnings = %d, want 1", len(logger.warnings))
	}
}

// TestWrapHandler_ErrorLogged verifies handler errors are logged, not
// swallowed silently.
func TestWrapHandler_ErrorLogged(t *testing.T) {
	logger := &fakeLogger{}
	c := &Client{logger: logger}

	wrapped := c.wrapHandler(func(string, []byte) error {
		return fmt.Errorf("bad payload")
	})
	wrapped(nil, &fakeMessage{topic: "leafcore/command/fan", payload: []byte("garbage")})

	if len(logger.warnings) != 1 {
		t.Errorf("logged warnings = %d, want 1", len(logger.warnings))
	}
}

// TestHealthCheck_Cancelled verifies context cancellation is honoured.
func TestHealthCheck_Cancelled(t *testing.T) {
	c := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

var _ pahomqtt.Message = (*fakeMessage)(nil)
